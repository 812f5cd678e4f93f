package e2e_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/hackstorm/internal/client"
	"github.com/mcoot/hackstorm/internal/factory"
	"github.com/mcoot/hackstorm/internal/server"
	"github.com/mcoot/hackstorm/internal/services/auth"
	filestorage "github.com/mcoot/hackstorm/internal/storage/file"
	"github.com/mcoot/hackstorm/internal/testutil"
)

// testServer is a real TCP server over file storage in a temp directory
type testServer struct {
	app    *factory.App
	server *server.Server
	addr   string
	done   chan error
}

func startTestServer(t *testing.T, dataDir string) *testServer {
	t.Helper()

	fileCfg := filestorage.DefaultConfig(dataDir)
	app, err := factory.New(factory.Config{
		Logger:      testutil.NopLogger(),
		StorageType: factory.StorageTypeFile,
		FileConfig:  &fileCfg,
		AuthConfig:  auth.Config{BcryptCost: bcrypt.MinCost},
	})
	require.NoError(t, err)

	cfg := server.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = 5 * time.Second
	srv := app.NewServer(cfg)
	require.NoError(t, srv.Listen())

	ts := &testServer{
		app:    app,
		server: srv,
		addr:   srv.Addr().String(),
		done:   make(chan error, 1),
	}
	go func() { ts.done <- srv.Serve(context.Background()) }()

	t.Cleanup(func() { ts.stop(t) })
	return ts
}

func (ts *testServer) stop(t *testing.T) {
	t.Helper()
	if err := ts.server.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	_ = ts.app.Close()
}

func (ts *testServer) dial(t *testing.T) *client.Client {
	t.Helper()
	opts := client.DefaultOptions()
	opts.Timeout = 5 * time.Second
	c, err := client.Dial(context.Background(), ts.addr, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}
