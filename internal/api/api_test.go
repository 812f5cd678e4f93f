package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/hackstorm/internal/api"
	"github.com/mcoot/hackstorm/internal/api/apierr"
	"github.com/mcoot/hackstorm/internal/api/handler"
	"github.com/mcoot/hackstorm/internal/api/response"
	"github.com/mcoot/hackstorm/internal/factory"
	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/testutil"
)

// testServer wires the router to an in-memory app
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	app := factory.NewTestApp()

	router := api.NewRouter(api.RouterConfig{
		Logger:   logger,
		Accounts: app.AccountService,
		Presence: app.Registry,
		Meta: handler.ServerMeta{
			Name:    "HackStorm Server",
			Version: "2.0",
			Uptime:  func() time.Duration { return 75 * time.Second },
		},
	})
	return &testServer{handler: router, app: app}
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) seed(t *testing.T, name string, state string) {
	t.Helper()
	ctx := context.Background()
	_, err := ts.app.AuthService.Register(ctx, name, "pw1234")
	require.NoError(t, err)
	require.NoError(t, ts.app.AccountService.SaveGameState(ctx, name, model.GameState(state), nil))
}

type nopConn struct{ id string }

func (c nopConn) ID() string        { return c.id }
func (c nopConn) Send([]byte) error { return nil }
func (c nopConn) Close() error      { return nil }

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.get("/api/v1/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestInfo(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "neo", `{"level":3}`)
	ts.seed(t, "trinity", `{"level":5}`)
	ts.app.Registry.Register("neo", nopConn{"c-1"})

	rr := ts.get("/api/v1/info")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.Info
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "HackStorm Server", resp.Server)
	assert.Equal(t, 2, resp.TotalPlayers)
	assert.Equal(t, 1, resp.Online)
	assert.Equal(t, "1m15s", resp.Uptime)
	assert.Equal(t, int64(75), resp.UptimeSeconds)
}

func TestOnline(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "neo", `{"level":3}`)
	ts.seed(t, "trinity", `{"level":5}`)
	ts.app.Registry.Register("trinity", nopConn{"c-1"})

	rr := ts.get("/api/v1/online")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.Online
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, []response.OnlinePlayer{{Name: "trinity", Level: 5}}, resp.Players)
}

func TestLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "neo", `{"level":3,"money":100}`)
	ts.seed(t, "trinity", `{"level":5,"money":50}`)
	ts.seed(t, "morpheus", `{"level":1,"money":900}`)

	rr := ts.get("/api/v1/leaderboard?sort_by=money&limit=2")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.Leaderboard
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "money", resp.SortBy)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "morpheus", resp.Entries[0].Name)
	assert.Equal(t, "neo", resp.Entries[1].Name)
}

func TestLeaderboardRejectsBadQuery(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown sort field", "?sort_by=karma"},
		{"non-numeric limit", "?limit=ten"},
		{"negative limit", "?limit=-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.get("/api/v1/leaderboard" + tt.query)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var resp apierr.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, apierr.CodeInvalidRequest, resp.Error.Code)
		})
	}
}

func TestPlayerProfile(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "neo", `{"level":3,"tools":["nmap","ping","hydra"]}`)

	rr := ts.get("/api/v1/players/neo")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "neo", resp.Name)
	assert.Equal(t, int64(3), resp.Level)
	assert.Equal(t, 3, resp.Tools)
	assert.False(t, resp.Online)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestPlayerNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.get("/api/v1/players/ghost")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, apierr.CodePlayerNotFound, resp.Error.Code)
}

func TestWritesAreNotRouted(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/players/neo", nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestServerLifecycle(t *testing.T) {
	ts := newTestServer(t)

	cfg := api.DefaultServerConfig()
	cfg.Addr = "127.0.0.1:0"
	srv := api.NewServer(ts.handler, cfg, testutil.NopLogger())
	require.NoError(t, srv.Listen())
	assert.NotEqual(t, cfg.Addr, srv.Addr())

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}
}
