package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/hackstorm/internal/dependencies/clock"
	"github.com/mcoot/hackstorm/internal/dependencies/random"
	"github.com/mcoot/hackstorm/internal/dispatch"
	"github.com/mcoot/hackstorm/internal/server"
	"github.com/mcoot/hackstorm/internal/services/account"
	"github.com/mcoot/hackstorm/internal/services/auth"
	"github.com/mcoot/hackstorm/internal/services/chat"
	"github.com/mcoot/hackstorm/internal/session"
	"github.com/mcoot/hackstorm/internal/storage"
	filestorage "github.com/mcoot/hackstorm/internal/storage/file"
	"github.com/mcoot/hackstorm/internal/storage/memory"
	redisstorage "github.com/mcoot/hackstorm/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeFile   = "file"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Logger *slog.Logger

	// Services
	Registry       *session.Registry
	AuthService    *auth.Service
	AccountService *account.Service
	ChatHistory    *chat.History
	Dispatcher     *dispatch.Dispatcher
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "file" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// FileConfig holds the record directory (required if StorageType is "file")
	FileConfig *filestorage.Config
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// DispatchConfig names the server in info responses (optional)
	DispatchConfig dispatch.Config
	// ChatCapacity bounds the chat history (optional)
	ChatCapacity int
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg, logger)
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeFile:
		if cfg.FileConfig == nil {
			return nil, errors.New("FileConfig required when StorageType is file")
		}
		return filestorage.New(*cfg.FileConfig)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'file' or 'redis'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) (*App, error) {
	authService, err := auth.New(store, clk, cfg.AuthConfig)
	if err != nil {
		return nil, err
	}

	dispatchCfg := cfg.DispatchConfig
	if dispatchCfg == (dispatch.Config{}) {
		dispatchCfg = dispatch.DefaultConfig()
	}
	capacity := cfg.ChatCapacity
	if capacity <= 0 {
		capacity = chat.DefaultCapacity
	}

	registry := session.NewRegistry(clk, logger)
	accountService := account.New(store, clk, registry, logger)
	history := chat.NewHistory(clk, capacity)
	dispatcher := dispatch.New(dispatchCfg, authService, accountService, history, registry, clk, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Logger:         logger,
		Registry:       registry,
		AuthService:    authService,
		AccountService: accountService,
		ChatHistory:    history,
		Dispatcher:     dispatcher,
	}, nil
}

// NewServer creates a TCP server bound to this app's dispatcher
func (a *App) NewServer(cfg server.Config) *server.Server {
	return server.New(cfg, a.Dispatcher, a.Clock, a.Random, a.Logger)
}

// Close releases storage resources, if the backend holds any
func (a *App) Close() error {
	if c, ok := a.Storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
