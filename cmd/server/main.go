package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mcoot/hackstorm/internal/activitylog"
	"github.com/mcoot/hackstorm/internal/admin"
	"github.com/mcoot/hackstorm/internal/api"
	"github.com/mcoot/hackstorm/internal/api/handler"
	"github.com/mcoot/hackstorm/internal/dependencies/clock"
	"github.com/mcoot/hackstorm/internal/dispatch"
	"github.com/mcoot/hackstorm/internal/factory"
	"github.com/mcoot/hackstorm/internal/server"
	filestorage "github.com/mcoot/hackstorm/internal/storage/file"
	redisstorage "github.com/mcoot/hackstorm/internal/storage/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "hackstorm-server:", err)
		os.Exit(1)
	}
}

func run() error {
	dataDir := getEnvOrDefault("HACKSTORM_DATA_DIR", "server_data")

	// Log to stdout and the daily activity log
	logCfg := activitylog.DefaultConfig(dataDir)
	if days, ok, err := envInt("LOG_RETENTION_DAYS"); err != nil {
		return err
	} else if ok {
		logCfg.RetentionDays = days
	}
	activity, err := activitylog.New(logCfg, clock.New())
	if err != nil {
		return err
	}
	defer activity.Close()

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stdout, activity), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Build factory config from environment
	cfg := factory.Config{
		Logger:         logger,
		StorageType:    getEnvOrDefault("STORAGE_TYPE", factory.StorageTypeFile),
		DispatchConfig: dispatch.DefaultConfig(),
	}
	switch cfg.StorageType {
	case factory.StorageTypeFile:
		fileCfg := filestorage.DefaultConfig(dataDir)
		cfg.FileConfig = &fileCfg
	case factory.StorageTypeRedis:
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			return fmt.Errorf("REDIS_URL required when STORAGE_TYPE=redis")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	serverCfg := server.DefaultConfig()
	serverCfg.Addr = getEnvOrDefault("HACKSTORM_ADDR", serverCfg.Addr)
	if d, ok, err := envDuration("IDLE_TIMEOUT"); err != nil {
		return err
	} else if ok {
		serverCfg.IdleTimeout = d
	}
	if n, ok, err := envInt("MAX_CONNECTIONS"); err != nil {
		return err
	} else if ok {
		serverCfg.MaxConnections = n
	}

	tcp := app.NewServer(serverCfg)
	if err := tcp.Listen(); err != nil {
		return err
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- tcp.Serve(ctx)
	}()

	var status *api.Server
	if addr := os.Getenv("STATUS_ADDR"); addr != "" {
		router := api.NewRouter(api.RouterConfig{
			Logger:   logger,
			Accounts: app.AccountService,
			Presence: app.Registry,
			Meta: handler.ServerMeta{
				Name:    cfg.DispatchConfig.ServerName,
				Version: cfg.DispatchConfig.Version,
				Uptime:  app.Dispatcher.Uptime,
			},
		})
		statusCfg := api.DefaultServerConfig()
		statusCfg.Addr = addr
		status = api.NewServer(router, statusCfg, logger)
		if err := status.Listen(); err != nil {
			return err
		}
		go func() {
			if err := status.Serve(); err != nil {
				errCh <- err
			}
		}()
	}

	// Admin console on stdin; "stop" cancels like a signal
	console := admin.New(app.Dispatcher, app.AccountService, app.Registry, cancel, os.Stdout, logger)
	go func() {
		if err := console.Run(ctx, os.Stdin); err != nil {
			logger.Warn("admin console ended", slog.Any("error", err))
		}
	}()

	logger.Info("server started",
		slog.String("addr", tcp.Addr().String()),
		slog.String("storage", cfg.StorageType),
		slog.String("data_dir", dataDir))

	var serveErr error
	select {
	case serveErr = <-errCh:
		logger.Error("server error", slog.Any("error", serveErr))
	case <-ctx.Done():
		logger.Info("shutdown requested")
	}

	if err := tcp.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}
	if status != nil {
		if err := status.Shutdown(context.Background()); err != nil {
			logger.Error("status API shutdown error", slog.Any("error", err))
		}
	}

	logger.Info("server stopped")
	return serveErr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envInt(key string) (int, bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, true, nil
}

func envDuration(key string) (time.Duration, bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, true, nil
}
