package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/hackstorm/internal/api/handler"
	"github.com/mcoot/hackstorm/internal/api/middleware"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger   *slog.Logger
	Accounts handler.Accounts
	Presence handler.Presence
	Meta     handler.ServerMeta
}

// NewRouter creates a new API router with all routes configured.
// Every route is read-only.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := mux.NewRouter()

	statusHandler := handler.NewStatusHandler(cfg.Accounts, cfg.Presence, cfg.Meta)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(logger))
	api.Use(middleware.Logging(logger))

	api.HandleFunc("/health", statusHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/info", statusHandler.Info).Methods(http.MethodGet)
	api.HandleFunc("/online", statusHandler.Online).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", statusHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/players/{name}", statusHandler.Player).Methods(http.MethodGet)

	return r
}
