package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/hackstorm/internal/api/request"
	"github.com/mcoot/hackstorm/internal/api/response"
	"github.com/mcoot/hackstorm/internal/model"
)

// Accounts is the read side of the account service
type Accounts interface {
	Count(ctx context.Context) (int, error)
	Summaries(ctx context.Context, names []string) ([]model.Summary, error)
	Leaderboard(ctx context.Context, sortBy string, limit int) (model.SortField, []model.Summary, error)
	Profile(ctx context.Context, name string) (model.Profile, error)
}

// Presence lists the accounts with a live session
type Presence interface {
	Names() []string
}

// ServerMeta identifies the running session server
type ServerMeta struct {
	Name    string
	Version string
	Uptime  func() time.Duration
}

// StatusHandler serves read-only views of server state
type StatusHandler struct {
	accounts Accounts
	presence Presence
	meta     ServerMeta
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(accounts Accounts, presence Presence, meta ServerMeta) *StatusHandler {
	return &StatusHandler{
		accounts: accounts,
		presence: presence,
		meta:     meta,
	}
}

// Health handles GET /api/v1/health
func (h *StatusHandler) Health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}

// Info handles GET /api/v1/info
func (h *StatusHandler) Info(w http.ResponseWriter, r *http.Request) {
	total, err := h.accounts.Count(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	var uptime time.Duration
	if h.meta.Uptime != nil {
		uptime = h.meta.Uptime()
	}
	response.JSON(w, http.StatusOK, response.Info{
		Server:        h.meta.Name,
		Version:       h.meta.Version,
		TotalPlayers:  total,
		Online:        len(h.presence.Names()),
		Uptime:        uptime.String(),
		UptimeSeconds: int64(uptime.Seconds()),
	})
}

// Online handles GET /api/v1/online
func (h *StatusHandler) Online(w http.ResponseWriter, r *http.Request) {
	rows, err := h.accounts.Summaries(r.Context(), h.presence.Names())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.OnlineFromSummaries(rows))
}

// Leaderboard handles GET /api/v1/leaderboard
func (h *StatusHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q, err := request.ParseLeaderboardQuery(r)
	if err != nil {
		WriteError(w, NewInvalidRequestError(err.Error()))
		return
	}

	field, rows, err := h.accounts.Leaderboard(r.Context(), q.SortBy, q.Limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Leaderboard{SortBy: string(field), Entries: rows})
}

// Player handles GET /api/v1/players/{name}
func (h *StatusHandler) Player(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(mux.Vars(r)["name"])
	if name == "" {
		WriteError(w, NewInvalidRequestError("name is required"))
		return
	}

	profile, err := h.accounts.Profile(r.Context(), name)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PlayerFromProfile(profile))
}
