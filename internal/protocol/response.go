package protocol

import (
	"time"

	"github.com/mcoot/hackstorm/internal/model"
)

// Response status values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Status is the common head of every response. Action-specific
// responses embed it so its fields sit at the top level of the frame.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// OK returns a successful status with a message
func OK(message string) Status {
	return Status{Status: StatusOK, Message: message}
}

// Err reports the status as a *Error, or nil on success
func (s Status) Err() error {
	if s.Status == StatusOK {
		return nil
	}
	return &Error{Code: s.Code, Message: s.Message}
}

type LoginResponse struct {
	Status
	GameState model.GameState `json:"game_state"`
	Stats     model.Stats     `json:"stats"`
}

// OnlinePlayer is one row of the online listing
type OnlinePlayer struct {
	Name  string `json:"name"`
	Level int64  `json:"level"`
}

type OnlineResponse struct {
	Status
	Players []OnlinePlayer `json:"players"`
	Count   int            `json:"count"`
}

type ChatHistoryResponse struct {
	Status
	Messages []model.ChatMessage `json:"messages"`
}

type LeaderboardResponse struct {
	Status
	SortBy      model.SortField `json:"sort_by"`
	Leaderboard []model.Summary `json:"leaderboard"`
}

type ProfileResponse struct {
	Status
	Profile model.Profile `json:"profile"`
}

type InfoResponse struct {
	Status
	Server        string `json:"server"`
	Version       string `json:"version"`
	TotalPlayers  int    `json:"total_players"`
	Online        int    `json:"online"`
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type PongResponse struct {
	Status
	Time time.Time `json:"time"`
}

type StatsResponse struct {
	Status
	Stats model.Stats `json:"stats"`
}
