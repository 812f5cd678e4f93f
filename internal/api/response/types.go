package response

import (
	"time"

	"github.com/mcoot/hackstorm/internal/model"
)

// Health is the liveness response
type Health struct {
	Status string `json:"status"`
}

// Info describes the running server
type Info struct {
	Server        string `json:"server"`
	Version       string `json:"version"`
	TotalPlayers  int    `json:"total_players"`
	Online        int    `json:"online"`
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// OnlinePlayer is one row of the online list
type OnlinePlayer struct {
	Name  string `json:"name"`
	Level int64  `json:"level"`
}

// Online lists the accounts with a live session
type Online struct {
	Players []OnlinePlayer `json:"players"`
	Count   int            `json:"count"`
}

// OnlineFromSummaries converts summary rows to the online list
func OnlineFromSummaries(rows []model.Summary) Online {
	players := make([]OnlinePlayer, len(rows))
	for i, r := range rows {
		players[i] = OnlinePlayer{Name: r.Name, Level: r.Level}
	}
	return Online{Players: players, Count: len(players)}
}

// Leaderboard is a sorted page of account summaries
type Leaderboard struct {
	SortBy  string          `json:"sort_by"`
	Entries []model.Summary `json:"leaderboard"`
}

// Player is the public profile of one account
type Player struct {
	Name        string    `json:"name"`
	Level       int64     `json:"level"`
	Money       int64     `json:"money"`
	Reputation  int64     `json:"reputation"`
	Missions    int       `json:"missions"`
	Tools       int       `json:"tools"`
	Online      bool      `json:"online"`
	LastLoginAt time.Time `json:"last_login,omitzero"`
	CreatedAt   time.Time `json:"created"`
	TotalLogins int       `json:"total_logins"`
}

// PlayerFromProfile converts a model.Profile to a response Player
func PlayerFromProfile(p model.Profile) Player {
	return Player{
		Name:        p.Name,
		Level:       p.Level,
		Money:       p.Money,
		Reputation:  p.Reputation,
		Missions:    p.Missions,
		Tools:       p.Tools,
		Online:      p.Online,
		LastLoginAt: p.LastLoginAt,
		CreatedAt:   p.CreatedAt,
		TotalLogins: p.TotalLogins,
	}
}
