package model

import (
	"encoding/json"
	"sort"
	"time"
)

// SortField selects the leaderboard ordering
type SortField string

const (
	SortByReputation SortField = "reputation"
	SortByLevel      SortField = "level"
	SortByMoney      SortField = "money"
	SortByMissions   SortField = "missions"
)

// ParseSortField validates a caller-supplied sort field.
// An empty string selects reputation.
func ParseSortField(s string) (SortField, error) {
	switch SortField(s) {
	case "":
		return SortByReputation, nil
	case SortByReputation, SortByLevel, SortByMoney, SortByMissions:
		return SortField(s), nil
	default:
		return "", ErrInvalidSortField
	}
}

// Summary is the public projection of an account used by the leaderboard
type Summary struct {
	Name       string `json:"name"`
	Level      int64  `json:"level"`
	Money      int64  `json:"money"`
	Reputation int64  `json:"reputation"`
	Missions   int    `json:"missions"`
	Online     bool   `json:"online"`
}

// Profile is the public view of a single account
type Profile struct {
	Summary
	Tools       int       `json:"tools"`
	LastLoginAt time.Time `json:"last_login"`
	CreatedAt   time.Time `json:"created"`
	TotalLogins int       `json:"total_logins"`
}

// projection is the narrow slice of the game-state document the core reads
type projection struct {
	Level             *float64          `json:"level"`
	Money             float64           `json:"money"`
	Reputation        float64           `json:"reputation"`
	CompletedMissions []json.RawMessage `json:"completed_missions"`
	Tools             []json.RawMessage `json:"tools"`
}

func project(g GameState) projection {
	var p projection
	if len(g) > 0 {
		// A document the gameplay layer wrote in some other shape still gets a row
		_ = json.Unmarshal(g, &p)
	}
	return p
}

// Summarize reduces an account to its leaderboard row
func Summarize(a *Account, online bool) Summary {
	p := project(a.GameState)
	level := int64(1)
	if p.Level != nil {
		level = int64(*p.Level)
	}
	return Summary{
		Name:       a.Name,
		Level:      level,
		Money:      int64(p.Money),
		Reputation: int64(p.Reputation),
		Missions:   len(p.CompletedMissions),
		Online:     online,
	}
}

// ProfileOf builds the public profile of an account
func ProfileOf(a *Account, online bool) Profile {
	return Profile{
		Summary:     Summarize(a, online),
		Tools:       len(project(a.GameState).Tools),
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		TotalLogins: a.LoginCount,
	}
}

// SortSummaries orders rows descending by field, ties broken by name
func SortSummaries(rows []Summary, field SortField) {
	key := func(s Summary) int64 {
		switch field {
		case SortByLevel:
			return s.Level
		case SortByMoney:
			return s.Money
		case SortByMissions:
			return int64(s.Missions)
		default:
			return s.Reputation
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ki, kj := key(rows[i]), key(rows[j])
		if ki != kj {
			return ki > kj
		}
		return rows[i].Name < rows[j].Name
	})
}
