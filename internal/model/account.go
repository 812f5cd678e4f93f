package model

import "time"

// Account is the durable record of one registered player
type Account struct {
	Name           string    `json:"username"`      // unique, immutable key
	CredentialHash string    `json:"password_hash"` // bcrypt hash, never the secret
	CreatedAt      time.Time `json:"created_at"`
	LastLoginAt    time.Time `json:"last_login_at"`
	LastSeenAt     time.Time `json:"last_seen_at,omitzero"` // last save or logout
	LoginCount     int       `json:"login_count"`
	GameState      GameState `json:"game_state"`
	Stats          Stats     `json:"stats"`
}

// Stats holds the aggregate counters for an account.
// Counters only ever grow; see Stats.Add.
type Stats struct {
	CommandsIssued     int64 `json:"commands_issued"`
	TargetsCompromised int64 `json:"targets_compromised"`
	MissionsCompleted  int64 `json:"missions_completed"`
	MoneyEarned        int64 `json:"money_earned"`
	PlayTimeSeconds    int64 `json:"play_time_seconds"`
}

// Validate reports whether s can be applied as a delta
func (s Stats) Validate() error {
	if s.CommandsIssued < 0 || s.TargetsCompromised < 0 || s.MissionsCompleted < 0 ||
		s.MoneyEarned < 0 || s.PlayTimeSeconds < 0 {
		return ErrNegativeStats
	}
	return nil
}

// Add returns s with delta accumulated into it
func (s Stats) Add(delta Stats) Stats {
	return Stats{
		CommandsIssued:     s.CommandsIssued + delta.CommandsIssued,
		TargetsCompromised: s.TargetsCompromised + delta.TargetsCompromised,
		MissionsCompleted:  s.MissionsCompleted + delta.MissionsCompleted,
		MoneyEarned:        s.MoneyEarned + delta.MoneyEarned,
		PlayTimeSeconds:    s.PlayTimeSeconds + delta.PlayTimeSeconds,
	}
}

// IsZero reports whether every counter is zero
func (s Stats) IsZero() bool {
	return s == Stats{}
}

// Clone returns a deep copy of the account
func (a *Account) Clone() *Account {
	c := *a
	c.GameState = a.GameState.Clone()
	return &c
}
