package model

import (
	"bytes"
	"encoding/json"
)

// GameState is the opaque game-state document owned by the gameplay layer.
// The core stores and returns it without interpreting it; the only reader is
// the leaderboard projection in Summarize.
type GameState json.RawMessage

// defaultGameState is the document handed to freshly registered accounts
const defaultGameState = `{"money":1000,"level":1,"xp":0,"xp_to_next":100,"reputation":0,` +
	`"crypto_wallet":0.0,"tools":["nmap","ping"],"files":["readme.txt","notes.txt"],` +
	`"detection_level":0,"vpn_active":false,"proxy_chains":0,"botnet_size":0,` +
	`"known_passwords":{},"backdoors":[],"intercepted_data":[],"completed_missions":[],` +
	`"compromised_targets":[],"notes":[],"tutorial_done":false}`

// DefaultGameState returns a copy of the starting document
func DefaultGameState() GameState {
	return GameState(defaultGameState)
}

// MarshalJSON emits the document as-is
func (g GameState) MarshalJSON() ([]byte, error) {
	if len(g) == 0 {
		return []byte("null"), nil
	}
	return g, nil
}

// UnmarshalJSON keeps a copy of the raw document
func (g *GameState) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*g = nil
		return nil
	}
	*g = append((*g)[0:0], data...)
	return nil
}

// IsEmpty reports whether no document is present
func (g GameState) IsEmpty() bool {
	return len(bytes.TrimSpace(g)) == 0
}

// Validate checks that the document is a well-formed JSON object
func (g GameState) Validate() error {
	trimmed := bytes.TrimSpace(g)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrInvalidGameState
	}
	return nil
}

// Clone returns an independent copy
func (g GameState) Clone() GameState {
	if g == nil {
		return nil
	}
	c := make(GameState, len(g))
	copy(c, g)
	return c
}
