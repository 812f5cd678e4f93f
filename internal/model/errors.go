package model

import "errors"

// Common errors used across the application
var (
	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")

	// Session errors
	ErrNotLoggedIn = errors.New("not logged in")
	ErrNotOnline   = errors.New("account is not online")

	// Validation errors
	ErrInvalidGameState = errors.New("game state must be a JSON object")
	ErrNegativeStats    = errors.New("stats deltas must not be negative")
	ErrInvalidSortField = errors.New("invalid leaderboard sort field")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrMessageTooLong   = errors.New("message is too long")
)
