package server

import "time"

// Config holds TCP server settings
type Config struct {
	Addr string

	// IdleTimeout closes a connection that sends nothing for this long.
	// Zero disables it.
	IdleTimeout time.Duration

	// WriteTimeout bounds a single frame write. A peer that cannot take
	// a frame in this time is disconnected.
	WriteTimeout time.Duration

	// OutboundQueue is how many frames may wait for a slow peer before
	// further pushes to it are dropped
	OutboundQueue int

	// MaxConnections caps concurrently open connections
	MaxConnections int

	// MaxFrameSize caps a single request line
	MaxFrameSize int

	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults for the TCP server
func DefaultConfig() Config {
	return Config{
		Addr:            ":9999",
		IdleTimeout:     10 * time.Minute,
		WriteTimeout:    10 * time.Second,
		OutboundQueue:   256,
		MaxConnections:  50,
		MaxFrameSize:    64 * 1024,
		ShutdownTimeout: 10 * time.Second,
	}
}
