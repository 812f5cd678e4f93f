package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/hackstorm/internal/dependencies/clock"
	"github.com/mcoot/hackstorm/internal/protocol"
)

// Conn is the write side of a live connection as seen by the registry
type Conn interface {
	// ID identifies the connection in logs
	ID() string

	// Send queues one complete frame for the connection's writer. It never
	// waits on the peer; a frame it cannot take is dropped with an error.
	Send(frame []byte) error

	// Close tears the connection down
	Close() error
}

// Session associates an online account with its connection
type Session struct {
	Name          string
	Conn          Conn
	EstablishedAt time.Time
}

// Registry is the authoritative table of online accounts.
// One mutex guards every mutation and iteration; no I/O happens under it.
type Registry struct {
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]Session
}

// NewRegistry creates an empty registry
func NewRegistry(clock clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		clock:    clock,
		logger:   logger.With(slog.String("component", "session-registry")),
		sessions: make(map[string]Session),
	}
}

// Register makes conn the owner of name and returns the connection it
// replaced, if any. The caller is responsible for evicting it.
func (r *Registry) Register(name string, conn Conn) Conn {
	r.mu.Lock()
	prev, had := r.sessions[name]
	r.sessions[name] = Session{Name: name, Conn: conn, EstablishedAt: r.clock.Now()}
	count := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("session registered",
		slog.String("account", name),
		slog.String("conn", conn.ID()),
		slog.Int("online", count))

	if had && prev.Conn != conn {
		return prev.Conn
	}
	return nil
}

// Unregister removes name only while conn still owns it, and reports
// whether it did
func (r *Registry) Unregister(name string, conn Conn) bool {
	r.mu.Lock()
	current, ok := r.sessions[name]
	owned := ok && current.Conn == conn
	if owned {
		delete(r.sessions, name)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if owned {
		r.logger.Info("session unregistered",
			slog.String("account", name),
			slog.String("conn", conn.ID()),
			slog.Duration("session_duration", clock.Since(r.clock, current.EstablishedAt)),
			slog.Int("online", count))
	}
	return owned
}

// Lookup returns the connection owning name
func (r *Registry) Lookup(name string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	return s.Conn, ok
}

// Owns reports whether conn currently owns the session for name
func (r *Registry) Owns(name string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	return ok && s.Conn == conn
}

// IsOnline reports whether name has a session
func (r *Registry) IsOnline(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[name]
	return ok
}

// Snapshot returns a copy of every session, sorted by account name
func (r *Registry) Snapshot() []Session {
	r.mu.Lock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the online account names, sorted
func (r *Registry) Names() []string {
	snap := r.Snapshot()
	names := make([]string, len(snap))
	for i, s := range snap {
		names[i] = s.Name
	}
	return names
}

// Count returns the number of online accounts
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Broadcast writes push to every session except exclude ("" excludes
// nobody) and returns the number of frames queued. Delivery is
// best-effort: a frame a connection cannot take is logged and dropped.
func (r *Registry) Broadcast(push protocol.Push, exclude string) int {
	frame, err := protocol.Encode(push)
	if err != nil {
		r.logger.Error("broadcast encode failed", slog.Any("error", err))
		return 0
	}

	sent, dropped := 0, 0
	for _, s := range r.Snapshot() {
		if s.Name == exclude {
			continue
		}
		if err := s.Conn.Send(frame); err != nil {
			dropped++
			r.logger.Debug("broadcast dropped",
				slog.String("account", s.Name),
				slog.String("conn", s.Conn.ID()),
				slog.Any("error", err))
			continue
		}
		sent++
	}
	if dropped > 0 {
		r.logger.Warn("broadcast partial failure",
			slog.String("type", string(push.Type)),
			slog.Int("sent", sent),
			slog.Int("dropped", dropped))
	}
	return sent
}

// Notify writes push to one account. It is a silent no-op when the
// account is offline or the write fails.
func (r *Registry) Notify(name string, push protocol.Push) {
	conn, ok := r.Lookup(name)
	if !ok {
		return
	}
	frame, err := protocol.Encode(push)
	if err != nil {
		r.logger.Error("notify encode failed", slog.Any("error", err))
		return
	}
	if err := conn.Send(frame); err != nil {
		r.logger.Warn("notify dropped",
			slog.String("account", name),
			slog.String("conn", conn.ID()),
			slog.Any("error", err))
	}
}
