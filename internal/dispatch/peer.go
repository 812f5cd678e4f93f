package dispatch

import (
	"time"

	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/session"
)

// Peer is the dispatcher's view of one connection. It is owned by the
// connection's goroutine and never shared.
type Peer struct {
	Conn session.Conn
	Addr string

	account   string
	lastState model.GameState
	since     time.Time
}

// NewPeer creates the state for a freshly accepted connection
func NewPeer(conn session.Conn, addr string) *Peer {
	return &Peer{Conn: conn, Addr: addr}
}

// Account returns the account this connection logged into, if any
func (p *Peer) Account() string {
	return p.account
}

func (p *Peer) reset() {
	p.account = ""
	p.lastState = nil
	p.since = time.Time{}
}
