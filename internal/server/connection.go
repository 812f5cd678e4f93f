package server

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/mcoot/hackstorm/internal/protocol"
	"github.com/mcoot/hackstorm/internal/session"
)

// ErrOutboundFull is returned by Send when the peer is not draining its
// queue fast enough. The frame is dropped.
var ErrOutboundFull = errors.New("outbound queue full")

// connection is the write side of one accepted socket. Frames are queued
// and written by a single writer goroutine, so responses and pushes never
// interleave on the wire and no other goroutine waits on this peer's I/O.
type connection struct {
	id           string
	conn         net.Conn
	writeTimeout time.Duration
	openedAt     time.Time

	out       chan []byte
	closing   chan struct{}
	closeOnce sync.Once
	written   chan struct{} // closed when the writer has exited
}

var _ session.Conn = (*connection)(nil)

func newConnection(id string, conn net.Conn, cfg Config, openedAt time.Time) *connection {
	queue := cfg.OutboundQueue
	if queue <= 0 {
		queue = DefaultConfig().OutboundQueue
	}
	c := &connection{
		id:           id,
		conn:         conn,
		writeTimeout: cfg.WriteTimeout,
		openedAt:     openedAt,
		out:          make(chan []byte, queue),
		closing:      make(chan struct{}),
		written:      make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *connection) ID() string {
	return c.id
}

// Send queues one complete frame without waiting for the peer
func (c *connection) Send(frame []byte) error {
	select {
	case <-c.closing:
		return net.ErrClosed
	default:
	}
	select {
	case c.out <- frame:
		return nil
	default:
		return ErrOutboundFull
	}
}

// reply encodes a response and queues it, waiting for queue space. Only
// the connection's own handler calls it.
func (c *connection) reply(v any) error {
	frame, err := protocol.Encode(v)
	if err != nil {
		frame, _ = protocol.Encode(protocol.ErrorResponse(err))
	}
	select {
	case <-c.closing:
		return net.ErrClosed
	default:
	}
	select {
	case c.out <- frame:
		return nil
	case <-c.closing:
		return net.ErrClosed
	}
}

// Close stops accepting frames. The writer flushes what is already queued
// and then closes the socket. Safe to call from any goroutine, any number
// of times.
func (c *connection) Close() error {
	c.closeOnce.Do(func() { close(c.closing) })
	return nil
}

// abort closes the socket at once, dropping anything still queued
func (c *connection) abort() {
	_ = c.Close()
	_ = c.conn.Close()
}

// wait blocks until the socket is closed
func (c *connection) wait() {
	<-c.written
}

func (c *connection) writeLoop() {
	defer close(c.written)
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case frame := <-c.out:
			if err := c.write(frame); err != nil {
				// A timed-out write may have left part of a frame on the stream
				_ = c.Close()
				return
			}
		case <-c.closing:
			for {
				select {
				case frame := <-c.out:
					if err := c.write(frame); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *connection) write(frame []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(frame)
	return err
}
