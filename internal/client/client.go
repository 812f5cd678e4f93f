package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/hackstorm/internal/protocol"
)

var (
	ErrClosed  = errors.New("connection closed")
	ErrTimeout = errors.New("request timed out")
)

// Options configures a client connection
type Options struct {
	// Timeout bounds dialing and each request. Zero means no limit.
	Timeout time.Duration

	// PushBuffer is how many pushes may queue before new ones are dropped
	PushBuffer int

	Logger *slog.Logger
}

// DefaultOptions returns sensible client defaults
func DefaultOptions() Options {
	return Options{
		Timeout:    10 * time.Second,
		PushBuffer: 256,
		Logger:     slog.New(slog.DiscardHandler),
	}
}

// Client is a single connection to a HackStorm server. It allows one
// request in flight at a time and routes pushes to a separate channel.
type Client struct {
	conn    net.Conn
	timeout time.Duration
	logger  *slog.Logger

	reqMu     sync.Mutex
	pending   atomic.Bool
	responses chan []byte
	pushes    chan protocol.Push
	dropped   atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
	readErr   error
}

// Dial connects to the server at addr
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.PushBuffer <= 0 {
		opts.PushBuffer = DefaultOptions().PushBuffer
	}

	dialer := net.Dialer{Timeout: opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return newClient(conn, opts), nil
}

func newClient(conn net.Conn, opts Options) *Client {
	c := &Client{
		conn:      conn,
		timeout:   opts.Timeout,
		logger:    opts.Logger.With(slog.String("component", "client")),
		responses: make(chan []byte, 1),
		pushes:    make(chan protocol.Push, opts.PushBuffer),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Pushes delivers notifications and chat messages. It is closed when the
// connection ends.
func (c *Client) Pushes() <-chan protocol.Push {
	return c.pushes
}

// Done is closed once the connection has ended
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, if it has. A server that refuses
// the connection outright reports why as a *protocol.Error.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.readErr
	default:
		return nil
	}
}

// Dropped counts pushes discarded because nobody was reading them
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Client) readLoop() {
	defer close(c.pushes)
	defer c.shutdown(nil)

	frames := protocol.NewFrameReader(c.conn, protocol.MaxFrameSize)
	for {
		frame, err := frames.Next()
		if err != nil {
			if errors.Is(err, protocol.ErrFrameTooLarge) {
				c.logger.Warn("oversized frame from server dropped")
				continue
			}
			c.shutdown(err)
			return
		}

		push, isPush, err := protocol.PeekPush(frame)
		if err != nil {
			c.logger.Warn("malformed frame from server", slog.Any("error", err))
			continue
		}
		if isPush {
			select {
			case c.pushes <- push:
			default:
				c.dropped.Add(1)
			}
			continue
		}

		if !c.pending.Load() {
			// An error nobody asked for is the server refusing the connection
			var status protocol.Status
			if err := json.Unmarshal(frame, &status); err == nil && status.Err() != nil {
				c.logger.Warn("server ended the connection", slog.String("code", status.Code))
				c.shutdown(status.Err())
				return
			}
			c.logger.Warn("unsolicited frame from server dropped")
			continue
		}

		// frame is reused by the reader on the next call
		resp := append([]byte(nil), frame...)
		select {
		case c.responses <- resp:
		case <-c.done:
			return
		}
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.readErr = err
		close(c.done)
		_ = c.conn.Close()
	})
}

// closedErr reports a refusal from the server if there was one
func (c *Client) closedErr() error {
	var pe *protocol.Error
	if errors.As(c.readErr, &pe) {
		return pe
	}
	return ErrClosed
}

// Close ends the connection
func (c *Client) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

// Do sends cmd and waits for its response. An error status comes back as
// a *protocol.Error. Otherwise the response is decoded into out, if non-nil.
// A request that times out closes the connection since its late response
// could no longer be matched.
func (c *Client) Do(ctx context.Context, cmd protocol.Command, out any) error {
	frame, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	select {
	case <-c.done:
		return c.closedErr()
	default:
	}

	c.pending.Store(true)
	defer c.pending.Store(false)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	}
	if _, err := c.conn.Write(frame); err != nil {
		c.shutdown(err)
		return fmt.Errorf("failed to send request: %w", err)
	}

	var resp []byte
	select {
	case resp = <-c.responses:
	case <-c.done:
		return c.closedErr()
	case <-ctx.Done():
		c.shutdown(ErrTimeout)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}

	var status protocol.Status
	if err := json.Unmarshal(resp, &status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := status.Err(); err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(resp, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
