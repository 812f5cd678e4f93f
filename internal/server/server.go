package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/mcoot/hackstorm/internal/dependencies/clock"
	"github.com/mcoot/hackstorm/internal/dependencies/random"
	"github.com/mcoot/hackstorm/internal/dispatch"
	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/protocol"
)

// Server accepts TCP connections and runs one goroutine per connection
type Server struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger

	mu           sync.Mutex
	listener     net.Listener
	conns        map[*connection]struct{}
	shuttingDown bool

	wg sync.WaitGroup
}

// New creates a new TCP server
func New(cfg Config, dispatcher *dispatch.Dispatcher, clock clock.Clock, random random.Random, logger *slog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		clock:      clock,
		random:     random,
		logger:     logger.With(slog.String("component", "tcp-server")),
		conns:      make(map[*connection]struct{}),
	}
}

// Listen binds the configured address
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start listens and serves until Shutdown
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve accepts connections on the bound listener until Shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("serve called before listen")
	}

	// In-flight requests finish even when the caller's context ends
	reqCtx := context.WithoutCancel(ctx)

	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isShuttingDown() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept failed", slog.Any("error", err))
			time.Sleep(50 * time.Millisecond)
			continue
		}

		c, ok := s.track(nc)
		if !ok {
			continue
		}
		s.wg.Add(1)
		go s.handle(reqCtx, c)
	}
}

// track registers a new connection, refusing it when the server is full
// or shutting down
func (s *Server) track(nc net.Conn) (*connection, bool) {
	c := newConnection(random.ConnectionID(s.random), nc, s.cfg, s.clock.Now())

	s.mu.Lock()
	full := s.cfg.MaxConnections > 0 && len(s.conns) >= s.cfg.MaxConnections
	closing := s.shuttingDown
	if !full && !closing {
		s.conns[c] = struct{}{}
	}
	count := len(s.conns)
	s.mu.Unlock()

	if full || closing {
		s.logger.Warn("connection refused",
			slog.String("addr", nc.RemoteAddr().String()),
			slog.Bool("full", full),
			slog.Int("open", count))
		_ = c.reply(protocol.Status{
			Status:  protocol.StatusError,
			Code:    protocol.CodeServerFull,
			Message: "Server is full, try again later.",
		})
		_ = c.Close()
		return nil, false
	}

	s.logger.Info("connection opened",
		slog.String("conn", c.ID()),
		slog.String("addr", nc.RemoteAddr().String()),
		slog.Int("open", count))
	return c, true
}

func (s *Server) untrack(c *connection) {
	s.mu.Lock()
	delete(s.conns, c)
	count := len(s.conns)
	s.mu.Unlock()

	s.logger.Info("connection closed",
		slog.String("conn", c.ID()),
		slog.Duration("connection_duration", clock.Since(s.clock, c.openedAt)),
		slog.Int("open", count))
}

func (s *Server) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown
}

// armRead sets the idle deadline for the next read. It fails once
// shutdown has begun so a reader cannot outrun the shutdown deadline.
func (s *Server) armRead(c *connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return false
	}
	var deadline time.Time
	if s.cfg.IdleTimeout > 0 {
		deadline = time.Now().Add(s.cfg.IdleTimeout)
	}
	return c.conn.SetReadDeadline(deadline) == nil
}

// handle owns one connection end to end
func (s *Server) handle(ctx context.Context, c *connection) {
	defer s.wg.Done()
	defer s.untrack(c)
	defer func() {
		_ = c.Close()
		c.wait()
	}()

	peer := dispatch.NewPeer(c, c.conn.RemoteAddr().String())
	defer s.dispatcher.Disconnect(ctx, peer)

	frames := protocol.NewFrameReader(c.conn, s.cfg.MaxFrameSize)
	for s.armRead(c) {
		frame, err := frames.Next()
		if err != nil {
			if errors.Is(err, protocol.ErrFrameTooLarge) {
				s.logger.Warn("oversized frame dropped", slog.String("conn", c.ID()))
				if err := c.reply(protocol.ErrorResponse(err)); err != nil {
					return
				}
				continue
			}
			s.logReadEnd(c, err)
			return
		}

		var resp any
		cmd, err := protocol.Decode(frame)
		if err != nil {
			s.logger.Debug("undecodable frame",
				slog.String("conn", c.ID()),
				slog.Any("error", err))
			resp = protocol.ErrorResponse(err)
		} else {
			resp = s.dispatcher.Dispatch(ctx, peer, cmd)
		}

		if err := c.reply(resp); err != nil {
			s.logger.Debug("write failed", slog.String("conn", c.ID()), slog.Any("error", err))
			return
		}
	}
}

func (s *Server) logReadEnd(c *connection, err error) {
	reason := "error"
	switch {
	case errors.Is(err, io.EOF):
		reason = "eof"
	case errors.Is(err, os.ErrDeadlineExceeded):
		reason = "idle"
		if s.isShuttingDown() {
			reason = "shutdown"
		}
	case errors.Is(err, net.ErrClosed):
		reason = "closed"
	}
	s.logger.Debug("read ended",
		slog.String("conn", c.ID()),
		slog.String("reason", reason),
		slog.Any("error", err))
}

// ConnectionCount returns the number of open connections
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Shutdown warns every connection, stops accepting, and waits for
// connection goroutines to finish their in-flight request. Connections
// still open when ctx ends are closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down TCP server")

	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	warning, _ := protocol.Encode(protocol.EventPush(model.Event{
		Type:      model.EventShutdown,
		Timestamp: s.clock.Now(),
	}))

	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return nil
	}
	s.shuttingDown = true
	ln := s.listener
	conns := make([]*connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Send(warning)
	}
	if ln != nil {
		_ = ln.Close()
	}
	// Wake blocked readers; a request being handled finishes first
	for _, c := range conns {
		_ = c.conn.SetReadDeadline(time.Now())
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("TCP server stopped")
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			c.abort()
		}
		s.mu.Unlock()
		<-done
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}
