package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mcoot/hackstorm/internal/dependencies/clock"
	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/protocol"
	"github.com/mcoot/hackstorm/internal/services/account"
	"github.com/mcoot/hackstorm/internal/services/auth"
	"github.com/mcoot/hackstorm/internal/services/chat"
	"github.com/mcoot/hackstorm/internal/session"
)

// Config holds identity reported by the info action
type Config struct {
	ServerName string
	Version    string
}

// DefaultConfig returns the default server identity
func DefaultConfig() Config {
	return Config{
		ServerName: "HackStorm Server",
		Version:    "2.0",
	}
}

// Dispatcher maps decoded commands to responses. It performs no socket
// I/O of its own beyond pushes through the session registry.
type Dispatcher struct {
	cfg       Config
	auth      *auth.Service
	accounts  *account.Service
	chat      *chat.History
	registry  *session.Registry
	clock     clock.Clock
	logger    *slog.Logger
	startedAt time.Time
}

// New creates a new Dispatcher
func New(
	cfg Config,
	authService *auth.Service,
	accounts *account.Service,
	history *chat.History,
	registry *session.Registry,
	clock clock.Clock,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		auth:      authService,
		accounts:  accounts,
		chat:      history,
		registry:  registry,
		clock:     clock,
		logger:    logger.With(slog.String("component", "dispatcher")),
		startedAt: clock.Now(),
	}
}

// Dispatch executes one command and returns the response to write back.
// It always returns exactly one response, including after a panic.
func (d *Dispatcher) Dispatch(ctx context.Context, peer *Peer, cmd protocol.Command) (resp any) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in dispatch",
				slog.String("action", string(cmd.Action())),
				slog.String("conn", peer.Conn.ID()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			resp = protocol.ErrorResponse(fmt.Errorf("panic: %v", r))
		}
	}()

	resp, err := d.dispatch(ctx, peer, cmd)
	if err != nil {
		d.logError(peer, cmd, err)
		return protocol.ErrorResponse(err)
	}
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, peer *Peer, cmd protocol.Command) (any, error) {
	switch c := cmd.(type) {
	case protocol.Register:
		return d.register(ctx, c)
	case protocol.Login:
		return d.login(ctx, peer, c)
	case protocol.Save:
		return d.save(ctx, peer, c)
	case protocol.Logout:
		return d.logout(ctx, peer, c)
	case protocol.Online:
		return d.online(ctx)
	case protocol.Chat:
		return d.sendChat(peer, c)
	case protocol.ChatHistory:
		return d.chatHistory(c), nil
	case protocol.Leaderboard:
		return d.leaderboard(ctx, c)
	case protocol.Profile:
		return d.profile(ctx, c)
	case protocol.Info:
		return d.info(ctx)
	case protocol.Ping:
		return protocol.PongResponse{Status: protocol.OK("pong"), Time: d.clock.Now()}, nil
	case protocol.Notify:
		return d.notify(peer, c)
	case protocol.AddStats:
		return d.addStats(ctx, peer, c)
	default:
		return nil, fmt.Errorf("%w: %T", protocol.ErrUnknownAction, cmd)
	}
}

func (d *Dispatcher) logError(peer *Peer, cmd protocol.Command, err error) {
	attrs := []any{
		slog.String("action", string(cmd.Action())),
		slog.String("conn", peer.Conn.ID()),
		slog.String("account", peer.account),
		slog.Any("error", err),
	}
	var se *protocol.StorageError
	if errors.As(err, &se) {
		d.logger.Error("request failed", attrs...)
		return
	}
	d.logger.Debug("request rejected", attrs...)
}

// knownErrors pass through unchanged; anything else from the store is a
// storage failure
var knownErrors = []error{
	model.ErrAccountNotFound,
	model.ErrAccountExists,
	model.ErrInvalidGameState,
	model.ErrNegativeStats,
	model.ErrInvalidSortField,
	auth.ErrInvalidCredentials,
	auth.ErrUsernameExists,
	auth.ErrInvalidUsername,
	auth.ErrInvalidSecret,
}

func storageFailure(err error) error {
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return &protocol.StorageError{Err: err}
}

// owner returns the account this peer may act for, or ErrNotLoggedIn.
// A connection evicted by a newer login no longer owns its account.
func (d *Dispatcher) owner(peer *Peer, requested string) (string, error) {
	if peer.account == "" {
		return "", model.ErrNotLoggedIn
	}
	if requested != "" && requested != peer.account {
		return "", model.ErrNotLoggedIn
	}
	if !d.registry.Owns(peer.account, peer.Conn) {
		return "", model.ErrNotLoggedIn
	}
	return peer.account, nil
}

func (d *Dispatcher) register(ctx context.Context, c protocol.Register) (any, error) {
	acct, err := d.auth.Register(ctx, c.Username, c.Password)
	if err != nil {
		return nil, storageFailure(err)
	}
	d.logger.Info("account registered", slog.String("account", acct.Name))
	return protocol.OK("Account created! You can now login."), nil
}

func (d *Dispatcher) login(ctx context.Context, peer *Peer, c protocol.Login) (any, error) {
	acct, err := d.auth.Authenticate(ctx, c.Username, c.Password)
	if err != nil {
		return nil, storageFailure(err)
	}
	name := acct.Name

	// Switching accounts on one connection ends the earlier session first
	if peer.account != "" && peer.account != name {
		d.release(ctx, peer, model.EventPlayerLeft)
	}

	if prev := d.registry.Register(name, peer.Conn); prev != nil {
		d.evict(name, prev)
	}

	acct, err = d.accounts.RecordLogin(ctx, name)
	if err != nil {
		d.registry.Unregister(name, peer.Conn)
		peer.reset()
		return nil, storageFailure(err)
	}

	now := d.clock.Now()
	peer.account = name
	peer.lastState = acct.GameState
	peer.since = now

	d.logger.Info("player logged in",
		slog.String("account", name),
		slog.String("conn", peer.Conn.ID()),
		slog.String("addr", peer.Addr),
		slog.Int("login_count", acct.LoginCount))
	d.registry.Broadcast(protocol.EventPush(model.Event{
		Type:      model.EventPlayerJoined,
		Timestamp: now,
		Account:   name,
	}), name)

	return protocol.LoginResponse{
		Status:    protocol.OK(fmt.Sprintf("Welcome back, %s!", name)),
		GameState: acct.GameState,
		Stats:     acct.Stats,
	}, nil
}

// evict tells a replaced connection why it is going away and closes it.
// Its own teardown will find it no longer owns the session.
func (d *Dispatcher) evict(name string, conn session.Conn) {
	frame, err := protocol.Encode(protocol.EventPush(model.Event{
		Type:      model.EventSessionReplaced,
		Timestamp: d.clock.Now(),
		Account:   name,
	}))
	if err == nil {
		_ = conn.Send(frame)
	}
	_ = conn.Close()
	d.logger.Info("session evicted by newer login",
		slog.String("account", name),
		slog.String("conn", conn.ID()))
}

func (d *Dispatcher) save(ctx context.Context, peer *Peer, c protocol.Save) (any, error) {
	name, err := d.owner(peer, c.Username)
	if err != nil {
		return nil, err
	}
	if c.GameState.IsEmpty() {
		return nil, protocol.NewInvalidRequestError("game_state is required.")
	}

	if err := d.accounts.SaveGameState(ctx, name, c.GameState, c.Stats); err != nil {
		return nil, storageFailure(err)
	}
	peer.lastState = c.GameState.Clone()
	return protocol.OK("Game saved."), nil
}

func (d *Dispatcher) logout(ctx context.Context, peer *Peer, c protocol.Logout) (any, error) {
	if _, err := d.owner(peer, c.Username); err != nil {
		return nil, err
	}
	if !c.GameState.IsEmpty() {
		peer.lastState = c.GameState.Clone()
	}

	if err := d.release(ctx, peer, model.EventPlayerLeft); err != nil {
		return protocol.OK("Logged out. Final save failed."), nil
	}
	return protocol.OK("Logged out. Game saved."), nil
}

// release ends the peer's session if it still owns it: the last known
// state is saved best-effort, the session is removed and others are told.
// The peer is always reset. The returned error is only the save failure.
func (d *Dispatcher) release(ctx context.Context, peer *Peer, event model.EventType) error {
	name := peer.account
	defer peer.reset()
	if name == "" || !d.registry.Unregister(name, peer.Conn) {
		return nil
	}

	now := d.clock.Now()
	delta := &model.Stats{PlayTimeSeconds: int64(now.Sub(peer.since).Seconds())}
	var state model.GameState
	if err := peer.lastState.Validate(); err == nil {
		state = peer.lastState
	}

	saveErr := d.accounts.SaveGameState(ctx, name, state, delta)
	if saveErr != nil {
		d.logger.Error("final save failed",
			slog.String("account", name),
			slog.Any("error", saveErr))
	}

	d.logger.Info("player session ended",
		slog.String("account", name),
		slog.String("conn", peer.Conn.ID()),
		slog.String("reason", string(event)),
		slog.Duration("session_duration", now.Sub(peer.since)))
	d.registry.Broadcast(protocol.EventPush(model.Event{
		Type:      event,
		Timestamp: now,
		Account:   name,
	}), name)
	return saveErr
}

// Disconnect tears down whatever session the peer holds after its
// connection has gone away
func (d *Dispatcher) Disconnect(ctx context.Context, peer *Peer) {
	_ = d.release(ctx, peer, model.EventPlayerDisconnected)
}

func (d *Dispatcher) online(ctx context.Context) (any, error) {
	rows, err := d.accounts.Summaries(ctx, d.registry.Names())
	if err != nil {
		return nil, storageFailure(err)
	}
	players := make([]protocol.OnlinePlayer, len(rows))
	for i, row := range rows {
		players[i] = protocol.OnlinePlayer{Name: row.Name, Level: row.Level}
	}
	return protocol.OnlineResponse{
		Status:  protocol.OK(""),
		Players: players,
		Count:   len(players),
	}, nil
}

func (d *Dispatcher) sendChat(peer *Peer, c protocol.Chat) (any, error) {
	name, err := d.owner(peer, "")
	if err != nil {
		return nil, err
	}
	msg, err := d.chat.Post(name, c.Message)
	if err != nil {
		return nil, err
	}
	d.registry.Broadcast(protocol.ChatPush(msg), name)
	return protocol.OK("Message sent."), nil
}

func (d *Dispatcher) chatHistory(c protocol.ChatHistory) any {
	count := c.Count
	if count > d.chat.Capacity() {
		count = d.chat.Capacity()
	}
	return protocol.ChatHistoryResponse{
		Status:   protocol.OK(""),
		Messages: d.chat.Recent(count),
	}
}

func (d *Dispatcher) leaderboard(ctx context.Context, c protocol.Leaderboard) (any, error) {
	field, rows, err := d.accounts.Leaderboard(ctx, c.SortBy, c.Limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	return protocol.LeaderboardResponse{
		Status:      protocol.OK(""),
		SortBy:      field,
		Leaderboard: rows,
	}, nil
}

func (d *Dispatcher) profile(ctx context.Context, c protocol.Profile) (any, error) {
	target := strings.TrimSpace(c.Target)
	if target == "" {
		return nil, protocol.NewInvalidRequestError("target is required.")
	}
	p, err := d.accounts.Profile(ctx, target)
	if err != nil {
		return nil, storageFailure(err)
	}
	return protocol.ProfileResponse{Status: protocol.OK(""), Profile: p}, nil
}

func (d *Dispatcher) info(ctx context.Context) (any, error) {
	total, err := d.accounts.Count(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	uptime := d.Uptime()
	return protocol.InfoResponse{
		Status:        protocol.OK(""),
		Server:        d.cfg.ServerName,
		Version:       d.cfg.Version,
		TotalPlayers:  total,
		Online:        d.registry.Count(),
		Uptime:        uptime.String(),
		UptimeSeconds: int64(uptime.Seconds()),
	}, nil
}

func (d *Dispatcher) notify(peer *Peer, c protocol.Notify) (any, error) {
	name, err := d.owner(peer, "")
	if err != nil {
		return nil, err
	}
	target := strings.TrimSpace(c.Target)
	if target == "" {
		return nil, protocol.NewInvalidRequestError("target is required.")
	}
	text, err := chat.Validate(c.Message)
	if err != nil {
		return nil, err
	}

	// Delivery is unacknowledged: the sender is not told whether the
	// target was online
	d.registry.Notify(target, protocol.EventPush(model.Event{
		Type:      model.EventDirectMessage,
		Timestamp: d.clock.Now(),
		From:      name,
		Text:      text,
	}))
	return protocol.OK("Notification sent."), nil
}

func (d *Dispatcher) addStats(ctx context.Context, peer *Peer, c protocol.AddStats) (any, error) {
	name, err := d.owner(peer, "")
	if err != nil {
		return nil, err
	}
	totals, err := d.accounts.AddStats(ctx, name, c.Stats)
	if err != nil {
		return nil, storageFailure(err)
	}
	return protocol.StatsResponse{Status: protocol.OK("Stats updated."), Stats: totals}, nil
}

// Kick forcibly ends an online account's session
func (d *Dispatcher) Kick(name string) error {
	conn, ok := d.registry.Lookup(name)
	if !ok {
		return model.ErrNotOnline
	}

	now := d.clock.Now()
	if frame, err := protocol.Encode(protocol.EventPush(model.Event{
		Type:      model.EventSessionKicked,
		Timestamp: now,
		Account:   name,
	})); err == nil {
		_ = conn.Send(frame)
	}

	if d.registry.Unregister(name, conn) {
		d.registry.Broadcast(protocol.EventPush(model.Event{
			Type:      model.EventPlayerKicked,
			Timestamp: now,
			Account:   name,
		}), name)
	}
	_ = conn.Close()

	d.logger.Info("player kicked", slog.String("account", name), slog.String("conn", conn.ID()))
	return nil
}

// Announce broadcasts an administrator message to every session
func (d *Dispatcher) Announce(text string) int {
	return d.registry.Broadcast(protocol.EventPush(model.Event{
		Type:      model.EventAnnouncement,
		Timestamp: d.clock.Now(),
		Text:      text,
	}), "")
}

// Uptime returns how long the dispatcher has been serving
func (d *Dispatcher) Uptime() time.Duration {
	return clock.Since(d.clock, d.startedAt).Truncate(time.Second)
}
