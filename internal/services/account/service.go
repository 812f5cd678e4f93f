package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/hackstorm/internal/dependencies/clock"
	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/storage"
)

// Leaderboard limits
const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

// Presence answers whether an account currently has a session
type Presence interface {
	IsOnline(name string) bool
}

// Service owns account bookkeeping on top of the record store
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	presence Presence
	logger   *slog.Logger
}

// New creates a new account service
func New(storage storage.Storage, clock clock.Clock, presence Presence, logger *slog.Logger) *Service {
	return &Service{
		storage:  storage,
		clock:    clock,
		presence: presence,
		logger:   logger.With(slog.String("component", "account-service")),
	}
}

// RecordLogin stamps a login on the freshest stored record and returns it
func (s *Service) RecordLogin(ctx context.Context, name string) (*model.Account, error) {
	account, err := s.storage.GetAccount(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	account.LastLoginAt = s.clock.Now()
	account.LoginCount++

	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("record login for %q: %w", name, err)
	}
	return account, nil
}

// SaveGameState replaces the stored document and accumulates an optional
// stats delta. An empty state keeps the stored document.
func (s *Service) SaveGameState(ctx context.Context, name string, state model.GameState, delta *model.Stats) error {
	if !state.IsEmpty() {
		if err := state.Validate(); err != nil {
			return err
		}
	}
	if delta != nil {
		if err := delta.Validate(); err != nil {
			return err
		}
	}

	account, err := s.storage.GetAccount(ctx, name)
	if err != nil {
		return fmt.Errorf("load %q: %w", name, err)
	}

	if !state.IsEmpty() {
		account.GameState = state.Clone()
	}
	if delta != nil {
		account.Stats = account.Stats.Add(*delta)
	}
	account.LastSeenAt = s.clock.Now()

	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}

	s.logger.Debug("game state saved",
		slog.String("account", name),
		slog.Int("bytes", len(account.GameState)))
	return nil
}

// AddStats accumulates a delta and returns the new totals
func (s *Service) AddStats(ctx context.Context, name string, delta model.Stats) (model.Stats, error) {
	if err := delta.Validate(); err != nil {
		return model.Stats{}, err
	}

	account, err := s.storage.GetAccount(ctx, name)
	if err != nil {
		return model.Stats{}, fmt.Errorf("load %q: %w", name, err)
	}
	account.Stats = account.Stats.Add(delta)

	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return model.Stats{}, fmt.Errorf("save %q: %w", name, err)
	}
	return account.Stats, nil
}

// Leaderboard scans every record and returns the top rows.
// A non-positive limit selects the default; larger limits are capped.
func (s *Service) Leaderboard(ctx context.Context, sortBy string, limit int) (model.SortField, []model.Summary, error) {
	field, err := model.ParseSortField(sortBy)
	if err != nil {
		return "", nil, err
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("list accounts: %w", err)
	}

	rows := make([]model.Summary, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, model.Summarize(a, s.presence.IsOnline(a.Name)))
	}
	model.SortSummaries(rows, field)

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return field, rows, nil
}

// Profile returns the public view of any existing account
func (s *Service) Profile(ctx context.Context, name string) (model.Profile, error) {
	account, err := s.storage.GetAccount(ctx, name)
	if err != nil {
		return model.Profile{}, err
	}
	return model.ProfileOf(account, s.presence.IsOnline(name)), nil
}

// Summaries returns a row for each named account, in the given order.
// Names without a record are skipped.
func (s *Service) Summaries(ctx context.Context, names []string) ([]model.Summary, error) {
	rows := make([]model.Summary, 0, len(names))
	for _, name := range names {
		account, err := s.storage.GetAccount(ctx, name)
		if err != nil {
			if errors.Is(err, model.ErrAccountNotFound) {
				continue
			}
			return nil, fmt.Errorf("load %q: %w", name, err)
		}
		rows = append(rows, model.Summarize(account, s.presence.IsOnline(name)))
	}
	return rows, nil
}

// Count returns the number of registered accounts
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.storage.CountAccounts(ctx)
}

// Names returns every registered account name
func (s *Service) Names(ctx context.Context) ([]string, error) {
	return s.storage.ListAccountNames(ctx)
}
