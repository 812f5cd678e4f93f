package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/hackstorm/internal/dependencies/clock"
	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidSecret      = errors.New("invalid password")
)

// Config holds configuration for the auth service
type Config struct {
	MinNameLength   int
	MaxNameLength   int
	MinSecretLength int

	// BcryptCost is the work factor for new hashes
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		MinNameLength:   2,
		MaxNameLength:   20,
		MinSecretLength: 4,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

// Service handles account registration and credential checks
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	cfg     Config

	// dummyHash is compared against when the account does not exist so
	// that both failure paths do the same work
	dummyHash []byte
}

// New creates a new auth service
func New(storage storage.Storage, clock clock.Clock, cfg Config) (*Service, error) {
	defaults := DefaultConfig()
	if cfg.MinNameLength == 0 {
		cfg.MinNameLength = defaults.MinNameLength
	}
	if cfg.MaxNameLength == 0 {
		cfg.MaxNameLength = defaults.MaxNameLength
	}
	if cfg.MinSecretLength == 0 {
		cfg.MinSecretLength = defaults.MinSecretLength
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("hackstorm-no-such-account"), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &Service{
		storage:   storage,
		clock:     clock,
		cfg:       cfg,
		dummyHash: dummy,
	}, nil
}

// NormalizeName trims surrounding whitespace from a submitted name
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateName checks the length and character rules for account names
func (s *Service) ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if !utf8.ValidString(name) || n < s.cfg.MinNameLength || n > s.cfg.MaxNameLength {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidUsername, s.cfg.MinNameLength, s.cfg.MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: must not contain control characters", ErrInvalidUsername)
		}
	}
	return nil
}

// MaxSecretBytes is the longest password bcrypt accepts
const MaxSecretBytes = 72

// ValidateSecret checks the password length bounds
func (s *Service) ValidateSecret(secret string) error {
	if utf8.RuneCountInString(secret) < s.cfg.MinSecretLength {
		return fmt.Errorf("%w: must be %d+ characters", ErrInvalidSecret, s.cfg.MinSecretLength)
	}
	if len(secret) > MaxSecretBytes {
		return fmt.Errorf("%w: must be at most %d bytes", ErrInvalidSecret, MaxSecretBytes)
	}
	return nil
}

// Register creates a new account with the default game state
func (s *Service) Register(ctx context.Context, name, secret string) (*model.Account, error) {
	name = NormalizeName(name)
	if err := s.ValidateName(name); err != nil {
		return nil, err
	}
	if err := s.ValidateSecret(secret); err != nil {
		return nil, err
	}

	exists, err := s.storage.AccountExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check account %q: %w", name, err)
	}
	if exists {
		return nil, ErrUsernameExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	account := &model.Account{
		Name:           name,
		CredentialHash: string(hash),
		CreatedAt:      now,
		GameState:      model.DefaultGameState(),
	}

	if err := s.storage.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, model.ErrAccountExists) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("create account %q: %w", name, err)
	}
	return account, nil
}

// Authenticate verifies credentials and returns the stored account.
// A missing account and a wrong password both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, name, secret string) (*model.Account, error) {
	name = NormalizeName(name)

	account, err := s.storage.GetAccount(ctx, name)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(secret))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load account %q: %w", name, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.CredentialHash), []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}
