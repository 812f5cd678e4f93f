package storage

import (
	"context"

	"github.com/mcoot/hackstorm/internal/model"
)

// Storage is the Record Store: the only component that touches durable
// account records. Every call is self-contained; no record is held open
// between calls and writes for one account are last-writer-wins.
type Storage interface {
	// AccountExists reports whether a record exists for name
	AccountExists(ctx context.Context, name string) (bool, error)

	// CreateAccount stores a new record, failing with model.ErrAccountExists
	// if the name is already taken
	CreateAccount(ctx context.Context, account *model.Account) error

	// GetAccount loads a record, failing with model.ErrAccountNotFound
	GetAccount(ctx context.Context, name string) (*model.Account, error)

	// SaveAccount replaces an existing record wholesale
	SaveAccount(ctx context.Context, account *model.Account) error

	// ListAccounts loads every record
	ListAccounts(ctx context.Context) ([]*model.Account, error)

	// ListAccountNames returns every registered name, sorted
	ListAccountNames(ctx context.Context) ([]string, error)

	// CountAccounts returns the number of registered accounts
	CountAccounts(ctx context.Context) (int, error)
}
