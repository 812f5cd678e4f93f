package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().DialTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func encode(account *model.Account) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(account); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decode(name string, data []byte) (*model.Account, error) {
	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("decode record %q: %w", name, err)
	}
	return &account, nil
}

func (s *Storage) AccountExists(ctx context.Context, name string) (bool, error) {
	n, err := s.client.Exists(ctx, accountKey(name)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	data, err := encode(account)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, accountKey(account.Name), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrAccountExists
	}
	return s.client.SAdd(ctx, accountsIndexKey(), account.Name).Err()
}

func (s *Storage) GetAccount(ctx context.Context, name string) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}
	return decode(name, data)
}

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	data, err := encode(account)
	if err != nil {
		return err
	}

	// SET XX only replaces a record that already exists
	updated, err := s.client.SetXX(ctx, accountKey(account.Name), data, 0).Result()
	if err != nil {
		return err
	}
	if !updated {
		return model.ErrAccountNotFound
	}
	return nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	names, err := s.ListAccountNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []*model.Account{}, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = accountKey(name)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	accounts := make([]*model.Account, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // index entry without a record
		}
		account, err := decode(names[i], []byte(str))
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *Storage) ListAccountNames(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, accountsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) CountAccounts(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, accountsIndexKey()).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
