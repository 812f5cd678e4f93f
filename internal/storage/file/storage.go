package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/storage"
)

// Storage keeps one JSON file per account. Records are opened, read or
// written, and closed within each call.
type Storage struct {
	cfg Config
}

// New creates a file storage, creating the record directory if needed
func New(cfg Config) (*Storage, error) {
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o600
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	return &Storage{cfg: cfg}, nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) path(name string) string {
	return filepath.Join(s.cfg.Dir, escapeName(name)+recordExt)
}

func encode(account *model.Account) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(account); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Storage) AccountExists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	data, err := encode(account)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path(account.Name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, fs.FileMode(s.cfg.FileMode))
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return model.ErrAccountExists
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	return f.Close()
}

func (s *Storage) GetAccount(ctx context.Context, name string) (*model.Account, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("decode record %q: %w", name, err)
	}
	return &account, nil
}

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	path := s.path(account.Name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.ErrAccountNotFound
		}
		return err
	}

	data, err := encode(account)
	if err != nil {
		return err
	}

	// Each writer gets its own temp file; the rename makes the last one win
	tmp, err := os.CreateTemp(s.cfg.Dir, escapeName(account.Name)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(fs.FileMode(s.cfg.FileMode)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	names, err := s.ListAccountNames(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]*model.Account, 0, len(names))
	for _, name := range names {
		account, err := s.GetAccount(ctx, name)
		if err != nil {
			if errors.Is(err, model.ErrAccountNotFound) {
				continue
			}
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *Storage) ListAccountNames(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		name, err := unescapeName(strings.TrimSuffix(entry.Name(), recordExt))
		if err != nil {
			continue // not one of ours
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) CountAccounts(ctx context.Context) (int, error) {
	names, err := s.ListAccountNames(ctx)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}
