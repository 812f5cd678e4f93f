// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/storage"
)

// Suite runs the common storage checks against the backend built by
// NewStorage. Backend test suites embed it and add their own cases.
type Suite struct {
	suite.Suite
	NewStorage func(t *testing.T) storage.Storage

	Store storage.Storage
	Ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.Store = s.NewStorage(s.T())
	s.Ctx = context.Background()
}

// NewAccount builds an account record for tests
func NewAccount(name string) *model.Account {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	return &model.Account{
		Name:           name,
		CredentialHash: "$2a$10$abcdefghijklmnopqrstuu",
		CreatedAt:      now,
		LastLoginAt:    now,
		LoginCount:     1,
		GameState:      model.DefaultGameState(),
	}
}

func (s *Suite) TestCreateAndGet() {
	account := NewAccount("neo")
	s.Require().NoError(s.Store.CreateAccount(s.Ctx, account))

	got, err := s.Store.GetAccount(s.Ctx, "neo")
	s.Require().NoError(err)
	s.Equal("neo", got.Name)
	s.Equal(account.CredentialHash, got.CredentialHash)
	s.Equal(1, got.LoginCount)
	s.True(account.CreatedAt.Equal(got.CreatedAt))
	s.JSONEq(string(account.GameState), string(got.GameState))
}

func (s *Suite) TestCreateDuplicate() {
	s.Require().NoError(s.Store.CreateAccount(s.Ctx, NewAccount("neo")))

	other := NewAccount("neo")
	other.CredentialHash = "different"
	err := s.Store.CreateAccount(s.Ctx, other)
	s.ErrorIs(err, model.ErrAccountExists)

	got, err := s.Store.GetAccount(s.Ctx, "neo")
	s.Require().NoError(err)
	s.NotEqual("different", got.CredentialHash)
}

func (s *Suite) TestConcurrentCreateHasOneWinner() {
	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Store.CreateAccount(s.Ctx, NewAccount("trinity"))
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrAccountExists)
	}
	s.Equal(1, succeeded)
}

func (s *Suite) TestGetNotFound() {
	_, err := s.Store.GetAccount(s.Ctx, "ghost")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestExists() {
	exists, err := s.Store.AccountExists(s.Ctx, "neo")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.Store.CreateAccount(s.Ctx, NewAccount("neo")))

	exists, err = s.Store.AccountExists(s.Ctx, "neo")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *Suite) TestSaveReplacesRecord() {
	s.Require().NoError(s.Store.CreateAccount(s.Ctx, NewAccount("neo")))

	account, err := s.Store.GetAccount(s.Ctx, "neo")
	s.Require().NoError(err)
	account.GameState = model.GameState(`{"money":4242,"level":7,"custom":{"nested":[1,2,3]}}`)
	account.Stats = model.Stats{CommandsIssued: 12, MoneyEarned: 3242}
	account.LoginCount = 2
	s.Require().NoError(s.Store.SaveAccount(s.Ctx, account))

	got, err := s.Store.GetAccount(s.Ctx, "neo")
	s.Require().NoError(err)
	s.JSONEq(`{"money":4242,"level":7,"custom":{"nested":[1,2,3]}}`, string(got.GameState))
	s.Equal(int64(12), got.Stats.CommandsIssued)
	s.Equal(2, got.LoginCount)
}

func (s *Suite) TestSaveRequiresExisting() {
	err := s.Store.SaveAccount(s.Ctx, NewAccount("ghost"))
	s.ErrorIs(err, model.ErrAccountNotFound)

	exists, err := s.Store.AccountExists(s.Ctx, "ghost")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestConcurrentSavesLastWriterWins() {
	s.Require().NoError(s.Store.CreateAccount(s.Ctx, NewAccount("neo")))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			account := NewAccount("neo")
			account.GameState = model.GameState(fmt.Sprintf(`{"money":%d}`, i))
			s.NoError(s.Store.SaveAccount(s.Ctx, account))
		}(i)
	}
	wg.Wait()

	// Whichever write landed last, the record is one whole document
	got, err := s.Store.GetAccount(s.Ctx, "neo")
	s.Require().NoError(err)
	s.NoError(got.GameState.Validate())
}

func (s *Suite) TestReturnedRecordIsIndependent() {
	s.Require().NoError(s.Store.CreateAccount(s.Ctx, NewAccount("neo")))

	got, err := s.Store.GetAccount(s.Ctx, "neo")
	s.Require().NoError(err)
	got.LoginCount = 99

	again, err := s.Store.GetAccount(s.Ctx, "neo")
	s.Require().NoError(err)
	s.Equal(1, again.LoginCount)
}

func (s *Suite) TestListSortedByName() {
	for _, name := range []string{"trinity", "morpheus", "neo"} {
		s.Require().NoError(s.Store.CreateAccount(s.Ctx, NewAccount(name)))
	}

	names, err := s.Store.ListAccountNames(s.Ctx)
	s.Require().NoError(err)
	s.Equal([]string{"morpheus", "neo", "trinity"}, names)

	accounts, err := s.Store.ListAccounts(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(accounts, 3)
	s.Equal("morpheus", accounts[0].Name)
	s.Equal("trinity", accounts[2].Name)

	count, err := s.Store.CountAccounts(s.Ctx)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *Suite) TestEmptyStore() {
	names, err := s.Store.ListAccountNames(s.Ctx)
	s.Require().NoError(err)
	s.Empty(names)

	count, err := s.Store.CountAccounts(s.Ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *Suite) TestUnusualNames() {
	names := []string{"Zero Cool", "acid/burn", "ünïcødé", "dot.dot", "a_b"}
	for _, name := range names {
		s.Require().NoError(s.Store.CreateAccount(s.Ctx, NewAccount(name)), name)
	}
	for _, name := range names {
		got, err := s.Store.GetAccount(s.Ctx, name)
		s.Require().NoError(err, name)
		s.Equal(name, got.Name)
	}

	listed, err := s.Store.ListAccountNames(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch(names, listed)
}
