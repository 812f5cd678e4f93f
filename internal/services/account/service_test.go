package account

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hackstorm/internal/dependencies/mocks"
	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/storage/memory"
	"github.com/mcoot/hackstorm/internal/testutil"
)

// presenceSet is a fixed set of online names
type presenceSet map[string]bool

func (p presenceSet) IsOnline(name string) bool { return p[name] }

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	online  presenceSet
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.online = presenceSet{}
	s.service = New(s.storage, s.clock, s.online, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) createAccount(name, state string) *model.Account {
	a := &model.Account{
		Name:      name,
		CreatedAt: s.clock.Now(),
		GameState: model.GameState(state),
	}
	s.Require().NoError(s.storage.CreateAccount(s.ctx, a))
	return a
}

// RecordLogin tests

func (s *ServiceSuite) TestRecordLoginBumpsCount() {
	s.createAccount("neo", `{"money":1}`)
	s.clock.Advance(time.Hour)

	updated, err := s.service.RecordLogin(s.ctx, "neo")
	s.Require().NoError(err)
	s.Equal(1, updated.LoginCount)
	s.Equal(s.clock.Now(), updated.LastLoginAt)
	s.Equal(`{"money":1}`, string(updated.GameState))

	updated, err = s.service.RecordLogin(s.ctx, "neo")
	s.Require().NoError(err)
	s.Equal(2, updated.LoginCount)

	stored, err := s.storage.GetAccount(s.ctx, "neo")
	s.Require().NoError(err)
	s.Equal(2, stored.LoginCount)
}

func (s *ServiceSuite) TestRecordLoginUnknownAccount() {
	_, err := s.service.RecordLogin(s.ctx, "ghost")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

// SaveGameState tests

func (s *ServiceSuite) TestSaveReplacesDocument() {
	s.createAccount("neo", `{"money":1}`)

	err := s.service.SaveGameState(s.ctx, "neo", model.GameState(`{"money":500}`), nil)
	s.Require().NoError(err)

	stored, err := s.storage.GetAccount(s.ctx, "neo")
	s.Require().NoError(err)
	s.Equal(`{"money":500}`, string(stored.GameState))
	s.Equal(s.clock.Now(), stored.LastSeenAt)
}

func (s *ServiceSuite) TestSaveAccumulatesStats() {
	s.createAccount("neo", `{}`)
	delta := &model.Stats{CommandsIssued: 5, MoneyEarned: 100}

	s.Require().NoError(s.service.SaveGameState(s.ctx, "neo", model.GameState(`{"a":1}`), delta))
	s.Require().NoError(s.service.SaveGameState(s.ctx, "neo", model.GameState(`{"a":2}`), delta))

	stored, err := s.storage.GetAccount(s.ctx, "neo")
	s.Require().NoError(err)
	s.Equal(int64(10), stored.Stats.CommandsIssued)
	s.Equal(int64(200), stored.Stats.MoneyEarned)
}

func (s *ServiceSuite) TestSaveEmptyStateKeepsDocument() {
	s.createAccount("neo", `{"money":7}`)

	s.Require().NoError(s.service.SaveGameState(s.ctx, "neo", nil, &model.Stats{PlayTimeSeconds: 60}))

	stored, err := s.storage.GetAccount(s.ctx, "neo")
	s.Require().NoError(err)
	s.Equal(`{"money":7}`, string(stored.GameState))
	s.Equal(int64(60), stored.Stats.PlayTimeSeconds)
}

func (s *ServiceSuite) TestSaveRejectsNonObject() {
	s.createAccount("neo", `{"money":7}`)

	err := s.service.SaveGameState(s.ctx, "neo", model.GameState(`[1,2,3]`), nil)
	s.ErrorIs(err, model.ErrInvalidGameState)

	stored, _ := s.storage.GetAccount(s.ctx, "neo")
	s.Equal(`{"money":7}`, string(stored.GameState))
}

func (s *ServiceSuite) TestSaveRejectsNegativeStats() {
	s.createAccount("neo", `{}`)
	err := s.service.SaveGameState(s.ctx, "neo", model.GameState(`{}`), &model.Stats{MoneyEarned: -1})
	s.ErrorIs(err, model.ErrNegativeStats)
}

func (s *ServiceSuite) TestSaveUnknownAccount() {
	err := s.service.SaveGameState(s.ctx, "ghost", model.GameState(`{}`), nil)
	s.ErrorIs(err, model.ErrAccountNotFound)
}

// AddStats tests

func (s *ServiceSuite) TestAddStats() {
	s.createAccount("neo", `{}`)

	totals, err := s.service.AddStats(s.ctx, "neo", model.Stats{TargetsCompromised: 2})
	s.Require().NoError(err)
	s.Equal(int64(2), totals.TargetsCompromised)

	totals, err = s.service.AddStats(s.ctx, "neo", model.Stats{TargetsCompromised: 3})
	s.Require().NoError(err)
	s.Equal(int64(5), totals.TargetsCompromised)
}

// Leaderboard tests

func (s *ServiceSuite) TestLeaderboardDefaultsToReputation() {
	s.createAccount("neo", `{"level":5,"money":100,"reputation":30}`)
	s.createAccount("trinity", `{"level":9,"money":50,"reputation":80}`)
	s.createAccount("morpheus", `{"level":7,"money":900,"reputation":10}`)
	s.online["trinity"] = true

	field, rows, err := s.service.Leaderboard(s.ctx, "", 0)
	s.Require().NoError(err)
	s.Equal(model.SortByReputation, field)
	s.Require().Len(rows, 3)
	s.Equal("trinity", rows[0].Name)
	s.True(rows[0].Online)
	s.Equal("neo", rows[1].Name)
	s.False(rows[1].Online)
}

func (s *ServiceSuite) TestLeaderboardSortFields() {
	s.createAccount("neo", `{"level":5,"money":100,"completed_missions":["a","b","c"]}`)
	s.createAccount("trinity", `{"level":9,"money":50,"completed_missions":[]}`)
	s.createAccount("morpheus", `{"level":7,"money":900,"completed_missions":["a"]}`)

	_, rows, err := s.service.Leaderboard(s.ctx, "money", 0)
	s.Require().NoError(err)
	s.Equal("morpheus", rows[0].Name)

	_, rows, err = s.service.Leaderboard(s.ctx, "level", 0)
	s.Require().NoError(err)
	s.Equal("trinity", rows[0].Name)

	_, rows, err = s.service.Leaderboard(s.ctx, "missions", 0)
	s.Require().NoError(err)
	s.Equal("neo", rows[0].Name)
	s.Equal(3, rows[0].Missions)
}

func (s *ServiceSuite) TestLeaderboardTiesByName() {
	s.createAccount("zed", `{"reputation":5}`)
	s.createAccount("amy", `{"reputation":5}`)

	_, rows, err := s.service.Leaderboard(s.ctx, "reputation", 0)
	s.Require().NoError(err)
	s.Equal("amy", rows[0].Name)
	s.Equal("zed", rows[1].Name)
}

func (s *ServiceSuite) TestLeaderboardLimit() {
	for i := 0; i < 120; i++ {
		s.createAccount(fmt.Sprintf("p%03d", i), fmt.Sprintf(`{"reputation":%d}`, i))
	}

	_, rows, err := s.service.Leaderboard(s.ctx, "", 0)
	s.Require().NoError(err)
	s.Len(rows, DefaultLeaderboardLimit)
	s.Equal("p119", rows[0].Name)

	_, rows, err = s.service.Leaderboard(s.ctx, "", 5)
	s.Require().NoError(err)
	s.Len(rows, 5)

	_, rows, err = s.service.Leaderboard(s.ctx, "", 1000)
	s.Require().NoError(err)
	s.Len(rows, MaxLeaderboardLimit)
}

func (s *ServiceSuite) TestLeaderboardUnknownField() {
	_, _, err := s.service.Leaderboard(s.ctx, "password_hash", 0)
	s.ErrorIs(err, model.ErrInvalidSortField)
}

func (s *ServiceSuite) TestLeaderboardToleratesOddDocuments() {
	s.createAccount("neo", `{"level":"high","money":null}`)
	s.createAccount("trinity", `{}`)

	_, rows, err := s.service.Leaderboard(s.ctx, "level", 0)
	s.Require().NoError(err)
	s.Len(rows, 2)
}

// Profile tests

func (s *ServiceSuite) TestProfile() {
	a := s.createAccount("neo", `{"level":3,"money":42,"tools":["nmap","ping","hydra"]}`)
	a.LoginCount = 4
	s.Require().NoError(s.storage.SaveAccount(s.ctx, a))
	s.online["neo"] = true

	p, err := s.service.Profile(s.ctx, "neo")
	s.Require().NoError(err)
	s.Equal("neo", p.Name)
	s.Equal(int64(3), p.Level)
	s.Equal(3, p.Tools)
	s.Equal(4, p.TotalLogins)
	s.True(p.Online)
}

func (s *ServiceSuite) TestProfileNotFound() {
	_, err := s.service.Profile(s.ctx, "ghost")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *ServiceSuite) TestSummariesSkipMissing() {
	s.createAccount("neo", `{"level":4}`)

	rows, err := s.service.Summaries(s.ctx, []string{"neo", "ghost"})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(int64(4), rows[0].Level)
}

func (s *ServiceSuite) TestCount() {
	s.createAccount("neo", `{}`)
	s.createAccount("trinity", `{}`)

	n, err := s.service.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}
