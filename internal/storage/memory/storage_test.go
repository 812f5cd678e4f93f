package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/storage"
	"github.com/mcoot/hackstorm/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &StorageSuite{
		Suite: storagetest.Suite{
			NewStorage: func(t *testing.T) storage.Storage { return New() },
		},
	})
}

func (s *StorageSuite) TestCreateKeepsCopy() {
	account := storagetest.NewAccount("neo")
	s.Require().NoError(s.Store.CreateAccount(s.Ctx, account))

	account.GameState[1] = 'X'
	account.LoginCount = 50

	got, err := s.Store.GetAccount(s.Ctx, "neo")
	s.Require().NoError(err)
	s.Equal(1, got.LoginCount)
	s.NoError(got.GameState.Validate())
	s.Equal(model.DefaultGameState(), got.GameState)
}
