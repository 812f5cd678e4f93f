package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/hackstorm/internal/dependencies/mocks"
	"github.com/mcoot/hackstorm/internal/services/auth"
	"github.com/mcoot/hackstorm/internal/storage/memory"
	"github.com/mcoot/hackstorm/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
// and the cheapest bcrypt cost
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	authCfg := auth.DefaultConfig()
	authCfg.BcryptCost = bcrypt.MinCost

	app, err := newWithDependencies(store, mockClock, mockRandom, Config{AuthConfig: authCfg}, testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}
