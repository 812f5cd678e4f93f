package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/hackstorm/internal/dependencies/random"
)

// MockRandom hands out queued strings in order. Once the queue runs dry
// it falls back to a counter so connection ids stay unique.
type MockRandom struct {
	mu       sync.Mutex
	queued   []string
	fallback int
}

var _ random.Random = (*MockRandom)(nil)

func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queued) == 0 {
		r.fallback++
		return fmt.Sprintf("%0*d", length, r.fallback)
	}
	next := r.queued[0]
	r.queued = r.queued[1:]
	return next
}

// QueueString adds values to be returned by String
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, values...)
}
