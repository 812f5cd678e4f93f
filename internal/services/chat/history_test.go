package chat

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hackstorm/internal/dependencies/mocks"
	"github.com/mcoot/hackstorm/internal/model"
)

type HistorySuite struct {
	suite.Suite
	clock   *mocks.MockClock
	history *History
}

func TestHistorySuite(t *testing.T) {
	suite.Run(t, new(HistorySuite))
}

func (s *HistorySuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.history = NewHistory(s.clock, DefaultCapacity)
}

func (s *HistorySuite) post(n int) {
	for i := 0; i < n; i++ {
		_, err := s.history.Post("neo", fmt.Sprintf("msg %d", i))
		s.Require().NoError(err)
		s.clock.Advance(time.Second)
	}
}

func (s *HistorySuite) TestPostStampsMessage() {
	msg, err := s.history.Post("neo", "  hello  ")
	s.Require().NoError(err)
	s.Equal("neo", msg.User)
	s.Equal("hello", msg.Text)
	s.Equal(s.clock.Now(), msg.Time)
}

func (s *HistorySuite) TestPostRejectsEmpty() {
	_, err := s.history.Post("neo", "   ")
	s.ErrorIs(err, model.ErrEmptyMessage)
	s.Zero(s.history.Len())
}

func (s *HistorySuite) TestPostRejectsTooLong() {
	_, err := s.history.Post("neo", strings.Repeat("a", model.MaxChatLength+1))
	s.ErrorIs(err, model.ErrMessageTooLong)

	_, err = s.history.Post("neo", strings.Repeat("ä", model.MaxChatLength))
	s.NoError(err)
}

func (s *HistorySuite) TestRecentChronological() {
	s.post(5)

	msgs := s.history.Recent(3)
	s.Require().Len(msgs, 3)
	s.Equal("msg 2", msgs[0].Text)
	s.Equal("msg 4", msgs[2].Text)
	s.True(msgs[0].Time.Before(msgs[2].Time))
}

func (s *HistorySuite) TestRecentDefaultCount() {
	s.post(30)

	msgs := s.history.Recent(0)
	s.Require().Len(msgs, DefaultRecent)
	s.Equal("msg 10", msgs[0].Text)
	s.Equal("msg 29", msgs[DefaultRecent-1].Text)
}

func (s *HistorySuite) TestRingKeepsMostRecent() {
	s.post(DefaultCapacity + 37)

	s.Equal(DefaultCapacity, s.history.Len())
	msgs := s.history.Recent(1000)
	s.Require().Len(msgs, DefaultCapacity)
	s.Equal("msg 37", msgs[0].Text)
	s.Equal(fmt.Sprintf("msg %d", DefaultCapacity+36), msgs[len(msgs)-1].Text)
	for i := 1; i < len(msgs); i++ {
		s.True(msgs[i-1].Time.Before(msgs[i].Time))
	}
}

func (s *HistorySuite) TestEmptyHistory() {
	s.Empty(s.history.Recent(10))
}

func (s *HistorySuite) TestConcurrentPosts() {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = s.history.Post(fmt.Sprintf("user%d", i), "hi")
			}
		}(i)
	}
	wg.Wait()
	s.Equal(DefaultCapacity, s.history.Len())
}

func TestSmallCapacity(t *testing.T) {
	h := NewHistory(mocks.NewMockClock(time.Now()), 2)
	for _, text := range []string{"a", "b", "c"} {
		if _, err := h.Post("neo", text); err != nil {
			t.Fatal(err)
		}
	}
	got := h.Recent(5)
	if len(got) != 2 || got[0].Text != "b" || got[1].Text != "c" {
		t.Fatalf("unexpected history %+v", got)
	}
}
