package chat

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mcoot/hackstorm/internal/dependencies/clock"
	"github.com/mcoot/hackstorm/internal/model"
)

// DefaultCapacity is the number of messages kept in memory
const DefaultCapacity = 100

// DefaultRecent is the number of messages returned when no count is given
const DefaultRecent = 20

// History is a fixed-capacity ring of the most recent chat messages.
// It is not persisted.
type History struct {
	clock clock.Clock

	mu    sync.Mutex
	buf   []model.ChatMessage
	start int // index of the oldest message
	size  int
}

// NewHistory creates a history holding at most capacity messages
func NewHistory(clock clock.Clock, capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		clock: clock,
		buf:   make([]model.ChatMessage, capacity),
	}
}

// Capacity returns the maximum number of retained messages
func (h *History) Capacity() int {
	return len(h.buf)
}

// Validate trims text and checks it is non-empty and within MaxChatLength
func Validate(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", model.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > model.MaxChatLength {
		return "", model.ErrMessageTooLong
	}
	return text, nil
}

// Post validates and appends a message, evicting the oldest when full
func (h *History) Post(user, text string) (model.ChatMessage, error) {
	text, err := Validate(text)
	if err != nil {
		return model.ChatMessage{}, err
	}

	msg := model.ChatMessage{
		Time: h.clock.Now(),
		User: user,
		Text: text,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = msg
		h.size++
	} else {
		h.buf[h.start] = msg
		h.start = (h.start + 1) % len(h.buf)
	}
	return msg, nil
}

// Recent returns up to count of the newest messages, oldest first.
// A non-positive count selects DefaultRecent.
func (h *History) Recent(count int) []model.ChatMessage {
	if count <= 0 {
		count = DefaultRecent
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if count > h.size {
		count = h.size
	}
	out := make([]model.ChatMessage, count)
	first := h.start + h.size - count
	for i := range out {
		out[i] = h.buf[(first+i)%len(h.buf)]
	}
	return out
}

// Len returns the number of retained messages
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}
