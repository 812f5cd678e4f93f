package protocol

import (
	"encoding/json"
	"time"

	"github.com/mcoot/hackstorm/internal/model"
)

// PushType tags a frame sent without a matching request
type PushType string

const (
	PushNotification PushType = "notification"
	PushChat         PushType = "chat"
)

// Push is an unsolicited server frame
type Push struct {
	Type    PushType           `json:"type"`
	Message string             `json:"message,omitempty"`
	Time    time.Time          `json:"time,omitzero"`
	Data    *model.ChatMessage `json:"data,omitempty"`
}

// NotificationPush builds a system text push
func NotificationPush(message string, at time.Time) Push {
	return Push{Type: PushNotification, Message: message, Time: at}
}

// EventPush renders a server event as a notification
func EventPush(e model.Event) Push {
	return NotificationPush(e.Notice(), e.Timestamp)
}

// ChatPush wraps a chat message
func ChatPush(msg model.ChatMessage) Push {
	return Push{Type: PushChat, Data: &msg}
}

// Text renders the push as a single display line
func (p Push) Text() string {
	if p.Type == PushChat && p.Data != nil {
		return "[" + p.Data.Time.Format("15:04:05") + "] " + p.Data.User + ": " + p.Data.Text
	}
	return p.Message
}

// PeekPush reports whether a frame is a push and decodes it if so.
// Responses never carry a "type" field.
func PeekPush(frame []byte) (Push, bool, error) {
	var head struct {
		Type *PushType `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return Push{}, false, err
	}
	if head.Type == nil {
		return Push{}, false, nil
	}
	var p Push
	if err := json.Unmarshal(frame, &p); err != nil {
		return Push{}, false, err
	}
	return p, true, nil
}
