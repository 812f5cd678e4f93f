package model

import (
	"fmt"
	"time"
)

// EventType identifies a server event announced to connected players
type EventType string

const (
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerLeft         EventType = "player_left"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerKicked       EventType = "player_kicked"
	EventSessionReplaced    EventType = "session_replaced"
	EventSessionKicked      EventType = "session_kicked"
	EventAnnouncement       EventType = "announcement"
	EventShutdown           EventType = "shutdown"
	EventDirectMessage      EventType = "direct_message"
)

// Event is a server-side occurrence that becomes a notification push
type Event struct {
	Type      EventType
	Timestamp time.Time
	Account   string // the account the event is about, if any
	From      string // sender of a direct message
	Text      string // free text for announcements and direct messages
}

// Notice renders the human-readable notification text for the event
func (e Event) Notice() string {
	switch e.Type {
	case EventPlayerJoined:
		return fmt.Sprintf("[SERVER] %s has joined!", e.Account)
	case EventPlayerLeft:
		return fmt.Sprintf("[SERVER] %s has left.", e.Account)
	case EventPlayerDisconnected:
		return fmt.Sprintf("[SERVER] %s has disconnected.", e.Account)
	case EventPlayerKicked:
		return fmt.Sprintf("[SERVER] %s was kicked.", e.Account)
	case EventSessionReplaced:
		return "[SERVER] You were logged out: this account signed in from another connection."
	case EventSessionKicked:
		return "[SERVER] You have been kicked by the server administrator."
	case EventAnnouncement:
		return "[ANNOUNCEMENT] " + e.Text
	case EventShutdown:
		return "[SERVER] Server shutting down!"
	case EventDirectMessage:
		return fmt.Sprintf("[%s] %s", e.From, e.Text)
	default:
		return e.Text
	}
}
