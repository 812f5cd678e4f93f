package model

import "time"

// MaxChatLength is the longest chat text accepted, in runes
const MaxChatLength = 200

// ChatMessage is one entry of the chat history
type ChatMessage struct {
	Time time.Time `json:"time"`
	User string    `json:"user"`
	Text string    `json:"text"`
}
