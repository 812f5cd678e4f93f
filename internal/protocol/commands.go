package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/mcoot/hackstorm/internal/model"
)

// Action names a request type on the wire
type Action string

const (
	ActionRegister    Action = "register"
	ActionLogin       Action = "login"
	ActionSave        Action = "save"
	ActionLogout      Action = "logout"
	ActionOnline      Action = "online"
	ActionChat        Action = "chat"
	ActionChatHistory Action = "chat_history"
	ActionLeaderboard Action = "leaderboard"
	ActionProfile     Action = "profile"
	ActionInfo        Action = "info"
	ActionPing        Action = "ping"
	ActionNotify      Action = "notify"
	ActionStats       Action = "stats"
)

// Command is a decoded request. The set of implementations is closed:
// only types in this package satisfy it.
type Command interface {
	Action() Action
	command()
}

type Register struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Save replaces the stored game state. Username defaults to the
// connection's own session.
type Save struct {
	Username  string          `json:"username,omitempty"`
	GameState model.GameState `json:"game_state"`
	Stats     *model.Stats    `json:"stats,omitempty"`
}

type Logout struct {
	Username  string          `json:"username,omitempty"`
	GameState model.GameState `json:"game_state,omitempty"`
}

type Online struct{}

type Chat struct {
	Message string `json:"message"`
}

type ChatHistory struct {
	Count int `json:"count,omitempty"`
}

type Leaderboard struct {
	SortBy string `json:"sort_by,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type Profile struct {
	Target string `json:"target"`
}

type Info struct{}

type Ping struct{}

// Notify sends a direct notification to one online account
type Notify struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

// AddStats accumulates counter deltas into the caller's account
type AddStats struct {
	Stats model.Stats `json:"stats"`
}

func (Register) Action() Action    { return ActionRegister }
func (Login) Action() Action       { return ActionLogin }
func (Save) Action() Action        { return ActionSave }
func (Logout) Action() Action      { return ActionLogout }
func (Online) Action() Action      { return ActionOnline }
func (Chat) Action() Action        { return ActionChat }
func (ChatHistory) Action() Action { return ActionChatHistory }
func (Leaderboard) Action() Action { return ActionLeaderboard }
func (Profile) Action() Action     { return ActionProfile }
func (Info) Action() Action        { return ActionInfo }
func (Ping) Action() Action        { return ActionPing }
func (Notify) Action() Action      { return ActionNotify }
func (AddStats) Action() Action    { return ActionStats }

func (Register) command()    {}
func (Login) command()       {}
func (Save) command()        {}
func (Logout) command()      {}
func (Online) command()      {}
func (Chat) command()        {}
func (ChatHistory) command() {}
func (Leaderboard) command() {}
func (Profile) command()     {}
func (Info) command()        {}
func (Ping) command()        {}
func (Notify) command()      {}
func (AddStats) command()    {}

// envelope picks the action out of a request frame
type envelope struct {
	Action *string `json:"action"`
}

// Decode parses one request frame into its command
func Decode(frame []byte) (Command, error) {
	if !utf8.Valid(frame) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrInvalidFrame)
	}

	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if env.Action == nil {
		return nil, fmt.Errorf("%w: missing action", ErrInvalidFrame)
	}

	switch Action(*env.Action) {
	case ActionRegister:
		return decodeAs[Register](frame)
	case ActionLogin:
		return decodeAs[Login](frame)
	case ActionSave:
		return decodeAs[Save](frame)
	case ActionLogout:
		return decodeAs[Logout](frame)
	case ActionOnline:
		return Online{}, nil
	case ActionChat:
		return decodeAs[Chat](frame)
	case ActionChatHistory:
		return decodeAs[ChatHistory](frame)
	case ActionLeaderboard:
		return decodeAs[Leaderboard](frame)
	case ActionProfile:
		return decodeAs[Profile](frame)
	case ActionInfo:
		return Info{}, nil
	case ActionPing:
		return Ping{}, nil
	case ActionNotify:
		return decodeAs[Notify](frame)
	case ActionStats:
		return decodeAs[AddStats](frame)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, *env.Action)
	}
}

func decodeAs[T Command](frame []byte) (Command, error) {
	var v T
	if err := json.Unmarshal(frame, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return v, nil
}

// EncodeCommand renders a command as a request frame
func EncodeCommand(cmd Command) ([]byte, error) {
	body, err := Encode(cmd)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	action, err := json.Marshal(string(cmd.Action()))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"action":`)
	buf.Write(action)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}
