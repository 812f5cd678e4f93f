package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/protocol"
)

// Output handles formatting output based on the configured format.
// It is safe for concurrent use so pushes can print while a command runs.
type Output struct {
	format string
	w      io.Writer
	mu     sync.Mutex

	serverColor *color.Color
	chatColor   *color.Color
	userColor   *color.Color
	errorColor  *color.Color
	headerColor *color.Color
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{
		format:      format,
		w:           w,
		serverColor: color.New(color.FgYellow, color.Bold),
		chatColor:   color.New(color.FgWhite),
		userColor:   color.New(color.FgCyan, color.Bold),
		errorColor:  color.New(color.FgRed),
		headerColor: color.New(color.FgGreen, color.Bold),
	}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.format == "json" {
		o.printJSON(map[string]any{"error": map[string]string{"message": err.Error()}})
		return
	}
	o.errorColor.Fprintf(o.w, "Error: %s\n", describeError(err))
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
		return
	}
	fmt.Fprintln(o.w, msg)
}

// PrintPush shows a notification or chat message
func (o *Output) PrintPush(p protocol.Push) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.format == "json" {
		o.printJSON(p)
		return
	}
	if p.Type == protocol.PushChat && p.Data != nil {
		fmt.Fprintf(o.w, "[%s] ", p.Data.Time.Local().Format("15:04:05"))
		o.userColor.Fprint(o.w, p.Data.User)
		o.chatColor.Fprintf(o.w, ": %s\n", p.Data.Text)
		return
	}
	o.serverColor.Fprintln(o.w, p.Text())
}

// describeError prefers the server's message over the coded form
func describeError(err error) string {
	var pe *protocol.Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case *protocol.InfoResponse:
		o.printInfo(v)
	case *protocol.PongResponse:
		o.printPong(v)
	case *protocol.OnlineResponse:
		o.printOnline(v)
	case *protocol.LeaderboardResponse:
		o.printLeaderboard(v)
	case *model.Profile:
		o.printProfile(v)
	case []model.ChatMessage:
		o.printChatLog(v)
	case model.Stats:
		o.printStats(v)
	case model.GameState:
		fmt.Fprintln(o.w, string(v))
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printInfo(i *protocol.InfoResponse) {
	o.headerColor.Fprintf(o.w, "%s v%s\n", i.Server, i.Version)
	fmt.Fprintf(o.w, "Online: %d\n", i.Online)
	fmt.Fprintf(o.w, "Total Players: %d\n", i.TotalPlayers)
	fmt.Fprintf(o.w, "Uptime: %s\n", i.Uptime)
}

func (o *Output) printPong(p *protocol.PongResponse) {
	fmt.Fprintf(o.w, "pong (server time %s)\n", p.Time.Local().Format(time.RFC3339))
}

func (o *Output) printOnline(r *protocol.OnlineResponse) {
	o.headerColor.Fprintf(o.w, "Online (%d):\n", r.Count)
	for _, p := range r.Players {
		fmt.Fprintf(o.w, "  %s (Lvl %d)\n", p.Name, p.Level)
	}
}

func (o *Output) printLeaderboard(r *protocol.LeaderboardResponse) {
	o.headerColor.Fprintf(o.w, "Leaderboard by %s:\n", r.SortBy)
	for i, row := range r.Leaderboard {
		marker := ""
		if row.Online {
			marker = " *"
		}
		fmt.Fprintf(o.w, "  %2d. %-20s Lvl %-3d $%-8d Rep %-5d Missions %d%s\n",
			i+1, row.Name, row.Level, row.Money, row.Reputation, row.Missions, marker)
	}
}

func (o *Output) printProfile(p *model.Profile) {
	status := "offline"
	if p.Online {
		status = "online"
	}
	o.headerColor.Fprintf(o.w, "%s (%s)\n", p.Name, status)
	fmt.Fprintf(o.w, "Level: %d\n", p.Level)
	fmt.Fprintf(o.w, "Money: $%d\n", p.Money)
	fmt.Fprintf(o.w, "Reputation: %d\n", p.Reputation)
	fmt.Fprintf(o.w, "Missions: %d\n", p.Missions)
	fmt.Fprintf(o.w, "Tools: %d\n", p.Tools)
	fmt.Fprintf(o.w, "Logins: %d\n", p.TotalLogins)
	if !p.LastLoginAt.IsZero() {
		fmt.Fprintf(o.w, "Last Login: %s\n", p.LastLoginAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(o.w, "Created: %s\n", p.CreatedAt.Local().Format(time.DateTime))
}

func (o *Output) printChatLog(msgs []model.ChatMessage) {
	if len(msgs) == 0 {
		fmt.Fprintln(o.w, "No messages yet.")
		return
	}
	for _, m := range msgs {
		fmt.Fprintf(o.w, "[%s] %s: %s\n", m.Time.Local().Format("15:04:05"), m.User, m.Text)
	}
}

func (o *Output) printStats(s model.Stats) {
	fmt.Fprintf(o.w, "Commands: %d\n", s.CommandsIssued)
	fmt.Fprintf(o.w, "Targets: %d\n", s.TargetsCompromised)
	fmt.Fprintf(o.w, "Missions: %d\n", s.MissionsCompleted)
	fmt.Fprintf(o.w, "Money Earned: $%d\n", s.MoneyEarned)
	fmt.Fprintf(o.w, "Play Time: %s\n", time.Duration(s.PlayTimeSeconds)*time.Second)
}
