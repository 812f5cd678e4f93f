package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/hackstorm/internal/model"
)

// Operator performs session-level administrator actions
type Operator interface {
	Kick(name string) error
	Announce(text string) int
	Uptime() time.Duration
}

// Directory reads account data for the console listings
type Directory interface {
	Summaries(ctx context.Context, names []string) ([]model.Summary, error)
	Names(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// Presence lists currently online accounts
type Presence interface {
	Names() []string
}

const helpText = "Commands: help, online, players, kick <name>, announce <msg>, stats, stop"

// Console is the operator's line-based command interface
type Console struct {
	operator  Operator
	directory Directory
	presence  Presence
	stop      func()
	out       io.Writer
	logger    *slog.Logger
}

// New creates a console writing its replies to out. stop is invoked once
// when the operator issues "stop".
func New(operator Operator, directory Directory, presence Presence, stop func(), out io.Writer, logger *slog.Logger) *Console {
	return &Console{
		operator:  operator,
		directory: directory,
		presence:  presence,
		stop:      stop,
		out:       out,
		logger:    logger.With(slog.String("component", "admin")),
	}
}

// Run reads commands from in until it ends, ctx is done or "stop" is
// issued. Stopping returns nil.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if stop := c.Execute(ctx, line); stop {
				return nil
			}
		}
	}
}

// Execute runs one command line and reports whether it was "stop"
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	command := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch {
	case command == "help":
		c.println(helpText)
	case command == "online":
		err = c.online(ctx)
	case command == "players":
		err = c.players(ctx)
	case command == "kick" && len(args) > 0:
		c.kick(args[0])
	case command == "announce" && len(args) > 0:
		msg := strings.Join(args, " ")
		n := c.operator.Announce(msg)
		c.logger.Info("announcement sent", slog.String("text", msg), slog.Int("recipients", n))
		c.printf("Announced: %s\n", msg)
	case command == "stats":
		err = c.stats(ctx)
	case command == "stop":
		c.println("Shutting down...")
		c.logger.Info("stop requested from console")
		if c.stop != nil {
			c.stop()
		}
		return true
	default:
		c.printf("Unknown: %s. Type 'help'.\n", command)
	}

	if err != nil {
		c.logger.Error("console command failed", slog.String("command", command), slog.Any("error", err))
		c.printf("Console error: %v\n", err)
	}
	return false
}

func (c *Console) online(ctx context.Context) error {
	rows, err := c.directory.Summaries(ctx, c.presence.Names())
	if err != nil {
		return fmt.Errorf("list online: %w", err)
	}
	c.printf("Online (%d):\n", len(rows))
	for _, r := range rows {
		c.printf("  %s (Lvl %d)\n", r.Name, r.Level)
	}
	return nil
}

func (c *Console) players(ctx context.Context) error {
	names, err := c.directory.Names(ctx)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	c.printf("Total registered: %d\n", len(names))
	for _, name := range names {
		c.printf("  %s\n", name)
	}
	return nil
}

func (c *Console) kick(name string) {
	if err := c.operator.Kick(name); err != nil {
		if errors.Is(err, model.ErrNotOnline) {
			c.printf("%s not online.\n", name)
			return
		}
		c.printf("Console error: %v\n", err)
		return
	}
	c.printf("Kicked %s\n", name)
}

func (c *Console) stats(ctx context.Context) error {
	total, err := c.directory.Count(ctx)
	if err != nil {
		return fmt.Errorf("count players: %w", err)
	}
	c.printf("Online: %d | Total Players: %d | Uptime: %s\n",
		len(c.presence.Names()), total, c.operator.Uptime())
	return nil
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(s string) {
	_, _ = fmt.Fprintln(c.out, s)
}
