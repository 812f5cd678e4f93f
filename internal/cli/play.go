package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mcoot/hackstorm/internal/client"
	"github.com/mcoot/hackstorm/internal/model"
)

const playHelp = `Commands:
  chat <message>            send a chat message
  chatlog [count]           show recent chat
  online                    list online players
  leaderboard [sort] [n]    top players (reputation, level, money, missions)
  profile <name>            show a player's profile
  info                      server info
  state                     print your game state
  set <json>                replace your game state
  save                      save your game state
  notify <name> <message>   send a private notice to an online player
  quit                      save, log out and exit`

func newPlayCmd() *cobra.Command {
	var user, pass string
	var autosave time.Duration

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Log in and keep an interactive session open",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				user = cfg.User
			}
			if user == "" {
				return fmt.Errorf("--user is required")
			}

			in := bufio.NewReader(cmd.InOrStdin())
			if pass == "" {
				p, err := readPassword(cmd.ErrOrStderr(), in)
				if err != nil {
					return err
				}
				pass = p
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			session, err := StartSession(ctx, c, user, pass, out)
			if err != nil {
				return err
			}
			return session.Run(ctx, in, autosave)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (env: HACKSTORM_USER)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (prompted for if omitted)")
	cmd.Flags().DurationVar(&autosave, "autosave", 0, "Save the game state at this interval (0 disables)")

	return cmd
}

// readPassword prompts without echo on a terminal, or reads one line
// from piped input
func readPassword(prompt io.Writer, in *bufio.Reader) (string, error) {
	fmt.Fprint(prompt, "Password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Session is a logged-in interactive connection
type Session struct {
	client *client.Client
	out    *Output
	user   string

	mu    sync.Mutex
	state model.GameState
}

// StartSession logs in and starts printing pushes
func StartSession(ctx context.Context, c *client.Client, user, pass string, out *Output) (*Session, error) {
	resp, err := c.Login(ctx, user, pass)
	if err != nil {
		return nil, err
	}
	s := &Session{
		client: c,
		out:    out,
		user:   user,
		state:  resp.GameState,
	}
	out.PrintMessage(resp.Message)
	go func() {
		for p := range c.Pushes() {
			out.PrintPush(p)
		}
	}()
	return s, nil
}

// State returns a copy of the current game state
func (s *Session) State() model.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) setState(g model.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = g
}

// Run reads commands until quit, end of input, ctx ending or the server
// closing the connection. Every exit except a lost connection logs out
// with the current state.
func (s *Session) Run(ctx context.Context, in io.Reader, autosave time.Duration) error {
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	var tick <-chan time.Time
	if autosave > 0 {
		ticker := time.NewTicker(autosave)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-s.client.Done():
			s.out.PrintMessage("Connection closed by server.")
			return nil
		case <-ctx.Done():
			return s.logout(context.Background())
		case <-tick:
			if err := s.client.Save(ctx, s.State(), nil); err != nil {
				s.out.PrintError(fmt.Errorf("autosave failed: %w", err))
			}
		case line, ok := <-lines:
			if !ok {
				return s.logout(ctx)
			}
			quit, err := s.Execute(ctx, line)
			if err != nil {
				s.out.PrintError(err)
			}
			if quit {
				return s.logout(ctx)
			}
		}
	}
}

func (s *Session) logout(ctx context.Context) error {
	msg, err := s.client.Logout(ctx, s.State())
	if err != nil {
		if errors.Is(err, client.ErrClosed) {
			return nil
		}
		return err
	}
	s.out.PrintMessage(msg)
	return nil
}

// Execute runs one command line and reports whether it asked to quit
func (s *Session) Execute(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch strings.ToLower(command) {
	case "help":
		s.out.PrintMessage(playHelp)
	case "quit", "exit":
		return true, nil
	case "chat":
		if err := s.client.Chat(ctx, rest); err != nil {
			return false, err
		}
	case "chatlog":
		count, err := optionalInt(args, 0)
		if err != nil {
			return false, err
		}
		msgs, err := s.client.ChatHistory(ctx, count)
		if err != nil {
			return false, err
		}
		s.out.Print(msgs)
	case "online":
		online, err := s.client.Online(ctx)
		if err != nil {
			return false, err
		}
		s.out.Print(online)
	case "leaderboard":
		sortBy := ""
		if len(args) > 0 {
			sortBy = args[0]
		}
		limit, err := optionalInt(args, 1)
		if err != nil {
			return false, err
		}
		board, err := s.client.Leaderboard(ctx, sortBy, limit)
		if err != nil {
			return false, err
		}
		s.out.Print(board)
	case "profile":
		target := s.user
		if len(args) > 0 {
			target = args[0]
		}
		profile, err := s.client.Profile(ctx, target)
		if err != nil {
			return false, err
		}
		s.out.Print(profile)
	case "info":
		info, err := s.client.Info(ctx)
		if err != nil {
			return false, err
		}
		s.out.Print(info)
	case "state":
		s.out.Print(s.State())
	case "set":
		state := model.GameState(rest)
		if err := state.Validate(); err != nil {
			return false, err
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, []byte(rest)); err != nil {
			return false, err
		}
		s.setState(model.GameState(compact.Bytes()))
		s.out.PrintMessage("State updated. Use 'save' to store it.")
	case "save":
		if err := s.client.Save(ctx, s.State(), nil); err != nil {
			return false, err
		}
		s.out.PrintMessage("Game saved.")
	case "notify":
		if len(args) < 2 {
			return false, errors.New("usage: notify <name> <message>")
		}
		msg := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
		if err := s.client.Notify(ctx, args[0], msg); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("unknown command %q, type 'help'", command)
	}
	return false, nil
}

func optionalInt(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", args[i])
	}
	return n, nil
}
