package admin

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/testutil"
)

type fakeOperator struct {
	online    map[string]bool
	kicked    []string
	announced []string
}

func (f *fakeOperator) Kick(name string) error {
	if !f.online[name] {
		return model.ErrNotOnline
	}
	delete(f.online, name)
	f.kicked = append(f.kicked, name)
	return nil
}

func (f *fakeOperator) Announce(text string) int {
	f.announced = append(f.announced, text)
	return len(f.online)
}

func (f *fakeOperator) Uptime() time.Duration { return 90 * time.Second }

type fakeDirectory struct {
	levels  map[string]int64
	failing bool
}

func (f *fakeDirectory) Summaries(_ context.Context, names []string) ([]model.Summary, error) {
	if f.failing {
		return nil, errors.New("store offline")
	}
	var out []model.Summary
	for _, n := range names {
		out = append(out, model.Summary{Name: n, Level: f.levels[n], Online: true})
	}
	return out, nil
}

func (f *fakeDirectory) Names(context.Context) ([]string, error) {
	return []string{"morpheus", "neo", "trinity"}, nil
}

func (f *fakeDirectory) Count(context.Context) (int, error) {
	return len(f.levels), nil
}

type fakePresence struct {
	op *fakeOperator
}

func (f fakePresence) Names() []string {
	var names []string
	for _, n := range []string{"morpheus", "neo", "trinity"} {
		if f.op.online[n] {
			names = append(names, n)
		}
	}
	return names
}

type ConsoleSuite struct {
	suite.Suite
	operator  *fakeOperator
	directory *fakeDirectory
	out       *bytes.Buffer
	stopped   int
	console   *Console
	ctx       context.Context
}

func TestConsoleSuite(t *testing.T) {
	suite.Run(t, new(ConsoleSuite))
}

func (s *ConsoleSuite) SetupTest() {
	s.operator = &fakeOperator{online: map[string]bool{"neo": true, "trinity": true}}
	s.directory = &fakeDirectory{levels: map[string]int64{"morpheus": 9, "neo": 3, "trinity": 5}}
	s.out = &bytes.Buffer{}
	s.stopped = 0
	s.console = New(s.operator, s.directory, fakePresence{s.operator}, func() { s.stopped++ }, s.out, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ConsoleSuite) TestHelp() {
	s.False(s.console.Execute(s.ctx, "help"))
	s.Contains(s.out.String(), "kick <name>")
}

func (s *ConsoleSuite) TestOnline() {
	s.console.Execute(s.ctx, "online")
	s.Equal("Online (2):\n  neo (Lvl 3)\n  trinity (Lvl 5)\n", s.out.String())
}

func (s *ConsoleSuite) TestPlayers() {
	s.console.Execute(s.ctx, "players")
	s.Equal("Total registered: 3\n  morpheus\n  neo\n  trinity\n", s.out.String())
}

func (s *ConsoleSuite) TestKick() {
	s.console.Execute(s.ctx, "kick neo")
	s.Equal([]string{"neo"}, s.operator.kicked)
	s.Contains(s.out.String(), "Kicked neo")

	s.out.Reset()
	s.console.Execute(s.ctx, "kick morpheus")
	s.Equal("morpheus not online.\n", s.out.String())
}

func (s *ConsoleSuite) TestAnnounceJoinsWords() {
	s.console.Execute(s.ctx, "announce maintenance  at noon")
	s.Equal([]string{"maintenance at noon"}, s.operator.announced)
	s.Equal("Announced: maintenance at noon\n", s.out.String())
}

func (s *ConsoleSuite) TestStats() {
	s.console.Execute(s.ctx, "STATS")
	s.Equal("Online: 2 | Total Players: 3 | Uptime: 1m30s\n", s.out.String())
}

func (s *ConsoleSuite) TestMissingArgumentIsUnknown() {
	s.console.Execute(s.ctx, "kick")
	s.Equal("Unknown: kick. Type 'help'.\n", s.out.String())
	s.Empty(s.operator.kicked)
}

func (s *ConsoleSuite) TestFailuresAreReported() {
	s.directory.failing = true
	s.False(s.console.Execute(s.ctx, "online"))
	s.Contains(s.out.String(), "Console error: list online: store offline")
}

func (s *ConsoleSuite) TestRunStopsOnStop() {
	in := strings.NewReader("\nonline\nstop\nhelp\n")
	s.Require().NoError(s.console.Run(s.ctx, in))
	s.Equal(1, s.stopped)
	s.Contains(s.out.String(), "Shutting down...")
	s.NotContains(s.out.String(), "Commands:")
}

func (s *ConsoleSuite) TestRunEndsAtEOF() {
	s.Require().NoError(s.console.Run(s.ctx, strings.NewReader("stats\n")))
	s.Zero(s.stopped)
	s.Contains(s.out.String(), "Online: 2")
}
