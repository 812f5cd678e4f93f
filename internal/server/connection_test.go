package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConnectionSuite struct {
	suite.Suite
	server net.Conn
	peer   net.Conn
}

func TestConnectionSuite(t *testing.T) {
	suite.Run(t, new(ConnectionSuite))
}

func (s *ConnectionSuite) SetupTest() {
	s.server, s.peer = net.Pipe()
}

func (s *ConnectionSuite) TearDownTest() {
	_ = s.server.Close()
	_ = s.peer.Close()
}

func (s *ConnectionSuite) newConn(writeTimeout time.Duration, queue int) *connection {
	cfg := DefaultConfig()
	cfg.WriteTimeout = writeTimeout
	cfg.OutboundQueue = queue
	return newConnection("c-test", s.server, cfg, time.Now())
}

func (s *ConnectionSuite) TestSendDoesNotWaitForPeer() {
	c := s.newConn(time.Second, 2)
	defer c.abort()

	// The peer never reads, so the writer blocks on the first frame and
	// the queue fills behind it
	start := time.Now()
	var err error
	sent := 0
	for range 10 {
		if err = c.Send([]byte("frame\n")); err != nil {
			break
		}
		sent++
	}
	s.ErrorIs(err, ErrOutboundFull)
	s.LessOrEqual(sent, 3)
	s.Less(time.Since(start), 500*time.Millisecond)
}

func (s *ConnectionSuite) TestStalledWriteClosesConnection() {
	c := s.newConn(100*time.Millisecond, 4)
	s.Require().NoError(c.Send([]byte("frame\n")))

	select {
	case <-c.written:
	case <-time.After(2 * time.Second):
		s.FailNow("writer did not give up on a stalled peer")
	}
	s.ErrorIs(c.Send([]byte("late\n")), net.ErrClosed)

	_, err := s.peer.Read(make([]byte, 16))
	s.Error(err)
}

func (s *ConnectionSuite) TestCloseFlushesQueuedFrames() {
	c := s.newConn(time.Second, 4)
	s.Require().NoError(c.Send([]byte("first\n")))
	s.Require().NoError(c.Send([]byte("second\n")))
	s.Require().NoError(c.Close())

	r := bufio.NewReader(s.peer)
	line, err := r.ReadString('\n')
	s.Require().NoError(err)
	s.Equal("first\n", line)
	line, err = r.ReadString('\n')
	s.Require().NoError(err)
	s.Equal("second\n", line)

	_, err = r.ReadString('\n')
	s.Error(err)
	c.wait()
}

func (s *ConnectionSuite) TestReplyAfterCloseFails() {
	c := s.newConn(time.Second, 1)
	s.Require().NoError(c.Close())
	go func() { _, _ = s.peer.Read(make([]byte, 64)) }()
	c.wait()

	s.ErrorIs(c.reply(map[string]string{"status": "ok"}), net.ErrClosed)
}
