package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/suite"
)

type FrameReaderSuite struct {
	suite.Suite
}

func TestFrameReaderSuite(t *testing.T) {
	suite.Run(t, new(FrameReaderSuite))
}

func (s *FrameReaderSuite) collect(fr *FrameReader) []string {
	var frames []string
	for {
		frame, err := fr.Next()
		if err == io.EOF {
			return frames
		}
		s.Require().NoError(err)
		frames = append(frames, string(frame))
	}
}

func (s *FrameReaderSuite) TestSplitsOnNewline() {
	fr := NewFrameReader(strings.NewReader("{\"a\":1}\n{\"b\":2}\n"), 0)
	s.Equal([]string{`{"a":1}`, `{"b":2}`}, s.collect(fr))
}

func (s *FrameReaderSuite) TestStripsCarriageReturnAndBlankLines() {
	fr := NewFrameReader(strings.NewReader("\n\r\n  \n{\"a\":1}\r\n\n"), 0)
	s.Equal([]string{`{"a":1}`}, s.collect(fr))
}

func (s *FrameReaderSuite) TestDiscardsUnterminatedTail() {
	fr := NewFrameReader(strings.NewReader("{\"a\":1}\n{\"partial\""), 0)
	s.Equal([]string{`{"a":1}`}, s.collect(fr))
}

func (s *FrameReaderSuite) TestMultiByteSplitAcrossReads() {
	// One byte per Read so every multi-byte rune arrives in pieces
	payload := "{\"text\":\"héllo wörld ✓ 日本\"}\n"
	fr := NewFrameReader(iotest.OneByteReader(strings.NewReader(payload)), 0)
	s.Equal([]string{strings.TrimSuffix(payload, "\n")}, s.collect(fr))
}

func (s *FrameReaderSuite) TestFrameAtLimit() {
	frame := strings.Repeat("x", 100)
	fr := NewFrameReader(strings.NewReader(frame+"\n"), 100)
	s.Equal([]string{frame}, s.collect(fr))
}

func (s *FrameReaderSuite) TestOversizedFrameIsSkipped() {
	input := strings.Repeat("x", 101) + "\n{\"ok\":true}\n"
	fr := NewFrameReader(strings.NewReader(input), 100)

	_, err := fr.Next()
	s.ErrorIs(err, ErrFrameTooLarge)

	frame, err := fr.Next()
	s.Require().NoError(err)
	s.Equal(`{"ok":true}`, string(frame))
}

func (s *FrameReaderSuite) TestOversizedFrameLargerThanBuffer() {
	input := strings.Repeat("y", MaxFrameSize*2) + "\n{\"ok\":true}\n"
	fr := NewFrameReader(strings.NewReader(input), 0)

	_, err := fr.Next()
	s.ErrorIs(err, ErrFrameTooLarge)

	frame, err := fr.Next()
	s.Require().NoError(err)
	s.Equal(`{"ok":true}`, string(frame))
}

func (s *FrameReaderSuite) TestLargeFrameWithinLimit() {
	big := `{"blob":"` + strings.Repeat("z", 40000) + `"}`
	fr := NewFrameReader(strings.NewReader(big+"\n"), 0)
	s.Equal([]string{big}, s.collect(fr))
}

func (s *FrameReaderSuite) TestReadErrorPropagates() {
	fr := NewFrameReader(iotest.ErrReader(io.ErrUnexpectedEOF), 0)
	_, err := fr.Next()
	s.ErrorIs(err, io.ErrUnexpectedEOF)
}

func (s *FrameReaderSuite) TestEncodeTerminatesAndKeepsHTML() {
	frame, err := Encode(map[string]string{"text": "<b>&</b>"})
	s.Require().NoError(err)
	s.True(bytes.HasSuffix(frame, []byte("\n")))
	s.Equal(1, bytes.Count(frame, []byte("\n")))
	s.Contains(string(frame), "<b>&</b>")
}
