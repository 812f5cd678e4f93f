package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// MaxFrameSize is the largest frame accepted, excluding the delimiter
const MaxFrameSize = 64 * 1024

// ErrFrameTooLarge is returned for a line longer than the frame limit.
// The oversized line has been consumed, so the stream is still usable.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// FrameReader splits a byte stream into newline-delimited frames.
// It only scans for the '\n' byte, which never occurs inside a UTF-8
// multi-byte sequence, so frames are never cut mid-character.
type FrameReader struct {
	r   *bufio.Reader
	max int
	buf []byte
}

// NewFrameReader wraps r; max <= 0 selects MaxFrameSize
func NewFrameReader(r io.Reader, max int) *FrameReader {
	if max <= 0 {
		max = MaxFrameSize
	}
	return &FrameReader{
		r:   bufio.NewReaderSize(r, 4096),
		max: max,
	}
}

// Next returns the next non-blank frame without its delimiter or a
// trailing '\r'. The returned slice is only valid until the next call.
// An unterminated fragment at end of stream is discarded.
func (f *FrameReader) Next() ([]byte, error) {
	for {
		line, err := f.readLine()
		if err != nil {
			return nil, err
		}
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return line, nil
	}
}

func (f *FrameReader) readLine() ([]byte, error) {
	f.buf = f.buf[:0]
	tooLarge := false
	for {
		chunk, err := f.r.ReadSlice('\n')
		if !tooLarge {
			if len(f.buf)+len(chunk) > f.max+1 {
				tooLarge = true
				f.buf = f.buf[:0]
			} else {
				f.buf = append(f.buf, chunk...)
			}
		}

		switch {
		case err == nil:
			if tooLarge {
				return nil, ErrFrameTooLarge
			}
			return f.buf[:len(f.buf)-1], nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return nil, err
		}
	}
}

// Encode renders v as a single frame terminated by '\n'.
// HTML characters are left unescaped so documents travel as written.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
