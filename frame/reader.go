// Package frame splits an inbound byte stream into CR LF terminated lines.
package frame

import (
	"bytes"
	"errors"
	"io"
	"iter"

	"github.com/onnwee/trirk/ircerr"
)

const readChunk = 4096

var crlf = []byte("\r\n")

// Limits constrains how much a Reader buffers while waiting for a terminator.
type Limits struct {
	MaxLineBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxLineBytes: 16 * 1024}
}

// Reader yields complete lines from r. The carry-over buffer belongs to the Reader alone; a
// Reader must not be shared between connections or used from two goroutines at once.
type Reader struct {
	r      io.Reader
	limits Limits
	buf    []byte
	// scanned is how far into buf we already know there is no terminator.
	scanned int
	err     error
}

func NewReader(r io.Reader, limits Limits) *Reader {
	if limits.MaxLineBytes <= 0 {
		limits = DefaultLimits()
	}
	return &Reader{r: r, limits: limits}
}

// Next returns the next line without its terminator. It reads from the underlying stream only
// when no complete line is buffered. At a clean end of stream it returns io.EOF; if the stream
// ends with unterminated bytes it returns a framing error wrapping ErrPartialLine. Any error is
// sticky.
func (fr *Reader) Next() ([]byte, error) {
	if fr.err != nil {
		return nil, fr.err
	}
	for {
		if i := bytes.Index(fr.buf[fr.scanned:], crlf); i >= 0 {
			end := fr.scanned + i
			if end > fr.limits.MaxLineBytes {
				fr.err = ircerr.Framing("read", string(fr.buf[:min(end, 64)]), ircerr.ErrLineTooLong)
				return nil, fr.err
			}
			line := bytes.Clone(fr.buf[:end])
			fr.buf = fr.buf[end+len(crlf):]
			fr.scanned = 0
			return line, nil
		}
		// a trailing CR may be the first half of a terminator split across reads
		fr.scanned = max(len(fr.buf)-1, 0)

		if len(fr.buf) > fr.limits.MaxLineBytes+1 {
			fr.err = ircerr.Framing("read", string(fr.buf[:min(len(fr.buf), 64)]), ircerr.ErrLineTooLong)
			return nil, fr.err
		}

		if err := fr.fill(); err != nil {
			fr.err = err
			return nil, err
		}
	}
}

func (fr *Reader) fill() error {
	if len(fr.buf) == cap(fr.buf) {
		grown := make([]byte, len(fr.buf), len(fr.buf)+readChunk)
		copy(grown, fr.buf)
		fr.buf = grown
	}
	n, err := fr.r.Read(fr.buf[len(fr.buf):cap(fr.buf)])
	fr.buf = fr.buf[:len(fr.buf)+n]
	if n > 0 {
		return nil
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		if len(fr.buf) > 0 {
			return ircerr.Framing("read", string(fr.buf), ircerr.ErrPartialLine)
		}
		return io.EOF
	default:
		return ircerr.Transport("read", err)
	}
}

// Buffered reports how many bytes are waiting for a terminator.
func (fr *Reader) Buffered() int { return len(fr.buf) }

// Lines returns a sequence over the remaining lines. The sequence stops at end of stream, or
// after yielding the first error. Each call resumes where the previous one stopped.
func (fr *Reader) Lines() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			line, err := fr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(line, err) || err != nil {
				return
			}
		}
	}
}
