// Package ircerr is the single error type reported by the chat core. Every failure that leaves
// the frame reader, the line parser, or the connection is one of three kinds: a framing problem
// (the line has the wrong shape), a transport problem (the socket failed), or a decoding problem
// (the bytes are not text).
//
// Problems inside a single tag, badge, or emote are not errors at all; the parser skips them.
package ircerr

import (
	"errors"
	"fmt"
	"io"
)

// Kind classifies an error by which layer produced it.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate in the chat core.
	KindUnknown Kind = iota
	// KindFraming marks a structural violation of the line shape.
	KindFraming
	// KindTransport marks an underlying I/O failure.
	KindTransport
	// KindDecoding marks bytes that are not valid text.
	KindDecoding
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindFraming:
		return "framing"
	case KindTransport:
		return "transport"
	case KindDecoding:
		return "decoding"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyLine    = errors.New("empty line")
	ErrMissingSpace = errors.New("missing separator space")
	ErrUnrecognized = errors.New("unrecognized line")
	ErrPartialLine  = errors.New("connection closed mid-line")
	ErrLineTooLong  = errors.New("line exceeds limit")
	ErrInvalidUTF8  = errors.New("invalid utf-8")
	ErrInvalidText  = errors.New("text contains line terminator")
)

// Error is the error type returned by the frame reader, the parser, and the connection.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "parse", "read", "open".
	Op string
	// Line is the offending raw line, when there is one.
	Line string
	Err  error
}

func (e *Error) Error() string {
	msg := "<nil>"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Line != "" {
		return fmt.Sprintf("%s: %s: %s (line %q)", e.Kind, e.Op, msg, e.Line)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Framing returns a framing error for line.
func Framing(op, line string, err error) *Error {
	return &Error{Kind: KindFraming, Op: op, Line: line, Err: err}
}

// Transport wraps an I/O failure.
func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// Decoding returns a decoding error for line.
func Decoding(op, line string, err error) *Error {
	return &Error{Kind: KindDecoding, Op: op, Line: line, Err: err}
}

// KindOf reports the kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsFraming(err error) bool   { return KindOf(err) == KindFraming }
func IsTransport(err error) bool { return KindOf(err) == KindTransport }
func IsDecoding(err error) bool  { return KindOf(err) == KindDecoding }

// ShouldReconnect reports whether err ends the current connection. Framing and transport errors
// and a clean end of stream do; a decoding error only spoils one line.
func ShouldReconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	switch KindOf(err) {
	case KindFraming, KindTransport:
		return true
	case KindDecoding:
		return false
	default:
		// errors from outside the core (closed sockets, deadlines) leave the connection unusable
		return true
	}
}
