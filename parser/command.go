package parser

import (
	"fmt"
	"strconv"
)

// CommandType is the closed set of verbs the client distinguishes.
type CommandType uint8

const (
	Unknown CommandType = iota
	PrivateMessage
	Part
	Join
	Notice
	ClearChat
	ClearMessage
	HostTarget
	Ping
	CapabilityAck
	GlobalUserState
	UserState
	RoomState
	Reconnect
	Numeric
)

var keywords = map[string]CommandType{
	"PRIVMSG":         PrivateMessage,
	"PART":            Part,
	"JOIN":            Join,
	"NOTICE":          Notice,
	"CLEARCHAT":       ClearChat,
	"CLEARMSG":        ClearMessage,
	"HOSTTARGET":      HostTarget,
	"PING":            Ping,
	"CAP":             CapabilityAck,
	"GLOBALUSERSTATE": GlobalUserState,
	"USERSTATE":       UserState,
	"ROOMSTATE":       RoomState,
	"RECONNECT":       Reconnect,
}

var verbs = func() map[CommandType]string {
	m := make(map[CommandType]string, len(keywords))
	for verb, t := range keywords {
		m[t] = verb
	}
	return m
}()

// CommandKind is a CommandType plus the data carried by the Numeric and Unknown variants.
type CommandKind struct {
	Type CommandType
	// Code is set for Numeric.
	Code uint16
	// Verb is the verb as received, set for Unknown.
	Verb string
}

// KindOf returns the kind for a fixed verb. Use NumericKind and UnknownKind for the
// data-carrying variants.
func KindOf(t CommandType) CommandKind { return CommandKind{Type: t} }

func NumericKind(code uint16) CommandKind { return CommandKind{Type: Numeric, Code: code} }

func UnknownKind(verb string) CommandKind { return CommandKind{Type: Unknown, Verb: verb} }

// ParseCommandKind maps a verb to its kind: the keyword table first, then an unsigned 16-bit
// numeric, then Unknown with the verb preserved.
func ParseCommandKind(verb string) CommandKind {
	if t, ok := keywords[verb]; ok {
		return KindOf(t)
	}
	if n, err := strconv.ParseUint(verb, 10, 16); err == nil {
		return NumericKind(uint16(n))
	}
	return UnknownKind(verb)
}

// String returns the wire verb.
func (k CommandKind) String() string {
	switch k.Type {
	case Numeric:
		return fmt.Sprintf("%03d", k.Code)
	case Unknown:
		return k.Verb
	default:
		return verbs[k.Type]
	}
}

// MarshalText encodes the kind as its wire verb.
func (k CommandKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *CommandKind) UnmarshalText(b []byte) error {
	*k = ParseCommandKind(string(b))
	return nil
}

// Is reports whether k has type t.
func (k CommandKind) Is(t CommandType) bool { return k.Type == t }
