package parser

import (
	"fmt"
	"strings"

	"github.com/onnwee/trirk/ircerr"
)

const op = "parse"

// Parse parses one line with its terminator already removed. It returns a *ircerr.Error of kind
// Framing for an empty line, a tag block or source without a following space, or a line that
// is neither source-prefixed, a PING, nor an unprefixed JOIN.
func Parse(line string) (*Message, error) {
	if line == "" {
		return nil, ircerr.Framing(op, line, ircerr.ErrEmptyLine)
	}

	msg := &Message{}
	rest := line

	if strings.HasPrefix(rest, "@") {
		block, after, ok := strings.Cut(rest[1:], " ")
		if !ok {
			return nil, ircerr.Framing(op, line, fmt.Errorf("%w after tag block", ircerr.ErrMissingSpace))
		}
		tags := ParseTags(block)
		msg.Tags = &tags
		rest = after
	}

	if rest == "" {
		return nil, ircerr.Framing(op, line, fmt.Errorf("%w: nothing after tag block", ircerr.ErrUnrecognized))
	}

	switch {
	case rest[0] == ':':
		token, after, ok := strings.Cut(rest[1:], " ")
		if !ok {
			return nil, ircerr.Framing(op, line, fmt.Errorf("%w after source", ircerr.ErrMissingSpace))
		}
		src := ParseSource(token)
		msg.Source = &src

		verb, args, _ := strings.Cut(after, " ")
		msg.Command = Command{
			Kind:    ParseCommandKind(verb),
			Channel: src.Nick,
			Target:  middleParam(args),
		}
		msg.Parameters = trailing(args)
		return msg, nil

	case rest == "PING":
		msg.Command = Command{Kind: KindOf(Ping)}
		return msg, nil

	case strings.HasPrefix(rest, "PING "):
		args := rest[len("PING "):]
		msg.Command = Command{Kind: KindOf(Ping), Target: middleParam(args)}
		msg.Parameters = trailing(args)
		return msg, nil
	}

	if cmd, src, ok := parseUnprefixedJoin(rest); ok {
		msg.Source = &src
		msg.Command = cmd
		return msg, nil
	}
	return nil, ircerr.Framing(op, line, fmt.Errorf("%w: unexpected start %q", ircerr.ErrUnrecognized, rest[0]))
}

// ParseSource splits "nick!user@host" into nick and host. A token missing either delimiter is
// treated entirely as a host, which is how server lines (":tmi.twitch.tv") arrive.
func ParseSource(token string) Source {
	nick, userHost, ok := strings.Cut(token, "!")
	if !ok {
		return Source{Host: token}
	}
	_, host, ok := strings.Cut(userHost, "@")
	if !ok {
		return Source{Host: token}
	}
	return Source{Nick: nick, Host: host}
}

// parseUnprefixedJoin reads the positional form "<nick>!<user>@<host> JOIN <#channel>" that some
// servers send without the leading ':'. No other verb is accepted in this position.
func parseUnprefixedJoin(rest string) (Command, Source, bool) {
	fields := strings.SplitN(rest, " ", 3)
	if len(fields) != 3 || fields[1] != "JOIN" || !strings.Contains(fields[0], "!") {
		return Command{}, Source{}, false
	}
	src := ParseSource(fields[0])
	target := fields[2]
	channel := strings.TrimPrefix(strings.TrimPrefix(target, ":"), "#")
	if channel == "" {
		return Command{}, Source{}, false
	}
	return Command{Kind: KindOf(Join), Channel: channel, Target: target}, src, true
}

func middleParam(args string) string {
	if args == "" || args[0] == ':' {
		return ""
	}
	first, _, _ := strings.Cut(args, " ")
	return first
}

func trailing(args string) *string {
	_, text, ok := strings.Cut(args, ":")
	if !ok {
		return nil
	}
	return &text
}
