// Package connection owns one socket to the chat server.
//
// A connection starts as a Closed value holding only configuration. Open dials, writes the
// login handshake and returns an Opened value; only Opened can send and receive. Reconnecting
// means calling Open again, which builds a new Opened with its own buffer and session id.
package connection

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/onnwee/trirk/frame"
)

// DefaultAddr is the plaintext chat endpoint.
const DefaultAddr = "irc.chat.twitch.tv:6667"

// Capabilities are requested on every handshake, in this order.
var Capabilities = []string{
	"twitch.tv/commands",
	"twitch.tv/membership",
	"twitch.tv/tags",
}

var ErrIncompleteConfig = errors.New("connection: nickname, channel and token are required")

// Config identifies the server, the account and the channel to join.
type Config struct {
	// Addr is host:port; DefaultAddr when empty.
	Addr     string
	Token    string
	Nickname string
	Channel  string
}

// normalized fills defaults and puts each field in the form the server expects.
func (c Config) normalized() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	c.Token = strings.TrimSpace(c.Token)
	if c.Token != "" && !strings.HasPrefix(c.Token, "oauth:") {
		c.Token = "oauth:" + c.Token
	}
	c.Nickname = strings.ToLower(strings.TrimSpace(c.Nickname))
	c.Channel = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Channel), "#"))
	return c
}

func (c Config) validate() error {
	if c.Nickname == "" || c.Channel == "" || c.Token == "" {
		return ErrIncompleteConfig
	}
	return nil
}

// Dialer opens the underlying stream. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Option configures a Closed connection.
type Option func(*Closed)

// WithDialer replaces the default TCP dialer.
func WithDialer(d Dialer) Option {
	return func(c *Closed) { c.dialer = d }
}

// WithLogger sets the logger used for connection lifecycle records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Closed) { c.logger = l }
}

// WithLimits sets the frame reader limits for every Opened produced.
func WithLimits(l frame.Limits) Option {
	return func(c *Closed) { c.limits = l }
}

// Closed is a connection that has not been opened. It is safe to call Open on the same Closed
// value repeatedly; each call yields an independent Opened.
type Closed struct {
	cfg    Config
	dialer Dialer
	logger *slog.Logger
	limits frame.Limits
}

func New(cfg Config, opts ...Option) *Closed {
	c := &Closed{
		cfg:    cfg.normalized(),
		dialer: &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second},
		logger: slog.Default(),
		limits: frame.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "connection"))
	return c
}

// Config returns the normalized configuration.
func (c *Closed) Config() Config { return c.cfg }

// Open is shorthand for New(cfg, opts...).Open(ctx).
func Open(ctx context.Context, cfg Config, opts ...Option) (*Opened, error) {
	return New(cfg, opts...).Open(ctx)
}
