package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/trirk/auth"
	"github.com/onnwee/trirk/connection"
	"github.com/onnwee/trirk/ircerr"
	"github.com/onnwee/trirk/parser"
	"github.com/onnwee/trirk/telemetry"
)

var (
	ErrNotConnected = errors.New("chat: not connected")
	// ErrIdleTimeout ends a session that received nothing within the idle timeout.
	ErrIdleTimeout = errors.New("chat: no traffic within idle timeout")
	// ErrServerReconnect ends a session after the server sent RECONNECT.
	ErrServerReconnect = errors.New("chat: server requested reconnect")
)

// Options configures a Client.
type Options struct {
	// Connection holds the server, nickname and channel. Its Token is used only when Tokens is nil.
	Connection connection.Config
	// Tokens is asked for a token before every connection attempt.
	Tokens auth.TokenSource
	// IdleTimeout closes a connection that has been silent this long. Zero disables it.
	IdleTimeout time.Duration
	Backoff     BackoffConfig
	Logger      *slog.Logger

	// Hub, when set, receives every parsed message.
	Hub         *Hub
	ConnOptions []connection.Option
}

// Status is a point-in-time view of the client.
type Status struct {
	Connected     bool      `json:"connected"`
	SessionID     string    `json:"session_id,omitempty"`
	Channel       string    `json:"channel"`
	Since         time.Time `json:"since,omitzero"`
	LastMessageAt time.Time `json:"last_message_at,omitzero"`
	Reconnects    int       `json:"reconnects"`
	LastError     string    `json:"last_error,omitempty"`
	Messages      uint64    `json:"messages"`
}

// Client keeps one chat connection alive, reconnecting with backoff, and dispatches every
// received message to the registered handlers.
type Client struct {
	opts     Options
	tokens   auth.TokenSource
	channel  string
	logger   *slog.Logger
	handlers handlers
	messages atomic.Uint64

	mu         sync.RWMutex
	conn       *connection.Opened
	lastMsg    time.Time
	reconnects int
	lastErr    string
}

func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Backoff == (BackoffConfig{}) {
		opts.Backoff = DefaultBackoff()
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = auth.Static(opts.Connection.Token)
	}
	return &Client{
		opts:    opts,
		tokens:  tokens,
		channel: connection.New(opts.Connection).Config().Channel,
		logger:  opts.Logger.With(slog.String("component", "chat")),
	}
}

// Hub returns the hub messages are published to, or nil.
func (c *Client) Hub() *Hub { return c.opts.Hub }

// Run connects and processes messages until ctx is cancelled, reconnecting whenever a session
// ends. It returns nil on cancellation and an error only when the configuration can never
// produce a connection.
func (c *Client) Run(ctx context.Context) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0
	for {
		received, err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if permanent(err) {
			c.logger.Error("chat client cannot connect", slog.Any("err", err))
			return err
		}
		c.noteError(err)

		var delay time.Duration
		switch {
		case errors.Is(err, ErrServerReconnect):
			attempt = 0
		default:
			if received > 0 {
				attempt = 0
			}
			attempt++
			delay = NextBackoffDelay(c.opts.Backoff, attempt, rng)
		}
		c.logger.Warn("chat session ended; reconnecting",
			slog.Any("err", err),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)

		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
		}
		c.mu.Lock()
		c.reconnects++
		c.mu.Unlock()
		telemetry.IncReconnects()
	}
}

func permanent(err error) bool {
	return errors.Is(err, connection.ErrIncompleteConfig) ||
		errors.Is(err, auth.ErrNoToken) ||
		errors.Is(err, auth.ErrNoRefreshToken)
}

// session runs one connection to completion and reports how many messages it received.
func (c *Client) session(ctx context.Context) (int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, fmt.Errorf("get token: %w", err)
	}
	cfg := c.opts.Connection
	cfg.Token = token

	opts := append([]connection.Option{connection.WithLogger(c.opts.Logger)}, c.opts.ConnOptions...)
	conn, err := connection.Open(ctx, cfg, opts...)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	ctx, span := telemetry.StartSpan(ctx, "chat.session",
		attribute.String("chat.session", conn.SessionID()),
		attribute.String("chat.channel", conn.Channel()),
	)
	defer span.End()

	c.setConn(conn)
	defer c.setConn(nil)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var idled atomic.Bool
	var idle *time.Timer
	if c.opts.IdleTimeout > 0 {
		idle = time.AfterFunc(c.opts.IdleTimeout, func() {
			idled.Store(true)
			_ = conn.Close()
		})
		defer idle.Stop()
	}

	logger := c.logger.With(slog.String("session", conn.SessionID()))
	received := 0
	for {
		msg, err := conn.ReadNext()
		if err != nil {
			if !ircerr.ShouldReconnect(err) {
				logger.Warn("skipping undecodable line", slog.Any("err", err))
				c.noteError(err)
				continue
			}
			if idled.Load() {
				err = fmt.Errorf("%w (%s): %w", ErrIdleTimeout, c.opts.IdleTimeout, err)
			}
			telemetry.RecordError(span, err)
			span.SetAttributes(attribute.Int("chat.messages", received))
			return received, err
		}
		received++
		if idle != nil {
			idle.Reset(c.opts.IdleTimeout)
		}
		now := time.Now()
		c.messages.Add(1)
		c.mu.Lock()
		c.lastMsg = now
		c.mu.Unlock()

		if msg.Command.Kind.Is(parser.Ping) {
			if err := conn.Pong(); err != nil {
				telemetry.RecordError(span, err)
				return received, err
			}
		}
		c.dispatch(msg)
		if c.opts.Hub != nil {
			c.opts.Hub.Publish(Event{Session: conn.SessionID(), ReceivedAt: now, Message: msg, Line: msg.String()})
		}
		if msg.Command.Kind.Is(parser.Reconnect) {
			return received, ErrServerReconnect
		}
	}
}

func (c *Client) dispatch(msg *parser.Message) {
	for _, fn := range c.handlers.snapshot(msg) {
		c.call(fn, msg)
	}
}

func (c *Client) call(fn Handler, msg *parser.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("chat handler panicked",
				slog.Any("panic", r),
				slog.String("command", msg.Command.Kind.String()),
			)
		}
	}()
	fn(msg)
}

func (c *Client) setConn(conn *connection.Opened) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) current() *connection.Opened {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Client) noteError(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}

// Say sends text to the channel on the current connection.
func (c *Client) Say(text string) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Privmsg(text)
}

// SendRaw sends one protocol line on the current connection.
func (c *Client) SendRaw(line string) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.SendLine(line)
}

func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Status{
		Channel:       c.channel,
		LastMessageAt: c.lastMsg,
		Reconnects:    c.reconnects,
		LastError:     c.lastErr,
		Messages:      c.messages.Load(),
	}
	if c.conn != nil {
		s.Connected = true
		s.SessionID = c.conn.SessionID()
		s.Since = c.conn.Since()
	}
	return s
}
