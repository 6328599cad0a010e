package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/trirk/auth"
	"github.com/onnwee/trirk/frame"
	"github.com/onnwee/trirk/ircerr"
	"github.com/onnwee/trirk/parser"
	"github.com/onnwee/trirk/telemetry"
)

// PongLine is the reply sent for every PING.
const PongLine = "PONG :tmi.twitch.tv"

// Opened is a live connection. ReadNext may be called from one goroutine while Send, Privmsg and
// Pong are called from others; concurrent reads are serialized, as are concurrent writes.
type Opened struct {
	cfg     Config
	conn    net.Conn
	reader  *frame.Reader
	session string
	since   time.Time
	logger  *slog.Logger

	readMu  sync.Mutex
	writeMu sync.Mutex
	closed  atomic.Bool
}

// Open dials the server and writes the handshake in a single write: PASS, NICK, JOIN and one
// CAP REQ per capability. It does not wait for the server to acknowledge anything.
// Dial and write failures are transport errors.
func (c *Closed) Open(ctx context.Context) (*Opened, error) {
	if err := c.cfg.validate(); err != nil {
		return nil, err
	}
	session := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, "connection.open",
		attribute.String("chat.addr", c.cfg.Addr),
		attribute.String("chat.channel", c.cfg.Channel),
		attribute.String("chat.session", session),
	)
	defer span.End()

	start := time.Now()
	conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		terr := ircerr.Transport("open", err)
		telemetry.RecordError(span, terr)
		return nil, terr
	}

	o := &Opened{
		cfg:     c.cfg,
		conn:    conn,
		reader:  frame.NewReader(conn, c.limits),
		session: session,
		logger:  c.logger.With(slog.String("session", session), slog.String("channel", c.cfg.Channel)),
	}

	o.logger.Debug("writing handshake",
		slog.String("nick", c.cfg.Nickname),
		slog.String("token", auth.Mask(c.cfg.Token)),
		slog.Any("caps", Capabilities),
	)
	if err := o.Send(handshake(c.cfg)); err != nil {
		_ = conn.Close()
		telemetry.RecordError(span, err)
		return nil, err
	}

	o.since = time.Now()
	if telemetry.HandshakeDuration != nil {
		telemetry.HandshakeDuration.Observe(o.since.Sub(start).Seconds())
	}
	telemetry.IncConnectionsOpened()
	telemetry.SetConnectionUp(true)
	telemetry.SetSpanSuccess(span)
	o.logger.Info("chat connection opened", slog.String("addr", c.cfg.Addr))
	return o, nil
}

func handshake(cfg Config) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "PASS %s\r\n", cfg.Token)
	fmt.Fprintf(&b, "NICK %s\r\n", cfg.Nickname)
	fmt.Fprintf(&b, "JOIN #%s\r\n", cfg.Channel)
	for _, c := range Capabilities {
		fmt.Fprintf(&b, "CAP REQ :%s\r\n", c)
	}
	return []byte(b.String())
}

// SessionID identifies this Opened value in logs and status output.
func (o *Opened) SessionID() string { return o.session }

// Channel returns the joined channel without its '#'.
func (o *Opened) Channel() string { return o.cfg.Channel }

// Since returns when the handshake completed.
func (o *Opened) Since() time.Time { return o.since }

// Send writes p to the socket in full. Writes never interleave.
func (o *Opened) Send(p []byte) error {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	for len(p) > 0 {
		n, err := o.conn.Write(p)
		telemetry.RecordWrite(n)
		if err != nil {
			return ircerr.Transport("write", err)
		}
		p = p[n:]
	}
	return nil
}

// SendLine sends one protocol line, adding the terminator. A line that itself contains CR or LF
// is rejected as a framing error without touching the socket.
func (o *Opened) SendLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return ircerr.Framing("send", line, ircerr.ErrInvalidText)
	}
	return o.Send([]byte(line + "\r\n"))
}

// Privmsg sends text to the joined channel.
func (o *Opened) Privmsg(text string) error {
	if strings.ContainsAny(text, "\r\n") {
		return ircerr.Framing("privmsg", text, ircerr.ErrInvalidText)
	}
	return o.Send([]byte("PRIVMSG #" + o.cfg.Channel + " :" + text + "\r\n"))
}

// Pong answers a PING.
func (o *Opened) Pong() error {
	return o.Send([]byte(PongLine + "\r\n"))
}

// ReadNext blocks until one full line has arrived and returns it parsed. It returns io.EOF when
// the server closed the stream cleanly. Lines that are not valid UTF-8 are reported as decoding
// errors and consumed; the next call continues with the following line.
func (o *Opened) ReadNext() (*parser.Message, error) {
	o.readMu.Lock()
	defer o.readMu.Unlock()

	raw, err := o.reader.Next()
	if err != nil {
		telemetry.RecordReadError(errorClass(err))
		return nil, err
	}
	telemetry.RecordLine(len(raw))

	if !utf8.Valid(raw) {
		err := ircerr.Decoding("read", string(raw), ircerr.ErrInvalidUTF8)
		telemetry.RecordReadError(ircerr.KindDecoding.String())
		return nil, err
	}
	msg, err := parser.Parse(string(raw))
	if err != nil {
		telemetry.RecordReadError(errorClass(err))
		return nil, err
	}
	telemetry.RecordParsed(kindLabel(msg.Command.Kind))
	return msg, nil
}

func errorClass(err error) string {
	if errors.Is(err, io.EOF) {
		return "eof"
	}
	return ircerr.KindOf(err).String()
}

// kindLabel keeps metric cardinality bounded: unknown verbs share one label.
func kindLabel(k parser.CommandKind) string {
	switch k.Type {
	case parser.Unknown:
		return "unknown"
	case parser.Numeric:
		return "numeric"
	default:
		return k.String()
	}
}

// Close closes the socket. A ReadNext blocked in another goroutine returns with an error.
// Close is idempotent.
func (o *Opened) Close() error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	telemetry.SetConnectionUp(false)
	o.logger.Info("chat connection closed", slog.Duration("uptime", time.Since(o.since)))
	if err := o.conn.Close(); err != nil {
		return ircerr.Transport("close", err)
	}
	return nil
}
