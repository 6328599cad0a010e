package chat

import (
	"log/slog"
	"sync"

	"github.com/onnwee/trirk/parser"
)

// Handler reacts to one message. Handlers run on the read loop goroutine, in registration
// order, and should return quickly.
type Handler func(*parser.Message)

// welcomeCode is the numeric the server sends once login succeeded.
const welcomeCode = 1

type handlers struct {
	mu      sync.RWMutex
	byType  map[parser.CommandType][]Handler
	any     []Handler
	connect []Handler
}

func (h *handlers) add(t parser.CommandType, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byType == nil {
		h.byType = make(map[parser.CommandType][]Handler)
	}
	h.byType[t] = append(h.byType[t], fn)
}

func (h *handlers) snapshot(msg *parser.Message) []Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []Handler
	out = append(out, h.any...)
	if msg.Command.Kind.Is(parser.Numeric) && msg.Command.Kind.Code == welcomeCode {
		out = append(out, h.connect...)
	}
	out = append(out, h.byType[msg.Command.Kind.Type]...)
	return out
}

func (c *Client) OnMessage(fn Handler) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.any = append(c.handlers.any, fn)
}

// OnConnect runs when the server welcomes the client (numeric 001).
func (c *Client) OnConnect(fn Handler) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.connect = append(c.handlers.connect, fn)
}

func (c *Client) OnPrivateMessage(fn Handler)  { c.handlers.add(parser.PrivateMessage, fn) }
func (c *Client) OnJoin(fn Handler)            { c.handlers.add(parser.Join, fn) }
func (c *Client) OnPart(fn Handler)            { c.handlers.add(parser.Part, fn) }
func (c *Client) OnNotice(fn Handler)          { c.handlers.add(parser.Notice, fn) }
func (c *Client) OnClearChat(fn Handler)       { c.handlers.add(parser.ClearChat, fn) }
func (c *Client) OnClearMessage(fn Handler)    { c.handlers.add(parser.ClearMessage, fn) }
func (c *Client) OnHostTarget(fn Handler)      { c.handlers.add(parser.HostTarget, fn) }
func (c *Client) OnRoomState(fn Handler)       { c.handlers.add(parser.RoomState, fn) }
func (c *Client) OnUserState(fn Handler)       { c.handlers.add(parser.UserState, fn) }
func (c *Client) OnGlobalUserState(fn Handler) { c.handlers.add(parser.GlobalUserState, fn) }
func (c *Client) OnCapabilityAck(fn Handler)   { c.handlers.add(parser.CapabilityAck, fn) }
func (c *Client) OnPing(fn Handler)            { c.handlers.add(parser.Ping, fn) }
func (c *Client) OnNumeric(fn Handler)         { c.handlers.add(parser.Numeric, fn) }
func (c *Client) OnUnknown(fn Handler)         { c.handlers.add(parser.Unknown, fn) }

// OnReconnect runs when the server asks the client to reconnect, before the connection is
// dropped.
func (c *Client) OnReconnect(fn Handler) { c.handlers.add(parser.Reconnect, fn) }

// LogHandlers registers slog output for every event kind.
func LogHandlers(c *Client, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "chat_events"))

	c.OnConnect(func(m *parser.Message) {
		logger.Info("chat login accepted", slog.String("server", m.Text()))
	})
	c.OnPrivateMessage(func(m *parser.Message) {
		attrs := []any{slog.String("user", m.Nick()), slog.String("text", m.Text())}
		if m.Tags != nil {
			attrs = append(attrs, slog.String("display_name", m.Tags.DisplayName), slog.String("msg_id", m.Tags.ID))
		}
		logger.Info("chat message", attrs...)
	})
	c.OnJoin(func(m *parser.Message) {
		logger.Debug("user joined", slog.String("user", m.Nick()), slog.String("target", m.Command.Target))
	})
	c.OnPart(func(m *parser.Message) {
		logger.Debug("user left", slog.String("user", m.Nick()), slog.String("target", m.Command.Target))
	})
	c.OnNotice(func(m *parser.Message) {
		msgID := ""
		if m.Tags != nil {
			msgID = m.Tags.MsgID
		}
		logger.Info("notice", slog.String("msg_id", msgID), slog.String("text", m.Text()))
	})
	c.OnClearChat(func(m *parser.Message) {
		if m.Tags == nil || m.Text() == "" {
			logger.Info("chat cleared")
			return
		}
		logger.Info("user timed out",
			slog.String("user", m.Text()),
			slog.String("target_user_id", m.Tags.TargetUserID),
			slog.Uint64("ban_duration", m.Tags.BanDuration),
		)
	})
	c.OnClearMessage(func(m *parser.Message) {
		attrs := []any{slog.String("text", m.Text())}
		if m.Tags != nil {
			attrs = append(attrs, slog.String("login", m.Tags.Login), slog.String("target_msg_id", m.Tags.TargetMsgID))
		}
		logger.Info("message deleted", attrs...)
	})
	c.OnHostTarget(func(m *parser.Message) {
		logger.Info("host target", slog.String("text", m.Text()))
	})
	c.OnRoomState(func(m *parser.Message) {
		if m.Tags == nil {
			return
		}
		logger.Debug("room state",
			slog.Bool("emote_only", m.Tags.EmoteOnly),
			slog.Bool("followers_only", m.Tags.FollowersOnly),
			slog.Bool("r9k", m.Tags.R9K),
			slog.Uint64("slow", m.Tags.Slow),
			slog.Bool("subs_only", m.Tags.SubsOnly),
		)
	})
	c.OnUserState(func(m *parser.Message) {
		logger.Debug("user state", slog.String("target", m.Command.Target))
	})
	c.OnGlobalUserState(func(m *parser.Message) {
		if m.Tags != nil {
			logger.Debug("global user state", slog.String("display_name", m.Tags.DisplayName), slog.String("user_id", m.Tags.UserID))
		}
	})
	c.OnCapabilityAck(func(m *parser.Message) {
		logger.Debug("capability ack", slog.String("caps", m.Text()))
	})
	c.OnReconnect(func(*parser.Message) {
		logger.Warn("server requested reconnect")
	})
	c.OnUnknown(func(m *parser.Message) {
		logger.Debug("unhandled command", slog.String("verb", m.Command.Kind.String()))
	})
}
