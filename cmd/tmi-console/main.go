// Command tmi-console is an interactive chat console. It connects with the service
// configuration (TWITCH_* variables or CONFIG_FILE), prints every event and sends each typed
// line to the channel.
//
//	/raw <line>   send a protocol line as-is
//	/status       print the connection status
//	/quit         exit
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/trirk/chat"
	"github.com/onnwee/trirk/config"
	"github.com/onnwee/trirk/parser"
	"github.com/onnwee/trirk/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tmi-console: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateChatReady(); err != nil {
		fmt.Fprintf(os.Stderr, "tmi-console: %v\n", err)
		os.Exit(1)
	}
	tokens, err := cfg.TokenSource()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tmi-console: %v\n", err)
		os.Exit(1)
	}

	ed := newLineEditor(os.Stdin, os.Stdout)
	defer ed.Close()

	// log records go through the editor so they do not trample the prompt
	logger := telemetry.ConfigureLogging(ed, cfg.LogLevel, cfg.LogFormat)
	client := chat.NewClient(chat.Options{
		Connection:  cfg.ConnectionConfig(""),
		Tokens:      tokens,
		IdleTimeout: cfg.ChatIdleTimeout,
		Backoff: chat.BackoffConfig{
			InitialDelay: cfg.ChatReconnectInitial,
			MaxDelay:     cfg.ChatReconnectMax,
			Multiplier:   2.0,
			Jitter:       true,
		},
		Logger: logger,
	})
	client.OnMessage(func(m *parser.Message) {
		if line := formatEvent(m); line != "" {
			fmt.Fprintln(ed, line)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	prompt := "#" + client.Status().Channel + "> "
	for ctx.Err() == nil {
		line, err := ed.ReadLine(prompt)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error("read input", slog.Any("err", err))
			}
			break
		}
		quit, err := handleInput(client, ed, line)
		if err != nil {
			fmt.Fprintf(ed, "! %v\n", err)
		}
		if quit {
			break
		}
	}
	stop()
	if err := <-done; err != nil {
		fmt.Fprintf(os.Stderr, "tmi-console: %v\n", err)
		os.Exit(1)
	}
}

// sender is the part of *chat.Client the input loop drives.
type sender interface {
	Say(text string) error
	SendRaw(line string) error
	Status() chat.Status
}

// handleInput runs one typed line. It reports whether the console should exit.
func handleInput(c sender, out io.Writer, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case line == "/quit" || line == "/exit":
		return true, nil
	case line == "/status":
		st := c.Status()
		fmt.Fprintf(out, "connected=%t session=%s channel=%s messages=%d reconnects=%d last_error=%q\n",
			st.Connected, st.SessionID, st.Channel, st.Messages, st.Reconnects, st.LastError)
		return false, nil
	case strings.HasPrefix(line, "/raw "):
		return false, c.SendRaw(strings.TrimSpace(strings.TrimPrefix(line, "/raw ")))
	case strings.HasPrefix(line, "/"):
		return false, fmt.Errorf("unknown command %q (try /raw, /status, /quit)", strings.Fields(line)[0])
	default:
		return false, c.Say(line)
	}
}

// formatEvent renders a message for the console. PINGs and capability acks are not shown.
func formatEvent(m *parser.Message) string {
	switch m.Command.Kind.Type {
	case parser.Ping, parser.CapabilityAck:
		return ""
	case parser.PrivateMessage:
		name := m.Nick()
		if m.Tags != nil && m.Tags.DisplayName != "" {
			name = m.Tags.DisplayName
		}
		return fmt.Sprintf("<%s> %s", name, m.Text())
	case parser.Join:
		return fmt.Sprintf("* %s joined", m.Nick())
	case parser.Part:
		return fmt.Sprintf("* %s left", m.Nick())
	case parser.Notice:
		return "-notice- " + m.Text()
	case parser.ClearChat:
		if m.Text() == "" {
			return "* chat was cleared"
		}
		return fmt.Sprintf("* %s was timed out", m.Text())
	case parser.ClearMessage:
		return "* a message was deleted: " + m.Text()
	case parser.Reconnect:
		return "* server requested reconnect"
	default:
		return m.String()
	}
}
