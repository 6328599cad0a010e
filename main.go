// Command trirk joins one Twitch channel and keeps the chat connection alive.
// It:
//   - Loads configuration (.env, CONFIG_FILE, environment) and initializes structured logging.
//   - Builds a token source: refresh-token credentials when present, else a static token,
//     and checks the token's scopes once at startup.
//   - Runs the chat client, logging every event and fanning messages out to /events.
//   - Exposes /healthz, /readyz, /status, /metrics, /events and POST /say over HTTP.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/trirk/auth"
	"github.com/onnwee/trirk/chat"
	"github.com/onnwee/trirk/config"
	"github.com/onnwee/trirk/server"
	"github.com/onnwee/trirk/telemetry"
)

var version = "dev"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	logger := telemetry.ConfigureLogging(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	slog.Info("logger initialized",
		slog.String("level", cfg.LogLevel),
		slog.String("format", cfg.LogFormat),
		slog.String("config_file", cfg.ConfigFile),
	)

	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat configuration incomplete", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("trirk", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens, err := cfg.TokenSource()
	if err != nil {
		slog.Error("no usable twitch token", slog.Any("err", err))
		os.Exit(1)
	}
	if rs, ok := tokens.(*auth.RefreshingSource); ok {
		go rs.StartRefresher(ctx, 5*time.Minute, 15*time.Minute)
	}
	checkToken(ctx, tokens)

	hub := chat.NewHub()
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
		Hub:    hub,
	})
	chat.LogHandlers(client, logger)

	startPprof()

	go func() {
		if err := server.Start(ctx, cfg.HTTPAddr, client, hub); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
			stop()
		}
	}()

	if err := client.Run(ctx); err != nil {
		slog.Error("chat client stopped", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
	slog.Info("shutting down")
}

// checkToken validates the current token once and warns about missing chat scopes. Failures
// are logged, not fatal: the chat server has the final word.
func checkToken(ctx context.Context, tokens auth.TokenSource) {
	vctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	tok, err := tokens.Token(vctx)
	if err != nil {
		slog.Warn("twitch token fetch failed", slog.Any("err", err))
		return
	}
	v, err := auth.Validate(vctx, tok)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		slog.Warn("twitch rejected the chat token", slog.Any("err", err), slog.String("token", auth.Mask(tok)))
		return
	case err != nil:
		slog.Warn("twitch token validation unavailable", slog.Any("err", err))
		return
	}
	if missing := v.MissingScopes(auth.ChatScopes...); len(missing) > 0 {
		slog.Warn("twitch token is missing chat scopes", slog.Any("missing", missing), slog.String("login", v.Login))
	}
	slog.Info("twitch token validated",
		slog.String("login", v.Login),
		slog.String("token", auth.Mask(tok)),
		slog.Time("expires_at", v.Expiry()),
	)
}

// startPprof serves the default mux on PPROF_ADDR when ENABLE_PPROF=1.
func startPprof() {
	if os.Getenv("ENABLE_PPROF") != "1" {
		return
	}
	addr := os.Getenv("PPROF_ADDR")
	if addr == "" {
		addr = "localhost:6060"
	}
	go func() {
		slog.Info("pprof profiling enabled", slog.String("addr", addr))
		srv := &http.Server{
			Addr:              addr,
			Handler:           nil, // default mux exposes /debug/pprof
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("pprof server error", slog.Any("err", err))
		}
	}()
}
