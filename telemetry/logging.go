package telemetry

import (
	"io"
	"log/slog"
	"strings"
)

// ConfigureLogging builds a logger from LOG_LEVEL / LOG_FORMAT style values. Level is one of
// debug, info, warn, error; anything else falls back to info with a warning. Format is text or
// json; anything else is text.
func ConfigureLogging(w io.Writer, level, format string) *slog.Logger {
	lvl, known := parseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	if !known {
		logger.Warn("unknown LOG_LEVEL, using info", slog.String("value", level))
	}
	return logger
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
