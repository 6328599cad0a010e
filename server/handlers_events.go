package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	eventBuffer  = 256
	sseKeepAlive = 15 * time.Second
)

// HandleEvents streams parsed chat messages as server-sent events until the client goes away.
// ?kind=PRIVMSG,NOTICE limits the stream to the listed commands.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, "event stream not configured", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	kinds := parseKinds(r.URL.Query().Get("kind"))

	events, cancel := h.hub.Subscribe(eventBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ping := time.NewTicker(sseKeepAlive)
	defer ping.Stop()
	enc := json.NewEncoder(w)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if kinds != nil && !kinds[ev.Message.Command.Kind.String()] {
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				slog.Warn("failed to write SSE data prefix", slog.Any("err", err))
				return
			}
			// Encode ends with a newline; one more terminates the event.
			if err := enc.Encode(ev); err != nil {
				slog.Warn("failed to encode SSE event", slog.Any("err", err))
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				slog.Warn("failed to write SSE newline", slog.Any("err", err))
				return
			}
			flusher.Flush()
		}
	}
}

func parseKinds(v string) map[string]bool {
	if v == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, k := range strings.Split(v, ",") {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			out[k] = true
		}
	}
	return out
}
