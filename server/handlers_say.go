package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/trirk/chat"
	"github.com/onnwee/trirk/ircerr"
	"github.com/onnwee/trirk/telemetry"
)

const maxSayBody = 4 << 10

type sayRequest struct {
	Text string `json:"text"`
}

// HandleSay sends {"text": "..."} to the joined channel.
func (h *Handlers) HandleSay(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		http.Error(w, "chat client not configured", http.StatusServiceUnavailable)
		return
	}
	var req sayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSayBody)).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	err := h.client.Say(req.Text)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	case errors.Is(err, ircerr.ErrInvalidText):
		http.Error(w, "text must be a single line", http.StatusBadRequest)
	case errors.Is(err, chat.ErrNotConnected):
		http.Error(w, "chat not connected", http.StatusServiceUnavailable)
	default:
		telemetry.LoggerWithCorr(r.Context()).Warn("say failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "send failed", http.StatusBadGateway)
	}
}
