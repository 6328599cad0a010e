package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/onnwee/trirk/chat"
)

// HandleHealthz answers liveness probes. It only proves the process serves HTTP.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports ready once the chat connection is up.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"chat_client", func() error {
			if h.client == nil {
				return errors.New("chat client not configured")
			}
			return nil
		}},
		{"chat_connection", func() error {
			st := h.client.Status()
			if !st.Connected {
				if st.LastError != "" {
					return errors.New(st.LastError)
				}
				return chat.ErrNotConnected
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusResponse struct {
	Chat        chat.Status `json:"chat"`
	Uptime      string      `json:"uptime"`
	Subscribers int         `json:"event_subscribers"`
	Dropped     uint64      `json:"events_dropped"`
}

// HandleStatus returns the chat client's status and process uptime as JSON.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Uptime: time.Since(h.started).Round(time.Second).String()}
	if h.client != nil {
		resp.Chat = h.client.Status()
	}
	if h.hub != nil {
		resp.Subscribers = h.hub.Len()
		resp.Dropped = h.hub.Dropped()
	}
	writeJSON(w, http.StatusOK, resp)
}
