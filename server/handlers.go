package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/trirk/chat"
)

// ChatClient is the part of *chat.Client the handlers use.
type ChatClient interface {
	Status() chat.Status
	Say(text string) error
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	client  ChatClient
	hub     *chat.Hub
	started time.Time
}

func NewHandlers(client ChatClient, hub *chat.Hub) *Handlers {
	return &Handlers{client: client, hub: hub, started: time.Now()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
