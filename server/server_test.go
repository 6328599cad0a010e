package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/trirk/chat"
	"github.com/onnwee/trirk/ircerr"
	"github.com/onnwee/trirk/telemetry"
)

type fakeClient struct {
	mu     sync.Mutex
	status chat.Status
	said   []string
	err    error
}

func (f *fakeClient) Status() chat.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeClient) Say(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.said = append(f.said, text)
	return nil
}

func connectedClient() *fakeClient {
	return &fakeClient{status: chat.Status{
		Connected: true,
		SessionID: "abc",
		Channel:   "evazord",
		Since:     time.Now(),
		Messages:  7,
	}}
}

// openEnv clears the middleware environment so auth and rate limiting are predictable.
func openEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ADMIN_USERNAME", "ADMIN_PASSWORD", "ADMIN_TOKEN", "ENV", "CORS_PERMISSIVE", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	t.Setenv("RATE_LIMIT_ENABLED", "0")
}

func newMux(t *testing.T, client ChatClient, hub *chat.Hub) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewMux(ctx, client, hub)
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthzOK(t *testing.T) {
	openEnv(t)
	rr := serve(newMux(t, nil, nil), http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "ok" {
		t.Fatalf("expected ok body, got %q", got)
	}
	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Error("missing X-Correlation-ID")
	}
}

func TestCorrelationIDIsEchoed(t *testing.T) {
	openEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rr := httptest.NewRecorder()
	newMux(t, nil, nil).ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Errorf("X-Correlation-ID = %q", got)
	}
}

func TestReadyz(t *testing.T) {
	openEnv(t)
	tests := []struct {
		name       string
		client     ChatClient
		wantStatus int
		wantCheck  string
		wantError  string
	}{
		{"ready", connectedClient(), http.StatusOK, "", ""},
		{"no client", nil, http.StatusServiceUnavailable, "chat_client", ""},
		{"not connected", &fakeClient{}, http.StatusServiceUnavailable, "chat_connection", chat.ErrNotConnected.Error()},
		{"last error", &fakeClient{status: chat.Status{LastError: "transport: open: refused"}}, http.StatusServiceUnavailable, "chat_connection", "transport: open: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(newMux(t, tt.client, nil), http.MethodGet, "/readyz", "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.wantCheck == "" {
				if body["status"] != "ready" {
					t.Errorf("body = %v", body)
				}
				return
			}
			if body["failed_check"] != tt.wantCheck {
				t.Errorf("failed_check = %q, want %q", body["failed_check"], tt.wantCheck)
			}
			if tt.wantError != "" && body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	openEnv(t)
	hub := chat.NewHub()
	_, cancel := hub.Subscribe(1)
	defer cancel()

	rr := serve(newMux(t, connectedClient(), hub), http.MethodGet, "/status", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body struct {
		Chat struct {
			Connected bool   `json:"connected"`
			SessionID string `json:"session_id"`
			Channel   string `json:"channel"`
			Messages  uint64 `json:"messages"`
			Since     string `json:"since"`
		} `json:"chat"`
		Uptime      string `json:"uptime"`
		Subscribers int    `json:"event_subscribers"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Chat.Connected || body.Chat.SessionID != "abc" || body.Chat.Channel != "evazord" || body.Chat.Messages != 7 {
		t.Errorf("chat = %+v", body.Chat)
	}
	if body.Chat.Since == "" || body.Uptime == "" {
		t.Errorf("since/uptime missing: %s", rr.Body.String())
	}
	if body.Subscribers != 1 {
		t.Errorf("event_subscribers = %d, want 1", body.Subscribers)
	}
}

func TestStatusOmitsZeroTimes(t *testing.T) {
	openEnv(t)
	rr := serve(newMux(t, &fakeClient{}, nil), http.MethodGet, "/status", "")
	if strings.Contains(rr.Body.String(), "last_message_at") || strings.Contains(rr.Body.String(), `"since"`) {
		t.Errorf("zero times should be omitted: %s", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	openEnv(t)
	telemetry.Init()
	telemetry.IncConnectionsOpened()

	rr := serve(newMux(t, nil, nil), http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "trirk_connections_opened_total") {
		t.Error("metrics output missing trirk_connections_opened_total")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	openEnv(t)
	rr := serve(newMux(t, connectedClient(), nil), http.MethodGet, "/say", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /say = %d, want 405", rr.Code)
	}
}

func TestSay(t *testing.T) {
	openEnv(t)
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"sent", `{"text":"hello chat"}`, nil, http.StatusAccepted},
		{"bad json", `{"text":`, nil, http.StatusBadRequest},
		{"empty text", `{"text":"  "}`, nil, http.StatusBadRequest},
		{"line break", `{"text":"a"}`, ircerr.Framing("privmsg", "a\r\nb", ircerr.ErrInvalidText), http.StatusBadRequest},
		{"not connected", `{"text":"hi"}`, chat.ErrNotConnected, http.StatusServiceUnavailable},
		{"transport", `{"text":"hi"}`, ircerr.Transport("write", errors.New("broken pipe")), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := connectedClient()
			client.err = tt.err
			rr := serve(newMux(t, client, nil), http.MethodPost, "/say", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus == http.StatusAccepted && (len(client.said) != 1 || client.said[0] != "hello chat") {
				t.Errorf("said = %q", client.said)
			}
		})
	}
}

func TestStartAndShutdown(t *testing.T) {
	openEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Start(ctx, "127.0.0.1:0", connectedClient(), chat.NewHub()) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if err := Start(context.Background(), ln.Addr().String(), nil, nil); err == nil {
		t.Error("expected error for an address in use")
	}
}
