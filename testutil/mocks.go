// Package testutil holds in-process fakes of the Twitch endpoints the client talks to.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// MockTwitchServer creates a test server that mocks the Twitch identity endpoints.
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	// TokenRequests counts calls to /oauth2/token.
	TokenRequests atomic.Int32
}

// NewMockTwitchServer creates a new mock Twitch identity server.
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if key == "/oauth2/token" {
			m.TokenRequests.Add(1)
		}
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockOAuthTokenResponse adds a handler for the token endpoint that answers a refresh_token
// grant. An empty refreshToken echoes the one in the request.
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken, refreshToken string, expiresIn int) {
	m.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rt := refreshToken
		if rt == "" {
			rt = r.PostForm.Get("refresh_token")
		}
		response := map[string]interface{}{
			"access_token":  accessToken,
			"refresh_token": rt,
			"expires_in":    expiresIn,
			"token_type":    "bearer",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockOAuthTokenFailure makes the token endpoint reject every request.
func (m *MockTwitchServer) MockOAuthTokenFailure(status int, message string) {
	m.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": status, "message": message}) //nolint:errcheck // test mock response
	}
}

// MockValidateResponse adds a handler for /oauth2/validate that accepts only validToken.
func (m *MockTwitchServer) MockValidateResponse(validToken, login, userID string, scopes []string, expiresIn int) {
	m.Handlers["/oauth2/validate"] = func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "OAuth ")
		w.Header().Set("Content-Type", "application/json")
		if got != validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": 401, "message": "invalid access token"}) //nolint:errcheck // test mock response
			return
		}
		response := map[string]interface{}{
			"client_id":  "test-client",
			"login":      login,
			"user_id":    userID,
			"scopes":     scopes,
			"expires_in": expiresIn,
		}
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}
