// Package auth supplies the chat login token. A static token is used as given; a refreshing
// source trades a long-lived refresh token for short-lived access tokens through x/oauth2.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

// expiryBuffer is how long before expiry a cached access token stops being handed out.
const expiryBuffer = 60 * time.Second

var (
	ErrNoToken        = errors.New("auth: no token configured")
	ErrNoRefreshToken = errors.New("auth: refresh token, client id and client secret are required")
)

// TokenSource returns the token sent with PASS. Implementations must be safe for concurrent use.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static is a token that never changes.
type Static string

func (s Static) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// RefreshConfig holds the credentials for a refresh_token grant.
type RefreshConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// TokenURL overrides the Twitch token endpoint.
	TokenURL   string
	HTTPClient *http.Client
	// OnRefresh is called after every successful refresh, e.g. to persist a rotated refresh token.
	OnRefresh func(*oauth2.Token)
}

// RefreshingSource caches a user access token and refreshes it when it is within a minute of
// expiry.
type RefreshingSource struct {
	cfg    oauth2.Config
	hc     *http.Client
	notify func(*oauth2.Token)

	mu        sync.RWMutex
	access    string
	refresh   string
	expiresAt time.Time
}

func NewRefreshingSource(rc RefreshConfig) (*RefreshingSource, error) {
	if rc.ClientID == "" || rc.ClientSecret == "" || rc.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	endpoint := twitch.Endpoint
	if rc.TokenURL != "" {
		endpoint.TokenURL = rc.TokenURL
	}
	return &RefreshingSource{
		cfg: oauth2.Config{
			ClientID:     rc.ClientID,
			ClientSecret: rc.ClientSecret,
			Endpoint:     endpoint,
		},
		hc:      rc.HTTPClient,
		notify:  rc.OnRefresh,
		refresh: rc.RefreshToken,
	}, nil
}

// Token returns a valid (fresh or cached) access token.
func (s *RefreshingSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.access != "" && time.Until(s.expiresAt) > expiryBuffer {
		tok := s.access
		s.mu.RUnlock()
		return tok, nil
	}
	s.mu.RUnlock()
	return s.Refresh(ctx, false)
}

// Refresh exchanges the refresh token for a new access token. Unless force is set, a token that
// another goroutine refreshed in the meantime is returned instead.
func (s *RefreshingSource) Refresh(ctx context.Context, force bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !force && s.access != "" && time.Until(s.expiresAt) > expiryBuffer {
		return s.access, nil
	}

	if s.hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.hc)
	}
	tok, err := s.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: s.refresh}).Token()
	if err != nil {
		return "", fmt.Errorf("twitch token refresh failed: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("empty access_token in twitch response")
	}
	s.access = tok.AccessToken
	if tok.RefreshToken != "" {
		s.refresh = tok.RefreshToken
	}
	s.expiresAt = tok.Expiry
	if s.expiresAt.IsZero() {
		// no expires_in: treat as valid for an hour and let validation catch revocation
		s.expiresAt = time.Now().Add(time.Hour)
	}
	if s.notify != nil {
		s.notify(tok)
	}
	slog.Info("twitch chat token refreshed", slog.String("component", "auth"), slog.String("tail", Mask(s.access)), slog.Time("expires_at", s.expiresAt))
	return s.access, nil
}

// ExpiresAt reports the expiry of the cached access token (zero before the first refresh).
func (s *RefreshingSource) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// StartRefresher refreshes the token in the background whenever its remaining lifetime drops
// to window or less, checking every interval with jitter. It stops when ctx is done.
func (s *RefreshingSource) StartRefresher(ctx context.Context, interval, window time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	go func() {
		for {
			// +/-20% jitter around interval
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2+1) - jitterRange)
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval + jitter):
			}
			if time.Until(s.ExpiresAt()) > window {
				continue
			}
			rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			_, err := s.Refresh(rctx, true)
			cancel()
			if err != nil {
				slog.Warn("token refresh failed", slog.String("component", "auth"), slog.Any("err", err))
			}
		}
	}()
}

// Mask hides all but the last four characters of a token.
func Mask(token string) string {
	if len(token) <= 4 {
		return "***"
	}
	return "***" + token[len(token)-4:]
}
