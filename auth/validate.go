package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"
)

// DefaultValidateURL is the Twitch token introspection endpoint.
const DefaultValidateURL = "https://id.twitch.tv/oauth2/validate"

// ChatScopes are the scopes a token needs to read and send chat.
var ChatScopes = []string{"chat:read", "chat:edit"}

var ErrInvalidToken = errors.New("auth: token rejected")

// Validation describes a token as the identity service sees it.
type Validation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int64    `json:"expires_in"`
}

// Expiry converts ExpiresIn to an absolute time relative to now.
func (v *Validation) Expiry() time.Time {
	return time.Now().Add(time.Duration(v.ExpiresIn) * time.Second)
}

// MissingScopes returns the entries of required that v does not grant.
func (v *Validation) MissingScopes(required ...string) []string {
	var missing []string
	for _, s := range required {
		if !slices.Contains(v.Scopes, s) {
			missing = append(missing, s)
		}
	}
	return missing
}

type validateFailure struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Validator checks tokens against the identity service.
type Validator struct {
	// URL defaults to DefaultValidateURL.
	URL        string
	HTTPClient *http.Client
}

// Validate introspects token. An "oauth:" prefix is accepted. A rejected token yields an error
// wrapping ErrInvalidToken.
func (v Validator) Validate(ctx context.Context, token string) (*Validation, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "oauth:")
	if token == "" {
		return nil, ErrNoToken
	}
	endpoint := v.URL
	if endpoint == "" {
		endpoint = DefaultValidateURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+token)

	hc := v.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		var f validateFailure
		_ = json.NewDecoder(resp.Body).Decode(&f)
		if f.Message == "" {
			f.Message = resp.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, f.Message)
	}
	var out Validation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode validate response: %w", err)
	}
	return &out, nil
}

// Validate checks token against the default endpoint.
func Validate(ctx context.Context, token string) (*Validation, error) {
	return Validator{}.Validate(ctx, token)
}
