package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/trirk/testutil"
)

func TestStatic(t *testing.T) {
	tok, err := Static("oauth:abc").Token(context.Background())
	if err != nil || tok != "oauth:abc" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
	if _, err := Static("  ").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("blank token error = %v, want ErrNoToken", err)
	}
}

func TestNewRefreshingSourceRequiresCredentials(t *testing.T) {
	_, err := NewRefreshingSource(RefreshConfig{ClientID: "id", ClientSecret: "secret"})
	if !errors.Is(err, ErrNoRefreshToken) {
		t.Errorf("error = %v, want ErrNoRefreshToken", err)
	}
}

func TestRefreshingSourceCachesToken(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenResponse("access-1234", "", 3600)

	var rotated []*oauth2.Token
	src, err := NewRefreshingSource(RefreshConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RefreshToken: "refresh-abc",
		TokenURL:     mock.URL + "/oauth2/token",
		HTTPClient:   mock.Client(),
		OnRefresh:    func(tok *oauth2.Token) { rotated = append(rotated, tok) },
	})
	if err != nil {
		t.Fatalf("NewRefreshingSource() error = %v", err)
	}

	ctx := context.Background()
	first, err := src.Token(ctx)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if first != "access-1234" {
		t.Errorf("Token() = %q, want access-1234", first)
	}
	second, err := src.Token(ctx)
	if err != nil || second != first {
		t.Errorf("cached Token() = %q, %v", second, err)
	}
	if got := mock.TokenRequests.Load(); got != 1 {
		t.Errorf("token endpoint called %d times, want 1", got)
	}
	if len(rotated) != 1 || rotated[0].RefreshToken != "refresh-abc" {
		t.Errorf("OnRefresh calls = %v", rotated)
	}
	if until := time.Until(src.ExpiresAt()); until < 50*time.Minute {
		t.Errorf("ExpiresAt in %v, want about an hour", until)
	}
}

func TestRefreshingSourceRefreshesNearExpiry(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	// 30s lifetime is inside the 60s buffer, so every Token call refreshes.
	mock.MockOAuthTokenResponse("short-lived", "rotated", 30)

	src, err := NewRefreshingSource(RefreshConfig{
		ClientID:     "c",
		ClientSecret: "s",
		RefreshToken: "r",
		TokenURL:     mock.URL + "/oauth2/token",
		HTTPClient:   mock.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if _, err := src.Token(context.Background()); err != nil {
			t.Fatalf("Token() error = %v", err)
		}
	}
	if got := mock.TokenRequests.Load(); got != 3 {
		t.Errorf("token endpoint called %d times, want 3", got)
	}
}

func TestRefreshingSourceConcurrentCallers(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenResponse("shared", "", 3600)

	src, err := NewRefreshingSource(RefreshConfig{
		ClientID: "c", ClientSecret: "s", RefreshToken: "r",
		TokenURL: mock.URL + "/oauth2/token", HTTPClient: mock.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tok, err := src.Token(context.Background()); err != nil || tok != "shared" {
				t.Errorf("Token() = %q, %v", tok, err)
			}
		}()
	}
	wg.Wait()
	if got := mock.TokenRequests.Load(); got != 1 {
		t.Errorf("token endpoint called %d times, want 1", got)
	}
}

func TestRefreshingSourceFailure(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenFailure(400, "Invalid refresh token")

	src, err := NewRefreshingSource(RefreshConfig{
		ClientID: "c", ClientSecret: "s", RefreshToken: "bad",
		TokenURL: mock.URL + "/oauth2/token", HTTPClient: mock.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Token(context.Background()); err == nil {
		t.Error("Token() error = nil, want refresh failure")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"oauth:abcdef123456", "***3456"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
