package chat

import (
	"math/rand"
	"testing"
	"time"
)

func TestNextBackoffDelay(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{50, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := NextBackoffDelay(cfg, tt.attempt, nil); got != tt.want {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestNextBackoffDelayJitter(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2, Jitter: true}
	rng := rand.New(rand.NewSource(1))
	for attempt := 1; attempt <= 6; attempt++ {
		base := time.Second << (attempt - 1)
		got := NextBackoffDelay(cfg, attempt, rng)
		if got < base/2 || got > base*3/2 {
			t.Errorf("attempt %d: %v outside [%v, %v]", attempt, got, base/2, base*3/2)
		}
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 500*time.Millisecond {
		t.Errorf("nil rng jitter = %v, want 500ms", got)
	}
}

func TestNextBackoffDelayDegenerate(t *testing.T) {
	if got := NextBackoffDelay(BackoffConfig{}, 3, nil); got != 0 {
		t.Errorf("zero config = %v, want 0", got)
	}
	flat := BackoffConfig{InitialDelay: time.Second, Multiplier: 0.5}
	if got := NextBackoffDelay(flat, 4, nil); got != time.Second {
		t.Errorf("multiplier below 1 = %v, want 1s", got)
	}
}
