package http

import (
	"testing"
	"time"
)

func TestRateLimiterConsumesBurst(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(2, 1, 0)

	if !rl.Allow("client") {
		t.Fatalf("expected first request to be allowed")
	}
	if !rl.Allow("client") {
		t.Fatalf("expected second request to be allowed")
	}
	if rl.Allow("client") {
		t.Fatalf("expected third request to be denied")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	t.Parallel()

	current := time.Now()
	rl := NewRateLimiter(1, 1, 0)
	rl.now = func() time.Time { return current }

	if !rl.Allow("client") {
		t.Fatalf("expected first request to be allowed")
	}
	if rl.Allow("client") {
		t.Fatalf("expected second request to be denied")
	}

	current = current.Add(2 * time.Second)
	if !rl.Allow("client") {
		t.Fatalf("expected request to be allowed after refill")
	}
}

func TestRateLimiterTracksClientsSeparately(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 1, 0)

	if !rl.Allow("a") {
		t.Fatalf("expected first client to be allowed")
	}
	if !rl.Allow("b") {
		t.Fatalf("expected second client to be allowed")
	}
	if rl.Allow("a") {
		t.Fatalf("expected first client to be throttled")
	}
}
