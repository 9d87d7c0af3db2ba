package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newMemTracker() *Tracker {
	return NewTracker(nil, zerolog.Nop())
}

func unixIn(d time.Duration) string {
	return strconv.FormatInt(time.Now().Add(d).Unix(), 10)
}

func TestTracker_DefaultStateIsHealthy(t *testing.T) {
	tracker := newMemTracker()

	state, err := tracker.State(context.Background())
	if err != nil {
		t.Fatalf("State() failed: %v", err)
	}

	if state.Remaining != DefaultRemaining {
		t.Errorf("Remaining = %d, want %d", state.Remaining, DefaultRemaining)
	}
	if state.NeedsBlock() || state.NeedsThrottle() {
		t.Error("Default state should be healthy")
	}
}

func TestTracker_UpdateFromHeaders(t *testing.T) {
	tracker := newMemTracker()
	ctx := context.Background()

	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "37")
	headers.Set("X-RateLimit-Reset", "1767225600")

	if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() failed: %v", err)
	}

	state, err := tracker.State(ctx)
	if err != nil {
		t.Fatalf("State() failed: %v", err)
	}
	if state.Remaining != 37 {
		t.Errorf("Remaining = %d, want 37", state.Remaining)
	}
	if state.ResetAt.Unix() != 1767225600 {
		t.Errorf("ResetAt = %v, want unix 1767225600", state.ResetAt)
	}
}

func TestTracker_ResetHeaderOptional(t *testing.T) {
	tracker := newMemTracker()
	ctx := context.Background()

	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "42")

	if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() failed: %v", err)
	}

	state, err := tracker.State(ctx)
	if err != nil {
		t.Fatalf("State() failed: %v", err)
	}
	if state.Remaining != 42 {
		t.Errorf("Remaining = %d, want 42", state.Remaining)
	}
}

func TestTracker_MissingHeadersIgnored(t *testing.T) {
	tracker := newMemTracker()
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, http.Header{}); err != nil {
		t.Fatalf("UpdateFromHeaders() with no headers should be a no-op, got: %v", err)
	}

	state, err := tracker.State(ctx)
	if err != nil {
		t.Fatalf("State() failed: %v", err)
	}
	if state.Remaining != DefaultRemaining {
		t.Errorf("Remaining = %d, want untouched default %d", state.Remaining, DefaultRemaining)
	}
}

func TestTracker_InvalidRemainingHeader(t *testing.T) {
	tracker := newMemTracker()

	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "not-a-number")

	if err := tracker.UpdateFromHeaders(context.Background(), headers); err == nil {
		t.Error("Expected error for non-numeric X-RateLimit-Remaining")
	}
}

func TestTracker_AllowBlocksWhenCritical(t *testing.T) {
	tracker := newMemTracker()
	ctx := context.Background()

	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "1")
	headers.Set("X-RateLimit-Reset", unixIn(time.Hour))

	if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() failed: %v", err)
	}

	allowed, err := tracker.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow() failed: %v", err)
	}
	if allowed {
		t.Error("Allow() = true, want false with 1 request remaining")
	}
}

func TestTracker_AllowAfterWindowReset(t *testing.T) {
	tracker := newMemTracker()
	ctx := context.Background()

	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "0")
	headers.Set("X-RateLimit-Reset", unixIn(-time.Minute))

	if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() failed: %v", err)
	}

	allowed, err := tracker.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow() failed: %v", err)
	}
	if !allowed {
		t.Error("Allow() = false, want true once the window has reset")
	}
}

func TestTracker_AllowHealthy(t *testing.T) {
	tracker := newMemTracker()

	allowed, err := tracker.Allow(context.Background())
	if err != nil {
		t.Fatalf("Allow() failed: %v", err)
	}
	if !allowed {
		t.Error("Allow() = false, want true for default healthy state")
	}
}
