// Package ratelimit tracks the GitHub REST API rate limit and gates requests
// before the remaining budget is exhausted. It monitors the
// X-RateLimit-Remaining and X-RateLimit-Reset response headers.
package ratelimit

import (
	"time"
)

// Redis keys for shared rate limit state. Sharing through Redis keeps
// multiple ghnotify processes using the same token inside one budget.
const (
	RedisKeyRemaining  = "ghnotify:rate_limit:remaining"
	RedisKeyReset      = "ghnotify:rate_limit:reset"
	RedisKeyLastUpdate = "ghnotify:rate_limit:last_update"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks all requests when the remaining budget falls
	// below this value, leaving headroom for other consumers of the token.
	ThresholdCritical = 3

	// ThresholdWarning applies throttling when the remaining budget falls
	// below this value.
	ThresholdWarning = 20
)

// DefaultRemaining is assumed when no state has been observed yet.
// Authenticated GitHub requests get 5000 per hour.
const DefaultRemaining = 5000

// State is the most recently observed rate limit state.
type State struct {
	// Remaining is the number of requests left in the current window,
	// from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets, from the X-RateLimit-Reset header
	// (Unix epoch seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was recorded.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale reports whether the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsBlock reports whether requests must be blocked outright.
func (s *State) NeedsBlock() bool {
	return s.Remaining < ThresholdCritical
}

// NeedsThrottle reports whether requests should be slowed down.
func (s *State) NeedsThrottle() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsBlock()
}

// TimeUntilReset returns the duration until the window resets, or 0 if the
// reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}
