package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghnotify_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghnotify_rate_limit_blocks_total",
		Help: "Total requests blocked because the rate limit budget was critical",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghnotify_rate_limit_throttles_total",
		Help: "Total requests throttled because the rate limit budget was low",
	})
)

// Tracker records GitHub rate limit headers and gates outgoing requests.
//
// When constructed with a Redis client the state is shared across processes;
// with a nil Redis client the state is kept in-process.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu  sync.Mutex
	mem *State
}

// NewTracker creates a tracker. redisClient may be nil, in which case state
// is process-local.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// State returns the current rate limit state, assuming a healthy default
// when nothing has been observed yet.
func (t *Tracker) State(ctx context.Context) (*State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.mem == nil {
			return healthyState(), nil
		}
		s := *t.mem
		return &s, nil
	}

	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}
	if err == redis.Nil {
		t.logger.Debug().Msg("No rate limit state in Redis, assuming healthy")
		return healthyState(), nil
	}

	resetUnix, err := t.redis.Get(ctx, RedisKeyReset).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	state := &State{
		Remaining:  remaining,
		ResetAt:    time.Unix(resetUnix, 0),
		LastUpdate: time.Now(),
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &state.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	return state, nil
}

// UpdateFromHeaders records the X-RateLimit-Remaining and X-RateLimit-Reset
// headers of a response. Responses without rate limit headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		// Not every response carries rate limit headers.
		return nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}

	state := &State{
		Remaining:  remaining,
		LastUpdate: time.Now(),
	}

	if resetStr := headers.Get("X-RateLimit-Reset"); resetStr != "" {
		resetUnix, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
		}
		state.ResetAt = time.Unix(resetUnix, 0)
	}

	if err := t.store(ctx, state); err != nil {
		return err
	}

	rateLimitRemaining.Set(float64(remaining))

	event := t.logger.Debug()
	if state.NeedsBlock() {
		event = t.logger.Error()
	} else if state.NeedsThrottle() {
		event = t.logger.Warn()
	}
	event.
		Int("remaining", remaining).
		Time("reset_at", state.ResetAt).
		Msg("GitHub rate limit state updated")

	return nil
}

// Allow reports whether a request may be issued under the current budget.
// In the warning band it sleeps briefly to slow the request rate down.
func (t *Tracker) Allow(ctx context.Context) (bool, error) {
	state, err := t.State(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	// A window that has already reset restores the full budget.
	if !state.ResetAt.IsZero() && state.TimeUntilReset() == 0 {
		return true, nil
	}

	if state.NeedsBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("until_reset", state.TimeUntilReset()).
			Msg("GitHub rate limit critical, blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottle() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("GitHub rate limit low, throttling request")

		rateLimitThrottlesTotal.Inc()
		select {
		case <-time.After(1 * time.Second):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	return true, nil
}

func (t *Tracker) store(ctx context.Context, state *State) error {
	if t.redis == nil {
		t.mu.Lock()
		t.mem = state
		t.mu.Unlock()
		return nil
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, 0)
	pipe.Set(ctx, RedisKeyReset, state.ResetAt.Unix(), 0)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	return nil
}

func healthyState() *State {
	return &State{
		Remaining:  DefaultRemaining,
		ResetAt:    time.Now().Add(time.Hour),
		LastUpdate: time.Now(),
	}
}
