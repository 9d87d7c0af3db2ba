// Package client provides the GitHub REST client used by ghnotify, with
// bearer authentication, rate limit gating, error classification, and
// optional retry.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"ghnotify/pkg/ratelimit"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghnotify_requests_total",
		Help: "Total GitHub API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghnotify_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghnotify_errors_total",
		Help: "Total GitHub API errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents rate limit rejections (429, or 403
	// with an exhausted X-RateLimit-Remaining budget).
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// DefaultTimeout is the fixed per-request timeout.
const DefaultTimeout = 3 * time.Second

// DefaultUserAgent identifies ghnotify to the GitHub API.
const DefaultUserAgent = "ghnotify/0.1.0"

// Client is the GitHub API client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	tracker    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Token is the bearer credential sent with every request. Required.
	Token string

	// UserAgent header (GitHub requires one).
	UserAgent string

	// Timeout is the per-request timeout (default 3s).
	Timeout time.Duration

	// RequestsPerSecond paces outgoing requests. 0 disables pacing.
	RequestsPerSecond float64

	// Redis optionally shares rate limit state across processes.
	// Nil keeps the state in-process.
	Redis *redis.Client

	// MaxRetries is the number of retries after the first attempt.
	// 0 (the default) disables retries; the notification fetch path relies
	// on that so a cycle fails fast and the poller degrades for one cycle.
	MaxRetries int

	// InitialBackoff is the first retry backoff when retries are enabled.
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration for the given token.
func DefaultConfig(token string) Config {
	return Config{
		Token:             token,
		UserAgent:         DefaultUserAgent,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: 2,
	}
}

// New creates a new GitHub client. A missing token is a construction-time
// error, not a per-request one.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	logger := log.With().Str("component", "client").Logger()

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		tracker:    ratelimit.NewTracker(cfg.Redis, logger),
		config:     cfg,
		logger:     logger,
	}, nil
}

// Do performs an HTTP request with rate limit gating, pacing, error
// classification, and (when configured) retry. Any non-2xx response is
// returned as an *APIError with the body closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	allowed, err := c.tracker.Allow(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, fmt.Errorf("request blocked: rate limit critical")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing GitHub request")

	var resp *http.Response

	attempt := func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return fmt.Errorf("http request: %w", reqErr)
		}

		if err := c.tracker.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			class := classifyStatus(resp.StatusCode, resp.Header)
			errorsTotal.WithLabelValues(string(class)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("GitHub request error")

			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				Class:      class,
				Message:    resp.Status,
			}
			resp.Body.Close()
			resp = nil
			return apiErr
		}

		return nil
	}

	if c.config.MaxRetries > 0 {
		retryCfg := DefaultRetryConfig()
		retryCfg.MaxAttempts = c.config.MaxRetries + 1
		if c.config.InitialBackoff > 0 {
			retryCfg.InitialBackoff = c.config.InitialBackoff
		}
		err = retryWithBackoff(ctx, retryCfg, attempt, classifyError)
	} else {
		err = attempt()
	}

	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Get performs a GET request against an absolute URL.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.Do(req)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Tracker returns the rate limit tracker (for testing).
func (c *Client) Tracker() *ratelimit.Tracker {
	return c.tracker
}

// classifyStatus categorizes a non-2xx status code. GitHub reports secondary
// rate limiting as 403 with an exhausted budget, and primary as 429.
func classifyStatus(status int, headers http.Header) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status == http.StatusForbidden && headers.Get("X-RateLimit-Remaining") == "0":
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// classifyError maps an attempt error to its class for retry decisions.
func classifyError(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ErrorClassNetwork
}
