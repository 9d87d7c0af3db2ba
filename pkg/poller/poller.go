// Package poller drives the periodic notification update cycle and holds the
// current display state. One Poller instance lives for the whole process;
// each Update call fetches all notification pages, aggregates them, and
// refreshes the rendered text.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ghnotify/pkg/client"
	"ghnotify/pkg/format"
	"ghnotify/pkg/notifications"
)

// Prometheus metrics for poll cycles.
var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghnotify_cycles_total",
		Help: "Total update cycles by result",
	}, []string{"result"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghnotify_cycle_duration_seconds",
		Help:    "Update cycle duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	notificationsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ghnotify_notifications",
		Help: "Notification count from the last successful cycle, by reason",
	}, []string{"reason"})
)

// ErrorText is shown before the first successful cycle and after a failed one.
const ErrorText = "x"

// DefaultAPIServer is the public GitHub REST endpoint.
const DefaultAPIServer = "https://api.github.com"

// DefaultFormat shows only the total count.
const DefaultFormat = "{total}"

// DefaultInterval is the delay between update cycles. It is also the re-poll
// delay after a failed cycle; failures do not change the schedule.
const DefaultInterval = 30 * time.Second

// Config holds the poller configuration.
type Config struct {
	// APIServer is the GitHub API base URL (default DefaultAPIServer).
	APIServer string

	// Token authenticates against the notifications endpoint. Required
	// unless Client is set.
	Token string

	// Format is the display template (default DefaultFormat).
	Format string

	// Interval between update cycles (default DefaultInterval).
	Interval time.Duration

	// HideIfTotalIsZero suppresses the display while there are no
	// notifications.
	HideIfTotalIsZero bool

	// MaxPages caps the pagination walk per cycle. 0 means unbounded.
	MaxPages int

	// Redis optionally shares rate limit state across processes.
	Redis *redis.Client

	// Client overrides the API client built from Token and Redis.
	Client *client.Client
}

// Poller fetches notifications on a fixed schedule and exposes the rendered
// display text. Update and Text may be called from different goroutines.
type Poller struct {
	getter    notifications.Getter
	template  *format.Template
	logger    zerolog.Logger
	apiServer string
	interval  time.Duration
	hideZero  bool
	maxPages  int

	mu    sync.Mutex
	text  string
	total int
}

// New creates a poller. A missing token and a malformed format template are
// both construction-time errors.
func New(cfg Config) (*Poller, error) {
	if cfg.APIServer == "" {
		cfg.APIServer = DefaultAPIServer
	}
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	template, err := format.Parse(cfg.Format)
	if err != nil {
		return nil, err
	}

	apiClient := cfg.Client
	if apiClient == nil {
		clientCfg := client.DefaultConfig(cfg.Token)
		clientCfg.Redis = cfg.Redis
		apiClient, err = client.New(clientCfg)
		if err != nil {
			return nil, err
		}
	}

	return &Poller{
		getter:    apiClient,
		template:  template,
		logger:    log.With().Str("component", "poller").Logger(),
		apiServer: cfg.APIServer,
		interval:  cfg.Interval,
		hideZero:  cfg.HideIfTotalIsZero,
		maxPages:  cfg.MaxPages,
		text:      ErrorText,
	}, nil
}

// Update runs one cycle and returns the delay until the next one. The delay
// is the configured interval regardless of outcome; a failed cycle degrades
// the display to ErrorText instead of changing the schedule.
func (p *Poller) Update(ctx context.Context) time.Duration {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	fetcher := notifications.NewFetcher(p.getter, p.apiServer)
	fetcher.MaxPages = p.maxPages

	tally, err := notifications.Aggregate(ctx, fetcher)
	if err != nil {
		cyclesTotal.WithLabelValues("error").Inc()
		p.logger.Error().
			Err(err).
			Int("pages", fetcher.Pages()).
			Msg("Update cycle failed")

		p.mu.Lock()
		p.text = ErrorText
		p.mu.Unlock()
		return p.interval
	}

	values := notifications.Project(tally)
	for reason, count := range values {
		notificationsGauge.WithLabelValues(reason).Set(float64(count))
	}

	text, renderErr := p.template.Render(values)

	p.mu.Lock()
	p.total = tally[notifications.TotalKey]
	if renderErr == nil {
		p.text = text
	}
	p.mu.Unlock()

	if renderErr != nil {
		// The tally itself is good, so the count state is refreshed and the
		// previous text stays on screen while the operator fixes the template.
		cyclesTotal.WithLabelValues("render_error").Inc()
		p.logger.Error().Err(renderErr).Msg("Template render failed")
		return p.interval
	}

	cyclesTotal.WithLabelValues("success").Inc()
	p.logger.Debug().
		Int("total", tally[notifications.TotalKey]).
		Int("pages", fetcher.Pages()).
		Msg("Update cycle completed")

	return p.interval
}

// Text returns the current display text and whether it should be shown.
// Visibility depends on the total from the last successful cycle, so during
// a degraded stretch the display stays hidden or shown exactly as it was.
func (p *Poller) Text() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hideZero && p.total == 0 {
		return p.text, false
	}
	return p.text, true
}

// Total returns the notification count from the last successful cycle.
func (p *Poller) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}
