// Package metrics provides the centralized Prometheus metrics registry for
// ghnotify. All metrics are defined in their respective packages (client,
// ratelimit, poller) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by ghnotify.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Poller Metrics (pkg/poller):
//   - ghnotify_cycles_total{result} (Counter): Update cycles by result (success, error, render_error)
//   - ghnotify_cycle_duration_seconds (Histogram): Update cycle duration
//   - ghnotify_notifications{reason} (Gauge): Notification count from the last successful cycle
//
// Request Metrics (pkg/client):
//   - ghnotify_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - ghnotify_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - ghnotify_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - ghnotify_retries_total{error_class} (Counter): Retry attempts by error class
//   - ghnotify_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - ghnotify_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - ghnotify_rate_limit_remaining (Gauge): Remaining requests in the GitHub rate limit window
//   - ghnotify_rate_limit_blocks_total (Counter): Requests blocked due to a critical budget
//   - ghnotify_rate_limit_throttles_total (Counter): Requests throttled due to a low budget
//
// Example Prometheus Queries:
//
//   # Cycle Failure Rate
//   sum(rate(ghnotify_cycles_total{result!="success"}[5m])) /
//   sum(rate(ghnotify_cycles_total[5m]))
//
//   # Current Notification Total
//   ghnotify_notifications{reason="total"}
//
//   # Rate Limit Budget Running Low
//   ghnotify_rate_limit_remaining < 20
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(ghnotify_request_duration_seconds_bucket[5m]))
