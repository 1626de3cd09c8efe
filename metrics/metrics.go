// Package metrics provides Prometheus metrics for session and notification
// operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the SDK.
// The zero value and New(false) are no-ops; every method is nil-safe.
type Metrics struct {
	enabled bool

	// Session metrics
	loginAttempts prometheus.Counter
	loginFailures *prometheus.CounterVec
	loginDuration prometheus.Histogram

	// Transport metrics
	refreshesTotal  prometheus.Counter
	refreshFailures prometheus.Counter
	replaysTotal    prometheus.Counter

	// Notification metrics
	pollCycles  prometheus.Counter
	pollErrors  prometheus.Counter
	unreadItems prometheus.Gauge
}

// Option configures Metrics.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
}

// WithRegisterer sets the registry metrics are registered with.
// Default: prometheus.DefaultRegisterer. Tests pass a fresh
// prometheus.NewRegistry to avoid collisions.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool, opts ...Option) *Metrics {
	m := &Metrics{enabled: enabled}
	if !enabled {
		return m
	}

	o := &options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(o)
	}
	factory := promauto.With(o.registerer)

	m.loginAttempts = factory.NewCounter(prometheus.CounterOpts{
		Name: "campushub_login_attempts_total",
		Help: "Total login attempts",
	})
	m.loginFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "campushub_login_failures_total",
		Help: "Total login failures",
	}, []string{"reason"})
	m.loginDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "campushub_login_duration_seconds",
		Help:    "Login round-trip duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.refreshesTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "campushub_token_refreshes_total",
		Help: "Total successful access-token refreshes",
	})
	m.refreshFailures = factory.NewCounter(prometheus.CounterOpts{
		Name: "campushub_token_refresh_failures_total",
		Help: "Total failed access-token refreshes (forced logouts)",
	})
	m.replaysTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "campushub_request_replays_total",
		Help: "Total requests replayed after a 401-triggered refresh",
	})

	m.pollCycles = factory.NewCounter(prometheus.CounterOpts{
		Name: "campushub_notification_poll_cycles_total",
		Help: "Total notification poll cycles",
	})
	m.pollErrors = factory.NewCounter(prometheus.CounterOpts{
		Name: "campushub_notification_poll_errors_total",
		Help: "Total failed notification polls",
	})
	m.unreadItems = factory.NewGauge(prometheus.GaugeOpts{
		Name: "campushub_notifications_unread",
		Help: "Current number of unread notifications",
	})

	return m
}

// RecordLoginAttempt records one login attempt.
func (m *Metrics) RecordLoginAttempt() {
	if m == nil || !m.enabled {
		return
	}
	m.loginAttempts.Inc()
}

// RecordLoginFailure records a failed login with its reason.
func (m *Metrics) RecordLoginFailure(reason string) {
	if m == nil || !m.enabled {
		return
	}
	m.loginFailures.WithLabelValues(reason).Inc()
}

// ObserveLoginDuration records how long a successful login took.
func (m *Metrics) ObserveLoginDuration(seconds float64) {
	if m == nil || !m.enabled {
		return
	}
	m.loginDuration.Observe(seconds)
}

// RecordRefresh records a successful token refresh.
func (m *Metrics) RecordRefresh() {
	if m == nil || !m.enabled {
		return
	}
	m.refreshesTotal.Inc()
}

// RecordRefreshFailure records a failed token refresh.
func (m *Metrics) RecordRefreshFailure() {
	if m == nil || !m.enabled {
		return
	}
	m.refreshFailures.Inc()
}

// RecordReplay records a request replayed after refresh.
func (m *Metrics) RecordReplay() {
	if m == nil || !m.enabled {
		return
	}
	m.replaysTotal.Inc()
}

// RecordPollCycle records one completed notification poll.
func (m *Metrics) RecordPollCycle() {
	if m == nil || !m.enabled {
		return
	}
	m.pollCycles.Inc()
}

// RecordPollError records one failed notification poll.
func (m *Metrics) RecordPollError() {
	if m == nil || !m.enabled {
		return
	}
	m.pollErrors.Inc()
}

// SetUnread sets the unread notification gauge.
func (m *Metrics) SetUnread(n int) {
	if m == nil || !m.enabled {
		return
	}
	m.unreadItems.Set(float64(n))
}
