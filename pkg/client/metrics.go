package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes used as the "outcome" label
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeNoCredential = "no_credential"
)

// Metrics records refresh coordination activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	waitersTotal    prometheus.Counter
	replaysTotal    prometheus.Counter
}

// NewMetrics registers the client collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		refreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "client",
			Name:      "refresh_total",
			Help:      "Credential refresh episodes by outcome.",
		}, []string{"outcome"}),
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "client",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of refresh calls to the backend.",
			Buckets:   prometheus.DefBuckets,
		}),
		waitersTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "client",
			Name:      "refresh_waiters_total",
			Help:      "Requests that waited on an in-flight refresh instead of starting one.",
		}),
		replaysTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "client",
			Name:      "replays_total",
			Help:      "Requests replayed with a refreshed access credential.",
		}),
	}
}

func (m *Metrics) observeRefresh(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(outcome).Inc()
	if !started.IsZero() {
		m.refreshDuration.Observe(time.Since(started).Seconds())
	}
}

func (m *Metrics) incWaiters() {
	if m == nil {
		return
	}
	m.waitersTotal.Inc()
}

func (m *Metrics) incReplays() {
	if m == nil {
		return
	}
	m.replaysTotal.Inc()
}
