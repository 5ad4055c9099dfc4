package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox delivery outcomes.
const (
	OutboxPublished = "published"
	OutboxRetry     = "retry"
	OutboxTerminal  = "terminal"
)

// OutboxMetrics tracks the publisher draining reservation events.
type OutboxMetrics struct {
	delivered *prometheus.CounterVec
	batch     prometheus.Histogram
	lag       prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox rows handled by the publisher by event type and outcome.",
	}, []string{"event_type", "outcome"})
	batch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_size",
		Help:    "Rows claimed per publisher batch.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_publish_lag_seconds",
		Help:    "Time from commit to successful publish.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
	reg.MustRegister(delivered, batch, lag)
	return &OutboxMetrics{delivered: delivered, batch: batch, lag: lag}
}

func (m *OutboxMetrics) ObserveBatch(rows int) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(float64(rows))
}

// ObserveDelivery counts one row outcome. lag is only recorded for published rows.
func (m *OutboxMetrics) ObserveDelivery(eventType, outcome string, lag time.Duration) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
	if outcome == OutboxPublished && lag > 0 {
		m.lag.Observe(lag.Seconds())
	}
}
