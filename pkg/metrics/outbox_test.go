package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutboxMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.ObserveBatch(3)
	m.ObserveDelivery("reservation_expired", OutboxPublished, 2*time.Second)
	m.ObserveDelivery("reservation_expired", OutboxRetry, 0)
	m.ObserveDelivery("reservation_completed", OutboxTerminal, time.Second)

	if got := testutil.ToFloat64(m.delivered.WithLabelValues("reservation_expired", OutboxPublished)); got != 1 {
		t.Fatalf("published = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.delivered.WithLabelValues("reservation_completed", OutboxTerminal)); got != 1 {
		t.Fatalf("terminal = %v, want 1", got)
	}

	s, err := series(gather(t, reg), "outbox_publish_lag_seconds", nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.GetHistogram().GetSampleCount() != 1 || s.GetHistogram().GetSampleSum() != 2 {
		t.Fatalf("lag should only record the published row, got %v", s.GetHistogram())
	}
}

func TestNilOutboxMetricsAreNoops(t *testing.T) {
	var m *OutboxMetrics
	m.ObserveBatch(1)
	m.ObserveDelivery("x", OutboxPublished, time.Second)
}
