package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReservationMetrics tracks engine operations and stock flowing through reservations.
type ReservationMetrics struct {
	operations *prometheus.CounterVec
	stockUnits *prometheus.CounterVec
	retries    *prometheus.CounterVec
	sweep      *prometheus.CounterVec
}

// NewReservationMetrics registers the reservation collectors on reg. A nil
// registerer yields a no-op collector.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_operations_total",
		Help: "Reservation engine operations by outcome.",
	}, []string{"operation", "outcome"})
	stockUnits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_stock_units_total",
		Help: "Stock units moved between products and reservations.",
	}, []string{"direction"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_conflict_retries_total",
		Help: "Operations retried after a concurrency conflict.",
	}, []string{"operation"})
	sweep := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_sweep_total",
		Help: "Reservations visited by the expiration sweeper by result.",
	}, []string{"result"})
	reg.MustRegister(operations, stockUnits, retries, sweep)
	return &ReservationMetrics{
		operations: operations,
		stockUnits: stockUnits,
		retries:    retries,
		sweep:      sweep,
	}
}

// ObserveOperation counts one engine call under the given outcome label.
func (m *ReservationMetrics) ObserveOperation(operation, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func (m *ReservationMetrics) AddReserved(units int) {
	m.addUnits("reserved", units)
}

func (m *ReservationMetrics) AddReleased(units int) {
	m.addUnits("released", units)
}

func (m *ReservationMetrics) addUnits(direction string, units int) {
	if m == nil || m.stockUnits == nil || units <= 0 {
		return
	}
	m.stockUnits.WithLabelValues(direction).Add(float64(units))
}

func (m *ReservationMetrics) IncRetry(operation string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveSweep records the per-reservation results of one sweeper pass.
func (m *ReservationMetrics) ObserveSweep(expired, skipped, failed int) {
	if m == nil || m.sweep == nil {
		return
	}
	if expired > 0 {
		m.sweep.WithLabelValues("expired").Add(float64(expired))
	}
	if skipped > 0 {
		m.sweep.WithLabelValues("skipped").Add(float64(skipped))
	}
	if failed > 0 {
		m.sweep.WithLabelValues("failed").Add(float64(failed))
	}
}
