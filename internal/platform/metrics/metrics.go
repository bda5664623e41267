package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics is
// safe to call so tests and partial wirings don't need a registry.
type Metrics struct {
	EnrollmentsTotal    *prometheus.CounterVec
	DeliveriesTotal     *prometheus.CounterVec
	DeliveryAttempts    prometheus.Counter
	SessionRestarts     prometheus.Counter
	SessionState        prometheus.Gauge
	AllocationRetries   prometheus.Counter
	RequestDuration     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EnrollmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "himpana_enrollments_total",
			Help: "Total enrollment requests by terminal status",
		}, []string{"status"}),
		DeliveriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "himpana_card_deliveries_total",
			Help: "Total card delivery outcomes",
		}, []string{"outcome"}),
		DeliveryAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "himpana_delivery_attempts_total",
			Help: "Total individual send attempts against the messaging gateway",
		}),
		SessionRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "himpana_session_restarts_total",
			Help: "Total delivery session restarts",
		}),
		SessionState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "himpana_delivery_session_state",
			Help: "Delivery session state (0 disconnected, 1 initializing, 2 ready, 3 degraded)",
		}),
		AllocationRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "himpana_allocation_retries_total",
			Help: "Total card number allocations retried after a duplicate collision",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "himpana_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) IncEnrollment(status string) {
	if m == nil {
		return
	}
	m.EnrollmentsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncDelivery(outcome string) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDeliveryAttempt() {
	if m == nil {
		return
	}
	m.DeliveryAttempts.Inc()
}

func (m *Metrics) IncSessionRestart() {
	if m == nil {
		return
	}
	m.SessionRestarts.Inc()
}

func (m *Metrics) SetSessionState(state int) {
	if m == nil {
		return
	}
	m.SessionState.Set(float64(state))
}

func (m *Metrics) IncAllocationRetry() {
	if m == nil {
		return
	}
	m.AllocationRetries.Inc()
}

func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(elapsed.Seconds())
}
