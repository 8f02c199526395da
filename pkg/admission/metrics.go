package admission

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the admission gate.
type Metrics struct {
	checks        *prometheus.CounterVec
	denials       *prometheus.CounterVec
	backendErrors prometheus.Counter
	checkDuration *prometheus.HistogramVec
}

// NewMetrics registers the gate's collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewise_admission_checks_total",
				Help: "Total admission checks by class, tier, and terminal status",
			},
			[]string{"class", "tier", "status"},
		),

		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewise_admission_denials_total",
				Help: "Policy rejections by class and rejecting window",
			},
			[]string{"class", "reason"},
		),

		backendErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gatewise_admission_backend_errors_total",
				Help: "Counter backend failures that forced fail-secure decisions",
			},
		),

		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatewise_admission_check_duration_seconds",
				Help:    "Latency of admission checks",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"class"},
		),
	}
}

// RecordCheck records one completed admission check.
func (m *Metrics) RecordCheck(class, tier string, status Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(class, tier, string(status)).Inc()
	m.checkDuration.WithLabelValues(class).Observe(elapsed.Seconds())
}

// RecordDenial records a policy rejection.
func (m *Metrics) RecordDenial(class, reason string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(class, reason).Inc()
}

// RecordBackendError records a counter backend failure.
func (m *Metrics) RecordBackendError() {
	if m == nil {
		return
	}
	m.backendErrors.Inc()
}
