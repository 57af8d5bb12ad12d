package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	Attempts          *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	SchemeCallSeconds *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		Attempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "depositgate_registration_attempts_total",
			Help: "Registration attempts by scheme, mode, and outcome",
		}, []string{"scheme", "mode", "outcome"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "depositgate_registration_transitions_total",
			Help: "Registration status transitions by trigger",
		}, []string{"trigger", "to_status"}),
		SchemeCallSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "depositgate_scheme_call_duration_seconds",
			Help:    "Duration of outbound scheme provider calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"scheme", "operation"}),
	}
}

func (m *Metrics) IncrementAttempt(scheme, mode, outcome string) {
	if m != nil {
		m.Attempts.WithLabelValues(scheme, mode, outcome).Inc()
	}
}

func (m *Metrics) IncrementTransition(trigger, toStatus string) {
	if m != nil {
		m.Transitions.WithLabelValues(trigger, toStatus).Inc()
	}
}

func (m *Metrics) ObserveSchemeCall(scheme, operation string, elapsed time.Duration) {
	if m != nil {
		m.SchemeCallSeconds.WithLabelValues(scheme, operation).Observe(elapsed.Seconds())
	}
}
