package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential module.
type Metrics struct {
	CredentialsCreated prometheus.Counter
	Verifications      *prometheus.CounterVec
	VerifyCacheHits    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		CredentialsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "depositgate_credentials_created_total",
			Help: "Total scheme credentials created",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "depositgate_credential_verifications_total",
			Help: "Credential verification attempts by scheme and outcome",
		}, []string{"scheme", "outcome"}),
		VerifyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "depositgate_credential_verify_cache_hits_total",
			Help: "Verification results served from the cache",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.CredentialsCreated.Inc()
	}
}

func (m *Metrics) IncrementVerification(scheme, outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(scheme, outcome).Inc()
	}
}

func (m *Metrics) IncrementCacheHit() {
	if m != nil {
		m.VerifyCacheHits.Inc()
	}
}
