package session

import "github.com/prometheus/client_golang/prometheus"

// Validation outcomes reported by Metrics.
const (
	outcomeValid   = "valid"
	outcomeRenewed = "renewed"
	outcomeAbsent  = "absent"
	outcomeExpired = "expired"
	outcomeError   = "error"
)

// Metrics holds session lifecycle collectors. A nil *Metrics is a no-op.
type Metrics struct {
	issued      prometheus.Counter
	revoked     prometheus.Counter
	validations *prometheus.CounterVec
}

// NewMetrics registers session collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beer",
			Subsystem: "session",
			Name:      "issued_total",
			Help:      "Sessions issued.",
		}),
		revoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beer",
			Subsystem: "session",
			Name:      "revoked_total",
			Help:      "Session revocations (including idempotent repeats).",
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beer",
			Subsystem: "session",
			Name:      "validations_total",
			Help:      "Session validations by outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.issued, m.revoked, m.validations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) incIssued() {
	if m != nil {
		m.issued.Inc()
	}
}

func (m *Metrics) incRevoked() {
	if m != nil {
		m.revoked.Inc()
	}
}

func (m *Metrics) observeValidation(outcome string) {
	if m != nil {
		m.validations.WithLabelValues(outcome).Inc()
	}
}
