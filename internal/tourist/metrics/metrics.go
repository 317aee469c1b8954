package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registrations     prometheus.Counter
	Approvals         prometheus.Counter
	Rejections        prometheus.Counter
	VerificationScans prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourchain_tourist_registrations_total",
			Help: "Total number of tourists registered on the ledger",
		}),
		Approvals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourchain_tourist_approvals_total",
			Help: "Total number of approved verification decisions",
		}),
		Rejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourchain_tourist_rejections_total",
			Help: "Total number of rejected verification decisions",
		}),
		VerificationScans: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourchain_tourist_verification_scans_total",
			Help: "Total number of public credential verification lookups",
		}),
	}
}

func (m *Metrics) IncrementRegistrations() {
	m.Registrations.Inc()
}

func (m *Metrics) IncrementApprovals() {
	m.Approvals.Inc()
}

func (m *Metrics) IncrementRejections() {
	m.Rejections.Inc()
}

func (m *Metrics) IncrementVerificationScans() {
	m.VerificationScans.Inc()
}
