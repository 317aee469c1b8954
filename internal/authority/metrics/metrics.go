package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LoginSuccesses  prometheus.Counter
	LoginFailures   prometheus.Counter
	AutoEscalations prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		LoginSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourchain_authority_login_successes_total",
			Help: "Total number of successful authority logins",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourchain_authority_login_failures_total",
			Help: "Total number of failed authority login attempts",
		}),
		AutoEscalations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourchain_authority_auto_escalations_total",
			Help: "Total number of addresses auto-added as authorities during login",
		}),
	}
}

func (m *Metrics) IncrementLoginSuccesses() {
	m.LoginSuccesses.Inc()
}

func (m *Metrics) IncrementLoginFailures() {
	m.LoginFailures.Inc()
}

func (m *Metrics) IncrementAutoEscalations() {
	m.AutoEscalations.Inc()
}
