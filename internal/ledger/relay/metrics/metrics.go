package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TransactionsSubmitted prometheus.Counter
	TransactionsFailed    prometheus.Counter
	GasUsed               prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		TransactionsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourchain_relay_transactions_submitted_total",
			Help: "Total number of ledger transactions confirmed through the relay",
		}),
		TransactionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourchain_relay_transactions_failed_total",
			Help: "Total number of relay attempts that failed at estimation or submission",
		}),
		GasUsed: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tourchain_relay_gas_used",
			Help:    "Gas used per confirmed relay transaction",
			Buckets: prometheus.ExponentialBuckets(21_000, 2, 8),
		}),
	}
}

func (m *Metrics) IncrementSubmitted() {
	m.TransactionsSubmitted.Inc()
}

func (m *Metrics) IncrementFailed() {
	m.TransactionsFailed.Inc()
}

func (m *Metrics) ObserveGasUsed(gas uint64) {
	m.GasUsed.Observe(float64(gas))
}
