package obs

import (
	"github.com/prometheus/client_golang/prometheus"

	"qazna.org/txengine/internal/ledger"
)

// Outcome labels for txengine_records_total.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
)

// Metrics are the run counters. Each instance owns its registry so several
// runs (and tests) never collide on the default registerer.
type Metrics struct {
	reg *prometheus.Registry

	records        *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	malformed      prometheus.Counter
	accounts       prometheus.Gauge
	lockedAccounts prometheus.Gauge
	buildInfo      *prometheus.GaugeVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics(version string) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_records_total",
				Help: "Records processed, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_rejections_total",
				Help: "Rejected records, by rejection code.",
			},
			[]string{"code"},
		),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "txengine_malformed_rows_total",
			Help: "Input rows skipped because they could not be parsed.",
		}),
		accounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "txengine_accounts",
			Help: "Accounts known to the engine.",
		}),
		lockedAccounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "txengine_locked_accounts",
			Help: "Accounts locked by a chargeback.",
		}),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "txengine_build_info",
				Help: "txengine build information.",
			},
			[]string{"version"},
		),
	}
	m.reg.MustRegister(m.records, m.rejections, m.malformed, m.accounts, m.lockedAccounts, m.buildInfo)
	m.buildInfo.WithLabelValues(version).Set(1)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Applied counts a record the engine accepted.
func (m *Metrics) Applied(kind ledger.Kind) {
	m.records.WithLabelValues(kindLabel(kind), OutcomeApplied).Inc()
}

// Rejected counts a record the engine rejected with code.
func (m *Metrics) Rejected(kind ledger.Kind, code ledger.Code) {
	m.records.WithLabelValues(kindLabel(kind), OutcomeRejected).Inc()
	m.rejections.WithLabelValues(string(code)).Inc()
}

// Malformed counts a row that never reached the engine.
func (m *Metrics) Malformed() { m.malformed.Inc() }

// SetAccounts records the account totals at the end of a run.
func (m *Metrics) SetAccounts(total, locked int) {
	m.accounts.Set(float64(total))
	m.lockedAccounts.Set(float64(locked))
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

// kindLabel keeps label cardinality bounded for arbitrary input kinds.
func kindLabel(k ledger.Kind) string {
	if k.Known() {
		return string(k)
	}
	return "unknown"
}
