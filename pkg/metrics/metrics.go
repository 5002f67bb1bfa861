// Package metrics exposes Prometheus instrumentation for governance
// decisions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GovernanceDecisions *prometheus.CounterVec
	GovernanceFailures  *prometheus.CounterVec
	DecisionDuration    prometheus.Histogram
	EscalationTickets   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		GovernanceDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mercado_governance_decisions_total",
			Help: "Committed governance decisions by action",
		}, []string{"action"}),
		GovernanceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mercado_governance_failures_total",
			Help: "Rejected governance operations by failure kind",
		}, []string{"reason"}),
		DecisionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mercado_governance_decision_duration_seconds",
			Help:    "Wall time of governance operations",
			Buckets: prometheus.DefBuckets,
		}),
		EscalationTickets: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercado_escalation_tickets_total",
			Help: "Tickets auto-opened by document re-requests",
		}),
	}
}

func (m *Metrics) ObserveDecision(action string, start time.Time) {
	m.GovernanceDecisions.WithLabelValues(action).Inc()
	m.DecisionDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveFailure(reason string) {
	m.GovernanceFailures.WithLabelValues(reason).Inc()
}

// NewNop returns metrics bound to a throwaway registry so tests do not
// pollute the default one.
func NewNop() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		GovernanceDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mercado_governance_decisions_total",
			Help: "Committed governance decisions by action",
		}, []string{"action"}),
		GovernanceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mercado_governance_failures_total",
			Help: "Rejected governance operations by failure kind",
		}, []string{"reason"}),
		DecisionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mercado_governance_decision_duration_seconds",
			Help:    "Wall time of governance operations",
			Buckets: prometheus.DefBuckets,
		}),
		EscalationTickets: factory.NewCounter(prometheus.CounterOpts{
			Name: "mercado_escalation_tickets_total",
			Help: "Tickets auto-opened by document re-requests",
		}),
	}
}
