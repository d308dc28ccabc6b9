package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the approval module.
type Metrics struct {
	// Decision outcomes by entity type and resulting status
	DecisionOutcome *prometheus.CounterVec

	// Version conflicts detected at commit time
	Conflicts *prometheus.CounterVec

	// Threshold fallbacks (policy missing or store unavailable)
	PolicyFallbacks prometheus.Counter

	// End-to-end submit latency including persistence
	SubmitLatency prometheus.Histogram
}

// New creates a Metrics instance with all approval module metrics registered.
func New() *Metrics {
	return &Metrics{
		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "payguard_approval_outcomes_total",
			Help: "Total decision outcomes by entity type and resulting status",
		}, []string{"entity_type", "status"}),

		Conflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "payguard_approval_conflicts_total",
			Help: "Total optimistic-concurrency conflicts by entity type",
		}, []string{"entity_type"}),

		PolicyFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payguard_policy_fallbacks_total",
			Help: "Total evaluations that used default thresholds",
		}),

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "payguard_approval_submit_duration_seconds",
			Help:    "Duration of decision submission including persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementOutcome records a decision outcome.
func (m *Metrics) IncrementOutcome(entityType, status string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(entityType, status).Inc()
	}
}

// IncrementConflict records a lost optimistic-concurrency race.
func (m *Metrics) IncrementConflict(entityType string) {
	if m != nil {
		m.Conflicts.WithLabelValues(entityType).Inc()
	}
}

// IncrementPolicyFallback records an evaluation against default thresholds.
func (m *Metrics) IncrementPolicyFallback() {
	if m != nil {
		m.PolicyFallbacks.Inc()
	}
}

// ObserveSubmitLatency records the duration of a full decision submission.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
