// Package metrics exposes Prometheus metrics for the dialer engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the process registry served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// =============================================================================
// Queue / sessions
// =============================================================================

var QueueBuildsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "dialer",
	Name:      "queue_builds_total",
	Help:      "Number of call queues built",
})

var QueueSize = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "dialer",
	Name:      "queue_size",
	Help:      "Contacts in a freshly built queue",
	Buckets:   []float64{0, 10, 25, 50, 100, 250, 500, 1000, 2500},
})

var ActiveSessions = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "dialer",
	Name:      "active_sessions",
	Help:      "Calling sessions currently live in this process",
})

// CallOutcomesTotal counts logged outcomes, skips included.
var CallOutcomesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dialer",
	Name:      "call_outcomes_total",
	Help:      "Logged call outcomes by outcome and disposition",
}, []string{"outcome", "disposition"})

var QueuePrunedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dialer",
	Name:      "queue_pruned_total",
	Help:      "Contacts removed from live queues out-of-band",
}, []string{"reason"})

// PersistenceFailuresTotal counts write failures. Ledger failures block the
// operation; contact/session patch failures are tolerated and reconciled later.
var PersistenceFailuresTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dialer",
	Name:      "persistence_failures_total",
	Help:      "Write failures by store",
}, []string{"store"})

var UnreachableContactsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "dialer",
	Name:      "unreachable_contacts_total",
	Help:      "Contacts left with no number after a wrong-number outcome",
})

// =============================================================================
// Capacity
// =============================================================================

var DueToday = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "capacity",
	Name:      "due_today",
	Help:      "Contacts due today at the last assessment",
})

var DailyTarget = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "capacity",
	Name:      "daily_target",
	Help:      "Configured daily call target",
})

var Overage = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "capacity",
	Name:      "overage",
	Help:      "Due contacts above the daily target",
})

var FixesAppliedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "capacity",
	Name:      "fixes_total",
	Help:      "Remediation actions by action and result",
}, []string{"action", "result"})

// =============================================================================
// Pool pauses
// =============================================================================

var PauseActionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pool",
	Name:      "pause_actions_total",
	Help:      "Pause and unpause actions by entity type",
}, []string{"entity_type", "action"})

// ObserveAssessment sets the capacity gauges from one assessment.
func ObserveAssessment(dueToday, target, overage int) {
	DueToday.Set(float64(dueToday))
	DailyTarget.Set(float64(target))
	Overage.Set(float64(overage))
}
