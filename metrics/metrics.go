// Package metrics exposes Prometheus instrumentation for the swap
// daemon: the population of swaps by state and the syncer's
// outstanding task count, both useful for an operator running many
// concurrent swaps to notice a stuck coordinator or a backlogged
// syncer before it becomes a safety problem.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// SwapsByState reports the number of swaps currently sitting in
	// each coordinator state tag.
	SwapsByState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dcrswap",
		Subsystem: "coordinator",
		Name:      "swaps_by_state",
		Help:      "Number of swaps currently in a given coordinator state.",
	}, []string{"state"})

	// SyncerTasksOutstanding reports the number of syncer tasks
	// currently registered, by kind.
	SyncerTasksOutstanding = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dcrswap",
		Subsystem: "syncer",
		Name:      "tasks_outstanding",
		Help:      "Number of outstanding syncer tasks, by task kind.",
	}, []string{"kind"})

	// SwapsTerminated counts swaps reaching each terminal outcome,
	// the operator-facing signal for how often punish/refund paths
	// actually fire versus a clean buy.
	SwapsTerminated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dcrswap",
		Subsystem: "coordinator",
		Name:      "swaps_terminated_total",
		Help:      "Total swaps reaching a terminal outcome, by outcome.",
	}, []string{"outcome"})

	// CheckpointWriteErrors counts failed checkpoint writes, a fatal
	// condition per §7 that an operator must be paged on.
	CheckpointWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dcrswap",
		Subsystem: "checkpoint",
		Name:      "write_errors_total",
		Help:      "Total checkpoint write failures.",
	})
)

// MustRegister registers every collector in this package against reg.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(SwapsByState, SyncerTasksOutstanding, SwapsTerminated, CheckpointWriteErrors)
}
