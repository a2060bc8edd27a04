package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	impactAnalyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ea",
		Subsystem: "impact",
		Name:      "analyses_total",
		Help:      "Impact analyses served, by source (computed or cache).",
	}, []string{"source"})

	impactDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ea",
		Subsystem: "impact",
		Name:      "analysis_duration_seconds",
		Help:      "Time spent computing a closure and its summary.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	impactAffected = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ea",
		Subsystem: "impact",
		Name:      "affected_artefacts",
		Help:      "Downstream artefacts per analysis.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
	})

	snapshotLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ea",
		Subsystem: "graph",
		Name:      "snapshot_loads_total",
		Help:      "Graph snapshot loads from the store, by outcome.",
	}, []string{"outcome"})

	inventoryMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ea",
		Subsystem: "inventory",
		Name:      "mutations_total",
		Help:      "Inventory mutations, by entity and action.",
	}, []string{"entity", "action"})

	auditPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ea",
		Subsystem: "audit",
		Name:      "pruned_entries_total",
		Help:      "Audit entries removed by retention pruning.",
	})
)

const (
	SourceComputed = "computed"
	SourceCache    = "cache"
)

// RecordImpactAnalysis records a computed analysis.
func RecordImpactAnalysis(d time.Duration, affected int) {
	impactAnalyses.WithLabelValues(SourceComputed).Inc()
	impactDuration.Observe(d.Seconds())
	impactAffected.Observe(float64(affected))
}

func RecordImpactCacheHit() {
	impactAnalyses.WithLabelValues(SourceCache).Inc()
}

func RecordSnapshotLoad(err error) {
	if err != nil {
		snapshotLoads.WithLabelValues("error").Inc()
		return
	}
	snapshotLoads.WithLabelValues("ok").Inc()
}

func RecordMutation(entity, action string) {
	inventoryMutations.WithLabelValues(entity, action).Inc()
}

func RecordAuditPruned(n int64) {
	if n > 0 {
		auditPruned.Add(float64(n))
	}
}
