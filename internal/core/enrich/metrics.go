package enrich

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// metricsOnce ensures metrics are registered only once
	metricsOnce sync.Once

	// syncCyclesTotal tracks reconciliation cycles by outcome
	syncCyclesTotal *prometheus.CounterVec

	// notesWrittenTotal tracks enrichment notes by action (created, updated)
	notesWrittenTotal *prometheus.CounterVec

	// enrichmentFailuresTotal tracks per-detection failures by stage
	enrichmentFailuresTotal *prometheus.CounterVec

	// cycleDuration tracks how long a full reconciliation cycle takes
	cycleDuration prometheus.Histogram

	// pendingWork tracks how much work the last reconciliation found
	pendingWork *prometheus.GaugeVec
)

// InitMetrics registers all Prometheus metrics for the sync job.
// This should be called once at application startup
func InitMetrics() {
	metricsOnce.Do(func() {
		syncCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pivotlink_sync_cycles_total",
				Help: "Total number of reconciliation cycles by outcome",
			},
			[]string{"outcome"},
		)

		notesWrittenTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pivotlink_notes_written_total",
				Help: "Total number of enrichment notes written by action",
			},
			[]string{"action"},
		)

		enrichmentFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pivotlink_enrichment_failures_total",
				Help: "Total number of per-detection enrichment failures by stage",
			},
			[]string{"stage"},
		)

		cycleDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pivotlink_cycle_duration_seconds",
				Help:    "Duration of reconciliation cycles in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		)

		pendingWork = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pivotlink_pending_work",
				Help: "Detections the last reconciliation selected, by kind",
			},
			[]string{"kind"},
		)
	})
}

// RecordCycle records a finished cycle
// outcome: "success", "error"
func RecordCycle(outcome string) {
	if syncCyclesTotal != nil {
		syncCyclesTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordNote records one written enrichment note
// action: "created", "updated"
func RecordNote(action string) {
	if notesWrittenTotal != nil {
		notesWrittenTotal.WithLabelValues(action).Inc()
	}
}

// RecordFailure records a per-detection failure
// stage: "link", "note", "tag"
func RecordFailure(stage string) {
	if enrichmentFailuresTotal != nil {
		enrichmentFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// RecordCycleDuration records how long a cycle took
func RecordCycleDuration(duration time.Duration) {
	if cycleDuration != nil {
		cycleDuration.Observe(duration.Seconds())
	}
}

// RecordPendingWork records how much work the reconciler found
// kind: "enrich", "update"
func RecordPendingWork(kind string, count int) {
	if pendingWork != nil {
		pendingWork.WithLabelValues(kind).Set(float64(count))
	}
}
