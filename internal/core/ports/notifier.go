package ports

import "time"

// Notifier defines the interface for sending operational notifications to
// external systems
type Notifier interface {
	// NotifyCycleSummary reports a completed sync cycle that performed work
	NotifyCycleSummary(summary CycleSummary) error

	// NotifyCycleFailure reports a sync cycle that aborted
	NotifyCycleFailure(cycleID string, reason string) error
}

// CycleSummary describes one completed reconciliation cycle.
type CycleSummary struct {
	CycleID  string
	Enriched int
	Updated  int
	Failed   int
	Duration time.Duration
}
