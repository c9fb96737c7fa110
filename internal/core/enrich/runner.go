package enrich

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hive-corporation/pivotlink/internal/core/domain"
	"github.com/hive-corporation/pivotlink/internal/core/ports"
)

// LinkBuilder turns one detection into a deep-link URL.
type LinkBuilder interface {
	BuildLink(detection domain.Detection) (string, error)
}

// Runner drives one reconciliation cycle end to end: partition the
// detections, build a link per work item, write the note and marker tag.
type Runner struct {
	reconciler *Reconciler
	platform   ports.DetectionPlatform
	links      LinkBuilder
	notifier   ports.Notifier // optional
}

func NewRunner(platform ports.DetectionPlatform, links LinkBuilder, notifier ports.Notifier) *Runner {
	return &Runner{
		reconciler: NewReconciler(platform),
		platform:   platform,
		links:      links,
		notifier:   notifier,
	}
}

// CycleReport summarizes one reconciliation cycle.
type CycleReport struct {
	CycleID  string
	Enriched int
	Updated  int
	Failed   int
	Duration time.Duration
}

// RunOnce executes a single cycle. A reconciliation failure aborts the
// cycle; a failure writing one detection's note or tag only counts against
// that detection and the batch keeps going.
func (r *Runner) RunOnce(ctx context.Context) (CycleReport, error) {
	report := CycleReport{CycleID: uuid.New().String()}
	started := time.Now()

	log.Printf("🔄 Reconciliation cycle %s started", report.CycleID)

	toEnrich, err := r.reconciler.DetectionsNeedingEnrichment(ctx)
	if err != nil {
		return r.abort(report, started, err)
	}
	toUpdate, err := r.reconciler.DetectionsNeedingUpdate(ctx)
	if err != nil {
		return r.abort(report, started, err)
	}

	RecordPendingWork("enrich", len(toEnrich))
	RecordPendingWork("update", len(toUpdate))
	log.Printf("📋 Found %d detections to enrich, %d to update", len(toEnrich), len(toUpdate))

	for id, detection := range toEnrich {
		if err := r.enrich(ctx, detection); err != nil {
			log.Printf("❌ Failed to enrich detection %d: %v", id, err)
			report.Failed++
			continue
		}
		report.Enriched++
	}

	for id, detection := range toUpdate {
		if err := r.update(ctx, detection); err != nil {
			log.Printf("❌ Failed to update detection %d: %v", id, err)
			report.Failed++
			continue
		}
		report.Updated++
	}

	report.Duration = time.Since(started)
	RecordCycle("success")
	RecordCycleDuration(report.Duration)
	log.Printf("🏁 Cycle %s finished: %d enriched, %d updated, %d failed in %s",
		report.CycleID, report.Enriched, report.Updated, report.Failed, report.Duration.Round(time.Millisecond))

	if r.notifier != nil && report.Enriched+report.Updated+report.Failed > 0 {
		summary := ports.CycleSummary{
			CycleID:  report.CycleID,
			Enriched: report.Enriched,
			Updated:  report.Updated,
			Failed:   report.Failed,
			Duration: report.Duration,
		}
		if err := r.notifier.NotifyCycleSummary(summary); err != nil {
			log.Printf("⚠️ Failed to send cycle summary: %v", err)
		}
	}

	return report, nil
}

func (r *Runner) abort(report CycleReport, started time.Time, err error) (CycleReport, error) {
	report.Duration = time.Since(started)
	RecordCycle("error")
	RecordCycleDuration(report.Duration)
	if r.notifier != nil {
		if nerr := r.notifier.NotifyCycleFailure(report.CycleID, err.Error()); nerr != nil {
			log.Printf("⚠️ Failed to send cycle failure alert: %v", nerr)
		}
	}
	return report, err
}

// enrich writes a first-time note and applies the marker tag.
func (r *Runner) enrich(ctx context.Context, detection domain.Detection) error {
	link, err := r.links.BuildLink(detection)
	if err != nil {
		RecordFailure("link")
		return err
	}
	if err := r.platform.CreateNote(ctx, detection.ID, noteText(link)); err != nil {
		RecordFailure("note")
		return fmt.Errorf("creating note: %w", err)
	}
	RecordNote("created")
	log.Printf("✅ Added Endace note/link to detection %d", detection.ID)

	if err := r.platform.SetTags(ctx, detection.ID, []string{domain.MarkerTag}, true); err != nil {
		RecordFailure("tag")
		return fmt.Errorf("tagging detection: %w", err)
	}
	return nil
}

// update rewrites the existing enrichment note in place.
func (r *Runner) update(ctx context.Context, detection domain.Detection) error {
	link, err := r.links.BuildLink(detection)
	if err != nil {
		RecordFailure("link")
		return err
	}
	if err := r.platform.UpdateNote(ctx, detection.ID, detection.EnrichmentNoteID, noteText(link)); err != nil {
		RecordFailure("note")
		return fmt.Errorf("updating note %d: %w", detection.EnrichmentNoteID, err)
	}
	RecordNote("updated")
	log.Printf("✅ Updated Endace note/link on detection %d", detection.ID)
	return nil
}

func noteText(link string) string {
	return fmt.Sprintf("Endace link: [click here](%s)", link)
}
