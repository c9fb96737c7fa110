package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/hive-corporation/pivotlink/internal/core/domain"
	"github.com/hive-corporation/pivotlink/internal/core/ports"
)

// Reconciler diffs current platform state against marker state to find
// enrichment work. It is read-only; all writes happen in the Runner.
type Reconciler struct {
	platform ports.DetectionPlatform
}

func NewReconciler(platform ports.DetectionPlatform) *Reconciler {
	return &Reconciler{platform: platform}
}

// DetectionsNeedingEnrichment returns every active detection that does not
// yet carry the marker tag, keyed by detection id.
func (r *Reconciler) DetectionsNeedingEnrichment(ctx context.Context) (domain.DetectionMap, error) {
	active, err := r.collect(ctx, ports.DetectionFilter{State: "active"}, "")
	if err != nil {
		return nil, fmt.Errorf("listing active detections: %w", err)
	}
	tagged, err := r.collect(ctx, ports.DetectionFilter{Tag: domain.MarkerTag}, domain.MarkerTag)
	if err != nil {
		return nil, fmt.Errorf("listing tagged detections: %w", err)
	}
	return relativeComplement(active, tagged), nil
}

// DetectionsNeedingUpdate returns every marked detection whose activity
// window moved past its enrichment note. Each returned detection has
// EnrichmentNoteID populated. Marked detections whose enrichment note cannot
// be located are skipped.
func (r *Reconciler) DetectionsNeedingUpdate(ctx context.Context) (domain.DetectionMap, error) {
	tagged, err := r.collect(ctx, ports.DetectionFilter{Tag: domain.MarkerTag}, domain.MarkerTag)
	if err != nil {
		return nil, fmt.Errorf("listing tagged detections: %w", err)
	}

	stale := domain.DetectionMap{}
	for id, detection := range tagged {
		note, found, err := r.enrichmentNote(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("detection %d: %w", id, err)
		}
		if !found {
			continue
		}
		modified, err := note.EffectiveModified()
		if err != nil {
			return nil, err
		}
		// Only update if the detection moved more recently than the note.
		if detection.LastSeen.After(modified) {
			detection.EnrichmentNoteID = note.ID
			stale[id] = detection
		}
	}
	return stale, nil
}

// collect drains a detection listing into a DetectionMap, consuming one page
// at a time. When exactTag is set, records that do not carry the tag
// verbatim are dropped: the platform's tag filter matches substrings.
func (r *Reconciler) collect(ctx context.Context, filter ports.DetectionFilter, exactTag string) (domain.DetectionMap, error) {
	detections := domain.DetectionMap{}
	pager := r.platform.ListDetections(ctx, filter)
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return detections, nil
		}
		for _, record := range page {
			if exactTag != "" && !record.HasTag(exactTag) {
				continue
			}
			detection, err := record.Detection()
			if err != nil {
				return nil, err
			}
			detections[detection.ID] = detection
		}
	}
}

// enrichmentNote finds the first note on a detection whose text mentions the
// marker string.
func (r *Reconciler) enrichmentNote(ctx context.Context, detectionID int) (domain.Note, bool, error) {
	notes, err := r.platform.GetNotes(ctx, detectionID)
	if err != nil {
		return domain.Note{}, false, err
	}
	for _, note := range notes {
		if strings.Contains(note.Note, domain.MarkerTag) {
			return note, true, nil
		}
	}
	return domain.Note{}, false, nil
}

// relativeComplement returns the entries of a whose key is absent from b.
func relativeComplement(a, b domain.DetectionMap) domain.DetectionMap {
	result := domain.DetectionMap{}
	for id, detection := range a {
		if _, ok := b[id]; !ok {
			result[id] = detection
		}
	}
	return result
}
