package ports

import (
	"context"

	"github.com/hive-corporation/pivotlink/internal/core/domain"
)

// DetectionFilter narrows a detection listing. Zero values mean "no filter".
type DetectionFilter struct {
	State string
	Tag   string
}

// DetectionPager yields one result page per call. It returns (nil, nil) once
// all pages are consumed. Pages are fetched lazily; an error on any page
// aborts the listing.
type DetectionPager interface {
	Next(ctx context.Context) ([]domain.DetectionRecord, error)
}

// DetectionPlatform is the remote detection platform: the single source of
// truth for detections, their notes and their tags.
type DetectionPlatform interface {
	ListDetections(ctx context.Context, filter DetectionFilter) DetectionPager
	GetNotes(ctx context.Context, detectionID int) ([]domain.Note, error)
	CreateNote(ctx context.Context, detectionID int, text string) error
	UpdateNote(ctx context.Context, detectionID, noteID int, text string) error
	SetTags(ctx context.Context, detectionID int, tags []string, append bool) error
}
