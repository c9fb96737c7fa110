package domain

import (
	"fmt"
	"sort"
	"time"
)

// TimestampLayout is the second-precision UTC format the platform uses for
// detection and note timestamps.
const TimestampLayout = "2006-01-02T15:04:05Z"

// MarkerTag identifies detections and notes owned by this integration. The
// same string is used as a platform tag and as a substring inside note text.
const MarkerTag = "Endace"

type Detection struct {
	ID                   int
	SourceAddress        string
	DestinationAddresses []string // deduplicated union across grouped details
	FirstSeen            time.Time
	LastSeen             time.Time
	EnrichmentNoteID     int // 0 until an enrichment note is located
}

// DetectionMap keys detections by platform id.
type DetectionMap map[int]Detection

// DetectionRecord is the wire shape of one detection as returned by the
// platform list endpoint.
type DetectionRecord struct {
	ID             int             `json:"id"`
	SrcIP          string          `json:"src_ip"`
	GroupedDetails []GroupedDetail `json:"grouped_details"`
	FirstTimestamp string          `json:"first_timestamp"`
	LastTimestamp  string          `json:"last_timestamp"`
	Tags           []string        `json:"tags"`
}

type GroupedDetail struct {
	DstIPs []string `json:"dst_ips"`
}

// Detection converts the wire record into the domain model, flattening the
// grouped details into a sorted, deduplicated destination list.
func (r DetectionRecord) Detection() (Detection, error) {
	first, err := time.Parse(TimestampLayout, r.FirstTimestamp)
	if err != nil {
		return Detection{}, fmt.Errorf("detection %d: bad first_timestamp %q: %w", r.ID, r.FirstTimestamp, err)
	}
	last, err := time.Parse(TimestampLayout, r.LastTimestamp)
	if err != nil {
		return Detection{}, fmt.Errorf("detection %d: bad last_timestamp %q: %w", r.ID, r.LastTimestamp, err)
	}

	seen := make(map[string]struct{})
	var destinations []string
	for _, details := range r.GroupedDetails {
		for _, ip := range details.DstIPs {
			if _, ok := seen[ip]; ok {
				continue
			}
			seen[ip] = struct{}{}
			destinations = append(destinations, ip)
		}
	}
	sort.Strings(destinations)

	return Detection{
		ID:                   r.ID,
		SourceAddress:        r.SrcIP,
		DestinationAddresses: destinations,
		FirstSeen:            first,
		LastSeen:             last,
	}, nil
}

// HasTag reports whether the record carries tag exactly. The platform tag
// filter does substring matching, so callers must re-check membership.
func (r DetectionRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Note is one annotation attached to a detection.
type Note struct {
	ID           int    `json:"id"`
	Note         string `json:"note"`
	DateCreated  string `json:"date_created"`
	DateModified string `json:"date_modified"`
}

// EffectiveModified returns the note's last-modified time, falling back to
// its creation time when it was never edited.
func (n Note) EffectiveModified() (time.Time, error) {
	stamp := n.DateModified
	if stamp == "" {
		stamp = n.DateCreated
	}
	ts, err := time.Parse(TimestampLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("note %d: bad timestamp %q: %w", n.ID, stamp, err)
	}
	return ts, nil
}
