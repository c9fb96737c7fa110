package domain

import (
	"testing"
	"time"
)

func TestDetectionRecordConversion(t *testing.T) {
	record := DetectionRecord{
		ID:    42,
		SrcIP: "10.0.0.1",
		GroupedDetails: []GroupedDetail{
			{DstIPs: []string{"10.0.0.3", "10.0.0.2"}},
			{DstIPs: []string{"10.0.0.2", "10.0.0.4"}},
			{DstIPs: nil},
		},
		FirstTimestamp: "2023-01-01T00:00:00Z",
		LastTimestamp:  "2023-01-01T00:05:00Z",
	}

	detection, err := record.Detection()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if detection.ID != 42 || detection.SourceAddress != "10.0.0.1" {
		t.Errorf("identity fields lost: %+v", detection)
	}

	want := []string{"10.0.0.2", "10.0.0.3", "10.0.0.4"}
	if len(detection.DestinationAddresses) != len(want) {
		t.Fatalf("destinations = %v, want %v", detection.DestinationAddresses, want)
	}
	for i := range want {
		if detection.DestinationAddresses[i] != want[i] {
			t.Errorf("destinations = %v, want deduplicated sorted %v", detection.DestinationAddresses, want)
		}
	}

	if !detection.FirstSeen.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("FirstSeen = %v", detection.FirstSeen)
	}
	if !detection.LastSeen.Equal(time.Date(2023, 1, 1, 0, 5, 0, 0, time.UTC)) {
		t.Errorf("LastSeen = %v", detection.LastSeen)
	}
	if detection.EnrichmentNoteID != 0 {
		t.Errorf("fresh detection must not carry a note id, got %d", detection.EnrichmentNoteID)
	}
}

func TestDetectionRecordBadTimestamps(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
	}{
		{"bad first", "not-a-time", "2023-01-01T00:05:00Z"},
		{"bad last", "2023-01-01T00:00:00Z", "01/01/2023"},
		{"offset format rejected", "2023-01-01T00:00:00+02:00", "2023-01-01T00:05:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := DetectionRecord{ID: 1, FirstTimestamp: tt.first, LastTimestamp: tt.last}
			if _, err := record.Detection(); err == nil {
				t.Error("expected a parse error")
			}
		})
	}
}

func TestHasTagIsExact(t *testing.T) {
	record := DetectionRecord{Tags: []string{"EndaceProbe", "triaged"}}
	if record.HasTag("Endace") {
		t.Error("substring match must not count as having the tag")
	}
	record.Tags = append(record.Tags, "Endace")
	if !record.HasTag("Endace") {
		t.Error("exact tag should match")
	}
}

func TestNoteEffectiveModified(t *testing.T) {
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	modified := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	note := Note{ID: 1, DateCreated: "2023-01-01T00:00:00Z"}
	got, err := note.EffectiveModified()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(created) {
		t.Errorf("EffectiveModified = %v, want creation time", got)
	}

	note.DateModified = "2023-01-02T00:00:00Z"
	got, err = note.EffectiveModified()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(modified) {
		t.Errorf("EffectiveModified = %v, want modification time", got)
	}
}
