package domain

import (
	"testing"
	"time"
)

func TestIsDormantSentinel(t *testing.T) {
	tests := []struct {
		name string
		logs string
		want bool
	}{
		{"empty logs", "", true},
		{"short logs no error token", "build ok", true},
		{"short logs with error token", "error: x", false},
		{"long logs without error", string(make([]byte, 40)), false},
		{"uppercase error token", "ERROR in build", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDormantSentinel(tt.logs); got != tt.want {
				t.Errorf("IsDormantSentinel(%q) = %v, want %v", tt.logs, got, tt.want)
			}
		})
	}
}

func TestIncidentTimeline_StrictlyOrdered(t *testing.T) {
	inc := NewIncident("build broke", SeverityHigh, SourceCI, RepositoryDescriptor{URL: "https://github.com/acme/widgets"}, "")

	inc.appendTimeline(StateProcessing, "run started")
	inc.appendTimeline(StateAwaitingReview, "pr opened")

	if len(inc.Timeline) != 3 {
		t.Fatalf("expected 3 timeline entries, got %d", len(inc.Timeline))
	}
	for i := 1; i < len(inc.Timeline); i++ {
		if !inc.Timeline[i].Timestamp.After(inc.Timeline[i-1].Timestamp) {
			t.Errorf("timeline entry %d is not strictly after entry %d", i, i-1)
		}
	}
}

func TestNewIncident_StartsPending(t *testing.T) {
	inc := NewIncident("x", SeverityLow, SourceManual, RepositoryDescriptor{}, "")
	if inc.Status != StatePending {
		t.Errorf("NewIncident status = %v, want %v", inc.Status, StatePending)
	}
	if inc.CreatedAt.After(time.Now()) {
		t.Error("CreatedAt should not be in the future")
	}
}
