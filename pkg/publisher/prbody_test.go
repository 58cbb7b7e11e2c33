package publisher

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/pkg/domain"
)

func TestBuildPRBody_ContainsExpectedSections(t *testing.T) {
	patch := &domain.Patch{
		Confidence:  0.85,
		Reasoning:   "The retry loop incremented the counter before the bound check.",
		Assumptions: []string{"Config default is unchanged"},
		Files: []domain.FileChange{
			{Path: "app/worker.py", Action: domain.FileActionModified, Additions: 2, Deletions: 1},
		},
	}
	verification := &domain.VerificationResult{Status: domain.VerificationPassed, PassedCount: 10, FailedCount: 0}

	body := BuildPRBody(uuid.New(), patch, verification, "Off-by-one in retry loop")

	for _, want := range []string{
		"### Root Cause",
		"Off-by-one in retry loop",
		"85.0%",
		"### Assumptions Made",
		"Config default is unchanged",
		"### Verification Status",
		"PASSED",
		"`app/worker.py`",
		"Human Review Required",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q, got:\n%s", want, body)
		}
	}
}

func TestBuildPRBody_NoAssumptionsRendersNone(t *testing.T) {
	patch := &domain.Patch{Confidence: 0.5}
	verification := &domain.VerificationResult{Status: domain.VerificationNoTests}

	body := BuildPRBody(uuid.New(), patch, verification, "x")
	if !strings.Contains(body, "- None") {
		t.Errorf("expected '- None' for empty assumptions, got:\n%s", body)
	}
}

func TestDetermineLabels_ConfidenceAndVerificationTiers(t *testing.T) {
	cases := []struct {
		confidence float64
		status     domain.VerificationStatus
		want       []string
	}{
		{0.95, domain.VerificationPassed, []string{"high-confidence", "tests-passing"}},
		{0.75, domain.VerificationFailed, []string{"medium-confidence", "tests-failing"}},
		{0.3, domain.VerificationNoTests, []string{"low-confidence", "needs-tests"}},
	}
	for _, c := range cases {
		labels := DetermineLabels(&domain.Patch{Confidence: c.confidence}, &domain.VerificationResult{Status: c.status})
		for _, want := range c.want {
			found := false
			for _, l := range labels {
				if l == want {
					found = true
				}
			}
			if !found {
				t.Errorf("confidence=%v status=%v: expected label %q in %v", c.confidence, c.status, want, labels)
			}
		}
	}
}

func TestPRTitle_TruncatesLongSummaries(t *testing.T) {
	long := strings.Repeat("x", 80)
	title := PRTitle(long)
	if len(title) > len("[NeverDown] Fix: ")+50 {
		t.Errorf("expected title truncated to 50 chars of summary, got %q (len=%d)", title, len(title))
	}
}
