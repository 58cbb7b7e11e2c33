package publisher

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/pkg/domain"
)

const maxReasoningChars = 500

// BuildPRBody renders the structured Markdown description of spec §4.5:
// incident id, root cause, confidence, a truncated reasoning block,
// assumptions, verification summary, per-file manifest, and a closing
// human-review notice.
func BuildPRBody(incidentID uuid.UUID, patch *domain.Patch, verification *domain.VerificationResult, rootCause string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Automated Fix by NeverDown\n\n")
	fmt.Fprintf(&b, "### Incident ID\n`%s`\n\n", incidentID)
	fmt.Fprintf(&b, "### Root Cause\n%s\n\n", rootCause)
	fmt.Fprintf(&b, "### Analysis Confidence\n%.1f%%\n\n", patch.Confidence*100)

	reasoning := patch.Reasoning
	if len(reasoning) > maxReasoningChars {
		reasoning = reasoning[:maxReasoningChars] + "..."
	}
	fmt.Fprintf(&b, "### Reasoning\n%s\n\n", reasoning)

	b.WriteString("### Assumptions Made\n")
	if len(patch.Assumptions) == 0 {
		b.WriteString("- None\n")
	} else {
		for _, a := range patch.Assumptions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}

	fmt.Fprintf(&b, "\n### Verification Status\n- **Status**: %s\n- **Tests Passed**: %d\n- **Tests Failed**: %d\n\n",
		strings.ToUpper(string(verification.Status)), verification.PassedCount, verification.FailedCount)

	b.WriteString("### Files Changed\n")
	for _, fc := range patch.Files {
		fmt.Fprintf(&b, "- `%s` (%s): +%d/-%d\n", fc.Path, fc.Action, fc.Additions, fc.Deletions)
	}

	b.WriteString("\n---\n\n")
	b.WriteString("> **Human Review Required**: This pull request was created automatically and must be reviewed before merging.\n")
	b.WriteString(">\n")
	b.WriteString("> NeverDown does not auto-merge pull requests. All fixes require human approval.\n")

	return b.String()
}

// DetermineLabels picks the confidence tier and verification tier labels
// of spec §4.5, alongside the always-present project markers.
func DetermineLabels(patch *domain.Patch, verification *domain.VerificationResult) []string {
	labels := []string{"neverdown", "automated-fix"}

	switch {
	case patch.Confidence >= 0.9:
		labels = append(labels, "high-confidence")
	case patch.Confidence >= 0.7:
		labels = append(labels, "medium-confidence")
	default:
		labels = append(labels, "low-confidence")
	}

	switch verification.Status {
	case domain.VerificationPassed:
		labels = append(labels, "tests-passing")
	case domain.VerificationNoTests:
		labels = append(labels, "needs-tests")
	default:
		labels = append(labels, "tests-failing")
	}

	return labels
}

// PRTitle renders the PR title, truncating the root cause summary per
// the Python original's 50-character cap.
func PRTitle(rootCause string) string {
	summary := rootCause
	if len(summary) > 50 {
		summary = summary[:50]
	}
	return fmt.Sprintf("[NeverDown] Fix: %s", summary)
}
