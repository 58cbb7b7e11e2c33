// Package domain holds the pipeline's persisted data model (spec §3):
// Incident, SanitizationReport, DetectiveReport, Patch, VerificationResult,
// PullRequest and AuditEvent.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity is a closed enum of incident severities.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Source is a closed enum of incident origins.
type Source string

const (
	SourceCI         Source = "ci"
	SourceLogs       Source = "logs"
	SourceMonitoring Source = "monitoring"
	SourceWebhook    Source = "webhook"
	SourceManual     Source = "manual"
)

// State is the closed set of pipeline states (spec §4.7). PRCreated and
// Retrying are part of the declared closed set but, per §4.7's own
// transition list (and the original orchestrator, which never assigns
// either to an incident's status either), no transition ever targets
// them — PROCESSING moves straight to AWAITING_REVIEW once the Publisher
// opens a PR, and a retry moves straight back to PENDING. They are kept
// here only to keep the enum faithful to the closed set the spec names.
type State string

const (
	StatePending        State = "PENDING"
	StateMonitoring     State = "MONITORING"
	StateProcessing     State = "PROCESSING"
	StateAwaitingReview State = "AWAITING_REVIEW"
	StatePRCreated      State = "PR_CREATED"
	StateResolved       State = "RESOLVED"
	StateFailed         State = "FAILED"
	StateRetrying       State = "RETRYING"
)

// RepositoryDescriptor identifies the target repository.
type RepositoryDescriptor struct {
	URL        string
	Branch     string
	CommitSHA  string
}

// TimelineEvent is one append-only entry in an incident's timeline.
type TimelineEvent struct {
	State     State
	Timestamp time.Time
	Details   string
}

// Incident is the root aggregate of the data model.
type Incident struct {
	ID                 uuid.UUID
	Title              string
	Severity           Severity
	Source             Source
	Status             State
	Repository         RepositoryDescriptor
	RawLogs            string
	Timeline           []TimelineEvent
	LatestPRURL        string
	LatestBranch       string
	FeedbackIterations int
	ErrorMessage       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewIncident constructs a freshly-ingested incident in PENDING state.
func NewIncident(title string, severity Severity, source Source, repo RepositoryDescriptor, rawLogs string) *Incident {
	now := time.Now()
	inc := &Incident{
		ID:         uuid.New(),
		Title:      title,
		Severity:   severity,
		Source:     source,
		Status:     StatePending,
		Repository: repo,
		RawLogs:    rawLogs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	inc.appendTimeline(StatePending, "incident created")
	return inc
}

// appendTimeline appends a strictly time-ordered entry. Timestamps are
// monotone: if the clock has not advanced since the last entry, the new
// entry is nudged forward by one nanosecond to preserve strict ordering.
func (i *Incident) appendTimeline(state State, details string) {
	ts := time.Now()
	if n := len(i.Timeline); n > 0 && !ts.After(i.Timeline[n-1].Timestamp) {
		ts = i.Timeline[n-1].Timestamp.Add(time.Nanosecond)
	}
	i.Timeline = append(i.Timeline, TimelineEvent{State: state, Timestamp: ts, Details: details})
	i.UpdatedAt = ts
}

// RecordTransition sets the incident's Status to state and appends a
// timeline entry for it. Callers that enforce the transition table (e.g.
// the orchestrator's state machine) call this only after validating the
// move; it performs no validation itself.
func (i *Incident) RecordTransition(state State, details string) {
	i.Status = state
	i.appendTimeline(state, details)
}

// IsDormantSentinel reports whether logs are near-empty enough that the
// incident should go straight to MONITORING (spec §4.7): fewer than ~20
// non-blank characters and no "error" token.
func IsDormantSentinel(rawLogs string) bool {
	nonBlank := 0
	for _, r := range rawLogs {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			nonBlank++
		}
	}
	if nonBlank >= 20 {
		return false
	}
	return !strings.Contains(strings.ToLower(rawLogs), "error")
}
