package domain

import "github.com/google/uuid"

// VerificationStatus is the closed enum of §3.
type VerificationStatus string

const (
	VerificationPending VerificationStatus = "pending"
	VerificationRunning VerificationStatus = "running"
	VerificationPassed  VerificationStatus = "passed"
	VerificationFailed  VerificationStatus = "failed"
	VerificationPartial VerificationStatus = "partial"
	VerificationError   VerificationStatus = "error"
	VerificationNoTests VerificationStatus = "no_tests"
)

// TestOutcome is the closed enum of per-test results.
type TestOutcome string

const (
	TestOutcomePassed  TestOutcome = "passed"
	TestOutcomeFailed  TestOutcome = "failed"
	TestOutcomeSkipped TestOutcome = "skipped"
	TestOutcomeError   TestOutcome = "error"
)

// TestResult is one test's outcome.
type TestResult struct {
	Name     string
	Outcome  TestOutcome
	Duration float64 // seconds
	Message  string
}

// SandboxMetadata captures optional sandbox execution details.
type SandboxMetadata struct {
	ContainerName string
	Image         string
	ExitCode      int
}

// VerificationResult is the Verifier's output artifact.
type VerificationResult struct {
	ID           uuid.UUID
	PatchID      uuid.UUID
	IncidentID   uuid.UUID
	Status       VerificationStatus
	Tests        []TestResult
	PassedCount  int
	FailedCount  int
	SkippedCount int
	Sandbox      *SandboxMetadata
	Reason       string
}

// Aggregate recomputes Status/PassedCount/FailedCount/SkippedCount from
// Tests per the aggregation rules of §4.4: any error => error (a sandbox
// timeout or other execution failure outranks a mere test failure); else
// any failed => failed; none failed and at least one passed => passed;
// none of the above => no_tests.
func (v *VerificationResult) Aggregate() {
	v.PassedCount, v.FailedCount, v.SkippedCount = 0, 0, 0
	errored := false
	for _, t := range v.Tests {
		switch t.Outcome {
		case TestOutcomePassed:
			v.PassedCount++
		case TestOutcomeFailed:
			v.FailedCount++
		case TestOutcomeSkipped:
			v.SkippedCount++
		case TestOutcomeError:
			errored = true
		}
	}
	switch {
	case errored:
		v.Status = VerificationError
	case v.FailedCount > 0:
		v.Status = VerificationFailed
	case v.PassedCount > 0:
		v.Status = VerificationPassed
	default:
		v.Status = VerificationNoTests
	}
}
