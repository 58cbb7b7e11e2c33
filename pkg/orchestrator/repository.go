package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/pkg/domain"
)

// IncidentStore is the persistence contract the Orchestrator needs for
// incidents. Implementations (pkg/storage) must use a database session
// independent of whatever session is threading the pipeline call that
// triggered the write, so a pipeline-level failure never prevents a
// terminal FAILED record from landing (spec §4.7, §5).
type IncidentStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Save(ctx context.Context, incident *domain.Incident) error
	FindMostRecentMonitoring(ctx context.Context, canonicalRepoURL string) (*domain.Incident, error)
	SetPRBranch(ctx context.Context, id uuid.UUID, branch string) error
	SaveDetectiveReport(ctx context.Context, report *domain.DetectiveReport) error
	GetDetectiveReport(ctx context.Context, id uuid.UUID) (*domain.DetectiveReport, error)
	GetPreviousPatchDiff(ctx context.Context, id uuid.UUID) (string, error)
}

// PatchStore is the persistence contract for generated patches.
type PatchStore interface {
	Create(ctx context.Context, patch *domain.Patch) error
	MarkVerified(ctx context.Context, patchID uuid.UUID, verified bool) error
}

// VerificationStore is the persistence contract for Verifier results,
// letting the ingress layer's read-only `/verifier` endpoint replay the
// latest result for an incident.
type VerificationStore interface {
	Create(ctx context.Context, result *domain.VerificationResult) error
}

// AuditSink receives one structured event per state transition and per
// security-relevant action (PR creation, sanitization halt). Recursive
// redaction of sensitive keys happens inside the sink implementation
// (pkg/audit), not here.
type AuditSink interface {
	RecordStateTransition(ctx context.Context, incidentID uuid.UUID, from, to domain.State, details string)
	RecordEvent(ctx context.Context, name string, severity string, details map[string]any)
}
