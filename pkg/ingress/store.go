// Package ingress is the HTTP edge of the pipeline: incident CRUD and
// status endpoints, CI/monitoring webhook intake, a GitHub OAuth2 login
// sketch, and health probes, all routed through go-chi/chi.
package ingress

import (
	"context"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/storage"
)

// IncidentStore is the subset of pkg/storage.IncidentRepository the
// ingress layer reads and writes directly (outside the orchestrator's own
// IncidentStore contract, which stays pkg/orchestrator-private).
type IncidentStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Save(ctx context.Context, incident *domain.Incident) error
	List(ctx context.Context, filter storage.ListFilter) ([]*domain.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindMostRecentMonitoring(ctx context.Context, canonicalRepoURL string) (*domain.Incident, error)
	GetDetectiveReport(ctx context.Context, id uuid.UUID) (*domain.DetectiveReport, error)
	GetLatestPatch(ctx context.Context, id uuid.UUID) (*domain.Patch, error)
}

// AuditReader serves the read-only `/incidents/{id}/audit` endpoint.
type AuditReader interface {
	GetByIncident(ctx context.Context, incidentID uuid.UUID, limit int) ([]domain.AuditEvent, error)
}

// VerificationReader serves the read-only `/incidents/{id}/verifier`
// endpoint.
type VerificationReader interface {
	GetLatest(ctx context.Context, incidentID uuid.UUID) (*domain.VerificationResult, error)
}

// Pipeline is the orchestrator contract the ingress layer drives: create
// a fresh incident's run, or resume one with reviewer feedback.
type Pipeline interface {
	Process(ctx context.Context, incident *domain.Incident) *apperrors.AppError
	Refine(ctx context.Context, incidentID uuid.UUID, feedback string) *apperrors.AppError
}

// Scheduler hands a unit of work to a process-wide worker pool. Submit
// does not wait for fn to finish; fn runs asynchronously with its own
// background context, matching the original webhook handlers' fire-and-forget
// BackgroundTasks.add_task calls. A bounded pool may block Submit until a
// worker slot is free.
type Scheduler interface {
	Submit(fn func(ctx context.Context))
}
