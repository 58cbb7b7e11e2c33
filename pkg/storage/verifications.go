package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/manik3160/NeverDown/pkg/domain"
)

// VerificationRepository persists Verifier output so the ingress layer's
// read-only `/verifier` endpoint can replay the latest result without
// threading it through the orchestrator's in-memory pipeline.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository constructs a repository over an
// already-connected sqlx handle.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

type sandboxJSON struct {
	ContainerName string `json:"container_name"`
	Image         string `json:"image"`
	ExitCode      int    `json:"exit_code"`
}

// Create stores one verification result.
func (r *VerificationRepository) Create(ctx context.Context, result *domain.VerificationResult) error {
	tests, err := json.Marshal(result.Tests)
	if err != nil {
		return fmt.Errorf("marshal tests: %w", err)
	}
	var sandbox []byte
	if result.Sandbox != nil {
		sandbox, err = json.Marshal(sandboxJSON{
			ContainerName: result.Sandbox.ContainerName,
			Image:         result.Sandbox.Image,
			ExitCode:      result.Sandbox.ExitCode,
		})
		if err != nil {
			return fmt.Errorf("marshal sandbox: %w", err)
		}
	}

	id := result.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO verifications (
			id, patch_id, incident_id, status, tests, passed_count, failed_count,
			skipped_count, sandbox, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	`, id, result.PatchID, result.IncidentID, string(result.Status), tests,
		result.PassedCount, result.FailedCount, result.SkippedCount, sandbox, result.Reason)
	return err
}

type verificationRow struct {
	ID           uuid.UUID `db:"id"`
	PatchID      uuid.UUID `db:"patch_id"`
	IncidentID   uuid.UUID `db:"incident_id"`
	Status       string    `db:"status"`
	Tests        []byte    `db:"tests"`
	PassedCount  int       `db:"passed_count"`
	FailedCount  int       `db:"failed_count"`
	SkippedCount int       `db:"skipped_count"`
	Sandbox      []byte    `db:"sandbox"`
	Reason       string    `db:"reason"`
}

func (row verificationRow) toDomain() (*domain.VerificationResult, error) {
	var tests []domain.TestResult
	if len(row.Tests) > 0 {
		if err := json.Unmarshal(row.Tests, &tests); err != nil {
			return nil, fmt.Errorf("unmarshal tests: %w", err)
		}
	}
	var sandbox *domain.SandboxMetadata
	if len(row.Sandbox) > 0 {
		var s sandboxJSON
		if err := json.Unmarshal(row.Sandbox, &s); err != nil {
			return nil, fmt.Errorf("unmarshal sandbox: %w", err)
		}
		sandbox = &domain.SandboxMetadata{ContainerName: s.ContainerName, Image: s.Image, ExitCode: s.ExitCode}
	}
	return &domain.VerificationResult{
		ID:           row.ID,
		PatchID:      row.PatchID,
		IncidentID:   row.IncidentID,
		Status:       domain.VerificationStatus(row.Status),
		Tests:        tests,
		PassedCount:  row.PassedCount,
		FailedCount:  row.FailedCount,
		SkippedCount: row.SkippedCount,
		Sandbox:      sandbox,
		Reason:       row.Reason,
	}, nil
}

// GetLatest returns the most recent verification result for an incident,
// or nil if the Verifier has not yet run.
func (r *VerificationRepository) GetLatest(ctx context.Context, incidentID uuid.UUID) (*domain.VerificationResult, error) {
	var row verificationRow
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM verifications WHERE incident_id = $1 ORDER BY created_at DESC LIMIT 1`, incidentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}
