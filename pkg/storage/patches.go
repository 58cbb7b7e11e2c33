package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/manik3160/NeverDown/pkg/domain"
)

// PatchRepository implements pkg/orchestrator's PatchStore against
// Postgres.
type PatchRepository struct {
	db *sqlx.DB
}

// NewPatchRepository constructs a repository over an already-connected
// sqlx handle.
func NewPatchRepository(db *sqlx.DB) *PatchRepository {
	return &PatchRepository{db: db}
}

// Create persists a freshly generated patch.
func (r *PatchRepository) Create(ctx context.Context, patch *domain.Patch) error {
	assumptions, err := json.Marshal(patch.Assumptions)
	if err != nil {
		return fmt.Errorf("marshal assumptions: %w", err)
	}
	files, err := json.Marshal(patch.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO patches (
			id, incident_id, diff_text, reasoning, confidence, assumptions, files,
			verified, prompt_tokens, completion_tokens, retry_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
	`, patch.ID, patch.IncidentID, patch.DiffText, patch.Reasoning, patch.Confidence,
		assumptions, files, patch.Verified, patch.Usage.PromptTokens, patch.Usage.CompletionTokens, patch.RetryCount)
	return err
}

// MarkVerified flips a patch's verified flag once the Verifier has run.
func (r *PatchRepository) MarkVerified(ctx context.Context, patchID uuid.UUID, verified bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE patches SET verified = $1 WHERE id = $2`, verified, patchID)
	return err
}

// patchRow is the `patches` table's column mapping, shared with
// IncidentRepository.GetLatestPatch.
type patchRow struct {
	ID               uuid.UUID `db:"id"`
	IncidentID       uuid.UUID `db:"incident_id"`
	DiffText         string    `db:"diff_text"`
	Reasoning        string    `db:"reasoning"`
	Confidence       float64   `db:"confidence"`
	Assumptions      []byte    `db:"assumptions"`
	Files            []byte    `db:"files"`
	Verified         bool      `db:"verified"`
	PromptTokens     int       `db:"prompt_tokens"`
	CompletionTokens int       `db:"completion_tokens"`
	RetryCount       int       `db:"retry_count"`
	CreatedAt        time.Time `db:"created_at"`
}

func (r patchRow) toDomain() (*domain.Patch, error) {
	var assumptions []string
	if len(r.Assumptions) > 0 {
		if err := json.Unmarshal(r.Assumptions, &assumptions); err != nil {
			return nil, fmt.Errorf("unmarshal assumptions: %w", err)
		}
	}
	var files []domain.FileChange
	if len(r.Files) > 0 {
		if err := json.Unmarshal(r.Files, &files); err != nil {
			return nil, fmt.Errorf("unmarshal files: %w", err)
		}
	}
	return &domain.Patch{
		ID:          r.ID,
		IncidentID:  r.IncidentID,
		DiffText:    r.DiffText,
		Reasoning:   r.Reasoning,
		Confidence:  r.Confidence,
		Assumptions: assumptions,
		Files:       files,
		Verified:    r.Verified,
		Usage: domain.TokenUsage{
			PromptTokens:     r.PromptTokens,
			CompletionTokens: r.CompletionTokens,
		},
		RetryCount: r.RetryCount,
		CreatedAt:  r.CreatedAt,
	}, nil
}
