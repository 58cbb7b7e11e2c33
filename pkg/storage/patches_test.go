package storage

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/manik3160/NeverDown/pkg/domain"
)

func newMockPatchRepo(t *testing.T) (*PatchRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "postgres")
	return NewPatchRepository(db), mock
}

func TestPatchRepository_Create_InsertsPatch(t *testing.T) {
	repo, mock := newMockPatchRepo(t)
	patch := &domain.Patch{
		ID:         uuid.New(),
		IncidentID: uuid.New(),
		DiffText:   "--- a\n+++ b\n",
		Reasoning:  "off by one",
		Confidence: 0.9,
		Assumptions: []string{"tests cover this path"},
		Files: []domain.FileChange{
			{Path: "main.go", Action: domain.FileActionModified, Additions: 1, Deletions: 1},
		},
		RetryCount: 0,
	}

	mock.ExpectExec(`INSERT INTO patches`).
		WithArgs(patch.ID, patch.IncidentID, patch.DiffText, patch.Reasoning, patch.Confidence,
			sqlmock.AnyArg(), sqlmock.AnyArg(), false, 0, 0, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), patch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPatchRepository_MarkVerified_ExecutesUpdate(t *testing.T) {
	repo, mock := newMockPatchRepo(t)
	patchID := uuid.New()

	mock.ExpectExec(`UPDATE patches SET verified`).
		WithArgs(true, patchID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkVerified(context.Background(), patchID, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
