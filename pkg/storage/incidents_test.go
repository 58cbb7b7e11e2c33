package storage

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/manik3160/NeverDown/pkg/domain"
)

func newMockRepo(t *testing.T) (*IncidentRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "postgres")
	return NewIncidentRepository(db), mock
}

func incidentColumns() []string {
	return []string{
		"id", "title", "severity", "source", "status", "repo_url", "repo_branch",
		"repo_commit_sha", "raw_logs", "timeline", "latest_pr_url", "latest_branch",
		"feedback_iterations", "error_message", "created_at", "updated_at",
	}
}

func TestIncidentRepository_Get_FoundReturnsMappedIncident(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows(incidentColumns()).AddRow(
		id, "db crash", "high", "logs", "PROCESSING", "https://github.com/o/r", "main", "abc123",
		"traceback...", []byte(`[]`), "", "", 0, "", now, now,
	)
	mock.ExpectQuery(`SELECT \* FROM incidents WHERE id = \$1`).WithArgs(id).WillReturnRows(rows)

	inc, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inc.ID != id || inc.Title != "db crash" || inc.Status != domain.StateProcessing {
		t.Fatalf("unexpected mapped incident: %+v", inc)
	}
	if inc.Repository.URL != "https://github.com/o/r" {
		t.Errorf("expected repo URL preserved, got %q", inc.Repository.URL)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIncidentRepository_SetPRBranch_ExecutesUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE incidents SET latest_branch`).
		WithArgs("neverdown/fix-abc-123", id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetPRBranch(context.Background(), id, "neverdown/fix-abc-123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIncidentRepository_FindMostRecentMonitoring_MatchesCanonicalizedURL(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	matchID := uuid.New()
	otherID := uuid.New()

	rows := sqlmock.NewRows(incidentColumns()).
		AddRow(otherID, "other repo", "low", "logs", "MONITORING", "https://github.com/o/different", "", "", "", []byte(`[]`), "", "", 0, "", now, now).
		AddRow(matchID, "our repo", "low", "logs", "MONITORING", "git@github.com:o/r.git", "", "", "", []byte(`[]`), "", "", 0, "", now, now)

	mock.ExpectQuery(`SELECT \* FROM incidents WHERE status = \$1`).WillReturnRows(rows)

	inc, err := repo.FindMostRecentMonitoring(context.Background(), "o/r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inc == nil || inc.ID != matchID {
		t.Fatalf("expected the canonicalized match, got %+v", inc)
	}
}

func TestIncidentRepository_FindMostRecentMonitoring_NoMatchReturnsNil(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows(incidentColumns())
	mock.ExpectQuery(`SELECT \* FROM incidents WHERE status = \$1`).WillReturnRows(rows)

	inc, err := repo.FindMostRecentMonitoring(context.Background(), "o/r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inc != nil {
		t.Fatalf("expected nil, got %+v", inc)
	}
}

func TestIncidentRepository_GetPreviousPatchDiff_NoRowsReturnsEmptyString(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	mock.ExpectQuery(`SELECT diff_text FROM patches WHERE incident_id = \$1`).
		WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"diff_text"}))

	diff, err := repo.GetPreviousPatchDiff(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff != "" {
		t.Errorf("expected empty diff when no patch exists, got %q", diff)
	}
}
