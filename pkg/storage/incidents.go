package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/publisher"
)

// IncidentRepository implements pkg/orchestrator's IncidentStore against
// Postgres. Every method opens its own connection from db's pool, so a
// write here survives regardless of what happens to the caller's pipeline
// context afterwards (spec §4.7's independent-session requirement).
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs a repository over an already-connected
// sqlx handle.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

type incidentRow struct {
	ID                 uuid.UUID `db:"id"`
	Title              string    `db:"title"`
	Severity           string    `db:"severity"`
	Source             string    `db:"source"`
	Status             string    `db:"status"`
	RepoURL            string    `db:"repo_url"`
	RepoBranch         string    `db:"repo_branch"`
	RepoCommitSHA      string    `db:"repo_commit_sha"`
	RawLogs            string    `db:"raw_logs"`
	Timeline           []byte    `db:"timeline"`
	LatestPRURL        string    `db:"latest_pr_url"`
	LatestBranch       string    `db:"latest_branch"`
	FeedbackIterations int       `db:"feedback_iterations"`
	ErrorMessage       string    `db:"error_message"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r incidentRow) toDomain() (*domain.Incident, error) {
	var timeline []domain.TimelineEvent
	if len(r.Timeline) > 0 {
		if err := json.Unmarshal(r.Timeline, &timeline); err != nil {
			return nil, fmt.Errorf("unmarshal timeline: %w", err)
		}
	}
	return &domain.Incident{
		ID:       r.ID,
		Title:    r.Title,
		Severity: domain.Severity(r.Severity),
		Source:   domain.Source(r.Source),
		Status:   domain.State(r.Status),
		Repository: domain.RepositoryDescriptor{
			URL:       r.RepoURL,
			Branch:    r.RepoBranch,
			CommitSHA: r.RepoCommitSHA,
		},
		RawLogs:            r.RawLogs,
		Timeline:           timeline,
		LatestPRURL:        r.LatestPRURL,
		LatestBranch:       r.LatestBranch,
		FeedbackIterations: r.FeedbackIterations,
		ErrorMessage:       r.ErrorMessage,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}, nil
}

func rowFromIncident(incident *domain.Incident) (incidentRow, error) {
	timeline, err := json.Marshal(incident.Timeline)
	if err != nil {
		return incidentRow{}, fmt.Errorf("marshal timeline: %w", err)
	}
	return incidentRow{
		ID:                 incident.ID,
		Title:              incident.Title,
		Severity:           string(incident.Severity),
		Source:             string(incident.Source),
		Status:             string(incident.Status),
		RepoURL:            incident.Repository.URL,
		RepoBranch:         incident.Repository.Branch,
		RepoCommitSHA:      incident.Repository.CommitSHA,
		RawLogs:            incident.RawLogs,
		Timeline:           timeline,
		LatestPRURL:        incident.LatestPRURL,
		LatestBranch:       incident.LatestBranch,
		FeedbackIterations: incident.FeedbackIterations,
		ErrorMessage:       incident.ErrorMessage,
		CreatedAt:          incident.CreatedAt,
		UpdatedAt:          incident.UpdatedAt,
	}, nil
}

// Get loads one incident by id.
func (r *IncidentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	var row incidentRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM incidents WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("incident %s not found: %w", id, err)
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// Save upserts incident by id.
func (r *IncidentRepository) Save(ctx context.Context, incident *domain.Incident) error {
	row, err := rowFromIncident(incident)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO incidents (
			id, title, severity, source, status, repo_url, repo_branch, repo_commit_sha,
			raw_logs, timeline, latest_pr_url, latest_branch, feedback_iterations,
			error_message, created_at, updated_at
		) VALUES (
			:id, :title, :severity, :source, :status, :repo_url, :repo_branch, :repo_commit_sha,
			:raw_logs, :timeline, :latest_pr_url, :latest_branch, :feedback_iterations,
			:error_message, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			timeline = EXCLUDED.timeline,
			latest_pr_url = EXCLUDED.latest_pr_url,
			latest_branch = EXCLUDED.latest_branch,
			feedback_iterations = EXCLUDED.feedback_iterations,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at
	`, row)
	return err
}

// FindMostRecentMonitoring returns the most recent MONITORING incident
// whose repository URL canonicalizes to canonicalRepoURL, or nil if none
// match (spec §4.7's dormant-sentinel activation).
func (r *IncidentRepository) FindMostRecentMonitoring(ctx context.Context, canonicalRepoURL string) (*domain.Incident, error) {
	var rows []incidentRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM incidents WHERE status = $1 ORDER BY created_at DESC`, string(domain.StateMonitoring))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if publisher.CanonicalizeRepoURL(row.RepoURL) == canonicalRepoURL {
			return row.toDomain()
		}
	}
	return nil, nil
}

// SetPRBranch persists the branch name a pull request was opened against.
func (r *IncidentRepository) SetPRBranch(ctx context.Context, id uuid.UUID, branch string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE incidents SET latest_branch = $1, updated_at = now() WHERE id = $2`, branch, id)
	return err
}

// SaveDetectiveReport stores report as the most recent "detective" agent
// analysis for its incident.
func (r *IncidentRepository) SaveDetectiveReport(ctx context.Context, report *domain.DetectiveReport) error {
	output, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal detective report: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO analyses (id, incident_id, agent, output, confidence, created_at)
		 VALUES ($1, $2, 'detective', $3, $4, now())`,
		uuid.New(), report.IncidentID, output, report.OverallConfidence)
	return err
}

// GetDetectiveReport reloads the most recently stored detective report for
// an incident, used by the refinement loop (spec §4.6).
func (r *IncidentRepository) GetDetectiveReport(ctx context.Context, id uuid.UUID) (*domain.DetectiveReport, error) {
	var output []byte
	err := r.db.GetContext(ctx, &output,
		`SELECT output FROM analyses WHERE incident_id = $1 AND agent = 'detective' ORDER BY created_at DESC LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	var report domain.DetectiveReport
	if err := json.Unmarshal(output, &report); err != nil {
		return nil, fmt.Errorf("unmarshal detective report: %w", err)
	}
	return &report, nil
}

// GetPreviousPatchDiff returns the most recently stored patch's diff text
// for an incident, or "" if none exists yet.
func (r *IncidentRepository) GetPreviousPatchDiff(ctx context.Context, id uuid.UUID) (string, error) {
	var diff string
	err := r.db.GetContext(ctx, &diff,
		`SELECT diff_text FROM patches WHERE incident_id = $1 ORDER BY created_at DESC LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return diff, err
}

// ListFilter narrows List's result set; a zero-valued field means "no
// filter on this column".
type ListFilter struct {
	Status   domain.State
	Severity domain.Severity
	Limit    int
	Offset   int
}

// List returns incidents ordered newest-first, applying an optional
// status/severity filter and pagination (mirrors the original
// `GET /incidents` query parameters).
func (r *IncidentRepository) List(ctx context.Context, filter ListFilter) ([]*domain.Incident, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT * FROM incidents WHERE ($1 = '' OR status = $1) AND ($2 = '' OR severity = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	var rows []incidentRow
	if err := r.db.SelectContext(ctx, &rows, query, string(filter.Status), string(filter.Severity), limit, filter.Offset); err != nil {
		return nil, err
	}
	incidents := make([]*domain.Incident, 0, len(rows))
	for _, row := range rows {
		inc, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, nil
}

// Delete permanently removes an incident and its cascaded analyses,
// patches, verifications and audit rows.
func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	return err
}

// GetLatestPatch returns the most recently generated patch for an
// incident, or nil if none exists.
func (r *IncidentRepository) GetLatestPatch(ctx context.Context, id uuid.UUID) (*domain.Patch, error) {
	var row patchRow
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM patches WHERE incident_id = $1 ORDER BY created_at DESC LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}
