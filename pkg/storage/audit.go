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

// AuditReader serves the ingress layer's read-only `/audit` endpoint
// against the same audit_log table pkg/audit.Sink writes into. It is a
// separate type from Sink deliberately: Sink only ever appends, and never
// needs a query-capable handle.
type AuditReader struct {
	db *sqlx.DB
}

// NewAuditReader constructs a reader over an already-connected sqlx
// handle.
func NewAuditReader(db *sqlx.DB) *AuditReader {
	return &AuditReader{db: db}
}

type auditRow struct {
	ID         uuid.UUID `db:"id"`
	IncidentID uuid.UUID `db:"incident_id"`
	EventType  string    `db:"event_type"`
	EventData  []byte    `db:"event_data"`
	Timestamp  time.Time `db:"timestamp"`
}

// GetByIncident returns the most recent limit audit events for an
// incident, newest first.
func (r *AuditReader) GetByIncident(ctx context.Context, incidentID uuid.UUID, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []auditRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, incident_id, event_type, event_data, timestamp FROM audit_log
		 WHERE incident_id = $1 ORDER BY timestamp DESC LIMIT $2`, incidentID, limit)
	if err != nil {
		return nil, err
	}
	events := make([]domain.AuditEvent, 0, len(rows))
	for _, row := range rows {
		var payload map[string]any
		if len(row.EventData) > 0 {
			if err := json.Unmarshal(row.EventData, &payload); err != nil {
				return nil, fmt.Errorf("unmarshal audit payload: %w", err)
			}
		}
		incID := row.IncidentID
		events = append(events, domain.AuditEvent{
			ID:         row.ID,
			IncidentID: &incID,
			Kind:       domain.AuditEventKind(row.EventType),
			Payload:    payload,
			Timestamp:  row.Timestamp,
		})
	}
	return events, nil
}
