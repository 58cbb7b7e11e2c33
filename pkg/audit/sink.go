// Package audit is the append-only, non-blocking audit trail: every state
// transition and security-relevant event is redacted and buffered onto a
// channel, then flushed to Postgres in batches by a background goroutine
// (spec §5; teacher's pkg/audit buffered-store design, DD-AUDIT-002).
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/shared/logging"
	"github.com/sirupsen/logrus"
)

const (
	defaultBufferSize = 1024
	flushInterval      = 2 * time.Second
	flushBatchSize     = 50
)

// execer is the narrow slice of *pgxpool.Pool the sink actually needs,
// letting tests substitute a fake without a live Postgres connection.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Sink buffers audit events and flushes them to Postgres, degrading
// gracefully (log and keep accepting writes) rather than blocking the
// caller or panicking when the database is unreachable.
type Sink struct {
	db       execer
	logger   *logrus.Logger
	events   chan domain.AuditEvent
	done     chan struct{}
	interval time.Duration
}

// NewSink constructs a Sink and starts its background flush loop, ticking
// every flushInterval.
func NewSink(db execer, logger *logrus.Logger) *Sink {
	return NewSinkWithInterval(db, logger, flushInterval)
}

// NewSinkWithInterval is NewSink with an explicit flush tick, letting
// tests exercise the flush loop without waiting on the production
// interval.
func NewSinkWithInterval(db execer, logger *logrus.Logger, interval time.Duration) *Sink {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Sink{
		db:       db,
		logger:   logger,
		events:   make(chan domain.AuditEvent, defaultBufferSize),
		done:     make(chan struct{}),
		interval: interval,
	}
	go s.run()
	return s
}

// RecordStateTransition enqueues a redacted state_transition event.
func (s *Sink) RecordStateTransition(_ context.Context, incidentID uuid.UUID, from, to domain.State, details string) {
	payload := Redact(map[string]any{
		"from_state": string(from),
		"to_state":   string(to),
		"details":    details,
	})
	s.enqueue(domain.NewAuditEvent(&incidentID, domain.AuditStateTransition, domain.AuditSeverityInfo, payload))
}

// RecordEvent enqueues a redacted generic event. A "critical" severity is
// classified as a security_event; anything else as an agent_execution
// event, with "warning" and "error" recorded at warning severity.
func (s *Sink) RecordEvent(_ context.Context, name string, severity string, details map[string]any) {
	payload := Redact(details)
	payload["name"] = name

	kind := domain.AuditAgentExecution
	sev := domain.AuditSeverityInfo
	switch severity {
	case "critical":
		kind = domain.AuditSecurityEvent
		sev = domain.AuditSeverityCritical
	case "warning", "error":
		sev = domain.AuditSeverityWarning
	}

	var incidentID *uuid.UUID
	if raw, ok := details["incident_id"].(string); ok {
		if parsed, err := uuid.Parse(raw); err == nil {
			incidentID = &parsed
		}
	}

	s.enqueue(domain.NewAuditEvent(incidentID, kind, sev, payload))
}

// enqueue is a non-blocking send: a full buffer means Postgres has fallen
// behind or is down, and the event is dropped with a logged warning
// rather than applying backpressure to the pipeline caller.
func (s *Sink) enqueue(event domain.AuditEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.WithFields(logging.NewFields().Component("audit").Logrus()).
			Warn("audit event buffer full, dropping event")
	}
}

// Close stops accepting new events and waits for the final flush, or
// returns early if ctx is cancelled first.
func (s *Sink) Close(ctx context.Context) error {
	close(s.events)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	batch := make([]domain.AuditEvent, 0, flushBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.write(context.Background(), batch); err != nil {
			s.logger.WithFields(logging.NewFields().Component("audit").Error(err).Logrus()).
				Error("audit flush failed, dropping batch")
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-s.events:
			if !ok {
				flush()
				close(s.done)
				return
			}
			batch = append(batch, event)
			if len(batch) >= flushBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (s *Sink) write(ctx context.Context, batch []domain.AuditEvent) error {
	for _, event := range batch {
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			s.logger.WithFields(logging.NewFields().Component("audit").Error(err).Logrus()).
				Warn("failed to marshal audit payload, skipping event")
			continue
		}
		_, err = s.db.Exec(ctx,
			`INSERT INTO audit_log (id, incident_id, event_type, event_data, timestamp) VALUES ($1, $2, $3, $4, $5)`,
			event.ID, event.IncidentID, string(event.Kind), payload, event.Timestamp,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
