package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventKind is a closed-ish, but extensible, audit-event category.
type AuditEventKind string

const (
	AuditStateTransition AuditEventKind = "state_transition"
	AuditAgentExecution  AuditEventKind = "agent_execution"
	AuditAPICall         AuditEventKind = "api_call"
	AuditSecurityEvent   AuditEventKind = "security_event"
)

// AuditSeverity mirrors severity levels used for security events.
type AuditSeverity string

const (
	AuditSeverityInfo     AuditSeverity = "info"
	AuditSeverityWarning  AuditSeverity = "warning"
	AuditSeverityCritical AuditSeverity = "critical"
)

// AuditEvent is an append-only structured log record.
type AuditEvent struct {
	ID         uuid.UUID
	IncidentID *uuid.UUID
	Kind       AuditEventKind
	Severity   AuditSeverity
	Payload    map[string]any
	Timestamp  time.Time
}

// NewAuditEvent stamps a new event with a fresh ID and current time.
func NewAuditEvent(incidentID *uuid.UUID, kind AuditEventKind, severity AuditSeverity, payload map[string]any) AuditEvent {
	return AuditEvent{
		ID:         uuid.New(),
		IncidentID: incidentID,
		Kind:       kind,
		Severity:   severity,
		Payload:    payload,
		Timestamp:  time.Now(),
	}
}
