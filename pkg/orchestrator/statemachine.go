package orchestrator

import (
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/pkg/domain"
)

// transitionTable is the closed set of valid edges of spec §4.7. A
// from-state maps to the set of to-states it may legally move to.
var transitionTable = map[domain.State]map[domain.State]bool{
	domain.StatePending: {
		domain.StateMonitoring: true,
		domain.StateProcessing: true,
	},
	domain.StateMonitoring: {
		domain.StateProcessing: true,
	},
	domain.StateProcessing: {
		domain.StateAwaitingReview: true,
		domain.StateFailed:         true,
		domain.StatePending:        true,
	},
	domain.StateAwaitingReview: {
		domain.StateResolved:   true,
		domain.StateProcessing: true,
	},
	domain.StateFailed: {
		domain.StatePending: true,
	},
	domain.StateResolved: {
		domain.StatePending: true,
	},
}

// Transition validates and applies a state change on incident, appending
// a timeline entry. It emits no audit event itself; Orchestrator.transition
// does that after persisting. Invalid transitions return a typed error and
// leave the incident untouched.
func Transition(incident *domain.Incident, to domain.State, details string) *apperrors.AppError {
	from := incident.Status
	if from == to {
		return apperrors.Newf(apperrors.ErrInvalidStateTransition, "incident %s is already in state %s", incident.ID, to)
	}
	edges, known := transitionTable[from]
	if !known || !edges[to] {
		return apperrors.Newf(apperrors.ErrInvalidStateTransition, "invalid transition %s -> %s for incident %s", from, to, incident.ID)
	}

	incident.RecordTransition(to, details)
	return nil
}
