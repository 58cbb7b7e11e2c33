package orchestrator

import (
	"testing"

	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/pkg/domain"
)

func newTestIncident(status domain.State) *domain.Incident {
	inc := domain.NewIncident("t", domain.SeverityHigh, domain.SourceLogs, domain.RepositoryDescriptor{URL: "https://github.com/o/r"}, "boom")
	inc.Status = status
	return inc
}

func TestTransition_ValidEdgesSucceed(t *testing.T) {
	cases := []struct{ from, to domain.State }{
		{domain.StatePending, domain.StateMonitoring},
		{domain.StatePending, domain.StateProcessing},
		{domain.StateMonitoring, domain.StateProcessing},
		{domain.StateProcessing, domain.StateAwaitingReview},
		{domain.StateProcessing, domain.StateFailed},
		{domain.StateAwaitingReview, domain.StateResolved},
		{domain.StateAwaitingReview, domain.StateProcessing},
		{domain.StateFailed, domain.StatePending},
		{domain.StateResolved, domain.StatePending},
	}
	for _, c := range cases {
		inc := newTestIncident(c.from)
		if aerr := Transition(inc, c.to, "test"); aerr != nil {
			t.Errorf("%s -> %s: expected success, got %v", c.from, c.to, aerr)
		}
		if inc.Status != c.to {
			t.Errorf("%s -> %s: status not updated", c.from, c.to)
		}
	}
}

func TestTransition_InvalidEdgeRejectedWithoutMutation(t *testing.T) {
	inc := newTestIncident(domain.StatePending)
	aerr := Transition(inc, domain.StateResolved, "should fail")
	if aerr == nil {
		t.Fatal("expected an error")
	}
	if aerr.Type != apperrors.ErrInvalidStateTransition {
		t.Errorf("expected ErrInvalidStateTransition, got %v", aerr.Type)
	}
	if inc.Status != domain.StatePending {
		t.Errorf("incident status mutated on rejected transition: %v", inc.Status)
	}
}

func TestTransition_SameStateRejected(t *testing.T) {
	inc := newTestIncident(domain.StateProcessing)
	if aerr := Transition(inc, domain.StateProcessing, "noop"); aerr == nil {
		t.Fatal("expected same-state transition to be rejected")
	}
}
