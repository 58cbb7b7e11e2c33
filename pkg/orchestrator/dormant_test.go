package orchestrator

import (
	"context"
	"testing"

	"github.com/manik3160/NeverDown/pkg/domain"
)

func TestActivateDormantIncident_NoMatchReturnsNil(t *testing.T) {
	o := &Orchestrator{incidents: newFakeIncidentStore()}
	inc, err := o.activateDormantIncident(context.Background(), "https://github.com/o/r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inc != nil {
		t.Fatal("expected nil incident when no dormant match exists")
	}
}

func TestActivateDormantIncident_MatchTransitionsToProcessing(t *testing.T) {
	store := newFakeIncidentStore()
	store.mostRecentMon = newTestIncident(domain.StateMonitoring)
	o := &Orchestrator{incidents: store}

	inc, err := o.activateDormantIncident(context.Background(), "https://github.com/o/r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inc == nil || inc.Status != domain.StateProcessing {
		t.Fatalf("expected incident activated to PROCESSING, got %+v", inc)
	}
}
