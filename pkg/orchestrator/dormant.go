package orchestrator

import (
	"context"

	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/publisher"
)

// activateDormantIncident looks for the most recent MONITORING incident
// on repoURL and moves it to PROCESSING, treating repoURL equality
// case/trailing-slash/protocol-insensitively via CanonicalizeRepoURL
// (spec §4.7; DESIGN.md Open Question 2). Returns nil, nil when there is
// no dormant match — the caller should create a fresh incident instead.
func (o *Orchestrator) activateDormantIncident(ctx context.Context, repoURL string) (*domain.Incident, error) {
	canonical := publisher.CanonicalizeRepoURL(repoURL)
	incident, err := o.incidents.FindMostRecentMonitoring(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, nil
	}
	if aerr := Transition(incident, domain.StateProcessing, "activated by matching CI webhook"); aerr != nil {
		return nil, aerr
	}
	return incident, nil
}
