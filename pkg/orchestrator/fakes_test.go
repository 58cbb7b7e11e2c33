package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/pkg/domain"
)

type fakeIncidentStore struct {
	byID             map[uuid.UUID]*domain.Incident
	mostRecentMon    *domain.Incident
	detectiveReport  *domain.DetectiveReport
	previousDiff     string
	savedBranches    map[uuid.UUID]string
}

func newFakeIncidentStore() *fakeIncidentStore {
	return &fakeIncidentStore{byID: map[uuid.UUID]*domain.Incident{}, savedBranches: map[uuid.UUID]string{}}
}

func (f *fakeIncidentStore) Get(_ context.Context, id uuid.UUID) (*domain.Incident, error) {
	return f.byID[id], nil
}

func (f *fakeIncidentStore) Save(_ context.Context, incident *domain.Incident) error {
	f.byID[incident.ID] = incident
	return nil
}

func (f *fakeIncidentStore) FindMostRecentMonitoring(_ context.Context, _ string) (*domain.Incident, error) {
	return f.mostRecentMon, nil
}

func (f *fakeIncidentStore) SetPRBranch(_ context.Context, id uuid.UUID, branch string) error {
	f.savedBranches[id] = branch
	return nil
}

func (f *fakeIncidentStore) SaveDetectiveReport(_ context.Context, report *domain.DetectiveReport) error {
	f.detectiveReport = report
	return nil
}

func (f *fakeIncidentStore) GetDetectiveReport(_ context.Context, _ uuid.UUID) (*domain.DetectiveReport, error) {
	return f.detectiveReport, nil
}

func (f *fakeIncidentStore) GetPreviousPatchDiff(_ context.Context, _ uuid.UUID) (string, error) {
	return f.previousDiff, nil
}

type fakePatchStore struct {
	created  []*domain.Patch
	verified map[uuid.UUID]bool
}

func newFakePatchStore() *fakePatchStore {
	return &fakePatchStore{verified: map[uuid.UUID]bool{}}
}

func (f *fakePatchStore) Create(_ context.Context, patch *domain.Patch) error {
	f.created = append(f.created, patch)
	return nil
}

func (f *fakePatchStore) MarkVerified(_ context.Context, patchID uuid.UUID, verified bool) error {
	f.verified[patchID] = verified
	return nil
}

type fakeVerificationStore struct {
	created []*domain.VerificationResult
}

func (f *fakeVerificationStore) Create(_ context.Context, result *domain.VerificationResult) error {
	f.created = append(f.created, result)
	return nil
}

type fakeAuditSink struct {
	transitions []string
	events      []string
}

func (f *fakeAuditSink) RecordStateTransition(_ context.Context, _ uuid.UUID, from, to domain.State, _ string) {
	f.transitions = append(f.transitions, string(from)+"->"+string(to))
}

func (f *fakeAuditSink) RecordEvent(_ context.Context, name string, _ string, _ map[string]any) {
	f.events = append(f.events, name)
}
