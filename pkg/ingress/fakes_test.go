package ingress

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/storage"
)

type fakeIncidentStore struct {
	mu            sync.Mutex
	byID          map[uuid.UUID]*domain.Incident
	mostRecentMon *domain.Incident
	detective     *domain.DetectiveReport
	latestPatch   *domain.Patch
}

func newFakeIncidentStore() *fakeIncidentStore {
	return &fakeIncidentStore{byID: map[uuid.UUID]*domain.Incident{}}
}

func (f *fakeIncidentStore) Get(_ context.Context, id uuid.UUID) (*domain.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inc, ok := f.byID[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrIncidentNotFound, "not found")
	}
	return inc, nil
}

func (f *fakeIncidentStore) Save(_ context.Context, incident *domain.Incident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[incident.ID] = incident
	return nil
}

func (f *fakeIncidentStore) List(_ context.Context, _ storage.ListFilter) ([]*domain.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Incident, 0, len(f.byID))
	for _, inc := range f.byID {
		out = append(out, inc)
	}
	return out, nil
}

func (f *fakeIncidentStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeIncidentStore) FindMostRecentMonitoring(_ context.Context, _ string) (*domain.Incident, error) {
	return f.mostRecentMon, nil
}

func (f *fakeIncidentStore) GetDetectiveReport(_ context.Context, _ uuid.UUID) (*domain.DetectiveReport, error) {
	return f.detective, nil
}

func (f *fakeIncidentStore) GetLatestPatch(_ context.Context, _ uuid.UUID) (*domain.Patch, error) {
	return f.latestPatch, nil
}

type fakeAuditReader struct {
	events []domain.AuditEvent
}

func (f *fakeAuditReader) GetByIncident(_ context.Context, _ uuid.UUID, _ int) ([]domain.AuditEvent, error) {
	return f.events, nil
}

type fakeVerificationReader struct {
	result *domain.VerificationResult
}

func (f *fakeVerificationReader) GetLatest(_ context.Context, _ uuid.UUID) (*domain.VerificationResult, error) {
	return f.result, nil
}

type fakePipeline struct {
	mu           sync.Mutex
	processed    []uuid.UUID
	refined      []uuid.UUID
	processErr   *apperrors.AppError
}

func (f *fakePipeline) Process(_ context.Context, incident *domain.Incident) *apperrors.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, incident.ID)
	return f.processErr
}

func (f *fakePipeline) Refine(_ context.Context, incidentID uuid.UUID, _ string) *apperrors.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refined = append(f.refined, incidentID)
	return nil
}

// syncScheduler runs submitted work inline so tests can assert on its
// effects without waiting on a goroutine.
type syncScheduler struct{}

func (syncScheduler) Submit(fn func(ctx context.Context)) {
	fn(context.Background())
}
