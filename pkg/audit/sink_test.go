package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/sirupsen/logrus"
)

type fakeExecer struct {
	mu    sync.Mutex
	calls []string
	failN int // fail the first N calls, then succeed
}

func (f *fakeExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return pgconn.CommandTag{}, errTransient
	}
	f.calls = append(f.calls, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeExecer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var errTransient = &testError{"transient db error"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSink_RecordStateTransitionFlushesRedacted(t *testing.T) {
	fe := &fakeExecer{}
	s := NewSinkWithInterval(fe, logrus.New(), 20*time.Millisecond)
	incidentID := uuid.New()

	s.RecordStateTransition(context.Background(), incidentID, domain.StatePending, domain.StateProcessing, "started")

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if fe.callCount() != 1 {
		t.Fatalf("expected one flushed insert, got %d", fe.callCount())
	}
}

func TestSink_RecordEventClassifiesCriticalAsSecurityEvent(t *testing.T) {
	fe := &fakeExecer{}
	s := NewSinkWithInterval(fe, logrus.New(), 20*time.Millisecond)

	s.RecordEvent(context.Background(), "sanitizer.halted", "critical", map[string]any{"secret_count": 5})

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if fe.callCount() != 1 {
		t.Fatalf("expected one flushed insert, got %d", fe.callCount())
	}
}

func TestSink_FullBufferDropsWithoutBlocking(t *testing.T) {
	fe := &fakeExecer{}
	s := &Sink{db: fe, logger: logrus.New(), events: make(chan domain.AuditEvent, 1), done: make(chan struct{})}
	// No background run() started: the channel fills and further sends
	// must not block the caller.
	s.enqueue(domain.NewAuditEvent(nil, domain.AuditAgentExecution, domain.AuditSeverityInfo, map[string]any{}))

	done := make(chan struct{})
	go func() {
		s.enqueue(domain.NewAuditEvent(nil, domain.AuditAgentExecution, domain.AuditSeverityInfo, map[string]any{}))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full buffer")
	}
}

func TestSink_NextBatchFlushesAfterTransientFailure(t *testing.T) {
	fe := &fakeExecer{failN: 1}
	s := NewSinkWithInterval(fe, logrus.New(), 20*time.Millisecond)

	s.RecordStateTransition(context.Background(), uuid.New(), domain.StatePending, domain.StateMonitoring, "dormant")
	waitFor(t, time.Second, func() bool { return fe.failN == 0 })

	// The failed batch was dropped (graceful degradation, no retry queue),
	// so a second event on a healthy db still succeeds.
	s.RecordStateTransition(context.Background(), uuid.New(), domain.StatePending, domain.StateMonitoring, "dormant")
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if fe.callCount() != 1 {
		t.Fatalf("expected exactly one successful insert after the transient failure, got %d", fe.callCount())
	}
}
