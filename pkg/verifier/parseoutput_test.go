package verifier

import (
	"testing"
	"time"

	"github.com/manik3160/NeverDown/pkg/domain"
)

func TestParsePytestOutput_MixedResults(t *testing.T) {
	out := SandboxResult{Stdout: "tests/test_orders.py::test_total PASSED\ntests/test_orders.py::test_tax FAILED\n"}
	tests := ParsePytestOutput(out)
	if len(tests) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(tests))
	}
	if tests[0].Outcome != domain.TestOutcomePassed || tests[1].Outcome != domain.TestOutcomeFailed {
		t.Errorf("unexpected outcomes: %+v", tests)
	}
}

func TestParsePytestOutput_SummaryFallback(t *testing.T) {
	out := SandboxResult{Stdout: "==== 5 passed in 1.2s ====\n"}
	tests := ParsePytestOutput(out)
	if len(tests) != 1 || tests[0].Name != "pytest_summary" {
		t.Fatalf("expected synthetic summary result, got %+v", tests)
	}
}

func TestParsePytestOutput_Timeout(t *testing.T) {
	out := SandboxResult{TimedOut: true, Duration: 5 * time.Second}
	tests := ParsePytestOutput(out)
	if len(tests) != 1 || tests[0].Outcome != domain.TestOutcomeError {
		t.Fatalf("expected synthetic timeout error result, got %+v", tests)
	}

	result := domain.VerificationResult{Tests: tests}
	result.Aggregate()
	if result.Status != domain.VerificationError {
		t.Fatalf("expected aggregated status %q for a sandbox timeout, got %q", domain.VerificationError, result.Status)
	}
}

func TestParseJestOutput_PassAndFail(t *testing.T) {
	out := SandboxResult{Stdout: "✓ adds numbers (5 ms)\n✕ subtracts numbers\n"}
	tests := ParseJestOutput(out)
	if len(tests) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(tests))
	}
	if tests[0].Outcome != domain.TestOutcomePassed || tests[1].Outcome != domain.TestOutcomeFailed {
		t.Errorf("unexpected outcomes: %+v", tests)
	}
}

func TestParseUnittestOutput_OkAndFail(t *testing.T) {
	out := SandboxResult{Stdout: "test_total (tests.test_orders.OrdersTest) ... ok\ntest_tax (tests.test_orders.OrdersTest) ... FAIL\n"}
	tests := ParseUnittestOutput(out)
	if len(tests) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(tests))
	}
	if tests[0].Name != "tests.test_orders.OrdersTest.test_total" {
		t.Errorf("unexpected test name: %s", tests[0].Name)
	}
}
