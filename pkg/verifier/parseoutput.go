package verifier

import (
	"regexp"
	"strconv"

	"github.com/manik3160/NeverDown/pkg/domain"
)

var (
	pytestLineRe   = regexp.MustCompile(`(\S+::\S+)\s+(PASSED|FAILED|SKIPPED|ERROR)`)
	pytestSummaryRe = regexp.MustCompile(`(\d+) passed`)
	jestPassRe     = regexp.MustCompile(`✓\s+(.+?)\s+\((\d+)\s*ms\)`)
	jestFailRe     = regexp.MustCompile(`✕\s+(.+)`)
	unittestLineRe = regexp.MustCompile(`(\w+)\s+\(([^)]+)\)\s+\.\.\.\s+(ok|FAIL|ERROR|skipped)`)
)

func timeoutResult(result SandboxResult) []domain.TestResult {
	return []domain.TestResult{{
		Name:     "sandbox_timeout",
		Outcome:  domain.TestOutcomeError,
		Duration: result.Duration.Seconds(),
		Message:  "Test execution timed out",
	}}
}

// ParsePytestOutput extracts per-test results from pytest -v output; when
// no per-test lines matched but a passing summary line is present, it
// synthesizes a single aggregate record rather than reporting zero tests.
func ParsePytestOutput(result SandboxResult) []domain.TestResult {
	if result.TimedOut {
		return timeoutResult(result)
	}

	var tests []domain.TestResult
	for _, m := range pytestLineRe.FindAllStringSubmatch(result.Stdout, -1) {
		tests = append(tests, domain.TestResult{Name: m[1], Outcome: pytestOutcome(m[2])})
	}
	if len(tests) == 0 && pytestSummaryRe.MatchString(result.Stdout) {
		tests = append(tests, domain.TestResult{
			Name:     "pytest_summary",
			Outcome:  domain.TestOutcomePassed,
			Duration: result.Duration.Seconds(),
		})
	}
	return tests
}

func pytestOutcome(status string) domain.TestOutcome {
	switch status {
	case "PASSED":
		return domain.TestOutcomePassed
	case "FAILED":
		return domain.TestOutcomeFailed
	case "SKIPPED":
		return domain.TestOutcomeSkipped
	default:
		return domain.TestOutcomeError
	}
}

// ParseJestOutput extracts per-test results from Jest's default reporter
// output.
func ParseJestOutput(result SandboxResult) []domain.TestResult {
	if result.TimedOut {
		return timeoutResult(result)
	}

	var tests []domain.TestResult
	for _, m := range jestPassRe.FindAllStringSubmatch(result.Stdout, -1) {
		ms, _ := strconv.Atoi(m[2])
		tests = append(tests, domain.TestResult{Name: m[1], Outcome: domain.TestOutcomePassed, Duration: float64(ms) / 1000})
	}
	for _, m := range jestFailRe.FindAllStringSubmatch(result.Stdout, -1) {
		tests = append(tests, domain.TestResult{Name: m[1], Outcome: domain.TestOutcomeFailed})
	}
	return tests
}

// ParseUnittestOutput extracts per-test results from `python -m unittest
// discover -v` output.
func ParseUnittestOutput(result SandboxResult) []domain.TestResult {
	if result.TimedOut {
		return timeoutResult(result)
	}

	var tests []domain.TestResult
	for _, m := range unittestLineRe.FindAllStringSubmatch(result.Stdout, -1) {
		tests = append(tests, domain.TestResult{Name: m[2] + "." + m[1], Outcome: unittestOutcome(m[3])})
	}
	return tests
}

func unittestOutcome(status string) domain.TestOutcome {
	switch status {
	case "ok":
		return domain.TestOutcomePassed
	case "FAIL":
		return domain.TestOutcomeFailed
	case "skipped":
		return domain.TestOutcomeSkipped
	default:
		return domain.TestOutcomeError
	}
}
