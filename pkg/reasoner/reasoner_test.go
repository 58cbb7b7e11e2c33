package reasoner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/internal/config"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/reasoner/llm"
)

type scriptedClient struct {
	responses []llm.Response
	calls     int
}

func (c *scriptedClient) Chat(ctx context.Context, systemPrompt, userPrompt string) (llm.Response, error) {
	r := c.responses[c.calls]
	c.calls++
	return r, nil
}

func wellFormedDiffResponse(confidence string, repoDir string) string {
	return "## Root Cause\nTypo.\n\n## Explanation\nDetails.\n\n## Confidence\n" + confidence + `

## Assumptions
- none

## Fix
` + "```diff" + `
--- a/x.py
+++ b/x.py
@@ -1,1 +1,1 @@
-a
+aa
` + "```" + `

## Risks
none
`
}

func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.py"), []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestReasoner_SucceedsOnFirstValidResponse(t *testing.T) {
	repo := setupRepo(t)
	client := &scriptedClient{responses: []llm.Response{
		{Content: wellFormedDiffResponse("0.9", repo)},
	}}
	r := New(client, config.ReasonerSettings{MaxRetries: 3, ConfidenceThreshold: 0.7}, "test-model", nil)

	out, aerr := r.Run(context.Background(), Input{
		IncidentID:      uuid.New(),
		SanitizedRepo:   repo,
		DetectiveReport: &domain.DetectiveReport{},
	})
	if aerr != nil {
		t.Fatalf("expected success, got error: %v", aerr)
	}
	if out.Patch.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", out.Patch.Confidence)
	}
	if client.calls != 1 {
		t.Errorf("expected exactly one LLM call, got %d", client.calls)
	}
}

func TestReasoner_LowConfidenceIsTerminalNotRetried(t *testing.T) {
	repo := setupRepo(t)
	client := &scriptedClient{responses: []llm.Response{
		{Content: wellFormedDiffResponse("0.3", repo)},
		{Content: wellFormedDiffResponse("0.9", repo)},
	}}
	r := New(client, config.ReasonerSettings{MaxRetries: 3, ConfidenceThreshold: 0.7}, "test-model", nil)

	_, aerr := r.Run(context.Background(), Input{
		IncidentID:      uuid.New(),
		SanitizedRepo:   repo,
		DetectiveReport: &domain.DetectiveReport{},
	})
	if aerr == nil {
		t.Fatal("expected low-confidence failure")
	}
	if aerr.Type != apperrors.ErrLowConfidence {
		t.Errorf("expected ErrLowConfidence, got %s", aerr.Type)
	}
	if client.calls != 1 {
		t.Errorf("expected no retry on low confidence, got %d calls", client.calls)
	}
}

func TestReasoner_RetriesOnInvalidDiffThenSucceeds(t *testing.T) {
	repo := setupRepo(t)
	client := &scriptedClient{responses: []llm.Response{
		{Content: "## Root Cause\nx\n\n## Confidence\n0.9\n\n## Fix\n```diff\nnot a real diff\n```\n"},
		{Content: wellFormedDiffResponse("0.9", repo)},
	}}
	r := New(client, config.ReasonerSettings{MaxRetries: 3, ConfidenceThreshold: 0.7}, "test-model", nil)

	out, aerr := r.Run(context.Background(), Input{
		IncidentID:      uuid.New(),
		SanitizedRepo:   repo,
		DetectiveReport: &domain.DetectiveReport{},
	})
	if aerr != nil {
		t.Fatalf("expected eventual success, got error: %v", aerr)
	}
	if client.calls != 2 {
		t.Errorf("expected a retry after invalid diff, got %d calls", client.calls)
	}
	if out.Patch.RetryCount != 1 {
		t.Errorf("expected retry count 1, got %d", out.Patch.RetryCount)
	}
}
