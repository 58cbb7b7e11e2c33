// Package reasoner calls a language model to propose a minimal unified-diff
// fix from a Detective report, retrying until the patch is structurally
// sound; a valid patch below the configured confidence bar is a terminal
// failure, not a retry (spec §4.3).
package reasoner

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/internal/config"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/reasoner/llm"
	"github.com/manik3160/NeverDown/pkg/shared/logging"
	"github.com/sirupsen/logrus"
)

// Input is everything the Reasoner needs for one incident.
type Input struct {
	IncidentID      uuid.UUID
	SanitizedRepo   string
	DetectiveReport *domain.DetectiveReport
}

// Output bundles the validated patch with the analysis that produced it.
type Output struct {
	Patch            *domain.Patch
	RootCauseSummary string
	Risks            string
	LLMModel         string
}

// Reasoner drives the prompt/call/parse/validate/retry loop.
type Reasoner struct {
	client   llm.Client
	cfg      config.ReasonerSettings
	llmModel string
	logger   *logrus.Logger
}

// New constructs a Reasoner against an already-built LLM client.
func New(client llm.Client, cfg config.ReasonerSettings, llmModel string, logger *logrus.Logger) *Reasoner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reasoner{client: client, cfg: cfg, llmModel: llmModel, logger: logger}
}

// Run executes up to cfg.MaxRetries attempts. A structurally invalid or
// unparseable response is retried with the failure folded back into the
// prompt; a low-confidence-but-valid response is NOT retried and is
// reported as a terminal low_confidence failure (spec §4.3, §8 scenario 4).
func (r *Reasoner) Run(ctx context.Context, in Input) (*Output, *apperrors.AppError) {
	validator := DiffValidator{RepoPath: in.SanitizedRepo}
	prompt := BuildAnalysisPrompt(in.SanitizedRepo, in.DetectiveReport)

	var lastErr error
	maxRetries := r.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := r.client.Chat(ctx, SystemPrompt, prompt)
		if err != nil {
			lastErr = err
			r.logger.WithFields(logging.NewFields().Component("reasoner").Resource("incident", in.IncidentID.String()).Error(err).Logrus()).
				Warn("LLM call failed")
			continue
		}

		parsed := ParseResponse(resp.Content)
		if len(parsed.ParseErrors) > 0 {
			prompt = BuildRetryPrompt(prompt, resp.Content, "Parse errors: "+strings.Join(parsed.ParseErrors, ", "))
			continue
		}
		if parsed.Diff == "" {
			prompt = BuildRetryPrompt(prompt, resp.Content, "No diff/patch provided in response")
			continue
		}

		validated := validator.Validate(parsed.Diff)
		if !validated.IsValid {
			prompt = BuildRetryPrompt(prompt, resp.Content, "Invalid diff: "+strings.Join(validated.ValidationErrors, ", "))
			continue
		}

		if parsed.Confidence < r.cfg.ConfidenceThreshold {
			return nil, apperrors.Newf(apperrors.ErrLowConfidence,
				"confidence %.2f below threshold %.2f", parsed.Confidence, r.cfg.ConfidenceThreshold).
				WithDetails(parsed.RootCauseSummary)
		}

		patch := &domain.Patch{
			ID:          uuid.New(),
			IncidentID:  in.IncidentID,
			DiffText:    NormalizeDiff(parsed.Diff),
			Reasoning:   parsed.Explanation,
			Confidence:  parsed.Confidence,
			Assumptions: parsed.Assumptions,
			Files:       validated.Files,
			Usage:       resp.Usage,
			RetryCount:  attempt,
		}

		return &Output{Patch: patch, RootCauseSummary: parsed.RootCauseSummary, Risks: parsed.Risks, LLMModel: r.llmModel}, nil
	}

	if lastErr != nil {
		return nil, apperrors.Wrapf(lastErr, apperrors.ErrLLMError, "LLM call failed after %d attempts", maxRetries)
	}
	return nil, apperrors.Newf(apperrors.ErrReasonerError, "failed to produce a valid patch after %d attempts", maxRetries)
}
