// Package orchestrator wires the Sanitizer, Detective, Reasoner, Verifier
// and Publisher stages into one state-tracked pipeline per incident (spec
// §4.7), including the feedback-driven refinement loop of §4.6.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/internal/config"
	"github.com/manik3160/NeverDown/pkg/detective"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/metrics"
	"github.com/manik3160/NeverDown/pkg/publisher"
	"github.com/manik3160/NeverDown/pkg/reasoner"
	"github.com/manik3160/NeverDown/pkg/reasoner/llm"
	"github.com/manik3160/NeverDown/pkg/sanitizer"
	"github.com/manik3160/NeverDown/pkg/shared/logging"
	"github.com/manik3160/NeverDown/pkg/verifier"
	"github.com/sirupsen/logrus"
)

// Orchestrator drives one incident through every stage, persisting state
// transitions and audit events as it goes. Its stage fields are the
// already-constructed agents; Orchestrator itself holds no agent-specific
// configuration beyond what New receives.
type Orchestrator struct {
	sanitizer *sanitizer.Sanitizer
	llm       llm.Client
	verifier  *verifier.Verifier
	publisher *publisher.Publisher

	reasonerCfg config.ReasonerSettings
	llmModel    string

	incidents     IncidentStore
	patches       PatchStore
	verifications VerificationStore
	audit         AuditSink

	breakers *breakers

	cfg    *config.Settings
	logger *logrus.Logger
}

// New constructs an Orchestrator from already-built agents and stores.
func New(
	san *sanitizer.Sanitizer,
	llmClient llm.Client,
	reasonerCfg config.ReasonerSettings,
	llmModel string,
	ver *verifier.Verifier,
	pub *publisher.Publisher,
	incidents IncidentStore,
	patches PatchStore,
	verifications VerificationStore,
	audit AuditSink,
	cfg *config.Settings,
	logger *logrus.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Orchestrator{
		sanitizer:     san,
		llm:           llmClient,
		verifier:      ver,
		publisher:     pub,
		reasonerCfg:   reasonerCfg,
		llmModel:      llmModel,
		incidents:     incidents,
		patches:       patches,
		verifications: verifications,
		audit:         audit,
		breakers:      newBreakers(),
		cfg:           cfg,
		logger:        logger,
	}
}

func (o *Orchestrator) fields(incidentID uuid.UUID) logging.Fields {
	return logging.NewFields().Component("orchestrator").IncidentID(incidentID.String())
}

// transition validates and applies a state change, recording the move to
// both the incident store and the audit sink. Invalid transitions return
// a typed error and leave the incident untouched.
func (o *Orchestrator) transition(ctx context.Context, incident *domain.Incident, to domain.State, details string) *apperrors.AppError {
	from := incident.Status
	if aerr := Transition(incident, to, details); aerr != nil {
		return aerr
	}
	if err := o.incidents.Save(ctx, incident); err != nil {
		return apperrors.Wrap(err, apperrors.ErrValidation, "failed to persist state transition")
	}
	o.audit.RecordStateTransition(ctx, incident.ID, from, to, details)
	return nil
}

// fail transitions the incident to FAILED, recording reason as both the
// timeline detail and the incident's ErrorMessage, and returns the
// original error unchanged so callers can propagate it.
func (o *Orchestrator) fail(ctx context.Context, incident *domain.Incident, cause *apperrors.AppError) *apperrors.AppError {
	incident.ErrorMessage = cause.Message
	if aerr := o.transition(ctx, incident, domain.StateFailed, cause.Message); aerr != nil {
		o.logger.WithFields(o.fields(incident.ID).Error(aerr).Logrus()).Error("failed to record FAILED transition")
	}
	o.audit.RecordEvent(ctx, "pipeline.failed", "error", map[string]any{
		"incident_id": incident.ID.String(),
		"error_type":  string(cause.Type),
		"message":     cause.Message,
	})
	metrics.RecordStageError("pipeline", string(cause.Type))
	metrics.RecordResolved("failed")
	return cause
}

// Process runs the full pipeline for a freshly PENDING (or reactivated)
// incident: clone, sanitize, detect, reason, verify, publish. The
// Verifier step itself never aborts the run: a hard Verifier error becomes
// an error-status result that is handed on to the Publisher. The
// Publisher only opens a PR for a passed or no_tests result, so a failed
// or error verification ends the incident in FAILED.
func (o *Orchestrator) Process(ctx context.Context, incident *domain.Incident) *apperrors.AppError {
	metrics.IncrementInFlight()
	defer metrics.DecrementInFlight()

	if aerr := o.transition(ctx, incident, domain.StateProcessing, "pipeline started"); aerr != nil {
		return aerr
	}

	clonePath, err := cloneRepository(ctx, o.cfg.CloneRoot, incident.Repository.URL, incident.ID, o.cfg.Timeouts.Clone)
	if err != nil {
		return o.fail(ctx, incident, apperrors.Wrap(err, apperrors.ErrSanitizationFail, "failed to clone repository"))
	}
	defer cleanupClone(clonePath)

	sanitizeTimer := metrics.NewTimer()
	sanitizedPath, sanReport, halt, aerr := o.sanitizer.Sanitize(clonePath, o.cfg.SanitizedRoot, incident.ID)
	sanitizeTimer.RecordStage("sanitizer")
	if aerr != nil {
		return o.fail(ctx, incident, aerr)
	}
	defer cleanupClone(sanitizedPath)
	if halt != nil {
		o.audit.RecordEvent(ctx, "sanitizer.halted", "critical", map[string]any{
			"incident_id":  incident.ID.String(),
			"secret_count": len(halt.Report.Entries),
		})
		return o.fail(ctx, incident, apperrors.Newf(apperrors.ErrTooManySecrets, "sanitizer halted: %d secrets found", len(halt.Report.Entries)))
	}
	o.logger.WithFields(o.fields(incident.ID).Operation("sanitize").Logrus()).
		WithField("secrets_found", len(sanReport.Entries)).Info("sanitization complete")

	detectiveTimer := metrics.NewTimer()
	report := detective.Analyze(detective.Input{
		IncidentID:    incident.ID,
		Logs:          incident.RawLogs,
		RecentCommits: detective.ReadRecentCommits(ctx, clonePath, detective.DefaultRecentCommitCount),
	})
	detectiveTimer.RecordStage("detective")
	if len(report.Errors) == 0 {
		return o.fail(ctx, incident, apperrors.New(apperrors.ErrDetectiveError, "no errors could be extracted from the provided logs"))
	}
	if len(report.SuspectedFiles) == 0 {
		return o.fail(ctx, incident, apperrors.New(apperrors.ErrDetectiveError, "no suspected files identified"))
	}
	report.IncidentID = incident.ID
	if err := o.incidents.SaveDetectiveReport(ctx, report); err != nil {
		o.logger.WithFields(o.fields(incident.ID).Error(err).Logrus()).Warn("failed to persist detective report")
	}

	reasonerTimer := metrics.NewTimer()
	patchOut, aerr := o.runReasoner(ctx, incident, sanitizedPath, report, nil)
	reasonerTimer.RecordStage("reasoner")
	if aerr != nil {
		return o.fail(ctx, incident, aerr)
	}
	if err := o.patches.Create(ctx, patchOut.Patch); err != nil {
		return o.fail(ctx, incident, apperrors.Wrap(err, apperrors.ErrValidation, "failed to persist patch"))
	}

	verifierTimer := metrics.NewTimer()
	verification := o.runVerifierNonHalting(ctx, incident, sanitizedPath, patchOut.Patch)
	verifierTimer.RecordStage("verifier")
	metrics.RecordSandboxRun(strings.ToLower(string(verification.Status)))
	_ = o.patches.MarkVerified(ctx, patchOut.Patch.ID, verification.Status == domain.VerificationPassed)
	if err := o.verifications.Create(ctx, verification); err != nil {
		o.logger.WithFields(o.fields(incident.ID).Error(err).Logrus()).Warn("failed to persist verification result")
	}

	publisherTimer := metrics.NewTimer()
	output, aerr := o.runPublisher(ctx, incident, clonePath, patchOut, verification, "")
	publisherTimer.RecordStage("publisher")
	if aerr != nil {
		return o.fail(ctx, incident, aerr)
	}

	if err := o.incidents.SetPRBranch(ctx, incident.ID, output.BranchName); err != nil {
		o.logger.WithFields(o.fields(incident.ID).Error(err).Logrus()).Warn("failed to persist PR branch")
	}
	incident.LatestBranch = output.BranchName
	incident.LatestPRURL = output.PullRequest.URL

	if aerr := o.transition(ctx, incident, domain.StateAwaitingReview, fmt.Sprintf("pull request #%d opened", output.PullRequest.Number)); aerr != nil {
		return aerr
	}
	o.audit.RecordEvent(ctx, "publisher.pr_created", "info", map[string]any{
		"incident_id": incident.ID.String(),
		"pr_number":   output.PullRequest.Number,
		"pr_url":      output.PullRequest.URL,
	})
	metrics.RecordResolved("awaiting_review")
	return nil
}

// Refine re-runs Reasoner, Verifier and Publisher against reviewer
// feedback, appending commits to the existing pull request rather than
// opening a new one (spec §4.6). It rejects once FeedbackIterations would
// exceed the configured maximum.
func (o *Orchestrator) Refine(ctx context.Context, incidentID uuid.UUID, feedback string) *apperrors.AppError {
	incident, err := o.incidents.Get(ctx, incidentID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrIncidentNotFound, "incident not found")
	}
	if incident.FeedbackIterations >= o.cfg.Refinement.MaxIterations {
		return apperrors.Newf(apperrors.ErrMaxRetriesExceeded, "refinement iteration limit (%d) reached for incident %s", o.cfg.Refinement.MaxIterations, incident.ID)
	}

	metrics.IncrementInFlight()
	defer metrics.DecrementInFlight()

	if aerr := o.transition(ctx, incident, domain.StateProcessing, "refinement iteration started"); aerr != nil {
		return aerr
	}

	clonePath, err := cloneRepository(ctx, o.cfg.CloneRoot, incident.Repository.URL, incident.ID, o.cfg.Timeouts.Clone)
	if err != nil {
		return o.fail(ctx, incident, apperrors.Wrap(err, apperrors.ErrSanitizationFail, "failed to clone repository for refinement"))
	}
	defer cleanupClone(clonePath)

	sanitizeTimer := metrics.NewTimer()
	sanitizedPath, _, halt, aerr := o.sanitizer.Sanitize(clonePath, o.cfg.SanitizedRoot, incident.ID)
	sanitizeTimer.RecordStage("sanitizer")
	if aerr != nil {
		return o.fail(ctx, incident, aerr)
	}
	defer cleanupClone(sanitizedPath)
	if halt != nil {
		return o.fail(ctx, incident, apperrors.Newf(apperrors.ErrTooManySecrets, "sanitizer halted: %d secrets found", len(halt.Report.Entries)))
	}

	report, err := o.incidents.GetDetectiveReport(ctx, incident.ID)
	if err != nil {
		return o.fail(ctx, incident, apperrors.Wrap(err, apperrors.ErrDetectiveError, "could not reload detective report for refinement"))
	}

	previousDiff, err := o.incidents.GetPreviousPatchDiff(ctx, incident.ID)
	if err != nil {
		o.logger.WithFields(o.fields(incident.ID).Error(err).Logrus()).Warn("no previous patch diff available for refinement")
	}
	evidence := []string{"Reviewer feedback: " + feedback}
	if previousDiff != "" {
		evidence = append(evidence, "Previous patch diff:\n"+truncateDiff(previousDiff, 4000))
	}

	reasonerTimer := metrics.NewTimer()
	patchOut, aerr := o.runReasoner(ctx, incident, sanitizedPath, report, evidence)
	reasonerTimer.RecordStage("reasoner")
	if aerr != nil {
		return o.fail(ctx, incident, aerr)
	}
	if err := o.patches.Create(ctx, patchOut.Patch); err != nil {
		return o.fail(ctx, incident, apperrors.Wrap(err, apperrors.ErrValidation, "failed to persist refined patch"))
	}

	verifierTimer := metrics.NewTimer()
	verification := o.runVerifierNonHalting(ctx, incident, sanitizedPath, patchOut.Patch)
	verifierTimer.RecordStage("verifier")
	metrics.RecordSandboxRun(strings.ToLower(string(verification.Status)))
	_ = o.patches.MarkVerified(ctx, patchOut.Patch.ID, verification.Status == domain.VerificationPassed)
	if err := o.verifications.Create(ctx, verification); err != nil {
		o.logger.WithFields(o.fields(incident.ID).Error(err).Logrus()).Warn("failed to persist verification result")
	}

	publisherTimer := metrics.NewTimer()
	output, aerr := o.runPublisher(ctx, incident, clonePath, patchOut, verification, incident.LatestBranch)
	publisherTimer.RecordStage("publisher")
	if aerr != nil {
		return o.fail(ctx, incident, aerr)
	}

	incident.FeedbackIterations++
	incident.LatestBranch = output.BranchName
	incident.LatestPRURL = output.PullRequest.URL
	if aerr := o.transition(ctx, incident, domain.StateAwaitingReview, "refinement iteration published"); aerr != nil {
		return aerr
	}
	metrics.RecordResolved("awaiting_review")
	metrics.RefinementIterationsTotal.Inc()
	return nil
}

func truncateDiff(diff string, max int) string {
	if len(diff) <= max {
		return diff
	}
	return diff[:max] + "\n... (truncated)"
}

// runReasoner builds a fresh Reasoner against the held LLM client and
// guards the call with the reasoner circuit breaker.
func (o *Orchestrator) runReasoner(ctx context.Context, incident *domain.Incident, sanitizedPath string, report *domain.DetectiveReport, extraEvidence []string) (*reasoner.Output, *apperrors.AppError) {
	if len(extraEvidence) > 0 {
		report = cloneReportWithEvidence(report, extraEvidence)
	}
	r := reasoner.New(o.llm, o.reasonerCfg, o.llmModel, o.logger)
	return guard(o.breakers.reasoner, func() (*reasoner.Output, *apperrors.AppError) {
		return r.Run(ctx, reasoner.Input{
			IncidentID:      incident.ID,
			SanitizedRepo:   sanitizedPath,
			DetectiveReport: report,
		})
	})
}

// cloneReportWithEvidence returns a shallow copy of report with extra
// evidence lines appended, leaving the stored report untouched.
func cloneReportWithEvidence(report *domain.DetectiveReport, extra []string) *domain.DetectiveReport {
	clone := *report
	clone.Evidence = append(append([]string{}, report.Evidence...), extra...)
	return &clone
}

// runVerifierNonHalting runs the Verifier and, on a hard AppError (sandbox
// unavailable, I/O failure — not a test failure), substitutes a synthetic
// error-status result rather than halting the pipeline, matching the
// Python orchestrator's explicit "don't halt, continue to Publisher".
func (o *Orchestrator) runVerifierNonHalting(ctx context.Context, incident *domain.Incident, sanitizedPath string, patch *domain.Patch) *domain.VerificationResult {
	result, aerr := o.verifier.Run(ctx, verifier.Input{
		IncidentID:    incident.ID,
		SanitizedRepo: sanitizedPath,
		Patch:         patch,
	})
	if aerr != nil {
		o.logger.WithFields(o.fields(incident.ID).Operation("verify").Error(aerr).Logrus()).
			Warn("verification failed, publishing unverified patch")
		return &domain.VerificationResult{
			ID:         uuid.New(),
			IncidentID: incident.ID,
			PatchID:    patch.ID,
			Status:     domain.VerificationError,
			Reason:     aerr.Message,
		}
	}
	return result
}

// runPublisher guards the Publisher call with the git-host circuit
// breaker.
func (o *Orchestrator) runPublisher(ctx context.Context, incident *domain.Incident, repoPath string, patchOut *reasoner.Output, verification *domain.VerificationResult, existingBranch string) (*publisher.Output, *apperrors.AppError) {
	return guard(o.breakers.gitHost, func() (*publisher.Output, *apperrors.AppError) {
		return o.publisher.Run(ctx, publisher.Input{
			IncidentID:       incident.ID,
			OriginalRepoPath: repoPath,
			Patch:            patchOut.Patch,
			Verification:     verification,
			RepoURL:          incident.Repository.URL,
			RootCauseSummary: patchOut.RootCauseSummary,
			ExistingBranch:   existingBranch,
		})
	})
}
