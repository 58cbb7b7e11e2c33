// Package verifier applies a candidate patch to a scratch copy of the
// sanitized repository and runs its test suite inside a locked-down Docker
// sandbox, reporting pass/fail per spec §4.4.
package verifier

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/shared/logging"
	"github.com/sirupsen/logrus"
)

// Input bundles what the Verifier needs for one patch.
type Input struct {
	IncidentID    uuid.UUID
	SanitizedRepo string
	Patch         *domain.Patch
}

// Verifier drives the apply/detect/run/aggregate pipeline.
type Verifier struct {
	sandbox *Sandbox
	logger  *logrus.Logger
}

// New constructs a Verifier against an already-built Sandbox.
func New(sandbox *Sandbox, logger *logrus.Logger) *Verifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &Verifier{sandbox: sandbox, logger: logger}
}

// Run applies the patch to a scratch copy of repoPath, runs the detected
// test framework inside the sandbox, and returns an aggregated
// VerificationResult. The scratch copy is always cleaned up.
func (v *Verifier) Run(ctx context.Context, in Input) (*domain.VerificationResult, *apperrors.AppError) {
	if _, err := os.Stat(in.SanitizedRepo); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrVerificationFail, "sanitized repository path does not exist")
	}

	if !v.sandbox.Available(ctx) {
		return nil, apperrors.New(apperrors.ErrSandboxError, "Docker is not available for sandbox execution")
	}

	scratchRepo, err := os.MkdirTemp("", "neverdown-verify-")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSandboxError, "failed to create verification scratch directory")
	}
	defer os.RemoveAll(scratchRepo)

	if err := copyTree(in.SanitizedRepo, scratchRepo); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSandboxError, "failed to materialise verification scratch copy")
	}

	result := &domain.VerificationResult{
		ID:         uuid.New(),
		IncidentID: in.IncidentID,
		PatchID:    in.Patch.ID,
	}

	if !ApplyPatch(scratchRepo, in.Patch.DiffText) {
		result.Status = domain.VerificationFailed
		result.Reason = "Patch could not be applied cleanly"
		return result, nil
	}

	framework := DetectFramework(scratchRepo)
	if framework == FrameworkNone {
		v.logger.WithFields(logging.NewFields().Component("verifier").Resource("incident", in.IncidentID.String()).Logrus()).
			Warn("no test framework detected")
		result.Status = domain.VerificationNoTests
		result.Reason = "No tests found or executed"
		return result, nil
	}

	sandboxResult, rerr := v.sandbox.Run(ctx, scratchRepo, RunCommand(framework), RunEnv(framework))
	if rerr != nil {
		return nil, apperrors.Wrap(rerr, apperrors.ErrSandboxError, fmt.Sprintf("sandbox execution failed (%s)", framework))
	}
	if sandboxResult.TimedOut {
		result.Sandbox = &domain.SandboxMetadata{Image: v.sandbox.cfg.Image}
	}

	switch framework {
	case FrameworkPytest:
		result.Tests = ParsePytestOutput(sandboxResult)
	case FrameworkJest:
		result.Tests = ParseJestOutput(sandboxResult)
	case FrameworkUnittest:
		result.Tests = ParseUnittestOutput(sandboxResult)
	}
	if len(result.Tests) > 50 {
		result.Tests = result.Tests[:50]
	}

	result.Aggregate()
	if result.Status == domain.VerificationFailed {
		result.Reason = fmt.Sprintf("%d test(s) failed", result.FailedCount)
	}
	result.Sandbox = &domain.SandboxMetadata{Image: v.sandbox.cfg.Image, ExitCode: sandboxResult.ExitCode}

	return result, nil
}
