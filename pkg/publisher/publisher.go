package publisher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/internal/config"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/shared/logging"
	"github.com/manik3160/NeverDown/pkg/verifier"
	"github.com/sirupsen/logrus"
)

// Input bundles what the Publisher needs to create (or extend) one pull
// request for one patch.
type Input struct {
	IncidentID       uuid.UUID
	OriginalRepoPath string // the non-sanitized clone; distinct from the Verifier's scratch copy
	Patch            *domain.Patch
	Verification     *domain.VerificationResult
	RepoURL          string
	RootCauseSummary string

	// ExistingBranch carries the prior branch name during a refinement
	// iteration (spec §4.6), so the Publisher appends commits to the
	// same PR instead of opening a new one.
	ExistingBranch string
}

// Output is the Publisher's result.
type Output struct {
	PullRequest *domain.PullRequest
	BranchName  string
}

// Publisher drives the git-host client through the apply-and-push
// algorithm of spec §4.5. It never merges.
type Publisher struct {
	client GitHostClient
	cfg    config.GitHostSettings
	allowManualApply bool
	logger *logrus.Logger
}

// New constructs a Publisher against an already-built GitHostClient.
func New(client GitHostClient, cfg config.GitHostSettings, allowManualApply bool, logger *logrus.Logger) *Publisher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Publisher{client: client, cfg: cfg, allowManualApply: allowManualApply, logger: logger}
}

// Run opens (or extends) a pull request carrying in.Patch, or reports a
// typed failure if verification failed outright or the git host rejects
// the request.
func (p *Publisher) Run(ctx context.Context, in Input) (*Output, *apperrors.AppError) {
	if in.Verification.Status != domain.VerificationPassed {
		if in.Verification.Status == domain.VerificationNoTests {
			p.logger.WithFields(logging.NewFields().Component("publisher").Resource("incident", in.IncidentID.String()).Logrus()).
				Warn("creating PR without test verification")
		} else {
			return nil, apperrors.Newf(apperrors.ErrVerificationFail, "cannot create pull request: verification status is %s", in.Verification.Status)
		}
	}

	owner, repo, err := ParseRepoURL(in.RepoURL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation, "could not parse repository URL")
	}
	if !p.repoAllowed(in.RepoURL) {
		return nil, apperrors.Newf(apperrors.ErrUnauthorizedRepo, "repository %s is not in the configured allow-list", in.RepoURL)
	}

	branchName := in.ExistingBranch
	if branchName == "" {
		branchName = GenerateBranchName(in.IncidentID, time.Now().UTC().Format("20060102150405"))
	}

	defaultBranch, aerr := p.getDefaultBranch(ctx, owner, repo)
	if aerr != nil {
		return nil, aerr
	}

	if in.ExistingBranch == "" {
		baseSHA, err := p.client.GetRef(ctx, owner, repo, "heads/"+defaultBranch)
		if err != nil {
			return nil, toGithubError(err)
		}
		if err := p.client.CreateBranch(ctx, owner, repo, CreateBranchRequest{BranchName: branchName, BaseSHA: baseSHA}); err != nil {
			return nil, toGithubError(err)
		}
	}

	if err := p.applyPatchToBranch(ctx, owner, repo, branchName, in.Patch, in.OriginalRepoPath); err != nil {
		return nil, toGithubError(err)
	}

	body := BuildPRBody(in.IncidentID, in.Patch, in.Verification, in.RootCauseSummary)
	labels := DetermineLabels(in.Patch, in.Verification)

	prResp, err := p.client.CreatePullRequest(ctx, owner, repo, CreatePRRequest{
		Title:      PRTitle(in.RootCauseSummary),
		Body:       body,
		HeadBranch: branchName,
		BaseBranch: defaultBranch,
		Labels:     labels,
		Draft:      false,
	})
	if err != nil {
		return nil, toGithubError(err)
	}

	pr := &domain.PullRequest{
		IncidentID:     in.IncidentID,
		PatchID:        in.Patch.ID,
		VerificationID: in.Verification.ID,
		Number:         prResp.GetNumber(),
		URL:            prResp.GetHTMLURL(),
		HeadBranch:     branchName,
		BaseBranch:     defaultBranch,
		Title:          prResp.GetTitle(),
		Body:           prResp.GetBody(),
		Labels:         labels,
		Status:         domain.PRStatusOpen,
	}

	p.logger.WithFields(logging.NewFields().
		Component("publisher").
		Resource("incident", in.IncidentID.String()).
		Logrus()).
		WithField("pr_number", pr.Number).
		WithField("pr_url", pr.URL).
		WithField("auto_merge", false).
		Info("pull request created")

	return &Output{PullRequest: pr, BranchName: branchName}, nil
}

func (p *Publisher) getDefaultBranch(ctx context.Context, owner, repo string) (string, *apperrors.AppError) {
	branch, err := p.client.GetDefaultBranch(ctx, owner, repo)
	if err != nil {
		return "", toGithubError(err)
	}
	return branch, nil
}

// applyPatchToBranch applies in.Patch in place inside the clone at
// originalRepoPath (using ManualApply when verifier.ApplyPatch fails and the
// fallback is allowed, and returning an invalid_patch error when it is
// not) and pushes the resulting file contents to branch, one commit per
// file (spec §4.5 step 3). Deletions are skipped; a future iteration can
// add an explicit delete-file RPC.
func (p *Publisher) applyPatchToBranch(ctx context.Context, owner, repo, branch string, patch *domain.Patch, originalRepoPath string) error {
	if err := ensureGitBaseline(originalRepoPath); err != nil {
		p.logger.WithError(err).Warn("failed to establish git baseline, continuing best-effort")
	}

	applied := verifier.ApplyPatch(originalRepoPath, patch.DiffText)
	if !applied && !p.allowManualApply {
		return apperrors.New(apperrors.ErrInvalidPatch, "patch could not be applied and the manual-apply fallback is disabled")
	}
	if !applied && p.allowManualApply {
		originals := make(map[string]string, len(patch.Files))
		for _, fc := range patch.Files {
			if fc.Action == domain.FileActionDeleted {
				continue
			}
			full := filepath.Join(originalRepoPath, fc.Path)
			content, err := os.ReadFile(full)
			if err != nil {
				continue
			}
			originals[fc.Path] = string(content)
		}
		updated := ManualApply(patch.DiffText, originals)
		for path, content := range updated {
			full := filepath.Join(originalRepoPath, path)
			_ = os.WriteFile(full, []byte(content), 0o644)
		}
	}

	for _, fc := range patch.Files {
		if fc.Action == domain.FileActionDeleted {
			continue
		}
		full := filepath.Join(originalRepoPath, fc.Path)
		content, err := os.ReadFile(full)
		if err != nil {
			p.logger.WithField("path", fc.Path).Warn("file not found after patch application, skipping")
			continue
		}

		if err := p.client.PushFile(ctx, owner, repo, PushFileRequest{
			Branch:  branch,
			Path:    fc.Path,
			Content: string(content),
			Message: "[NeverDown] Apply fix to " + fc.Path,
		}); err != nil {
			p.logger.WithField("path", fc.Path).WithError(err).Warn("failed to push file")
		}
	}
	return nil
}

// repoAllowed reports whether repoURL is present in the configured
// allow-list, comparing canonicalised identifiers so protocol and case
// differences don't cause a false rejection (DESIGN.md Open Question 2).
// An empty allow-list means "allow all".
func (p *Publisher) repoAllowed(repoURL string) bool {
	if len(p.cfg.AllowedRepos) == 0 {
		return true
	}
	canon := CanonicalizeRepoURL(repoURL)
	for _, allowed := range p.cfg.AllowedRepos {
		if CanonicalizeRepoURL(allowed) == canon {
			return true
		}
	}
	return false
}

func toGithubError(err error) *apperrors.AppError {
	if ae, ok := err.(*apperrors.AppError); ok {
		return ae
	}
	return apperrors.Wrap(err, apperrors.ErrGithubAPIError, "git host request failed")
}
