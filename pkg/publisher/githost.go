// Package publisher drives the git-host client and the apply-and-push
// algorithm that turns a validated patch into exactly one pull request per
// (incident, iteration), per spec §4.5. It never merges.
package publisher

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/go-github/v62/github"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/internal/config"
)

// CreateBranchRequest names a branch and the SHA it should start from.
type CreateBranchRequest struct {
	BranchName string
	BaseSHA    string
}

// PushFileRequest is one create-or-update-file RPC.
type PushFileRequest struct {
	Branch  string
	Path    string
	Content string
	Message string
}

// CreatePRRequest describes a pull request to open.
type CreatePRRequest struct {
	Title      string
	Body       string
	HeadBranch string
	BaseBranch string
	Labels     []string
	Draft      bool
}

// GitHostClient is the contract the Publisher needs from a git host:
// resolve the default branch, resolve a ref's SHA, create a branch
// idempotently, create-or-update a file, open a PR, label it, and fetch
// it back. Modelled as an interface so the Publisher can be driven by a
// fake in tests without touching the network (spec §4.5).
type GitHostClient interface {
	GetDefaultBranch(ctx context.Context, owner, repo string) (string, error)
	GetRef(ctx context.Context, owner, repo, ref string) (string, error)
	CreateBranch(ctx context.Context, owner, repo string, req CreateBranchRequest) error
	PushFile(ctx context.Context, owner, repo string, req PushFileRequest) error
	CreatePullRequest(ctx context.Context, owner, repo string, req CreatePRRequest) (*github.PullRequest, error)
	AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
}

// githubClient is the production GitHostClient, backed by go-github and a
// bearer token loaded from configuration. It never auto-merges.
type githubClient struct {
	gh *github.Client
}

// NewGitHostClient builds a GitHostClient against api.github.com using the
// configured app token.
func NewGitHostClient(cfg config.GitHostSettings) GitHostClient {
	gh := github.NewClient(nil).WithAuthToken(string(cfg.AppToken))
	return &githubClient{gh: gh}
}

func (c *githubClient) GetDefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrGithubAPIError, "failed to get repository info")
	}
	return r.GetDefaultBranch(), nil
}

func (c *githubClient) GetRef(ctx context.Context, owner, repo, ref string) (string, error) {
	r, _, err := c.gh.Git.GetRef(ctx, owner, repo, ref)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrGithubAPIError, "failed to get ref")
	}
	return r.GetObject().GetSHA(), nil
}

func (c *githubClient) CreateBranch(ctx context.Context, owner, repo string, req CreateBranchRequest) error {
	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + req.BranchName),
		Object: &github.GitObject{SHA: github.String(req.BaseSHA)},
	}
	_, resp, err := c.gh.Git.CreateRef(ctx, owner, repo, ref)
	if err != nil {
		if resp != nil && resp.StatusCode == 422 {
			// Branch already exists: idempotent, not an error (spec §4.5).
			return nil
		}
		return apperrors.Wrap(err, apperrors.ErrGithubAPIError, "failed to create branch")
	}
	return nil
}

func (c *githubClient) PushFile(ctx context.Context, owner, repo string, req PushFileRequest) error {
	var sha *string
	if existing, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, req.Path, &github.RepositoryContentGetOptions{Ref: req.Branch}); err == nil && existing != nil {
		sha = existing.SHA
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(req.Message),
		Content: []byte(req.Content),
		Branch:  github.String(req.Branch),
		SHA:     sha,
	}
	if _, _, err := c.gh.Repositories.UpdateFile(ctx, owner, repo, req.Path, opts); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrGithubAPIError, "failed to push file %s", req.Path)
	}
	return nil
}

func (c *githubClient) CreatePullRequest(ctx context.Context, owner, repo string, req CreatePRRequest) (*github.PullRequest, error) {
	newPR := &github.NewPullRequest{
		Title: github.String(req.Title),
		Body:  github.String(req.Body),
		Head:  github.String(req.HeadBranch),
		Base:  github.String(req.BaseBranch),
		Draft: github.Bool(req.Draft),
	}
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, newPR)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGithubAPIError, "failed to create pull request")
	}
	if len(req.Labels) > 0 {
		if err := c.AddLabels(ctx, owner, repo, pr.GetNumber(), req.Labels); err != nil {
			return pr, err
		}
	}
	return pr, nil
}

func (c *githubClient) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	if _, _, err := c.gh.Issues.AddLabelsToIssue(ctx, owner, repo, number, labels); err != nil {
		return apperrors.Wrap(err, apperrors.ErrGithubAPIError, "failed to add labels")
	}
	return nil
}

func (c *githubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGithubAPIError, "failed to get pull request")
	}
	return pr, nil
}

var repoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`github\.com[:/]([^/]+)/([^/.]+)`),
	regexp.MustCompile(`^([^/]+)/([^/]+)$`),
}

// ParseRepoURL extracts (owner, repo) from an HTTPS, SSH, or "owner/repo"
// form of a GitHub URL (spec §4.5).
func ParseRepoURL(url string) (owner, repo string, err error) {
	url = strings.TrimSpace(url)
	for _, pattern := range repoURLPatterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return m[1], strings.TrimSuffix(m[2], ".git"), nil
		}
	}
	return "", "", fmt.Errorf("could not parse git host URL: %s", url)
}

// CanonicalizeRepoURL normalises a repo identifier so that "https://",
// "git@", trailing slashes, and case differences do not defeat matching
// between a webhook payload and a stored incident (DESIGN.md Open
// Question 2: the distilled spec's matching rule is fragile across
// protocol forms, so this folds everything down to "owner/repo").
func CanonicalizeRepoURL(url string) string {
	owner, repo, err := ParseRepoURL(url)
	if err != nil {
		return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(url), "/"))
	}
	return strings.ToLower(owner + "/" + repo)
}
