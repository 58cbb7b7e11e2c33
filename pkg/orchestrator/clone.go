package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// cloneRepository clones repoURL into a fresh directory under cloneRoot
// named after incidentID, removing any stale directory from a prior run
// first (spec §5: a freshly cloned tree is exclusively owned by the
// pipeline task and removed on exit). The clone keeps full history
// (no --depth) since the Detective's git-analysis pass (spec §4.2) needs
// `git log`/`git diff-tree` against real commits.
func cloneRepository(ctx context.Context, cloneRoot, repoURL string, incidentID uuid.UUID, timeout time.Duration) (string, error) {
	dest := filepath.Join(cloneRoot, "repo-"+incidentID.String())
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("clean stale clone directory: %w", err)
	}
	if err := os.MkdirAll(cloneRoot, 0o755); err != nil {
		return "", fmt.Errorf("create clone root: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cloneCtx, "git", "clone", repoURL, dest)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("git clone failed: %w (%s)", err, string(out))
	}
	return dest, nil
}

// cleanupClone removes a clone directory, ignoring errors; called from
// pipeline teardown regardless of pipeline outcome.
func cleanupClone(path string) {
	if path == "" {
		return
	}
	_ = os.RemoveAll(path)
}
