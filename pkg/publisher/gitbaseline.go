package publisher

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const gitCmdTimeout = 30 * time.Second

// ensureGitBaseline makes sure repoPath has a `.git` directory with an
// initial commit, so that `git apply` has something to diff against
// (spec §4.5 step 1). A repo that already has `.git` is left untouched.
func ensureGitBaseline(repoPath string) error {
	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err == nil {
		return nil
	}

	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "neverdown@localhost"},
		{"config", "user.name", "NeverDown"},
		{"add", "-A"},
		{"commit", "--allow-empty", "-m", "NeverDown baseline"},
	} {
		ctx, cancel := context.WithTimeout(context.Background(), gitCmdTimeout)
		cmd := exec.CommandContext(ctx, "git", args...)
		cmd.Dir = repoPath
		err := cmd.Run()
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}
