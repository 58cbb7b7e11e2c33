package detective

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultRecentCommitCount is spec §4.2's "most recent N commits (default
// 10)".
const DefaultRecentCommitCount = 10

// ReadRecentCommits shells out to `git log` against repoPath and returns
// the most recent count commits with their changed-file lists, porting
// diff_analyzer.py's DiffAnalyzer.get_recent_commits/_get_commit_files. A
// non-git directory or any git failure yields nil rather than an error, matching the original's "warn and return empty" degradation —
// the Detective still runs on log text alone.
func ReadRecentCommits(ctx context.Context, repoPath string, count int) []CommitInfo {
	if count <= 0 {
		count = DefaultRecentCommitCount
	}

	out, err := exec.CommandContext(ctx, "git", "-C", repoPath, "log",
		"-n"+strconv.Itoa(count), "--format=%H|%an|%ae|%at|%s").Output()
	if err != nil {
		return nil
	}

	var commits []CommitInfo
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 5)
		if len(parts) < 5 {
			continue
		}
		sha, author, _, timestampRaw, message := parts[0], parts[1], parts[2], parts[3], parts[4]
		timestamp, _ := strconv.ParseInt(timestampRaw, 10, 64)
		commits = append(commits, CommitInfo{
			ID:           sha,
			Author:       author,
			Message:      message,
			Timestamp:    timestamp,
			FilesChanged: commitFiles(ctx, repoPath, sha),
		})
	}
	return commits
}

// commitFiles lists the files touched by sha, porting _get_commit_files.
func commitFiles(ctx context.Context, repoPath, sha string) []string {
	out, err := exec.CommandContext(ctx, "git", "-C", repoPath, "diff-tree",
		"--no-commit-id", "--name-only", "-r", sha).Output()
	if err != nil {
		return nil
	}
	var files []string
	for _, f := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}
