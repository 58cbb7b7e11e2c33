package detective

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/manik3160/NeverDown/pkg/domain"
)

// CommitInfo is the minimal shape the git-analysis scorer needs.
// ReadRecentCommits fills it by shelling out to `git log` against the
// cloned working tree; tests build it directly as fixtures without a real
// git repository.
type CommitInfo struct {
	ID           string
	Author       string
	Message      string
	FilesChanged []string
	Timestamp    int64
}

// RelevanceScore computes a commit's relevance to a suspect file per the
// scoring rules of §4.2.
func RelevanceScore(suspectPath string, commit CommitInfo) float64 {
	for _, f := range commit.FilesChanged {
		if f == suspectPath {
			return 1.0 // overrides all other scoring
		}
	}

	suspectDir := filepath.Dir(suspectPath)
	suspectParent := filepath.Dir(suspectDir)
	suspectExt := filepath.Ext(suspectPath)

	score := 0.0
	sameDir, sameParent, sameExt := false, false, false
	for _, f := range commit.FilesChanged {
		dir := filepath.Dir(f)
		if dir == suspectDir {
			sameDir = true
		}
		if filepath.Dir(dir) == suspectParent {
			sameParent = true
		}
		if filepath.Ext(f) == suspectExt {
			sameExt = true
		}
	}
	switch {
	case sameDir:
		score = 0.6
	case sameParent:
		score = 0.4
	}
	if sameExt {
		score += 0.2
	}
	if hasTestSourceRelationship(suspectPath, commit.FilesChanged) {
		score += 0.3
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// hasTestSourceRelationship reports whether any changed file is the
// test/source counterpart of suspectPath (test_X <-> X, X_test <-> X).
func hasTestSourceRelationship(suspectPath string, changed []string) bool {
	base := filepath.Base(suspectPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	var candidates []string
	if strings.HasPrefix(stem, "test_") {
		candidates = append(candidates, strings.TrimPrefix(stem, "test_")+ext)
	} else {
		candidates = append(candidates, "test_"+stem+ext, stem+"_test"+ext)
	}
	if strings.HasSuffix(stem, "_test") {
		candidates = append(candidates, strings.TrimSuffix(stem, "_test")+ext)
	}

	for _, f := range changed {
		fb := filepath.Base(f)
		for _, c := range candidates {
			if fb == c {
				return true
			}
		}
	}
	return false
}

// RelevantChanges scores every commit against suspectPath, discards those
// below 0.3, sorts descending, and keeps the top 5 (§4.2).
func RelevantChanges(suspectPath string, commits []CommitInfo) []domain.RecentChange {
	var out []domain.RecentChange
	for _, c := range commits {
		score := RelevanceScore(suspectPath, c)
		if score < 0.3 {
			continue
		}
		out = append(out, domain.RecentChange{
			CommitID:     c.ID,
			Author:       c.Author,
			Message:      c.Message,
			Timestamp:    time.Unix(c.Timestamp, 0).UTC(),
			FilesChanged: c.FilesChanged,
			Relevance:    score,
		})
	}
	sortChangesDescending(out)
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func sortChangesDescending(changes []domain.RecentChange) {
	for i := 1; i < len(changes); i++ {
		for j := i; j > 0 && changes[j].Relevance > changes[j-1].Relevance; j-- {
			changes[j], changes[j-1] = changes[j-1], changes[j]
		}
	}
}

// DedupeBySHA keeps the first occurrence of each commit ID in input order.
func DedupeBySHA(changes []domain.RecentChange) []domain.RecentChange {
	seen := map[string]bool{}
	var out []domain.RecentChange
	for _, c := range changes {
		if seen[c.CommitID] {
			continue
		}
		seen[c.CommitID] = true
		out = append(out, c)
	}
	return out
}
