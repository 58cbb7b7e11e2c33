package reasoner

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/manik3160/NeverDown/pkg/domain"
)

func fileExists(repoPath, rel string) bool {
	_, err := os.Stat(filepath.Join(repoPath, rel))
	return err == nil
}

var (
	rootCauseRe   = regexp.MustCompile(`(?s)## Root Cause\s*\n(.+?)(?:\n##|\z)`)
	explanationRe = regexp.MustCompile(`(?s)## Explanation\s*\n(.+?)(?:\n##|\z)`)
	confidenceRe  = regexp.MustCompile(`## Confidence\s*\n\s*([0-9.]+)`)
	assumptionsRe = regexp.MustCompile(`(?s)## Assumptions\s*\n(.+?)(?:\n##|\z)`)
	fixRe         = regexp.MustCompile(`(?s)## Fix\s*\n(.+?)(?:\n##|\z)`)
	risksRe       = regexp.MustCompile(`(?s)## Risks\s*\n(.+?)(?:\n##|\z)`)
	diffBlockRe   = regexp.MustCompile("(?s)```(?:diff)?\\s*\\n(.*?)```")
)

// ParsedResponse is the structured shape extracted from raw model text.
type ParsedResponse struct {
	RootCauseSummary string
	Explanation      string
	Confidence       float64
	Assumptions      []string
	Diff             string
	Risks            string
	ParseErrors      []string
}

// ParseResponse extracts the headed sections of the model's response per
// the fixed output format given to it in SystemPrompt.
func ParseResponse(response string) ParsedResponse {
	var out ParsedResponse

	if m := rootCauseRe.FindStringSubmatch(response); m != nil {
		out.RootCauseSummary = strings.TrimSpace(m[1])
	}
	if m := explanationRe.FindStringSubmatch(response); m != nil {
		out.Explanation = strings.TrimSpace(m[1])
	}
	if m := confidenceRe.FindStringSubmatch(response); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			out.ParseErrors = append(out.ParseErrors, "could not parse confidence value")
		} else {
			out.Confidence = clampConfidence(v)
		}
	}
	if m := assumptionsRe.FindStringSubmatch(response); m != nil {
		for _, line := range strings.Split(m[1], "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "- "):
				out.Assumptions = append(out.Assumptions, strings.TrimPrefix(line, "- "))
			case line != "" && !strings.HasPrefix(line, "#"):
				out.Assumptions = append(out.Assumptions, line)
			}
		}
	}
	if m := fixRe.FindStringSubmatch(response); m != nil {
		if blocks := diffBlockRe.FindStringSubmatch(m[1]); blocks != nil {
			out.Diff = strings.TrimSpace(blocks[1])
		} else {
			out.Diff = strings.TrimSpace(m[1])
		}
	}
	if m := risksRe.FindStringSubmatch(response); m != nil {
		out.Risks = strings.TrimSpace(m[1])
	}

	return out
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var (
	gitDiffHeaderRe = regexp.MustCompile(`(?m)^diff --git a/(.+) b/(.+)$`)
	fileHeaderRe    = regexp.MustCompile(`(?m)^(?:---|\+\+\+) (?:a/|b/)?(.+)$`)
	hunkHeaderRe    = regexp.MustCompile(`(?m)^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
)

// ValidatedDiff is the result of structurally validating a unified diff.
type ValidatedDiff struct {
	RawDiff          string
	Files            []domain.FileChange
	IsValid          bool
	ValidationErrors []string
}

// DiffValidator checks a candidate diff against the sanitized repository
// it is meant to apply to (file-existence checks are skipped when
// repoPath is empty).
type DiffValidator struct {
	RepoPath string
}

// Validate runs the structural checks of §4.3: hunk headers present, file
// headers present, at least one file identified, referenced files exist,
// and hunk line counts are not wildly inconsistent with their content.
func (v DiffValidator) Validate(diff string) ValidatedDiff {
	if strings.TrimSpace(diff) == "" {
		return ValidatedDiff{RawDiff: diff, IsValid: false, ValidationErrors: []string{"Empty diff content"}}
	}

	var errs []string
	if !hunkHeaderRe.MatchString(diff) {
		errs = append(errs, "No hunk headers (@@ ... @@) found in diff")
	}
	if !fileHeaderRe.MatchString(diff) {
		errs = append(errs, "No file headers (--- / +++) found in diff")
	}

	files := parseFilesFromDiff(diff)
	if len(files) == 0 {
		errs = append(errs, "Could not identify any files in diff")
	}

	if v.RepoPath != "" {
		for _, f := range files {
			if f.Action == domain.FileActionAdded || f.Action == domain.FileActionDeleted {
				continue
			}
			if !fileExists(v.RepoPath, f.Path) {
				errs = append(errs, "File not found: "+f.Path)
			}
		}
	}

	errs = append(errs, validateHunks(diff)...)

	return ValidatedDiff{RawDiff: diff, Files: files, IsValid: len(errs) == 0, ValidationErrors: errs}
}

func parseFilesFromDiff(diff string) []domain.FileChange {
	var out []domain.FileChange

	if headers := gitDiffHeaderRe.FindAllStringSubmatch(diff, -1); len(headers) > 0 {
		for _, h := range headers {
			oldPath, newPath := h[1], h[2]
			var action domain.FileAction
			var path string
			switch {
			case oldPath == "/dev/null":
				action, path = domain.FileActionAdded, newPath
			case newPath == "/dev/null":
				action, path = domain.FileActionDeleted, oldPath
			default:
				action, path = domain.FileActionModified, newPath
			}
			add, del := countChangesForFile(diff, newPath)
			out = append(out, domain.FileChange{Path: path, Action: action, Additions: add, Deletions: del})
		}
		return out
	}

	seen := map[string]bool{}
	for _, m := range fileHeaderRe.FindAllStringSubmatch(diff, -1) {
		path := m[1]
		if path == "/dev/null" || seen[path] {
			continue
		}
		seen[path] = true
		add, del := countChangesForFile(diff, path)
		out = append(out, domain.FileChange{Path: path, Action: domain.FileActionModified, Additions: add, Deletions: del})
	}
	return out
}

func countChangesForFile(diff, path string) (int, int) {
	additions, deletions := 0, 0
	inSection := false
	hasGitHeaders := gitDiffHeaderRe.MatchString(diff)
	for _, line := range strings.Split(diff, "\n") {
		if strings.Contains(line, "+++ b/"+path) || strings.Contains(line, "+++ "+path) {
			inSection = true
			continue
		}
		if strings.HasPrefix(line, "+++ ") && inSection && !strings.Contains(line, path) {
			inSection = false
			continue
		}
		if inSection || !hasGitHeaders {
			switch {
			case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
				additions++
			case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
				deletions++
			}
		}
	}
	return additions, deletions
}

func validateHunks(diff string) []string {
	var errs []string
	lines := strings.Split(diff, "\n")
	var oldCount, newCount int
	inHunk := false
	additionsSeen, deletionsSeen := 0, 0

	flush := func() {
		if !inHunk {
			return
		}
		if deletionsSeen > oldCount*2 {
			errs = append(errs, "Hunk deletions ("+strconv.Itoa(deletionsSeen)+") exceeds expected ("+strconv.Itoa(oldCount)+")")
		}
		if additionsSeen > newCount*2 {
			errs = append(errs, "Hunk additions ("+strconv.Itoa(additionsSeen)+") exceeds expected ("+strconv.Itoa(newCount)+")")
		}
	}

	for _, line := range lines {
		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			oldCount = atoiOr(m[2], 1)
			newCount = atoiOr(m[4], 1)
			inHunk = true
			additionsSeen, deletionsSeen = 0, 0
			continue
		}
		if !inHunk {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			additionsSeen++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			deletionsSeen++
		}
	}
	flush()
	return errs
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// NormalizeDiff trims trailing whitespace per line and collapses leading
// and trailing blank lines, ensuring a single trailing newline.
func NormalizeDiff(diff string) string {
	lines := strings.Split(diff, "\n")
	var normalized []string
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if len(normalized) == 0 && line == "" {
			continue
		}
		normalized = append(normalized, line)
	}
	for len(normalized) > 0 && normalized[len(normalized)-1] == "" {
		normalized = normalized[:len(normalized)-1]
	}
	return strings.Join(normalized, "\n") + "\n"
}
