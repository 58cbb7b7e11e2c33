package publisher

import (
	"regexp"
	"strings"
)

var (
	manualFileHeaderRe = regexp.MustCompile(`^\+\+\+ b/(.+)$`)
	manualHunkHeaderRe = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+\d+(?:,\d+)? @@`)
)

type diffHunk struct {
	removed []string
	added   []string
}

type diffFileEdit struct {
	path  string
	hunks []diffHunk
}

// parseDiffForManualApply walks a unified diff into per-file,
// per-hunk removed/added line bags, ignoring context lines. Used only by
// the manual-apply fallback, which reasons about whole removed/added
// blocks rather than line positions.
func parseDiffForManualApply(diffText string) []diffFileEdit {
	var files []diffFileEdit
	var current *diffFileEdit
	var hunk *diffHunk

	flushHunk := func() {
		if current != nil && hunk != nil {
			current.hunks = append(current.hunks, *hunk)
			hunk = nil
		}
	}
	flushFile := func() {
		flushHunk()
		if current != nil {
			files = append(files, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(diffText, "\n") {
		if m := manualFileHeaderRe.FindStringSubmatch(line); m != nil {
			flushFile()
			current = &diffFileEdit{path: m[1]}
			continue
		}
		if manualHunkHeaderRe.MatchString(line) {
			flushHunk()
			hunk = &diffHunk{}
			continue
		}
		if current == nil || hunk == nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			hunk.removed = append(hunk.removed, line[1:])
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			hunk.added = append(hunk.added, line[1:])
		}
	}
	flushFile()
	return files
}

// manualApplyFile applies one file's hunks to content using the
// structural fallback of spec §4.5 step 2: first try a whole-block text
// substitution of the joined removed lines by the joined added lines;
// if that block cannot be found verbatim, fall back to removing each
// removed line individually and appending the added lines once, a
// best-effort insertion rather than a positional one.
func manualApplyFile(content string, edit diffFileEdit) string {
	for _, h := range edit.hunks {
		if len(h.removed) == 0 && len(h.added) == 0 {
			continue
		}
		removedBlock := strings.Join(h.removed, "\n")
		addedBlock := strings.Join(h.added, "\n")

		if removedBlock != "" && strings.Contains(content, removedBlock) {
			content = strings.Replace(content, removedBlock, addedBlock, 1)
			continue
		}

		for _, rl := range h.removed {
			content = strings.Replace(content, rl+"\n", "", 1)
		}
		if addedBlock != "" {
			content = strings.TrimRight(content, "\n") + "\n" + addedBlock + "\n"
		}
	}
	return content
}

// ManualApply performs the structural manual-apply fallback over an
// already-materialised set of file contents, returning the updated
// contents keyed by path. It never touches disk itself; callers own
// reading the original content and writing the result back.
func ManualApply(diffText string, originalContents map[string]string) map[string]string {
	result := make(map[string]string, len(originalContents))
	for path, content := range originalContents {
		result[path] = content
	}
	for _, edit := range parseDiffForManualApply(diffText) {
		original, ok := result[edit.path]
		if !ok {
			continue
		}
		result[edit.path] = manualApplyFile(original, edit)
	}
	return result
}
