// Package detective performs deterministic log/diff analysis — no
// language-model call is ever made here (spec §4.2).
package detective

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/manik3160/NeverDown/pkg/domain"
)

var libraryMarkers = []string{"site-packages", "node_modules", "/usr/lib", "venv/", ".venv/"}

var (
	pyTracebackHeader = regexp.MustCompile(`^Traceback \(most recent call last\):`)
	pyFrameRe         = regexp.MustCompile(`^\s*File "([^"]+)", line (\d+), in (\S+)`)
	pyFinalErrRe      = regexp.MustCompile(`^(\w+(?:Error|Exception|Warning)?): (.*)$`)

	jsErrorHeader = regexp.MustCompile(`^(\w*Error)(?::\s*(.*))?$`)
	jsFrameRe     = regexp.MustCompile(`^\s*at\s+\S+\s+\(([^:]+):(\d+):(\d+)\)`)

	genericErrRe  = regexp.MustCompile(`(?i)\b(ERROR|FATAL)\b[:\s]+(.*)`)
	pathLineRe    = regexp.MustCompile(`([\w./\\-]+\.\w+):(\d+)`)
)

// ParseLogs runs the three format recognisers of §4.2 in order and
// returns the errors extracted by whichever recogniser first finds
// file-attributed frames; falls back to the generic line scan otherwise.
func ParseLogs(logText string) []domain.ExtractedError {
	if errs := parsePythonTraceback(logText); len(errs) > 0 {
		return errs
	}
	if errs := parseJSStack(logText); len(errs) > 0 {
		return errs
	}
	return parseGeneric(logText)
}

func parsePythonTraceback(logText string) []domain.ExtractedError {
	lines := strings.Split(logText, "\n")
	var out []domain.ExtractedError
	for i := 0; i < len(lines); i++ {
		if !pyTracebackHeader.MatchString(strings.TrimSpace(lines[i])) {
			continue
		}
		var frames []frame
		j := i + 1
		for ; j < len(lines); j++ {
			m := pyFrameRe.FindStringSubmatch(lines[j])
			if m == nil {
				if strings.HasPrefix(lines[j], " ") || strings.HasPrefix(lines[j], "\t") {
					continue // source line echoed beneath a frame
				}
				break
			}
			line, _ := strconv.Atoi(m[2])
			frames = append(frames, frame{path: m[1], line: line, fn: m[3]})
		}
		if j < len(lines) {
			if m := pyFinalErrRe.FindStringSubmatch(strings.TrimSpace(lines[j])); m != nil {
				f := electFrame(frames)
				e := domain.ExtractedError{Kind: m[1], Message: m[2], StackText: strings.Join(lines[i:min(j+1, len(lines))], "\n")}
				if f != nil {
					e.FilePath = f.path
					e.Line = f.line
				}
				out = append(out, e)
			}
		}
	}
	return out
}

func parseJSStack(logText string) []domain.ExtractedError {
	lines := strings.Split(logText, "\n")
	var out []domain.ExtractedError
	for i := 0; i < len(lines); i++ {
		m := jsErrorHeader.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		var frames []frame
		j := i + 1
		for ; j < len(lines); j++ {
			fm := jsFrameRe.FindStringSubmatch(lines[j])
			if fm == nil {
				break
			}
			line, _ := strconv.Atoi(fm[2])
			frames = append(frames, frame{path: fm[1], line: line})
		}
		if len(frames) == 0 {
			continue
		}
		f := electFrame(frames)
		e := domain.ExtractedError{Kind: m[1], Message: m[2], StackText: strings.Join(lines[i:j], "\n")}
		if f != nil {
			e.FilePath = f.path
			e.Line = f.line
		}
		out = append(out, e)
		i = j - 1
	}
	return out
}

func parseGeneric(logText string) []domain.ExtractedError {
	var out []domain.ExtractedError
	for _, line := range strings.Split(logText, "\n") {
		m := genericErrRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		e := domain.ExtractedError{Kind: strings.ToUpper(m[1]), Message: strings.TrimSpace(m[2])}
		if pl := pathLineRe.FindStringSubmatch(line); pl != nil {
			e.FilePath = pl[1]
			n, _ := strconv.Atoi(pl[2])
			e.Line = n
		}
		out = append(out, e)
	}
	return out
}

type frame struct {
	path string
	line int
	fn   string
}

// electFrame picks the most specific user frame: the last frame whose
// path contains none of the library markers; if none exists, the
// innermost frame (last in the list) is used.
func electFrame(frames []frame) *frame {
	if len(frames) == 0 {
		return nil
	}
	for i := len(frames) - 1; i >= 0; i-- {
		if !isLibraryPath(frames[i].path) {
			f := frames[i]
			return &f
		}
	}
	f := frames[len(frames)-1]
	return &f
}

func isLibraryPath(path string) bool {
	lower := strings.ToLower(path)
	for _, marker := range libraryMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// JSONLine is the shape of one JSON-lines log record, interpreted only
// when Level is one of error/critical/fatal/exception.
type JSONLine struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
}

var actionableJSONLevels = map[string]bool{"error": true, "critical": true, "fatal": true, "exception": true}

// IsActionableJSONLevel reports whether a JSON-lines log level should be
// treated as an error for extraction purposes.
func IsActionableJSONLevel(level string) bool {
	return actionableJSONLevels[strings.ToLower(level)]
}
