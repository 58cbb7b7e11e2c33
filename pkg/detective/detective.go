package detective

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/pkg/domain"
)

// Input bundles every raw text source the Detective may be handed for one
// incident; any subset may be empty.
type Input struct {
	IncidentID    uuid.UUID
	Logs          string
	StackTrace    string
	CIOutput      string
	RecentCommits []CommitInfo
}

var libraryPenaltyMarkers = []string{"site-packages", "node_modules", "/usr/lib", "venv/"}

const (
	baseConfidence       = 0.5
	lineNumberBoost      = 0.2
	definiteBugBoost     = 0.2
	libraryPenalty       = 0.3
	recentChangeBoost    = 0.2
	multiErrorBoost      = 0.2
	minConfidence        = 0.1
	maxConfidence        = 1.0
	maxSuspectedFiles    = 10
	maxSuspectedFuncs    = 10
)

var definiteBugKinds = map[string]bool{"nameerror": true, "typeerror": true, "syntaxerror": true, "attributeerror": true}

// Analyze runs the full deterministic pipeline: parse every provided log
// source, categorise the primary error, localize suspect files/functions,
// and score them against recent git history. No language model is ever
// consulted here (spec §4.2).
func Analyze(in Input) *domain.DetectiveReport {
	var errs []domain.ExtractedError
	for _, text := range []string{in.Logs, in.StackTrace, in.CIOutput} {
		if text != "" {
			errs = append(errs, ParseLogs(text)...)
		}
	}

	if len(errs) == 0 {
		return &domain.DetectiveReport{
			IncidentID:      in.IncidentID,
			FailureCategory: domain.CategoryUnknown,
			Evidence:        []string{"No errors found in logs"},
		}
	}

	primary := errs[0]
	category := Categorize(primary)

	suspects := buildSuspectedFiles(errs)
	funcs := buildSuspectedFunctions(errs)

	var allChanges []domain.RecentChange
	for i := range suspects {
		sf := &suspects[i]
		changes := RelevantChanges(sf.Path, in.RecentCommits)
		if len(changes) > 0 {
			sf.Confidence = clamp(sf.Confidence + recentChangeBoost)
			sf.Evidence = append(sf.Evidence, "Recently changed in commit: "+truncate(changes[0].Message, 50))
		}
		allChanges = append(allChanges, changes...)
	}
	allChanges = DedupeBySHA(allChanges)
	sortChangesDescending(allChanges)
	if len(allChanges) > 5 {
		allChanges = allChanges[:5]
	}

	sort.Slice(suspects, func(i, j int) bool { return suspects[i].Confidence > suspects[j].Confidence })

	overall := 0.0
	if len(suspects) > 0 {
		overall = suspects[0].Confidence
	}

	evidence := []string{
		"Found " + strconv.Itoa(len(errs)) + " error(s) in logs",
		"Primary error: " + primary.Kind + ": " + primary.Message,
	}
	if len(suspects) > 0 {
		conf := strconv.FormatFloat(suspects[0].Confidence, 'f', 2, 64)
		evidence = append(evidence, "Top suspect: "+suspects[0].Path+" (confidence: "+conf+")")
	}
	if len(allChanges) > 0 {
		evidence = append(evidence, strconv.Itoa(len(allChanges))+" potentially relevant recent commit(s) found")
	}

	if len(suspects) > maxSuspectedFiles {
		suspects = suspects[:maxSuspectedFiles]
	}
	if len(funcs) > maxSuspectedFuncs {
		funcs = funcs[:maxSuspectedFuncs]
	}

	return &domain.DetectiveReport{
		IncidentID:        in.IncidentID,
		Errors:            errs,
		FailureCategory:   category,
		SuspectedFiles:    suspects,
		SuspectedFuncs:    funcs,
		RecentChanges:     allChanges,
		Evidence:          evidence,
		OverallConfidence: overall,
	}
}

func buildSuspectedFiles(errs []domain.ExtractedError) []domain.SuspectedFile {
	var out []domain.SuspectedFile
	index := map[string]int{}
	for _, e := range errs {
		if e.FilePath == "" {
			continue
		}
		if i, ok := index[e.FilePath]; ok {
			out[i].Confidence = clamp(out[i].Confidence + multiErrorBoost)
			if e.Line != 0 && !containsInt(out[i].LineNumbers, e.Line) {
				out[i].LineNumbers = append(out[i].LineNumbers, e.Line)
			}
			out[i].Evidence = append(out[i].Evidence, e.Kind+": "+e.Message)
			continue
		}
		var lines []int
		if e.Line != 0 {
			lines = append(lines, e.Line)
		}
		index[e.FilePath] = len(out)
		out = append(out, domain.SuspectedFile{
			Path:        e.FilePath,
			Confidence:  fileConfidence(e),
			LineNumbers: lines,
			Evidence:    []string{e.Kind + ": " + e.Message},
		})
	}
	return out
}

// fileConfidence implements the scoring rule of §4.2: base 0.5, +0.2 for a
// known line number, +0.2 for a definite-bug error kind, -0.3 for library
// paths, clamped to [0.1, 1.0].
func fileConfidence(e domain.ExtractedError) float64 {
	c := baseConfidence
	if e.Line != 0 {
		c += lineNumberBoost
	}
	if definiteBugKinds[strings.ToLower(e.Kind)] {
		c += definiteBugBoost
	}
	if e.FilePath != "" && isLibraryPath(e.FilePath) {
		c -= libraryPenalty
	}
	return clamp(c)
}

func clamp(c float64) float64 {
	if c < minConfidence {
		return minConfidence
	}
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}

func buildSuspectedFunctions(errs []domain.ExtractedError) []domain.SuspectedFunction {
	var out []domain.SuspectedFunction
	for _, e := range errs {
		if e.StackText == "" || e.FilePath == "" {
			continue
		}
		if f := extractFunctionFromTrace(e); f != nil {
			out = append(out, *f)
		}
	}
	return out
}

func extractFunctionFromTrace(e domain.ExtractedError) *domain.SuspectedFunction {
	if m := lastMatch(pyFrameRe, e.StackText); m != nil {
		line, _ := strconv.Atoi(m[2])
		return &domain.SuspectedFunction{Name: m[3], File: m[1], StartLine: line, Confidence: 0.8}
	}
	if m := lastMatch(jsFuncFrameRe, e.StackText); m != nil {
		line, _ := strconv.Atoi(m[3])
		return &domain.SuspectedFunction{Name: m[1], File: m[2], StartLine: line, Confidence: 0.8}
	}
	return nil
}

var jsFuncFrameRe = regexp.MustCompile(`at (\w+) \(([^:]+):(\d+)`)

func lastMatch(re *regexp.Regexp, text string) []string {
	all := re.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
