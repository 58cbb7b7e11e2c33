package sanitizer

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/shared/errors"
	"github.com/manik3160/NeverDown/pkg/shared/logging"
	"github.com/sirupsen/logrus"
)

var defaultSkipExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".zip": true, ".tar": true, ".gz": true, ".so": true, ".dll": true,
	".exe": true, ".bin": true, ".pdf": true, ".pyc": true,
}

// Config controls one Sanitizer's detection behaviour.
type Config struct {
	EntropyThreshold float64
	MinEntropyLength int
	MaxSecretsHalt   int
	ScanGlobs        []string // empty means "scan all non-skipped"
	SkipGlobs        []string
	ExtraPatterns    []Pattern
}

// Sanitizer strips secrets from a working copy into a physically separate
// sanitized tree (spec §4.1).
type Sanitizer struct {
	cfg      Config
	patterns []Pattern
	logger   *logrus.Logger

	// cache guarantees that the same secret literal produces the same
	// placeholder within one sanitization pass, keyed by
	// "pattern-name:literal-match".
	cache map[string]string
}

// New constructs a Sanitizer with the default pattern registry plus any
// configured extra patterns.
func New(cfg Config, logger *logrus.Logger) *Sanitizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Sanitizer{
		cfg:      cfg,
		patterns: append(DefaultPatterns(), cfg.ExtraPatterns...),
		logger:   logger,
		cache:    map[string]string{},
	}
}

// HaltForReview signals that too many secrets were found and the incident
// must be halted (spec §4.1's hard stop).
type HaltForReview struct {
	Report *domain.SanitizationReport
}

// Sanitize copies treePath into a fresh sanitized directory under
// sanitizedRoot, replaces every detected secret with its semantic
// placeholder, and returns the sanitized path plus a report. If the
// number of detections exceeds cfg.MaxSecretsHalt, it also returns a
// *HaltForReview (the report is still returned, with Halted set) and the
// caller must treat this as terminal (spec §4.1).
func (s *Sanitizer) Sanitize(treePath, sanitizedRoot string, incidentID uuid.UUID) (string, *domain.SanitizationReport, *HaltForReview, *apperrors.AppError) {
	if _, err := os.Stat(treePath); err != nil {
		return "", nil, nil, apperrors.Wrap(err, apperrors.ErrSanitizationFail, "working tree root is unreadable")
	}

	sanitizedPath := filepath.Join(sanitizedRoot, "sanitized-"+incidentID.String())
	if err := copyTree(treePath, sanitizedPath); err != nil {
		return "", nil, nil, apperrors.Wrap(err, apperrors.ErrSanitizationFail, "failed to materialise sanitized tree")
	}

	report := domain.NewSanitizationReport(incidentID)

	err := filepath.WalkDir(sanitizedPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.WithFields(logging.NewFields().Component("sanitizer").Error(err).Logrus()).Warn("walk error, skipping entry")
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		rel, _ := filepath.Rel(sanitizedPath, path)
		if !s.shouldScan(rel) {
			return nil
		}

		report.TotalFilesScanned++

		if err := s.sanitizeFile(path, rel, report); err != nil {
			s.logger.WithFields(logging.NewFields().Component("sanitizer").Resource("file", rel).Error(err).Logrus()).
				Warn(errors.FailedTo("sanitize file", err).Error())
		}
		return nil
	})
	if err != nil {
		return "", nil, nil, apperrors.Wrap(err, apperrors.ErrSanitizationFail, "failed walking sanitized tree")
	}

	if report.TotalDetections() > s.cfg.MaxSecretsHalt {
		report.Halted = true
		return sanitizedPath, report, &HaltForReview{Report: report}, nil
	}

	return sanitizedPath, report, nil, nil
}

func (s *Sanitizer) shouldScan(rel string) bool {
	for _, g := range s.cfg.SkipGlobs {
		if ok, _ := filepath.Match(g, rel); ok {
			return false
		}
	}
	if defaultSkipExtensions[strings.ToLower(filepath.Ext(rel))] {
		return false
	}
	if len(s.cfg.ScanGlobs) == 0 {
		return true
	}
	for _, g := range s.cfg.ScanGlobs {
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func (s *Sanitizer) sanitizeFile(path, rel string, report *domain.SanitizationReport) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isBinary(data) {
		return nil
	}

	content := string(data)
	isEnvFile := strings.HasSuffix(filepath.Base(rel), ".env") || filepath.Base(rel) == ".env"

	// The pattern/entropy channel runs over every file, .env included —
	// a named secret pattern (e.g. an AWS key) still earns its specific
	// placeholder inside a .env file. The .env special case then runs as
	// an additional fallback pass over whatever the channel left alone,
	// catching secret-sounding KEY=VALUE assignments no pattern matches.
	redacted := s.sanitizeGenericContent(content, rel, report)
	if isEnvFile {
		redacted = s.sanitizeEnvContent(redacted, rel, report)
	}

	if redacted == content {
		return nil
	}
	return os.WriteFile(path, []byte(redacted), 0o644)
}

func (s *Sanitizer) sanitizeEnvContent(content, rel string, report *domain.SanitizationReport) string {
	lines := strings.SplitAfter(content, "\n")
	lineNo := 0
	for i, line := range lines {
		lineNo++
		redactedLine, changed := SanitizeEnvLine(line, s.cfg.EntropyThreshold, s.cfg.MinEntropyLength)
		if changed {
			lines[i] = redactedLine
			report.Add(domain.SanitizationEntry{
				FilePath:    rel,
				LineNumber:  lineNo,
				SecretKind:  "env_value",
				Placeholder: "<REDACTED>",
				Severity:    domain.SecretSeverityHigh,
			}, false)
		}
	}
	return strings.Join(lines, "")
}

func (s *Sanitizer) sanitizeGenericContent(content, rel string, report *domain.SanitizationReport) string {
	matches := s.collectMatches(content)
	if len(matches) == 0 {
		return content
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Start > matches[j].Start })

	redacted := content
	for _, m := range matches {
		replacement := s.cachedPlaceholder(m)
		redacted = redacted[:m.Start] + replacement + redacted[m.End:]
		report.Add(domain.SanitizationEntry{
			FilePath:    rel,
			LineNumber:  m.Line,
			SecretKind:  m.PatternName,
			Placeholder: replacement,
			Severity:    m.Severity,
		}, m.FromEntropy)
	}
	return redacted
}

// collectMatches runs the pattern channel and the entropy channel and
// unions them, de-duplicated by overlapping byte ranges: a pattern hit
// suppresses any overlapping entropy hit (spec §4.1). De-duplication
// among pattern matches themselves is by (start,end) equality only, per
// the open question in spec §9 — near-duplicate overlapping pattern
// matches are not merged by containment.
func (s *Sanitizer) collectMatches(content string) []Match {
	var patternMatches []Match
	seen := map[[2]int]bool{}
	for _, p := range s.patterns {
		for _, m := range p.Find(content) {
			key := [2]int{m.Start, m.End}
			if seen[key] {
				continue
			}
			seen[key] = true
			patternMatches = append(patternMatches, m)
		}
	}

	entropyRuns := FindEntropyRuns(content, s.cfg.EntropyThreshold, s.cfg.MinEntropyLength)
	var entropyMatches []Match
	for _, run := range entropyRuns {
		if overlapsAny(run.Start, run.End, patternMatches) {
			continue
		}
		entropyMatches = append(entropyMatches, Match{
			PatternName: "high_entropy",
			Text:        run.Text,
			Start:       run.Start,
			End:         run.End,
			Line:        lineOf(content, run.Start),
			Placeholder: "<REDACTED_HIGH_ENTROPY>",
			Severity:    domain.SecretSeverityMedium,
			Confidence:  0.5,
			FromEntropy: true,
		})
	}

	return append(patternMatches, entropyMatches...)
}

func overlapsAny(start, end int, matches []Match) bool {
	for _, m := range matches {
		if start < m.End && m.Start < end {
			return true
		}
	}
	return false
}

func (s *Sanitizer) cachedPlaceholder(m Match) string {
	key := m.PatternName + ":" + m.Text
	if v, ok := s.cache[key]; ok {
		return v
	}
	s.cache[key] = m.Placeholder
	return m.Placeholder
}

func isBinary(data []byte) bool {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	return bytes.IndexByte(data[:n], 0) != -1
}

func copyTree(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
