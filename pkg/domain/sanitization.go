package domain

import "github.com/google/uuid"

// SecretSeverity mirrors the pattern registry's severity scale.
type SecretSeverity string

const (
	SecretSeverityCritical SecretSeverity = "critical"
	SecretSeverityHigh     SecretSeverity = "high"
	SecretSeverityMedium   SecretSeverity = "medium"
	SecretSeverityLow      SecretSeverity = "low"
)

// SanitizationEntry records a single secret detection.
type SanitizationEntry struct {
	FilePath    string
	LineNumber  int
	SecretKind  string
	Placeholder string
	Severity    SecretSeverity
}

// SanitizationReport is the Sanitizer's output artifact.
type SanitizationReport struct {
	IncidentID          uuid.UUID
	Entries             []SanitizationEntry
	CountBySeverity     map[SecretSeverity]int
	CountByKind         map[string]int
	EntropyDetections   int
	PatternDetections   int
	Halted              bool
	TotalFilesScanned   int
}

// NewSanitizationReport returns an empty report ready for accumulation.
func NewSanitizationReport(incidentID uuid.UUID) *SanitizationReport {
	return &SanitizationReport{
		IncidentID:      incidentID,
		CountBySeverity: map[SecretSeverity]int{},
		CountByKind:     map[string]int{},
	}
}

// Add records one detection's counters.
func (r *SanitizationReport) Add(entry SanitizationEntry, fromEntropy bool) {
	r.Entries = append(r.Entries, entry)
	r.CountBySeverity[entry.Severity]++
	r.CountByKind[entry.SecretKind]++
	if fromEntropy {
		r.EntropyDetections++
	} else {
		r.PatternDetections++
	}
}

// TotalDetections returns the overall number of recorded entries.
func (r *SanitizationReport) TotalDetections() int {
	return len(r.Entries)
}
