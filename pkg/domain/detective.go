package domain

import (
	"time"

	"github.com/google/uuid"
)

// FailureCategory is the closed enum of §4.2.
type FailureCategory string

const (
	CategoryLogic             FailureCategory = "logic"
	CategoryDatabase          FailureCategory = "database"
	CategoryTimeout           FailureCategory = "timeout"
	CategoryConfigMismatch    FailureCategory = "config_mismatch"
	CategoryDependencyVersion FailureCategory = "dependency_version"
	CategoryType              FailureCategory = "type"
	CategoryName              FailureCategory = "name"
	CategoryImport            FailureCategory = "import"
	CategorySyntax            FailureCategory = "syntax"
	CategoryPermission        FailureCategory = "permission"
	CategoryConnection        FailureCategory = "connection"
	CategoryUnknown           FailureCategory = "unknown"
)

// ExtractedError is one error parsed out of raw log text.
type ExtractedError struct {
	Kind       string
	Message    string
	FilePath   string
	Line       int
	StackText  string
}

// SuspectedFile is a ranked suspect with supporting evidence.
type SuspectedFile struct {
	Path        string
	Confidence  float64
	LineNumbers []int
	Evidence    []string
}

// SuspectedFunction is a ranked suspect function.
type SuspectedFunction struct {
	Name       string
	File       string
	StartLine  int
	Confidence float64
}

// RecentChange is one git commit scored for relevance to a suspect file.
type RecentChange struct {
	CommitID      string
	Author        string
	Message       string
	Timestamp     time.Time
	FilesChanged  []string
	Relevance     float64
}

// DetectiveReport is the Detective's output artifact.
type DetectiveReport struct {
	IncidentID        uuid.UUID
	Errors            []ExtractedError
	FailureCategory   FailureCategory
	SuspectedFiles    []SuspectedFile
	SuspectedFuncs    []SuspectedFunction
	RecentChanges     []RecentChange
	Evidence          []string
	OverallConfidence float64
}
