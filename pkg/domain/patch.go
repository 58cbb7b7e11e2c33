package domain

import (
	"time"

	"github.com/google/uuid"
)

// FileAction is the closed enum of per-file diff actions.
type FileAction string

const (
	FileActionModified FileAction = "modified"
	FileActionAdded    FileAction = "added"
	FileActionDeleted  FileAction = "deleted"
	FileActionRenamed  FileAction = "renamed"
)

// FileChange summarises one file touched by a patch.
type FileChange struct {
	Path      string
	Action    FileAction
	Additions int
	Deletions int
}

// TokenUsage records LLM token accounting for a Reasoner call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// Patch is the Reasoner's validated output artifact.
type Patch struct {
	ID          uuid.UUID
	IncidentID  uuid.UUID
	DiffText    string
	Reasoning   string
	Confidence  float64
	Assumptions []string
	Files       []FileChange
	Verified    bool
	Usage       TokenUsage
	RetryCount  int
	CreatedAt   time.Time
}
