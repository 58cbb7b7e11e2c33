package domain

import "github.com/google/uuid"

// PRStatus is the closed enum of pull-request lifecycle states.
type PRStatus string

const (
	PRStatusPending PRStatus = "pending"
	PRStatusDraft   PRStatus = "draft"
	PRStatusOpen    PRStatus = "open"
	PRStatusMerged  PRStatus = "merged"
	PRStatusClosed  PRStatus = "closed"
)

// PullRequest is the Publisher's output artifact.
type PullRequest struct {
	IncidentID     uuid.UUID
	PatchID        uuid.UUID
	VerificationID uuid.UUID
	Number         int
	URL            string
	HeadBranch     string
	BaseBranch     string
	Title          string
	Body           string
	Labels         []string
	Status         PRStatus
}
