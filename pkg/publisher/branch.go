package publisher

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateBranchName builds the fix branch name of spec §4.5:
// neverdown/fix-<first 8 chars of incident id>-<UTC timestamp>.
// nowUTCStamp is injected so callers control the clock.
func GenerateBranchName(incidentID uuid.UUID, nowUTCStamp string) string {
	short := incidentID.String()[:8]
	return fmt.Sprintf("neverdown/fix-%s-%s", short, nowUTCStamp)
}
