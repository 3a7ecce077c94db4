package block

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a block instance id of the form "<prefix>-<12 hex digits>".
// Ids are random, so callers that need reproducible output pass their own.
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if prefix == "" {
		return "b" + id
	}

	return prefix + "-" + id
}
