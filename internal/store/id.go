package store

import (
	"strings"

	"github.com/google/uuid"
)

// NewRequestID returns a short identifier suitable for sharing by hand and
// embedding in verification URLs. Eight hex characters give 4 billion values;
// the stores additionally retry on the rare primary-key collision.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
