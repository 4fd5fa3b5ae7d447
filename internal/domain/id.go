// Package domain defines the plain entity types persisted and passed
// between subsystems: streams, captures, jobs, notifications, and their
// supporting value types.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewID mints an opaque, prefixed identifier such as "strm_7f3c...".
// Prefixing by entity kind follows the teacher's correlation-ID style
// (logging.GenerateCorrelationID) of using a single UUID source, here
// extended with a human-readable namespace so IDs are self-describing in
// logs without a lookup.
func NewID(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + 1 + 36)
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(uuid.New().String())
	return b.String()
}
