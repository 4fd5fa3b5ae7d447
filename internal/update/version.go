package update

import "strings"

// VersionComparer compares release tags against the running version.
type VersionComparer struct{}

// NewVersionComparer constructs a VersionComparer.
func NewVersionComparer() *VersionComparer { return &VersionComparer{} }

// IsNewer reports whether candidate is newer than current, per spec
// §4.8's simple lexicographic compare after stripping a leading "v".
func (VersionComparer) IsNewer(current, candidate string) bool {
	return strings.TrimPrefix(candidate, "v") > strings.TrimPrefix(current, "v")
}
