package models

// VersionStatus is the lifecycle label of a version. Any number of versions
// may be draft; every other status has at most one holder per entity.
type VersionStatus string

const (
	StatusDraft      VersionStatus = "draft"
	StatusActive     VersionStatus = "active"
	StatusStable     VersionStatus = "stable"
	StatusDeprecated VersionStatus = "deprecated"
)

// Statuses lists every status in promotion order.
var Statuses = []VersionStatus{StatusDraft, StatusActive, StatusStable, StatusDeprecated}

// ParseStatus returns the status named s.
func ParseStatus(s string) (VersionStatus, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Exclusive reports whether at most one version per entity may hold the status.
func (s VersionStatus) Exclusive() bool {
	return s != StatusDraft
}
