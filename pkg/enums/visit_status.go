package enums

import "fmt"

// VisitStatus tracks the lifecycle of a guest visit.
type VisitStatus string

const (
	VisitStatusActive    VisitStatus = "active"
	VisitStatusCompleted VisitStatus = "completed"
	VisitStatusCancelled VisitStatus = "cancelled"
	VisitStatusMerged    VisitStatus = "merged"
)

var validVisitStatuses = []VisitStatus{
	VisitStatusActive,
	VisitStatusCompleted,
	VisitStatusCancelled,
	VisitStatusMerged,
}

// String implements fmt.Stringer.
func (v VisitStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VisitStatus.
func (v VisitStatus) IsValid() bool {
	for _, candidate := range validVisitStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the visit can no longer be mutated.
func (v VisitStatus) IsTerminal() bool {
	return v == VisitStatusCompleted || v == VisitStatusCancelled || v == VisitStatusMerged
}

// ParseVisitStatus converts raw input into a VisitStatus.
func ParseVisitStatus(value string) (VisitStatus, error) {
	for _, candidate := range validVisitStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid visit status %q", value)
}
