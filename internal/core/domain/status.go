package domain

import "fmt"

// Status represents the current state of a transaction in its lifecycle
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
	StatusAborted  Status = "aborted"
)

// ParseStatus converts a persisted status value back into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusDeclined, StatusAborted:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown transaction status %q", s)
}

// CanTransitionTo validates whether a transaction in status s can move to target.
//
// Pending is the only non-terminal state. Valid transitions are:
//   - Pending → Approved, Declined, Aborted
//
// Any other transition returns an illegal transition error.
func (s Status) CanTransitionTo(target Status) error {
	switch s {
	case StatusApproved, StatusDeclined, StatusAborted:
		return NewIllegalTransitionError(s, target)

	case StatusPending:
		if target == StatusApproved || target == StatusDeclined || target == StatusAborted {
			return nil
		}
	}
	return NewIllegalTransitionError(s, target)
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusDeclined, StatusAborted:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
