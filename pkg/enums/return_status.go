package enums

import "fmt"

// ReturnStatus tracks the lifecycle of a return record.
type ReturnStatus string

const (
	ReturnStatusProcessing ReturnStatus = "processing"
	ReturnStatusCompleted  ReturnStatus = "completed"
	ReturnStatusRejected   ReturnStatus = "rejected"
	ReturnStatusCancelled  ReturnStatus = "cancelled"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusProcessing,
	ReturnStatusCompleted,
	ReturnStatusRejected,
	ReturnStatusCancelled,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// CountsAgainstReturnable reports whether line items under a return in this
// status consume the original item's returnable quantity.
func (r ReturnStatus) CountsAgainstReturnable() bool {
	return r != ReturnStatusCancelled && r != ReturnStatusRejected
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
