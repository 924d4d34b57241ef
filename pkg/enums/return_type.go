package enums

import "fmt"

// ReturnType distinguishes plain refunds from exchanges.
type ReturnType string

const (
	ReturnTypeRefund   ReturnType = "refund"
	ReturnTypeExchange ReturnType = "exchange"
)

var validReturnTypes = []ReturnType{
	ReturnTypeRefund,
	ReturnTypeExchange,
}

// String implements fmt.Stringer.
func (r ReturnType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnType.
func (r ReturnType) IsValid() bool {
	for _, candidate := range validReturnTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnType converts raw input into a ReturnType.
func ParseReturnType(value string) (ReturnType, error) {
	for _, candidate := range validReturnTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return type %q", value)
}
