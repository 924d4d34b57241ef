package enums

import "fmt"

// SettlementKind names the shape of a settlement outcome.
type SettlementKind string

const (
	SettlementCustomerPays   SettlementKind = "customer_pays"
	SettlementCustomerRefund SettlementKind = "customer_refund"
	SettlementEvenExchange   SettlementKind = "even_exchange"
)

var validSettlementKinds = []SettlementKind{
	SettlementCustomerPays,
	SettlementCustomerRefund,
	SettlementEvenExchange,
}

// String implements fmt.Stringer.
func (s SettlementKind) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementKind.
func (s SettlementKind) IsValid() bool {
	for _, candidate := range validSettlementKinds {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSettlementKind converts raw input into a SettlementKind.
func ParseSettlementKind(value string) (SettlementKind, error) {
	for _, candidate := range validSettlementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement kind %q", value)
}
