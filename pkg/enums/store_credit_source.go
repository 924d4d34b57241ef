package enums

import "fmt"

// StoreCreditSource records which flow issued a store credit.
type StoreCreditSource string

const (
	StoreCreditSourceRefund    StoreCreditSource = "refund"
	StoreCreditSourcePromotion StoreCreditSource = "promotion"
	StoreCreditSourceManual    StoreCreditSource = "manual"
)

var validStoreCreditSources = []StoreCreditSource{
	StoreCreditSourceRefund,
	StoreCreditSourcePromotion,
	StoreCreditSourceManual,
}

// String implements fmt.Stringer.
func (s StoreCreditSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StoreCreditSource.
func (s StoreCreditSource) IsValid() bool {
	for _, candidate := range validStoreCreditSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStoreCreditSource converts raw input into a StoreCreditSource.
func ParseStoreCreditSource(value string) (StoreCreditSource, error) {
	for _, candidate := range validStoreCreditSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid store credit source %q", value)
}
