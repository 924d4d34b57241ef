package enums

import "fmt"

// StoreCreditTxnType labels an entry in a store credit's ledger.
type StoreCreditTxnType string

const (
	StoreCreditTxnIssue  StoreCreditTxnType = "issue"
	StoreCreditTxnRedeem StoreCreditTxnType = "redeem"
	StoreCreditTxnAdjust StoreCreditTxnType = "adjust"
)

var validStoreCreditTxnTypes = []StoreCreditTxnType{
	StoreCreditTxnIssue,
	StoreCreditTxnRedeem,
	StoreCreditTxnAdjust,
}

// String implements fmt.Stringer.
func (s StoreCreditTxnType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StoreCreditTxnType.
func (s StoreCreditTxnType) IsValid() bool {
	for _, candidate := range validStoreCreditTxnTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStoreCreditTxnType converts raw input into a StoreCreditTxnType.
func ParseStoreCreditTxnType(value string) (StoreCreditTxnType, error) {
	for _, candidate := range validStoreCreditTxnTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid store credit transaction type %q", value)
}
