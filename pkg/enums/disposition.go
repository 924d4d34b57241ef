package enums

import "fmt"

// Disposition is the post-return handling path for a physical unit.
type Disposition string

const (
	DispositionReturnToStock Disposition = "return_to_stock"
	DispositionClearance     Disposition = "clearance"
	DispositionRMAVendor     Disposition = "rma_vendor"
	DispositionDispose       Disposition = "dispose"
)

var validDispositions = []Disposition{
	DispositionReturnToStock,
	DispositionClearance,
	DispositionRMAVendor,
	DispositionDispose,
}

// DispositionFor derives the handling path from the unit's condition. It is
// the single source of that mapping: the result is computed once during
// valuation and threaded through to inventory execution.
func DispositionFor(condition ItemCondition) Disposition {
	switch condition {
	case ItemConditionResellable:
		return DispositionReturnToStock
	case ItemConditionDamaged:
		return DispositionClearance
	case ItemConditionDefective:
		return DispositionRMAVendor
	default:
		return DispositionDispose
	}
}

// Restocks reports whether this disposition puts the unit back into sellable
// on-hand stock.
func (d Disposition) Restocks() bool {
	return d == DispositionReturnToStock || d == DispositionClearance
}

// String implements fmt.Stringer.
func (d Disposition) String() string {
	return string(d)
}

// IsValid reports whether the value is a known Disposition.
func (d Disposition) IsValid() bool {
	for _, candidate := range validDispositions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisposition converts raw input into a Disposition.
func ParseDisposition(value string) (Disposition, error) {
	for _, candidate := range validDispositions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid disposition %q", value)
}
