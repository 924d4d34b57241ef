package enums

import "fmt"

// InventoryTxnType labels a stock movement. Sale deducts, the restocking
// types add back, and rma_vendor/dispose are audit-only zero-delta rows.
type InventoryTxnType string

const (
	InventoryTxnSale          InventoryTxnType = "sale"
	InventoryTxnReturnRestock InventoryTxnType = "return_restock"
	InventoryTxnClearance     InventoryTxnType = "clearance"
	InventoryTxnRMAVendor     InventoryTxnType = "rma_vendor"
	InventoryTxnDispose       InventoryTxnType = "dispose"
)

var validInventoryTxnTypes = []InventoryTxnType{
	InventoryTxnSale,
	InventoryTxnReturnRestock,
	InventoryTxnClearance,
	InventoryTxnRMAVendor,
	InventoryTxnDispose,
}

// InventoryTxnForDisposition maps a return disposition to the inventory
// transaction type recorded for it.
func InventoryTxnForDisposition(d Disposition) InventoryTxnType {
	switch d {
	case DispositionReturnToStock:
		return InventoryTxnReturnRestock
	case DispositionClearance:
		return InventoryTxnClearance
	case DispositionRMAVendor:
		return InventoryTxnRMAVendor
	default:
		return InventoryTxnDispose
	}
}

// String implements fmt.Stringer.
func (i InventoryTxnType) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InventoryTxnType.
func (i InventoryTxnType) IsValid() bool {
	for _, candidate := range validInventoryTxnTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInventoryTxnType converts raw input into an InventoryTxnType.
func ParseInventoryTxnType(value string) (InventoryTxnType, error) {
	for _, candidate := range validInventoryTxnTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
