package enums

import "fmt"

// InventoryRefType names the record an inventory transaction points back to.
type InventoryRefType string

const (
	InventoryRefOrder  InventoryRefType = "order"
	InventoryRefReturn InventoryRefType = "return"
)

var validInventoryRefTypes = []InventoryRefType{
	InventoryRefOrder,
	InventoryRefReturn,
}

// String implements fmt.Stringer.
func (i InventoryRefType) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InventoryRefType.
func (i InventoryRefType) IsValid() bool {
	for _, candidate := range validInventoryRefTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInventoryRefType converts raw input into an InventoryRefType.
func ParseInventoryRefType(value string) (InventoryRefType, error) {
	for _, candidate := range validInventoryRefTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory reference type %q", value)
}
