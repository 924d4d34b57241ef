package enums

import "fmt"

// ItemCondition classifies the physical state of a returned unit.
type ItemCondition string

const (
	ItemConditionResellable ItemCondition = "resellable"
	ItemConditionDamaged    ItemCondition = "damaged"
	ItemConditionDefective  ItemCondition = "defective"
	ItemConditionOther      ItemCondition = "other"
)

var validItemConditions = []ItemCondition{
	ItemConditionResellable,
	ItemConditionDamaged,
	ItemConditionDefective,
	ItemConditionOther,
}

// String implements fmt.Stringer.
func (i ItemCondition) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ItemCondition.
func (i ItemCondition) IsValid() bool {
	for _, candidate := range validItemConditions {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseItemCondition converts raw input into an ItemCondition.
func ParseItemCondition(value string) (ItemCondition, error) {
	for _, candidate := range validItemConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item condition %q", value)
}
