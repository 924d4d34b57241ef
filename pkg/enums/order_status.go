package enums

import "fmt"

// OrderStatus tracks the lifecycle of a sales order.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPending,
	OrderStatusCompleted,
	OrderStatusPaid,
	OrderStatusFulfilled,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var exchangeEligibleStatuses = map[OrderStatus]struct{}{
	OrderStatusCompleted: {},
	OrderStatusPaid:      {},
	OrderStatusFulfilled: {},
	OrderStatusDelivered: {},
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsExchangeEligible reports whether an order in this status may be the
// original order of an exchange.
func (o OrderStatus) IsExchangeEligible() bool {
	_, ok := exchangeEligibleStatuses[o]
	return ok
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
