package enums

import "fmt"

// PaymentType categorizes a payment row: money in, money out, or trade-in
// value applied as tender.
type PaymentType string

const (
	PaymentTypePayment        PaymentType = "payment"
	PaymentTypeRefund         PaymentType = "refund"
	PaymentTypeExchangeCredit PaymentType = "exchange_credit"
)

var validPaymentTypes = []PaymentType{
	PaymentTypePayment,
	PaymentTypeRefund,
	PaymentTypeExchangeCredit,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
