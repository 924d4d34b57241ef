package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Component is a single named tax rate applied within a jurisdiction.
type Component struct {
	Name string
	Rate decimal.Decimal
}

var rateTable = map[string][]Component{
	"ON": {{Name: "HST", Rate: decimal.NewFromFloat(0.13)}},
	"NS": {{Name: "HST", Rate: decimal.NewFromFloat(0.14)}},
	"NB": {{Name: "HST", Rate: decimal.NewFromFloat(0.15)}},
	"AB": {{Name: "GST", Rate: decimal.NewFromFloat(0.05)}},
	"BC": {
		{Name: "GST", Rate: decimal.NewFromFloat(0.05)},
		{Name: "PST", Rate: decimal.NewFromFloat(0.07)},
	},
	"SK": {
		{Name: "GST", Rate: decimal.NewFromFloat(0.05)},
		{Name: "PST", Rate: decimal.NewFromFloat(0.06)},
	},
	"QC": {
		{Name: "GST", Rate: decimal.NewFromFloat(0.05)},
		{Name: "QST", Rate: decimal.NewFromFloat(0.09975)},
	},
}

// Calculator resolves jurisdiction rates and computes per-leg tax amounts.
type Calculator struct {
	defaultJurisdiction string
}

// NewCalculator builds a calculator that falls back to the given jurisdiction
// when an order carries none (or an unknown one).
func NewCalculator(defaultJurisdiction string) *Calculator {
	return &Calculator{defaultJurisdiction: strings.ToUpper(strings.TrimSpace(defaultJurisdiction))}
}

// Components returns the rate components in effect for the jurisdiction,
// resolving unknown or empty codes to the default jurisdiction.
func (c *Calculator) Components(jurisdiction string) []Component {
	code := strings.ToUpper(strings.TrimSpace(jurisdiction))
	if components, ok := rateTable[code]; ok {
		return components
	}
	if components, ok := rateTable[c.defaultJurisdiction]; ok {
		return components
	}
	return nil
}

// Apply computes the tax on amountCents for the jurisdiction. The combined
// rate is applied to the whole amount and rounded half-up exactly once, so a
// multi-line leg taxes identically to the same total on a single line.
func (c *Calculator) Apply(amountCents int64, jurisdiction string, exempt bool) int64 {
	if exempt || amountCents == 0 {
		return 0
	}
	combined := decimal.Zero
	for _, component := range c.Components(jurisdiction) {
		combined = combined.Add(component.Rate)
	}
	if combined.IsZero() {
		return 0
	}
	return decimal.NewFromInt(amountCents).Mul(combined).Round(0).IntPart()
}
