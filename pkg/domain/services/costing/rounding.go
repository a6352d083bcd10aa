package costing

import "github.com/shopspring/decimal"

// Round2 rounds half-up to two decimal places. Costs are never negative, so
// decimal's half-away-from-zero rounding is half-up here.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Round6 rounds half-up to six decimal places
func Round6(d decimal.Decimal) decimal.Decimal {
	return d.Round(6)
}
