// Package currency converts amounts between the two currencies a sale is
// priced in, using the current IQD-per-USD exchange rate.
package currency

import "github.com/shopspring/decimal"

type Direction int

const (
	IQDToUSD Direction = iota
	USDToIQD
)

// Convert converts amount using rate (IQD per USD), rounded half-up to two
// decimal places. A rate of zero or less is a soft guard: the amount is
// returned unchanged with ok=false so callers leave the dependent field alone.
func Convert(amount decimal.Decimal, rate decimal.Decimal, dir Direction) (decimal.Decimal, bool) {
	if rate.LessThanOrEqual(decimal.Zero) {
		return amount, false
	}

	switch dir {
	case IQDToUSD:
		return amount.Div(rate).Round(2), true
	case USDToIQD:
		return amount.Mul(rate).Round(2), true
	}
	return amount, false
}
