// Package fees holds the platform service-fee arithmetic. The three
// functions use deliberately different cent rounding and must not be
// conflated:
//
//   - AddServiceFee rounds up, so the platform never under-collects.
//   - RemoveServiceFee rounds down, so add-then-remove can lose at most
//     one cent but never exceeds the original base.
//   - SubtractServiceFee rounds half-up; it computes a payout amount from
//     an aggregate, not a display price.
package fees

import "github.com/shopspring/decimal"

// DefaultRate is the platform service fee applied to buyer-facing prices
// unless the admin-configured rate overrides it.
const DefaultRate = 0.035

// AddServiceFee converts a fee-exclusive unit price to the buyer-facing
// price: ceil(base*(1+rate)*100)/100.
func AddServiceFee(base, rate float64) float64 {
	d := decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(1 + rate)).
		Mul(decimal.NewFromInt(100)).
		Ceil().
		Div(decimal.NewFromInt(100))
	f, _ := d.Float64()
	return f
}

// RemoveServiceFee recovers a fee-exclusive unit price from a
// fee-inclusive one: floor((price/(1+rate))*100)/100.
func RemoveServiceFee(priceWithFee, rate float64) float64 {
	d := decimal.NewFromFloat(priceWithFee).
		Div(decimal.NewFromFloat(1 + rate)).
		Mul(decimal.NewFromInt(100)).
		Floor().
		Div(decimal.NewFromInt(100))
	f, _ := d.Float64()
	return f
}

// SubtractServiceFee computes the seller payout from an aggregate amount:
// round(amount*(1-rate)*100)/100.
func SubtractServiceFee(amount, rate float64) float64 {
	d := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(1 - rate)).
		Round(2)
	f, _ := d.Float64()
	return f
}
