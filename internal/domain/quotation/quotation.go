// Package quotation converts between the broker's fixed-point Quotation
// (integer units plus nano fraction) and decimal values, and rounds prices
// to an instrument's price grid.
package quotation

import (
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/shopspring/decimal"
)

const nanoPrecision = 9

// ToDecimal converts a broker quotation into a decimal value.
// A nil quotation converts to zero.
func ToDecimal(q *pb.Quotation) decimal.Decimal {
	if q == nil {
		return decimal.Zero
	}
	return decimal.New(q.GetUnits(), 0).Add(decimal.New(int64(q.GetNano()), -nanoPrecision))
}

// FromDecimal converts a decimal value into a broker quotation.
func FromDecimal(d decimal.Decimal) *pb.Quotation {
	units := d.IntPart()
	nano := d.Sub(decimal.New(units, 0)).Shift(nanoPrecision).IntPart()
	return &pb.Quotation{Units: units, Nano: int32(nano)}
}

// MoneyToDecimal converts a broker money value into a decimal amount,
// discarding the currency code.
func MoneyToDecimal(m *pb.MoneyValue) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	return decimal.New(m.GetUnits(), 0).Add(decimal.New(int64(m.GetNano()), -nanoPrecision))
}

// RoundToStep snaps a candidate price onto the grid defined by step:
// round(candidate/step)*step, rounding half up. Idempotent for any value
// already on the grid. A non-positive step returns the candidate unchanged.
func RoundToStep(candidate, step decimal.Decimal) decimal.Decimal {
	if step.Sign() <= 0 {
		return candidate
	}
	return candidate.Div(step).Round(0).Mul(step)
}
