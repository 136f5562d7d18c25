// Package money provides cent-precision decimal helpers shared by the fee
// model, the ledger, and the executor. Every monetary or probability value
// in this repository is a decimal.Decimal; float64 never appears on a path
// that computes price, fee, or P&L.
package money

import "github.com/shopspring/decimal"

var (
	// Zero is the canonical zero value, avoiding repeated decimal.New(0, 0)
	// allocations at call sites.
	Zero = decimal.Zero
	// One represents $1.00 / full parity.
	One = decimal.New(1, 0)
	// Cent is the smallest unit every monetary value is quantized to.
	Cent = decimal.New(1, -2)
)

// RoundCentsCeil rounds d up to the nearest cent. Used by the V-Stream fee
// formula, which rounds toward the next cent rather than to nearest.
func RoundCentsCeil(d decimal.Decimal) decimal.Decimal {
	return d.Div(Cent).Ceil().Mul(Cent)
}

// QuantizeCents rounds d to the nearest cent (half-away-from-zero), the
// default quantization for prices and P&L that are not fee outputs.
func QuantizeCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Mul multiplies a price-like decimal by an integer quantity.
func Mul(price decimal.Decimal, qty int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(qty))
}
