package arbitrage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// Property 2 — Fee monotonicity (V-Stream): for any price in [0.01,0.99]
// and q>=1, fee(price,q) <= fee(price,q+1), and fee(0.50,q) >= fee(price,q).
func TestStreamFee_Monotonicity(t *testing.T) {
	rate := decimal.RequireFromString("0.07")
	prices := []string{"0.01", "0.10", "0.25", "0.40", "0.60", "0.75", "0.90", "0.99"}

	for _, p := range prices {
		price := decimal.RequireFromString(p)
		for q := int64(1); q < 20; q++ {
			feeQ := StreamFee(rate, price, q, FeeTaker)
			feeQ1 := StreamFee(rate, price, q+1, FeeTaker)
			assert.True(t, feeQ.LessThanOrEqual(feeQ1), "fee(%s,%d)=%s should be <= fee(%s,%d)=%s", p, q, feeQ, p, q+1, feeQ1)

			feeAtHalf := StreamFee(rate, decimal.RequireFromString("0.50"), q, FeeTaker)
			assert.True(t, feeAtHalf.GreaterThanOrEqual(feeQ), "fee(0.50,%d)=%s should be >= fee(%s,%d)=%s", q, feeAtHalf, p, q, feeQ)
		}
	}
}

func TestStreamFee_CeilRounding(t *testing.T) {
	// rate * qty * price * (1-price) computed to force a sub-cent remainder:
	// 0.07 * 1 * 0.13 * 0.87 = 0.007917, ceil-rounded to 0.01.
	rate := decimal.RequireFromString("0.07")
	fee := StreamFee(rate, decimal.RequireFromString("0.13"), 1, FeeTaker)
	assert.True(t, fee.Equal(decimal.RequireFromString("0.01")), "got %s", fee)
}

func TestRPCFee_Flat(t *testing.T) {
	fee := RPCFee(decimal.RequireFromString("0.01"), 5, FeeTaker)
	assert.True(t, fee.Equal(decimal.RequireFromString("0.05")))
}
