package arbitrage

import (
	"github.com/parityarb/xvenue-arb/pkg/money"
	"github.com/shopspring/decimal"
)

// FeeKind distinguishes the rate applied to a leg. Maker is currently
// priced identically to taker; FeeKind is the hook callers branch on once
// that changes.
type FeeKind int

const (
	FeeTaker FeeKind = iota
	FeeMaker
)

// DefaultStreamRate is V-Stream's taker fee rate constant.
var DefaultStreamRate = decimal.RequireFromString("0.07")

// StreamFee computes the V-Stream-class taker fee per contract:
// ceil_cents(rate * qty * price * (1 - price)). Fees peak near price=0.50
// and are rounded up toward the next cent, never down.
func StreamFee(rate, price decimal.Decimal, qty int64, _ FeeKind) decimal.Decimal {
	raw := rate.
		Mul(decimal.NewFromInt(qty)).
		Mul(price).
		Mul(money.One.Sub(price))
	return money.RoundCentsCeil(raw)
}

// RPCFee computes the V-RPC-class flat fee: per_contract_fee * qty.
func RPCFee(perContract decimal.Decimal, qty int64, _ FeeKind) decimal.Decimal {
	return money.QuantizeCents(money.Mul(perContract, qty))
}
