// Package arbitrage implements the pure detection function over a pair of
// ticks and the V-Stream/V-RPC fee model. The Detector depends only on
// pkg/types.NormalizedTick and pkg/types.Opportunity to avoid a circular
// import with the order book: the Book depends on the Detector, never the
// reverse.
package arbitrage

import (
	"github.com/google/uuid"
	"github.com/parityarb/xvenue-arb/pkg/money"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// Config parameterizes detection. StreamRate and RPCPerContractFee feed the
// fee model; SlippageBuffer and MinProfit gate the resulting net profit.
type Config struct {
	StreamRate        decimal.Decimal
	RPCPerContractFee decimal.Decimal
	SlippageBuffer    decimal.Decimal
	MinProfit         decimal.Decimal
}

// Detect evaluates both orthogonal YES/NO pairings between a V-Stream tick
// and a V-RPC tick for the same unified symbol and returns the better
// surviving one, if any. Stateless and idempotent over equal inputs.
func Detect(streamTick, rpcTick types.NormalizedTick, cfg Config) (*types.Opportunity, bool) {
	p1, ok1 := evaluatePairing(streamTick, rpcTick, cfg,
		types.LegQuote{Venue: streamTick.Venue, Side: types.SideYes, Price: streamTick.YesAsk},
		types.LegQuote{Venue: rpcTick.Venue, Side: types.SideNo, Price: rpcTick.NoAsk},
	)
	p2, ok2 := evaluatePairing(streamTick, rpcTick, cfg,
		types.LegQuote{Venue: streamTick.Venue, Side: types.SideNo, Price: streamTick.NoAsk},
		types.LegQuote{Venue: rpcTick.Venue, Side: types.SideYes, Price: rpcTick.YesAsk},
	)

	switch {
	case ok1 && ok2:
		if p2.NetProfit.GreaterThan(p1.NetProfit) {
			return p2, true
		}
		return p1, true // ties favor P1
	case ok1:
		return p1, true
	case ok2:
		return p2, true
	default:
		return nil, false
	}
}

// evaluatePairing runs the parity/fee/slippage check at unit quantity for
// one pairing (legA on the V-Stream tick's venue, legB on the
// V-RPC tick's venue).
func evaluatePairing(streamTick, rpcTick types.NormalizedTick, cfg Config, legA, legB types.LegQuote) (*types.Opportunity, bool) {
	priceSum := legA.Price.Add(legB.Price)
	if priceSum.GreaterThanOrEqual(money.One) {
		return nil, false
	}

	gross := money.One.Sub(priceSum)
	feeA := StreamFee(cfg.StreamRate, legA.Price, 1, FeeTaker)
	feeB := RPCFee(cfg.RPCPerContractFee, 1, FeeTaker)
	net := gross.Sub(feeA).Sub(feeB).Sub(cfg.SlippageBuffer)

	if net.LessThan(cfg.MinProfit) {
		return nil, false
	}

	ts := streamTick.TsLocal
	if rpcTick.TsLocal.After(ts) {
		ts = rpcTick.TsLocal
	}

	return &types.Opportunity{
		ID:             uuid.NewString(),
		Symbol:         streamTick.UnifiedSymbol,
		LegA:           legA,
		LegB:           legB,
		Quantity:       1,
		GrossProfit:    gross,
		FeeA:           feeA,
		FeeB:           feeB,
		SlippageBuffer: cfg.SlippageBuffer,
		NetProfit:      net,
		Ts:             ts,
	}, true
}

