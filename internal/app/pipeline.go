package app

import (
	"time"

	"github.com/parityarb/xvenue-arb/internal/gateway"
	"github.com/parityarb/xvenue-arb/internal/normalize"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
)

var one = decimal.New(1, 0)

func normalizeEvent(ev gateway.RawEvent, table *normalize.SymbolTable) (normalize.HalfTick, bool) {
	return normalize.Normalize(ev, table)
}

// buildSnapshot computes the cross-venue parity gap for one symbol from its
// latest V-Stream and V-RPC ticks, independent of whether the pair crossed
// into a tradeable opportunity.
func buildSnapshot(symbol string, stream, rpc types.NormalizedTick) types.SpreadSnapshot {
	streamSum := stream.YesAsk.Add(stream.NoAsk)
	rpcSum := rpc.YesAsk.Add(rpc.NoAsk)

	return types.SpreadSnapshot{
		Symbol:       symbol,
		TakenAt:      latest(stream.TsLocal, rpc.TsLocal),
		VenueAYesAsk: stream.YesAsk,
		VenueANoAsk:  stream.NoAsk,
		VenueBYesAsk: rpc.YesAsk,
		VenueBNoAsk:  rpc.NoAsk,
		VenueASum:    streamSum,
		VenueBSum:    rpcSum,
		ParityGapA:   one.Sub(stream.YesAsk.Add(rpc.NoAsk)),
		ParityGapB:   one.Sub(rpc.YesAsk.Add(stream.NoAsk)),
	}
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
