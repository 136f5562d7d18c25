package normalize

import (
	"time"

	"github.com/parityarb/xvenue-arb/internal/gateway"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
)

var one = decimal.New(1, 0)

// HalfTick is one side (YES or NO) of a market's quote, the unit a
// Normalizer emits before the Partial-Tick Assembler combines both sides
// into a types.NormalizedTick.
type HalfTick struct {
	Venue          types.Venue
	UnifiedSymbol  string
	Side           types.Side
	Ask            decimal.Decimal
	AskSize        decimal.Decimal
	Bid            decimal.Decimal
	HasExplicitAsk bool
	VenueTime      time.Time
}

// Normalize is the pure per-venue transform from a raw gateway event to a
// HalfTick. It rejects events that are not tick-bearing, carry sentinel
// "no data" prices, or reference an unmapped market.
func Normalize(ev gateway.RawEvent, table *SymbolTable) (HalfTick, bool) {
	if ev.Kind != gateway.EventTick {
		return HalfTick{}, false
	}

	unified, ok := table.Unified(ev.Venue, ev.Symbol)
	if !ok {
		return HalfTick{}, false
	}

	hasAsk := isValidPrice(ev.Ask)
	hasBid := isValidPrice(ev.Bid)
	if !hasAsk && !hasBid {
		return HalfTick{}, false
	}

	return HalfTick{
		Venue:          ev.Venue,
		UnifiedSymbol:  unified,
		Side:           ev.Side,
		Ask:            ev.Ask,
		AskSize:        ev.AskSize,
		Bid:            ev.Bid,
		HasExplicitAsk: hasAsk,
		VenueTime:      ev.VenueTime,
	}, true
}

// isValidPrice rejects zero, negative prices and prices above $1.00, the
// sentinel "no data" shapes a venue may emit on an inverted or empty book.
func isValidPrice(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(decimal.Zero) && d.LessThanOrEqual(one) && !d.IsZero()
}
