package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies one of the two trading venues.
type Venue string

const (
	VenueStream Venue = "V-STREAM"
	VenueRPC    Venue = "V-RPC"
)

// Side identifies a binary event-contract claim.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Opposite returns the complementary side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// NormalizedTick is the uniform tick record produced by a venue Normalizer.
// Immutable once constructed.
type NormalizedTick struct {
	Venue        Venue
	UnifiedSymbol string
	YesAsk       decimal.Decimal
	NoAsk        decimal.Decimal
	YesAskSize   decimal.Decimal
	NoAskSize    decimal.Decimal
	TsVenue      time.Time
	TsLocal      time.Time
}

// Valid reports whether the tick's prices and sizes are within the ranges
// NormalizedTick's invariants require. Normalizers must reject raw events
// that would fail this check rather than constructing an invalid tick.
func (t NormalizedTick) Valid() bool {
	if t.YesAsk.LessThan(decimal.Zero) || t.YesAsk.GreaterThan(decimal.New(1, 0)) {
		return false
	}
	if t.NoAsk.LessThan(decimal.Zero) || t.NoAsk.GreaterThan(decimal.New(1, 0)) {
		return false
	}
	if t.YesAskSize.LessThan(decimal.Zero) || t.NoAskSize.LessThan(decimal.Zero) {
		return false
	}
	return true
}
