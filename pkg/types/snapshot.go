package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpreadSnapshot is a periodic persistence row capturing the cross-venue
// parity gap for one symbol, independent of whether an opportunity fired.
type SpreadSnapshot struct {
	Symbol        string
	TakenAt       time.Time
	VenueAYesAsk  decimal.Decimal
	VenueANoAsk   decimal.Decimal
	VenueBYesAsk  decimal.Decimal
	VenueBNoAsk   decimal.Decimal
	VenueASum     decimal.Decimal
	VenueBSum     decimal.Decimal
	ParityGapA    decimal.Decimal
	ParityGapB    decimal.Decimal
}
