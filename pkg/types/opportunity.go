package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// LegQuote describes one half of a paired arbitrage trade: which venue,
// which side, and the ask price quoted for it.
type LegQuote struct {
	Venue Venue
	Side  Side
	Price decimal.Decimal
}

// Opportunity is a detector output for a single unified symbol. It is
// shared by reference between the Detector and the Gate and never mutated
// after construction.
type Opportunity struct {
	ID             string
	Symbol         string
	LegA           LegQuote
	LegB           LegQuote
	Quantity       int64
	GrossProfit    decimal.Decimal
	FeeA           decimal.Decimal
	FeeB           decimal.Decimal
	SlippageBuffer decimal.Decimal
	NetProfit      decimal.Decimal
	Ts             time.Time
}

// PerUnitCost returns the combined ask price of both legs, the cost of one
// YES+NO contract pair before fees.
func (o Opportunity) PerUnitCost() decimal.Decimal {
	return o.LegA.Price.Add(o.LegB.Price)
}
