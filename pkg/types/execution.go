package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the terminal or intermediate state of a submitted order.
type OrderStatus string

const (
	OrderOpen             OrderStatus = "OPEN"
	OrderFilled           OrderStatus = "FILLED"
	OrderPartiallyFilled  OrderStatus = "PARTIALLY_FILLED"
	OrderCancelled        OrderStatus = "CANCELLED"
	OrderRejected         OrderStatus = "REJECTED"
	OrderTimeout          OrderStatus = "TIMEOUT"
)

// LegResult records the outcome of one leg of a paired trade.
type LegResult struct {
	Venue     Venue
	Side      Side
	OrderID   string
	Status    OrderStatus
	FillPrice decimal.Decimal
	FillQty   int64
	Filled    bool
}

// Outcome classifies the terminal state of an execution attempt.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeRollback Outcome = "rolled_back"
)

// ExecutionResult is produced once per execution attempt and never mutated
// after emit.
type ExecutionResult struct {
	OpportunityID string
	Symbol        string
	ExecutedAt    time.Time

	LegA LegResult
	LegB LegResult

	// Hedge is populated only when a rollback placed a hedging order.
	Hedge *LegResult

	TotalCost  decimal.Decimal
	ActualFees decimal.Decimal
	NetProfit  decimal.Decimal

	Outcome Outcome
	// ManualIntervention is set when a rollback hedge did not fill; the
	// system continues but the position is left unhedged.
	ManualIntervention bool
	Error              string
}
