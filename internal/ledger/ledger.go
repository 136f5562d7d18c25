// Package ledger implements the per-venue capital reservation book: the
// same single-writer mutation discipline as the central order book
// (internal/orderbook.Manager), applied here to the available/reserved
// cash and position state that the Executor must never race on.
package ledger

import (
	"fmt"
	"sync"

	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// positionKey identifies a position bucket within one venue's account.
type positionKey struct {
	Symbol string
	Side   types.Side
}

// position tracks quantity and weighted-average cost for one (symbol,side).
type position struct {
	Qty     int64
	AvgCost decimal.Decimal
}

// CapitalAccount is one venue's reservation book. Zero value is not usable;
// construct with NewAccount.
type CapitalAccount struct {
	mu        sync.Mutex
	venue     types.Venue
	available decimal.Decimal
	reserved  decimal.Decimal
	positions map[positionKey]*position
}

// NewAccount creates an account for venue seeded with an initial cash
// balance.
func NewAccount(venue types.Venue, initialCash decimal.Decimal) *CapitalAccount {
	return &CapitalAccount{
		venue:     venue,
		available: initialCash,
		reserved:  decimal.Zero,
		positions: make(map[positionKey]*position),
	}
}

// Reserve transfers amount from available to reserved. Fails without
// mutating state if available < amount.
func (a *CapitalAccount) Reserve(amount decimal.Decimal) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.available.LessThan(amount) {
		accountReserveRejectedTotal.WithLabelValues(string(a.venue)).Inc()
		return false
	}
	a.available = a.available.Sub(amount)
	a.reserved = a.reserved.Add(amount)
	a.reportLocked()
	return true
}

// Release returns amount from reserved to available. Used on failure,
// cancel, or timeout.
func (a *CapitalAccount) Release(amount decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reserved = a.reserved.Sub(amount)
	a.available = a.available.Add(amount)
	a.reportLocked()
}

// ConfirmSpend debits reserved funds permanently; used after a successful
// fill. This is the only operation that changes available+reserved.
func (a *CapitalAccount) ConfirmSpend(amount decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reserved = a.reserved.Sub(amount)
	a.reportLocked()
}

// AddPosition folds a new fill into the position for (symbol, side),
// recomputing the weighted-average cost.
func (a *CapitalAccount) AddPosition(symbol string, side types.Side, qty int64, cost decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := positionKey{Symbol: symbol, Side: side}
	p, ok := a.positions[key]
	if !ok {
		a.positions[key] = &position{Qty: qty, AvgCost: cost}
		return
	}

	totalCost := p.AvgCost.Mul(decimal.NewFromInt(p.Qty)).Add(cost.Mul(decimal.NewFromInt(qty)))
	totalQty := p.Qty + qty
	p.Qty = totalQty
	if totalQty > 0 {
		p.AvgCost = totalCost.Div(decimal.NewFromInt(totalQty))
	}
}

// PositionQty returns the current quantity held for (symbol, side).
func (a *CapitalAccount) PositionQty(symbol string, side types.Side) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.positions[positionKey{Symbol: symbol, Side: side}]
	if !ok {
		return 0
	}
	return p.Qty
}

// Available returns the current spendable cash balance.
func (a *CapitalAccount) Available() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.available
}

// Reserved returns the current reserved (earmarked, not spendable) balance.
func (a *CapitalAccount) Reserved() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reserved
}

// Total returns available+reserved, the quantity the sum invariant (§4.8)
// holds constant across reserve/release pairs.
func (a *CapitalAccount) Total() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.available.Add(a.reserved)
}

func (a *CapitalAccount) reportLocked() {
	accountAvailable.WithLabelValues(string(a.venue)).Set(toFloat(a.available))
	accountReserved.WithLabelValues(string(a.venue)).Set(toFloat(a.reserved))
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Ledger bundles both venues' accounts behind the names the rest of the
// engine addresses them by.
type Ledger struct {
	accounts map[types.Venue]*CapitalAccount
}

// New constructs a Ledger from a venue-to-account map.
func New(accounts map[types.Venue]*CapitalAccount) *Ledger {
	return &Ledger{accounts: accounts}
}

// Account returns the CapitalAccount for venue, or an error if unknown.
func (l *Ledger) Account(venue types.Venue) (*CapitalAccount, error) {
	a, ok := l.accounts[venue]
	if !ok {
		return nil, fmt.Errorf("ledger: unknown venue %q", venue)
	}
	return a, nil
}

// TotalAvailable sums spendable cash across every venue the ledger knows
// about, for collateral-wide checks like the balance circuit breaker.
func (l *Ledger) TotalAvailable() decimal.Decimal {
	total := decimal.Zero
	for _, a := range l.accounts {
		total = total.Add(a.Available())
	}
	return total
}
