// Package gateway defines the venue-facing abstraction shared by both
// concrete venue implementations, so the core engine never depends on
// either venue's wire format directly.
package gateway

import (
	"context"
	"time"

	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// EventKind tags the sum type of inbound raw events: a tagged variant
// rather than a dynamically typed blob.
type EventKind int

const (
	EventTick EventKind = iota
	EventOrderAck
	EventHeartbeat
	EventSubscriptionAck
)

// RawEvent is the venue-specific shape emitted by Receive. Normalizers
// pattern-match on Kind and ignore the fields that do not apply.
type RawEvent struct {
	Kind      EventKind
	Venue     types.Venue
	Symbol    string // venue-native identifier, not yet mapped to a unified symbol
	Side      types.Side
	Ask       decimal.Decimal
	AskSize   decimal.Decimal
	Bid       decimal.Decimal
	BidSize   decimal.Decimal
	VenueTime time.Time
	OrderID   string
	Status    types.OrderStatus
}

// OrderHandle is the result of a successful PlaceOrder call.
type OrderHandle struct {
	OrderID string
	Status  types.OrderStatus
}

// OrderState is the result of a GetOrder poll.
type OrderState struct {
	Status    types.OrderStatus
	FilledQty int64
	FillPrice decimal.Decimal
}

// Position describes one held position as reported by the venue.
type Position struct {
	Symbol string
	Side   types.Side
	Qty    int64
}

// Gateway is the abstraction both V-Stream and V-RPC implement. Venue
// authentication and signing, and the raw transport wire format, are
// internal to each implementation and deliberately not part of this
// interface.
type Gateway interface {
	Venue() types.Venue

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	Subscribe(ctx context.Context, marketIDs []string) error
	Unsubscribe(ctx context.Context, marketIDs []string) error

	// Receive blocks until the next raw event is available or ctx is
	// cancelled.
	Receive(ctx context.Context) (RawEvent, error)

	PlaceOrder(ctx context.Context, marketID string, side types.Side, qty int64, limitPrice decimal.Decimal) (OrderHandle, error)
	CancelOrder(ctx context.Context, orderID string) (types.OrderStatus, error)
	GetOrder(ctx context.Context, orderID string) (OrderState, error)

	GetBalance(ctx context.Context) (decimal.Decimal, error)
	GetPositions(ctx context.Context) ([]Position, error)
}
