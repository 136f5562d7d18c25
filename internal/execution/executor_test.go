package execution

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/parityarb/xvenue-arb/internal/gateway"
	"github.com/parityarb/xvenue-arb/internal/ledger"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedOrder struct {
	status    types.OrderStatus
	filledQty int64
	fillPrice decimal.Decimal
}

// fakeGateway scripts PlaceOrder/GetOrder responses per call index, so tests
// can drive specific leg outcomes (full fill, reject, partial) without a
// real venue.
type fakeGateway struct {
	venue types.Venue

	mu        sync.Mutex
	seq       int
	scripts   []scriptedOrder
	placeErrs []error
	orders    map[string]scriptedOrder
	onGetOrder func()
}

func newFakeGateway(venue types.Venue, scripts ...scriptedOrder) *fakeGateway {
	return &fakeGateway{venue: venue, scripts: scripts, orders: make(map[string]scriptedOrder)}
}

func (g *fakeGateway) Venue() types.Venue                                    { return g.venue }
func (g *fakeGateway) Connect(ctx context.Context) error                     { return nil }
func (g *fakeGateway) Disconnect(ctx context.Context) error                  { return nil }
func (g *fakeGateway) Subscribe(ctx context.Context, ids []string) error     { return nil }
func (g *fakeGateway) Unsubscribe(ctx context.Context, ids []string) error   { return nil }
func (g *fakeGateway) Receive(ctx context.Context) (gateway.RawEvent, error) { return gateway.RawEvent{}, nil }
func (g *fakeGateway) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (g *fakeGateway) GetPositions(ctx context.Context) ([]gateway.Position, error) { return nil, nil }

func (g *fakeGateway) PlaceOrder(ctx context.Context, marketID string, side types.Side, qty int64, price decimal.Decimal) (gateway.OrderHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := g.seq
	g.seq++
	if idx < len(g.placeErrs) && g.placeErrs[idx] != nil {
		return gateway.OrderHandle{}, g.placeErrs[idx]
	}

	sc := scriptedOrder{status: types.OrderFilled, filledQty: qty, fillPrice: price}
	if idx < len(g.scripts) {
		sc = g.scripts[idx]
	}

	orderID := fmt.Sprintf("%s-order-%d", g.venue, idx)
	g.orders[orderID] = sc
	return gateway.OrderHandle{OrderID: orderID, Status: sc.status}, nil
}

func (g *fakeGateway) CancelOrder(ctx context.Context, orderID string) (types.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := g.orders[orderID]
	o.status = types.OrderCancelled
	g.orders[orderID] = o
	return o.status, nil
}

func (g *fakeGateway) GetOrder(ctx context.Context, orderID string) (gateway.OrderState, error) {
	if g.onGetOrder != nil {
		g.onGetOrder()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return gateway.OrderState{}, fmt.Errorf("unknown order %s", orderID)
	}
	return gateway.OrderState{Status: o.status, FilledQty: o.filledQty, FillPrice: o.fillPrice}, nil
}

var _ gateway.Gateway = (*fakeGateway)(nil)

func testLedger(availA, availB string) *ledger.Ledger {
	return ledger.New(map[types.Venue]*ledger.CapitalAccount{
		types.VenueStream: ledger.NewAccount(types.VenueStream, decimal.RequireFromString(availA)),
		types.VenueRPC:    ledger.NewAccount(types.VenueRPC, decimal.RequireFromString(availB)),
	})
}

func baseConfig(l *ledger.Ledger, gws map[types.Venue]gateway.Gateway) Config {
	return Config{
		Gateways:     gws,
		Ledger:       l,
		Logger:       zap.NewNop(),
		PollInterval: time.Millisecond,
		LegTimeout:   50 * time.Millisecond,
		HedgePrice:   decimal.RequireFromString("0.99"),
		HedgeTimeout: 50 * time.Millisecond,
	}
}

func s1Opportunity(qty int64) *types.Opportunity {
	return &types.Opportunity{
		ID:     "opp-1",
		Symbol: "ELECTION-2026",
		LegA:   types.LegQuote{Venue: types.VenueStream, Side: types.SideYes, Price: decimal.RequireFromString("0.40")},
		LegB:   types.LegQuote{Venue: types.VenueRPC, Side: types.SideNo, Price: decimal.RequireFromString("0.43")},
		Quantity:    qty,
		GrossProfit: decimal.RequireFromString("0.17").Mul(decimal.NewFromInt(qty)),
		FeeA:        decimal.RequireFromString("0.02").Mul(decimal.NewFromInt(qty)),
		FeeB:        decimal.RequireFromString("0.01").Mul(decimal.NewFromInt(qty)),
		NetProfit:   decimal.RequireFromString("0.13").Mul(decimal.NewFromInt(qty)),
		Ts:          time.Now(),
	}
}

// Property 6(a): success leaves both reservations confirmed and both
// positions reflecting the fills.
func TestExecute_BothLegsFill_Success(t *testing.T) {
	l := testLedger("100", "100")
	gwA := newFakeGateway(types.VenueStream, scriptedOrder{status: types.OrderFilled, filledQty: 5, fillPrice: decimal.RequireFromString("0.40")})
	gwB := newFakeGateway(types.VenueRPC, scriptedOrder{status: types.OrderFilled, filledQty: 5, fillPrice: decimal.RequireFromString("0.43")})

	e := New(baseConfig(l, map[types.Venue]gateway.Gateway{types.VenueStream: gwA, types.VenueRPC: gwB}))
	result := e.Execute(context.Background(), s1Opportunity(5))

	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	assert.True(t, result.LegA.Filled)
	assert.True(t, result.LegB.Filled)
	assert.True(t, result.NetProfit.GreaterThan(decimal.Zero))

	accountA, _ := l.Account(types.VenueStream)
	accountB, _ := l.Account(types.VenueRPC)
	assert.EqualValues(t, 5, accountA.PositionQty("ELECTION-2026", types.SideYes))
	assert.EqualValues(t, 5, accountB.PositionQty("ELECTION-2026", types.SideNo))
	assert.True(t, accountA.Reserved().IsZero())
	assert.True(t, accountB.Reserved().IsZero())
}

// S5 "Leg B fails -> rollback": leg A fills 5 YES @0.40 on V-Stream, leg B
// is rejected, the hedge (5 NO @0.99 on V-Stream) fills.
func TestExecute_S5_LegBRejected_RollsBackWithHedge(t *testing.T) {
	l := testLedger("100", "100")
	gwA := newFakeGateway(types.VenueStream,
		scriptedOrder{status: types.OrderFilled, filledQty: 5, fillPrice: decimal.RequireFromString("0.40")}, // leg A
		scriptedOrder{status: types.OrderFilled, filledQty: 5, fillPrice: decimal.RequireFromString("0.99")}, // hedge
	)
	gwB := newFakeGateway(types.VenueRPC, scriptedOrder{status: types.OrderRejected, filledQty: 0})

	e := New(baseConfig(l, map[types.Venue]gateway.Gateway{types.VenueStream: gwA, types.VenueRPC: gwB}))
	result := e.Execute(context.Background(), s1Opportunity(5))

	require.Equal(t, types.OutcomeRollback, result.Outcome)
	require.NotNil(t, result.Hedge)
	assert.True(t, result.Hedge.Filled)
	assert.False(t, result.ManualIntervention)
	assert.Equal(t, types.SideNo, result.Hedge.Side)
	assert.Equal(t, types.VenueStream, result.Hedge.Venue)

	accountA, _ := l.Account(types.VenueStream)
	accountB, _ := l.Account(types.VenueRPC)
	assert.EqualValues(t, 5, accountA.PositionQty("ELECTION-2026", types.SideYes))
	assert.EqualValues(t, 5, accountA.PositionQty("ELECTION-2026", types.SideNo))
	assert.True(t, accountA.Reserved().IsZero())
	assert.True(t, accountB.Reserved().IsZero(), "leg B's rejected reservation must be fully released")
	assert.EqualValues(t, 0, accountB.PositionQty("ELECTION-2026", types.SideNo))
}

// Property 6(c) when the hedge order is rejected: rollback still
// terminates with a recorded, surfaced manual-intervention marker rather
// than hanging or silently retrying.
func TestExecute_S5_HedgeAlsoFails_SurfacesManualIntervention(t *testing.T) {
	l := testLedger("100", "100")
	gwA := newFakeGateway(types.VenueStream,
		scriptedOrder{status: types.OrderFilled, filledQty: 5, fillPrice: decimal.RequireFromString("0.40")},
		scriptedOrder{status: types.OrderRejected, filledQty: 0},
	)
	gwB := newFakeGateway(types.VenueRPC, scriptedOrder{status: types.OrderRejected, filledQty: 0})

	e := New(baseConfig(l, map[types.Venue]gateway.Gateway{types.VenueStream: gwA, types.VenueRPC: gwB}))
	result := e.Execute(context.Background(), s1Opportunity(5))

	require.Equal(t, types.OutcomeRollback, result.Outcome)
	require.NotNil(t, result.Hedge)
	assert.False(t, result.Hedge.Filled)
	assert.True(t, result.ManualIntervention)
	assert.Contains(t, result.Error, "manual intervention required")
}

// Property 6(b): reservation failure aborts with no fills and nothing
// reserved on either venue.
func TestExecute_InsufficientCapital_AbortsBeforeAnyOrder(t *testing.T) {
	l := testLedger("0.01", "100")
	gwA := newFakeGateway(types.VenueStream)
	gwB := newFakeGateway(types.VenueRPC)

	e := New(baseConfig(l, map[types.Venue]gateway.Gateway{types.VenueStream: gwA, types.VenueRPC: gwB}))
	result := e.Execute(context.Background(), s1Opportunity(5))

	require.Equal(t, types.OutcomeFailed, result.Outcome)
	assert.Zero(t, gwA.seq, "leg A must never be submitted once reservation fails")
	assert.Zero(t, gwB.seq)

	accountA, _ := l.Account(types.VenueStream)
	accountB, _ := l.Account(types.VenueRPC)
	assert.True(t, accountA.Reserved().IsZero())
	assert.True(t, accountB.Reserved().IsZero())
}

// When leg A reserves but leg B's reservation fails, leg A's reservation
// must be released too (Idle -> Reserved rollback, step 1).
func TestExecute_LegBReserveFails_ReleasesLegA(t *testing.T) {
	l := testLedger("100", "0.01")
	gwA := newFakeGateway(types.VenueStream)
	gwB := newFakeGateway(types.VenueRPC)

	e := New(baseConfig(l, map[types.Venue]gateway.Gateway{types.VenueStream: gwA, types.VenueRPC: gwB}))
	result := e.Execute(context.Background(), s1Opportunity(5))

	require.Equal(t, types.OutcomeFailed, result.Outcome)
	accountA, _ := l.Account(types.VenueStream)
	assert.True(t, accountA.Reserved().IsZero(), "leg A reservation must be released when leg B cannot reserve")
	assert.True(t, accountA.Available().Equal(decimal.RequireFromString("100")))
}

// No two executions for the same symbol run concurrently; a slow GetOrder
// on one should block a second Execute call for the same symbol from
// reserving until the first reaches a terminal state.
func TestExecute_SerializesPerSymbol(t *testing.T) {
	l := testLedger("100", "100")
	var active, maxActive int32
	var mu sync.Mutex
	track := func() {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}

	gwA := newFakeGateway(types.VenueStream,
		scriptedOrder{status: types.OrderFilled, filledQty: 1, fillPrice: decimal.RequireFromString("0.40")},
		scriptedOrder{status: types.OrderFilled, filledQty: 1, fillPrice: decimal.RequireFromString("0.40")},
	)
	gwA.onGetOrder = track
	gwB := newFakeGateway(types.VenueRPC,
		scriptedOrder{status: types.OrderFilled, filledQty: 1, fillPrice: decimal.RequireFromString("0.43")},
		scriptedOrder{status: types.OrderFilled, filledQty: 1, fillPrice: decimal.RequireFromString("0.43")},
	)

	e := New(baseConfig(l, map[types.Venue]gateway.Gateway{types.VenueStream: gwA, types.VenueRPC: gwB}))

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			e.Execute(context.Background(), s1Opportunity(1))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxActive, "executions for the same symbol must never overlap")
}
