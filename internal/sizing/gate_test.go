package sizing

import (
	"testing"
	"time"

	"github.com/parityarb/xvenue-arb/internal/ledger"
	"github.com/parityarb/xvenue-arb/pkg/cache"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLedger(availA, availB string) *ledger.Ledger {
	return ledger.New(map[types.Venue]*ledger.CapitalAccount{
		types.VenueStream: ledger.NewAccount(types.VenueStream, decimal.RequireFromString(availA)),
		types.VenueRPC:    ledger.NewAccount(types.VenueRPC, decimal.RequireFromString(availB)),
	})
}

func s1Opportunity() *types.Opportunity {
	return &types.Opportunity{
		Symbol: "SYM",
		LegA:   types.LegQuote{Venue: types.VenueStream, Side: types.SideYes, Price: decimal.RequireFromString("0.40")},
		LegB:   types.LegQuote{Venue: types.VenueRPC, Side: types.SideNo, Price: decimal.RequireFromString("0.43")},
	}
}

func s1Ticks(tsA, tsB time.Time) (types.NormalizedTick, types.NormalizedTick) {
	tickA := types.NormalizedTick{Venue: types.VenueStream, UnifiedSymbol: "SYM", TsLocal: tsA}
	tickB := types.NormalizedTick{Venue: types.VenueRPC, UnifiedSymbol: "SYM", TsLocal: tsB}
	return tickA, tickB
}

// S3 "Stale kills arb"
func TestEvaluate_S3_StaleTickRejected(t *testing.T) {
	cfg := Config{
		MaxStaleSeconds: 5, MaxCapitalPerMarket: decimal.RequireFromString("1000"),
		MaxContractsPerEvent: 1000, MinNetProfit: decimal.Zero,
		StreamRate: decimal.RequireFromString("0.07"), RPCPerContractFee: decimal.RequireFromString("0.01"),
		SlippagePerContract: decimal.RequireFromString("0.01"),
	}
	g := New(cfg, testLedger("1000", "1000"))

	now := time.Now()
	tickA, tickB := s1Ticks(now.Add(-10*time.Second), now)

	_, reason := g.Evaluate(s1Opportunity(), tickA, tickB, now)
	assert.Equal(t, RejectStale, reason)
}

// S4 "Capital caps size": q = floor(2.00 / 0.83) = 2
func TestEvaluate_S4_CapitalCapsSize(t *testing.T) {
	cfg := Config{
		MaxStaleSeconds: 5, MaxCapitalPerMarket: decimal.RequireFromString("2.00"),
		MaxContractsPerEvent: 1000, MinNetProfit: decimal.Zero,
		StreamRate: decimal.RequireFromString("0.07"), RPCPerContractFee: decimal.RequireFromString("0.01"),
		SlippagePerContract: decimal.RequireFromString("0.01"),
	}
	g := New(cfg, testLedger("1000", "1000"))

	now := time.Now()
	tickA, tickB := s1Ticks(now, now)

	sized, reason := g.Evaluate(s1Opportunity(), tickA, tickB, now)
	require.Equal(t, RejectNone, reason)
	assert.EqualValues(t, 2, sized.Quantity)
}

func TestEvaluate_PositionCapRejectsBeyondLimit(t *testing.T) {
	l := testLedger("1000", "1000")
	acctA, _ := l.Account(types.VenueStream)
	acctA.AddPosition("SYM", types.SideYes, 10, decimal.RequireFromString("0.40"))

	cfg := Config{
		MaxStaleSeconds: 5, MaxCapitalPerMarket: decimal.RequireFromString("1000"),
		MaxContractsPerEvent: 10, MinNetProfit: decimal.Zero,
		StreamRate: decimal.RequireFromString("0.07"), RPCPerContractFee: decimal.RequireFromString("0.01"),
		SlippagePerContract: decimal.RequireFromString("0.01"),
	}
	g := New(cfg, l)

	now := time.Now()
	tickA, tickB := s1Ticks(now, now)
	_, reason := g.Evaluate(s1Opportunity(), tickA, tickB, now)
	assert.Equal(t, RejectZeroSize, reason)
}

func TestEvaluate_CashBoundLimitsSize(t *testing.T) {
	cfg := Config{
		MaxStaleSeconds: 5, MaxCapitalPerMarket: decimal.RequireFromString("1000"),
		MaxContractsPerEvent: 1000, MinNetProfit: decimal.Zero,
		StreamRate: decimal.RequireFromString("0.07"), RPCPerContractFee: decimal.RequireFromString("0.01"),
		SlippagePerContract: decimal.RequireFromString("0.01"),
	}
	g := New(cfg, testLedger("0.40", "1000"))

	now := time.Now()
	tickA, tickB := s1Ticks(now, now)
	sized, reason := g.Evaluate(s1Opportunity(), tickA, tickB, now)
	require.Equal(t, RejectNone, reason)
	assert.EqualValues(t, 1, sized.Quantity, "only 0.40 available at venue A covers exactly 1 contract at 0.40")
}

func TestEvaluate_CooldownSuppressesRepeatAcceptance(t *testing.T) {
	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{NumCounters: 100, MaxCost: 100, BufferItems: 64, Logger: zap.NewNop()})
	require.NoError(t, err)
	defer c.Close()

	cfg := Config{
		MaxStaleSeconds: 5, MaxCapitalPerMarket: decimal.RequireFromString("1000"),
		MaxContractsPerEvent: 1000, MinNetProfit: decimal.Zero,
		StreamRate: decimal.RequireFromString("0.07"), RPCPerContractFee: decimal.RequireFromString("0.01"),
		SlippagePerContract: decimal.RequireFromString("0.01"),
		Cooldown:            c,
		CooldownPeriod:      time.Minute,
	}
	g := New(cfg, testLedger("1000", "1000"))

	now := time.Now()
	tickA, tickB := s1Ticks(now, now)

	_, reason := g.Evaluate(s1Opportunity(), tickA, tickB, now)
	require.Equal(t, RejectNone, reason)
	if rc, ok := c.(*cache.RistrettoCache); ok {
		rc.Wait()
	}

	_, reason = g.Evaluate(s1Opportunity(), tickA, tickB, now)
	assert.Equal(t, RejectCooldown, reason, "same symbol accepted twice within the cooldown window")
}

// Property 5 — staleness: any tick older than max_stale_seconds is rejected.
func TestEvaluate_Property_StalenessAlwaysRejects(t *testing.T) {
	cfg := Config{
		MaxStaleSeconds: 2, MaxCapitalPerMarket: decimal.RequireFromString("1000"),
		MaxContractsPerEvent: 1000, MinNetProfit: decimal.Zero,
		StreamRate: decimal.RequireFromString("0.07"), RPCPerContractFee: decimal.RequireFromString("0.01"),
		SlippagePerContract: decimal.RequireFromString("0.01"),
	}
	g := New(cfg, testLedger("1000", "1000"))
	now := time.Now()

	for _, age := range []time.Duration{3 * time.Second, 10 * time.Second, time.Minute} {
		tickA, tickB := s1Ticks(now.Add(-age), now)
		_, reason := g.Evaluate(s1Opportunity(), tickA, tickB, now)
		assert.Equal(t, RejectStale, reason, "age %v should be rejected as stale", age)
	}
}
