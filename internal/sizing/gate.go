// Package sizing implements the Opportunity Gate: the staleness check and
// the capital/position-bounded sizing step between the stateless Detector
// and the Executor, written in the same decimal price/fee arithmetic
// style as internal/arbitrage.
package sizing

import (
	"time"

	"github.com/parityarb/xvenue-arb/internal/arbitrage"
	"github.com/parityarb/xvenue-arb/internal/ledger"
	"github.com/parityarb/xvenue-arb/pkg/cache"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// RejectReason names why the Gate declined to forward an opportunity, for
// metrics and logging.
type RejectReason string

const (
	RejectNone           RejectReason = ""
	RejectStale          RejectReason = "stale"
	RejectZeroSize       RejectReason = "zero_size"
	RejectNetNonPositive RejectReason = "net_non_positive"
	RejectCooldown       RejectReason = "cooldown"
)

// Config parameterizes the Gate from execution configuration.
type Config struct {
	MaxStaleSeconds      float64
	MaxCapitalPerMarket  decimal.Decimal
	MaxContractsPerEvent int64
	MinNetProfit         decimal.Decimal
	StreamRate           decimal.Decimal
	RPCPerContractFee    decimal.Decimal
	SlippagePerContract  decimal.Decimal

	// Cooldown, when set, suppresses repeat acceptances for the same
	// symbol for CooldownPeriod after one is accepted. The Central Order
	// Book re-runs detection on every tick pair, so a parity gap that
	// persists across several ticks would otherwise be accepted and
	// forwarded to the Executor once per tick until the first execution
	// has had a chance to move the market. Nil Cache disables the check.
	Cooldown       cache.Cache
	CooldownPeriod time.Duration
}

// Gate evaluates a detector opportunity against staleness and capital
// limits, and rescales it at the largest tradeable quantity.
type Gate struct {
	cfg    Config
	ledger *ledger.Ledger
}

// New creates a Gate bound to cfg and a ledger for capital/position reads.
func New(cfg Config, l *ledger.Ledger) *Gate {
	return &Gate{cfg: cfg, ledger: l}
}

// Evaluate applies the staleness gate, then sizes and rescales opp.
// tickA and tickB are the ticks the opportunity's legs
// were quoted from, keyed by the opportunity's own LegA.Venue/LegB.Venue
// ordering. now is the wall-clock instant the gate runs, supplied by the
// caller so tests can control it.
func (g *Gate) Evaluate(opp *types.Opportunity, tickA, tickB types.NormalizedTick, now time.Time) (*types.Opportunity, RejectReason) {
	maxStale := time.Duration(g.cfg.MaxStaleSeconds * float64(time.Second))
	if now.Sub(tickA.TsLocal) > maxStale || now.Sub(tickB.TsLocal) > maxStale {
		OpportunitiesRejectedTotal.WithLabelValues(string(RejectStale)).Inc()
		return nil, RejectStale
	}

	if g.cfg.Cooldown != nil && g.cfg.CooldownPeriod > 0 {
		if _, onCooldown := g.cfg.Cooldown.Get(opp.Symbol); onCooldown {
			OpportunitiesRejectedTotal.WithLabelValues(string(RejectCooldown)).Inc()
			return nil, RejectCooldown
		}
	}

	accountA, err := g.ledger.Account(opp.LegA.Venue)
	if err != nil {
		OpportunitiesRejectedTotal.WithLabelValues(string(RejectZeroSize)).Inc()
		return nil, RejectZeroSize
	}
	accountB, err := g.ledger.Account(opp.LegB.Venue)
	if err != nil {
		OpportunitiesRejectedTotal.WithLabelValues(string(RejectZeroSize)).Inc()
		return nil, RejectZeroSize
	}

	priceSum := opp.LegA.Price.Add(opp.LegB.Price)

	q := capitalBound(g.cfg.MaxCapitalPerMarket, priceSum)
	q = minInt64(q, positionBound(g.cfg.MaxContractsPerEvent, accountA.PositionQty(opp.Symbol, opp.LegA.Side)))
	q = minInt64(q, positionBound(g.cfg.MaxContractsPerEvent, accountB.PositionQty(opp.Symbol, opp.LegB.Side)))
	q = minInt64(q, cashBound(accountA.Available(), opp.LegA.Price))
	q = minInt64(q, cashBound(accountB.Available(), opp.LegB.Price))

	if q <= 0 {
		OpportunitiesRejectedTotal.WithLabelValues(string(RejectZeroSize)).Inc()
		return nil, RejectZeroSize
	}

	sized := rescale(opp, q, g.cfg)
	if sized.NetProfit.LessThanOrEqual(g.cfg.MinNetProfit) {
		OpportunitiesRejectedTotal.WithLabelValues(string(RejectNetNonPositive)).Inc()
		return nil, RejectNetNonPositive
	}

	if g.cfg.Cooldown != nil && g.cfg.CooldownPeriod > 0 {
		g.cfg.Cooldown.Set(opp.Symbol, true, g.cfg.CooldownPeriod)
	}

	return sized, RejectNone
}

func capitalBound(maxCapital, priceSum decimal.Decimal) int64 {
	if priceSum.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return maxCapital.Div(priceSum).IntPart()
}

func positionBound(maxContracts, currentQty int64) int64 {
	remaining := maxContracts - currentQty
	if remaining < 0 {
		return 0
	}
	return remaining
}

func cashBound(available, price decimal.Decimal) int64 {
	if price.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return available.Div(price).IntPart()
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// rescale recomputes gross, fees, slippage and net profit at quantity q,
// since fees and slippage do not scale linearly at every venue.
func rescale(opp *types.Opportunity, q int64, cfg Config) *types.Opportunity {
	priceSum := opp.LegA.Price.Add(opp.LegB.Price)
	gross := decimal.New(1, 0).Sub(priceSum).Mul(decimal.NewFromInt(q))

	feeA := feeFor(opp.LegA.Venue, opp.LegA.Price, q, cfg)
	feeB := feeFor(opp.LegB.Venue, opp.LegB.Price, q, cfg)
	slippage := cfg.SlippagePerContract.Mul(decimal.NewFromInt(q))

	net := gross.Sub(feeA).Sub(feeB).Sub(slippage)

	out := *opp
	out.Quantity = q
	out.GrossProfit = gross
	out.FeeA = feeA
	out.FeeB = feeB
	out.SlippageBuffer = slippage
	out.NetProfit = net
	return &out
}

func feeFor(venue types.Venue, price decimal.Decimal, qty int64, cfg Config) decimal.Decimal {
	if venue == types.VenueStream {
		return arbitrage.StreamFee(cfg.StreamRate, price, qty, arbitrage.FeeTaker)
	}
	return arbitrage.RPCFee(cfg.RPCPerContractFee, qty, arbitrage.FeeTaker)
}
