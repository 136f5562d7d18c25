// Package execution implements the two-legged execution state machine:
// reserve on both venues, open leg A, open leg B against the quantity leg
// A actually filled, and on leg-B failure roll back with a same-venue
// hedge on the opposite side. A channel of opportunities is consumed by a
// background goroutine with per-opportunity metrics and structured logs;
// fill confirmation uses a bounded-deadline retry loop polling order
// status through the Gateway/CapitalAccount abstractions.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/parityarb/xvenue-arb/internal/circuitbreaker"
	"github.com/parityarb/xvenue-arb/internal/gateway"
	"github.com/parityarb/xvenue-arb/internal/ledger"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sink persists a terminal ExecutionResult. Implemented by internal/storage.
type Sink interface {
	RecordExecution(ctx context.Context, result types.ExecutionResult) error
}

// Config parameterizes the Executor.
type Config struct {
	Gateways       map[types.Venue]gateway.Gateway
	Ledger         *ledger.Ledger
	CircuitBreaker *circuitbreaker.BalanceCircuitBreaker // optional
	Sink           Sink                                  // optional

	Logger *zap.Logger

	PollInterval time.Duration
	LegTimeout   time.Duration
	HedgePrice   decimal.Decimal
	HedgeTimeout time.Duration
}

// Executor runs the reserve/leg-A/leg-B/commit state machine. No two
// executions for the same symbol run concurrently; different symbols do.
type Executor struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	inFlight map[string]struct{}
}

// New creates an Executor from cfg.
func New(cfg Config) *Executor {
	e := &Executor{cfg: cfg, logger: cfg.Logger, inFlight: make(map[string]struct{})}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Run consumes sized opportunities from ch, spawning one goroutine per
// accepted opportunity. It returns when ctx is cancelled or ch is closed,
// after waiting for in-flight executions to reach a terminal state.
func (e *Executor) Run(ctx context.Context, ch <-chan *types.Opportunity) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("executor-stopping")
			return
		case opp, ok := <-ch:
			if !ok {
				e.logger.Info("opportunity-channel-closed")
				return
			}
			wg.Add(1)
			go func(o *types.Opportunity) {
				defer wg.Done()
				e.Execute(ctx, o)
			}(opp)
		}
	}
}

// Execute runs one opportunity through the full state machine and blocks
// until it reaches a terminal ExecutionResult.
func (e *Executor) Execute(ctx context.Context, opp *types.Opportunity) *types.ExecutionResult {
	e.lockSymbol(opp.Symbol)
	defer e.unlockSymbol(opp.Symbol)

	OpportunitiesReceived.Inc()

	if e.cfg.CircuitBreaker != nil && !e.cfg.CircuitBreaker.IsEnabled() {
		e.logger.Warn("skipping-opportunity-circuit-breaker-disabled",
			zap.String("opportunity-id", opp.ID), zap.String("symbol", opp.Symbol))
		OpportunitiesSkippedTotal.WithLabelValues("circuit_breaker").Inc()
		result := &types.ExecutionResult{
			OpportunityID: opp.ID,
			Symbol:        opp.Symbol,
			ExecutedAt:    time.Now(),
			Outcome:       types.OutcomeFailed,
			Error:         "circuit breaker disabled",
		}
		e.record(ctx, result)
		return result
	}

	start := time.Now()
	result := e.run(ctx, opp)
	ExecutionDurationSeconds.Observe(time.Since(start).Seconds())

	switch result.Outcome {
	case types.OutcomeSuccess:
		OpportunitiesExecuted.Inc()
		f, _ := result.NetProfit.Float64()
		ProfitRealizedUSD.Add(f)
		if e.cfg.CircuitBreaker != nil {
			cost, _ := result.TotalCost.Float64()
			e.cfg.CircuitBreaker.RecordTrade(cost)
		}
	case types.OutcomeFailed:
		ExecutionErrorsTotal.Inc()
	case types.OutcomeRollback:
		RollbacksTotal.WithLabelValues(fmt.Sprintf("%t", result.Hedge != nil && result.Hedge.Filled)).Inc()
		if result.ManualIntervention {
			ManualInterventionTotal.Inc()
		}
	}

	e.logger.Info("execution-terminal",
		zap.String("opportunity-id", opp.ID),
		zap.String("symbol", opp.Symbol),
		zap.String("outcome", string(result.Outcome)))

	e.record(ctx, result)
	return result
}

func (e *Executor) lockSymbol(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for {
		if _, busy := e.inFlight[symbol]; !busy {
			e.inFlight[symbol] = struct{}{}
			return
		}
		e.cond.Wait()
	}
}

func (e *Executor) unlockSymbol(symbol string) {
	e.mu.Lock()
	delete(e.inFlight, symbol)
	e.mu.Unlock()
	e.cond.Broadcast()
}

func (e *Executor) record(ctx context.Context, result *types.ExecutionResult) {
	if e.cfg.Sink == nil {
		return
	}
	if err := e.cfg.Sink.RecordExecution(ctx, *result); err != nil {
		e.logger.Error("execution-result-persist-failed", zap.Error(err))
	}
}

// run implements Idle -> Reserved -> LegA-Open -> LegA-Filled -> LegB-Open
// -> Committed|Rolled-Back|Aborted.
func (e *Executor) run(ctx context.Context, opp *types.Opportunity) *types.ExecutionResult {
	result := &types.ExecutionResult{OpportunityID: opp.ID, Symbol: opp.Symbol, ExecutedAt: time.Now()}

	accountA, err := e.cfg.Ledger.Account(opp.LegA.Venue)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		result.Error = err.Error()
		return result
	}
	accountB, err := e.cfg.Ledger.Account(opp.LegB.Venue)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		result.Error = err.Error()
		return result
	}

	costA := opp.LegA.Price.Mul(decimal.NewFromInt(opp.Quantity))
	costB := opp.LegB.Price.Mul(decimal.NewFromInt(opp.Quantity))

	// Idle -> Reserved
	if !accountA.Reserve(costA) {
		result.Outcome = types.OutcomeFailed
		result.Error = (&types.InsufficientCapitalError{Venue: opp.LegA.Venue, Symbol: opp.Symbol, Reason: "reserve leg A"}).Error()
		return result
	}
	if !accountB.Reserve(costB) {
		accountA.Release(costA)
		result.Outcome = types.OutcomeFailed
		result.Error = (&types.InsufficientCapitalError{Venue: opp.LegB.Venue, Symbol: opp.Symbol, Reason: "reserve leg B"}).Error()
		return result
	}

	// Reserved -> LegA-Open -> {LegA-Filled | Aborted}
	legA, err := e.submitAndPoll(ctx, opp.LegA.Venue, opp.Symbol, opp.LegA.Side, opp.Quantity, opp.LegA.Price)
	result.LegA = legA
	if err != nil {
		accountA.Release(costA)
		accountB.Release(costB)
		result.Outcome = types.OutcomeFailed
		result.Error = (&types.OrderSubmitError{Venue: opp.LegA.Venue, OrderID: legA.OrderID, Reason: err.Error()}).Error()
		return result
	}

	// Release the portion of leg A's reservation that never filled.
	if legA.FillQty < opp.Quantity {
		accountA.Release(opp.LegA.Price.Mul(decimal.NewFromInt(opp.Quantity - legA.FillQty)))
	}

	if legA.FillQty == 0 {
		accountB.Release(costB)
		result.Outcome = types.OutcomeFailed
		result.Error = fmt.Sprintf("leg A did not fill: %s", legA.Status)
		return result
	}

	// LegA-Filled -> LegB-Open, sized to the quantity leg A actually filled.
	legBQty := legA.FillQty
	if legBQty < opp.Quantity {
		accountB.Release(opp.LegB.Price.Mul(decimal.NewFromInt(opp.Quantity - legBQty)))
	}

	legB, legBErr := e.submitAndPoll(ctx, opp.LegB.Venue, opp.Symbol, opp.LegB.Side, legBQty, opp.LegB.Price)
	result.LegB = legB

	if legBErr != nil || legB.FillQty < legBQty {
		return e.rollback(ctx, opp, accountA, accountB, legA, legB, legBQty, result)
	}

	// LegB-Filled -> Committed.
	accountA.ConfirmSpend(opp.LegA.Price.Mul(decimal.NewFromInt(legA.FillQty)))
	accountA.AddPosition(opp.Symbol, opp.LegA.Side, legA.FillQty, legA.FillPrice)
	accountB.ConfirmSpend(opp.LegB.Price.Mul(decimal.NewFromInt(legB.FillQty)))
	accountB.AddPosition(opp.Symbol, opp.LegB.Side, legB.FillQty, legB.FillPrice)

	totalCost := legA.FillPrice.Mul(decimal.NewFromInt(legA.FillQty)).Add(legB.FillPrice.Mul(decimal.NewFromInt(legB.FillQty)))
	fees := opp.FeeA.Add(opp.FeeB)
	revenue := decimal.NewFromInt(legA.FillQty) // the winning side pays exactly $1/contract
	netProfit := revenue.Sub(totalCost).Sub(fees)

	result.TotalCost = totalCost
	result.ActualFees = fees
	result.NetProfit = netProfit
	result.Outcome = types.OutcomeSuccess
	return result
}

// rollback handles a leg-B failure or partial fill: release whatever leg-B
// reservation is unused, confirm what leg B did fill, confirm leg A's fill,
// then hedge leg A's un-offset quantity on leg A's own venue at the
// opposite side.
func (e *Executor) rollback(ctx context.Context, opp *types.Opportunity, accountA, accountB *ledger.CapitalAccount, legA, legB types.LegResult, legBQty int64, result *types.ExecutionResult) *types.ExecutionResult {
	if legB.FillQty > 0 {
		accountB.ConfirmSpend(opp.LegB.Price.Mul(decimal.NewFromInt(legB.FillQty)))
		accountB.AddPosition(opp.Symbol, opp.LegB.Side, legB.FillQty, legB.FillPrice)
	}
	if unfilled := legBQty - legB.FillQty; unfilled > 0 {
		accountB.Release(opp.LegB.Price.Mul(decimal.NewFromInt(unfilled)))
	}

	accountA.ConfirmSpend(opp.LegA.Price.Mul(decimal.NewFromInt(legA.FillQty)))
	accountA.AddPosition(opp.Symbol, opp.LegA.Side, legA.FillQty, legA.FillPrice)

	hedgeQty := legA.FillQty - legB.FillQty
	hedge := e.hedge(ctx, opp, accountA, hedgeQty)
	result.Hedge = &hedge
	result.Outcome = types.OutcomeRollback
	if !hedge.Filled {
		result.ManualIntervention = true
		result.Error = (&types.RollbackFailure{Symbol: opp.Symbol, Venue: opp.LegA.Venue, Reason: "hedge did not fill"}).Error()
		e.logger.Error("rollback-hedge-failed-manual-intervention-required",
			zap.String("symbol", opp.Symbol), zap.String("venue", string(opp.LegA.Venue)), zap.Int64("qty", hedgeQty))
	}
	return result
}

// hedge places a same-venue, opposite-side order for qty at a
// near-certainty price to neutralize a filled leg-A position that leg B
// failed to offset. It is never retried silently.
func (e *Executor) hedge(ctx context.Context, opp *types.Opportunity, accountA *ledger.CapitalAccount, qty int64) types.LegResult {
	hedgeSide := opp.LegA.Side.Opposite()
	if qty <= 0 {
		return types.LegResult{Venue: opp.LegA.Venue, Side: hedgeSide, Filled: true}
	}

	hedgeCost := e.cfg.HedgePrice.Mul(decimal.NewFromInt(qty))
	if !accountA.Reserve(hedgeCost) {
		e.logger.Error("rollback-hedge-reservation-failed",
			zap.String("symbol", opp.Symbol), zap.String("venue", string(opp.LegA.Venue)))
		return types.LegResult{Venue: opp.LegA.Venue, Side: hedgeSide, Filled: false}
	}

	hedgeCtx, cancel := context.WithTimeout(context.Background(), e.cfg.HedgeTimeout)
	defer cancel()

	hedge, err := e.submitAndPoll(hedgeCtx, opp.LegA.Venue, opp.Symbol, hedgeSide, qty, e.cfg.HedgePrice)
	if err != nil || !hedge.Filled {
		accountA.Release(hedgeCost)
		return hedge
	}

	accountA.ConfirmSpend(e.cfg.HedgePrice.Mul(decimal.NewFromInt(hedge.FillQty)))
	accountA.AddPosition(opp.Symbol, hedgeSide, hedge.FillQty, hedge.FillPrice)
	if hedge.FillQty < qty {
		accountA.Release(e.cfg.HedgePrice.Mul(decimal.NewFromInt(qty - hedge.FillQty)))
	}
	return hedge
}

// submitAndPoll places one leg's order and polls it to a terminal state,
// expressed as a bounded-deadline loop rather than sleep-in-loop so
// cancellation is immediate.
func (e *Executor) submitAndPoll(ctx context.Context, venue types.Venue, marketID string, side types.Side, qty int64, price decimal.Decimal) (types.LegResult, error) {
	gw, ok := e.cfg.Gateways[venue]
	if !ok {
		return types.LegResult{Venue: venue, Side: side}, fmt.Errorf("no gateway configured for venue %s", venue)
	}

	handle, err := gw.PlaceOrder(ctx, marketID, side, qty, price)
	if err != nil {
		return types.LegResult{Venue: venue, Side: side}, err
	}

	deadline := time.Now().Add(e.cfg.LegTimeout)
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		state, queryErr := gw.GetOrder(ctx, handle.OrderID)
		if queryErr != nil {
			e.logger.Warn("order-query-failed-retrying", zap.String("order-id", handle.OrderID), zap.Error(queryErr))
		} else {
			switch state.Status {
			case types.OrderFilled:
				return types.LegResult{Venue: venue, Side: side, OrderID: handle.OrderID, Status: state.Status, FillPrice: state.FillPrice, FillQty: state.FilledQty, Filled: true}, nil
			case types.OrderCancelled, types.OrderRejected:
				return types.LegResult{Venue: venue, Side: side, OrderID: handle.OrderID, Status: state.Status, FillPrice: state.FillPrice, FillQty: state.FilledQty, Filled: state.FilledQty > 0}, nil
			}
		}

		if !time.Now().Before(deadline) {
			_, _ = gw.CancelOrder(ctx, handle.OrderID)
			final, finalErr := gw.GetOrder(ctx, handle.OrderID)
			if finalErr == nil && final.FilledQty > 0 {
				return types.LegResult{Venue: venue, Side: side, OrderID: handle.OrderID, Status: types.OrderTimeout, FillPrice: final.FillPrice, FillQty: final.FilledQty, Filled: true}, nil
			}
			return types.LegResult{Venue: venue, Side: side, OrderID: handle.OrderID, Status: types.OrderTimeout}, nil
		}

		select {
		case <-ctx.Done():
			return types.LegResult{Venue: venue, Side: side, OrderID: handle.OrderID}, ctx.Err()
		case <-ticker.C:
		}
	}
}
