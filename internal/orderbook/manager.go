// Package orderbook implements the Central Order Book: for each unified
// symbol, the latest tick per venue, updated under a single-writer mutex
// with detection invoked in the same critical section that performs the
// update, and downstream consumers notified non-blockingly off a bounded
// queue.
package orderbook

import (
	"context"
	"sync"
	"time"

	"github.com/parityarb/xvenue-arb/internal/arbitrage"
	"github.com/parityarb/xvenue-arb/pkg/queue"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"go.uber.org/zap"
)

// SymbolBook holds at most one tick per venue for one unified symbol. At
// most one tick per venue; a new tick replaces, never merges with, the
// prior one.
type SymbolBook struct {
	Stream *types.NormalizedTick
	RPC    *types.NormalizedTick
}

// Manager is the single writer for all SymbolBook state.
type Manager struct {
	mu     sync.RWMutex
	books  map[string]*SymbolBook
	logger *zap.Logger

	detectCfg arbitrage.Config
	opps      *queue.BoundedEventQueue[*types.Opportunity]
}

// New creates an order book manager that publishes detected opportunities
// onto opps.
func New(logger *zap.Logger, detectCfg arbitrage.Config, opps *queue.BoundedEventQueue[*types.Opportunity]) *Manager {
	return &Manager{
		books:     make(map[string]*SymbolBook),
		logger:    logger,
		detectCfg: detectCfg,
		opps:      opps,
	}
}

// Update replaces the venue's slot for tick.UnifiedSymbol and, if both
// venue slots are now populated, runs the Arbitrage Detector over the pair
// within the same critical section, so the pair it reads can never
// straddle a concurrent update to the other venue's slot.
func (m *Manager) Update(tick types.NormalizedTick) {
	start := time.Now()
	defer func() { updateDurationSeconds.Observe(time.Since(start).Seconds()) }()

	m.mu.Lock()
	book, ok := m.books[tick.UnifiedSymbol]
	if !ok {
		book = &SymbolBook{}
		m.books[tick.UnifiedSymbol] = book
	}

	switch tick.Venue {
	case types.VenueStream:
		t := tick
		book.Stream = &t
	case types.VenueRPC:
		t := tick
		book.RPC = &t
	default:
		m.mu.Unlock()
		m.logger.Warn("orderbook-unknown-venue", zap.String("venue", string(tick.Venue)))
		return
	}

	var opp *types.Opportunity
	var detected bool
	if book.Stream != nil && book.RPC != nil {
		opp, detected = arbitrage.Detect(*book.Stream, *book.RPC, m.detectCfg)
	}
	booksTracked.Set(float64(len(m.books)))
	m.mu.Unlock()

	if !detected {
		return
	}

	arbitrage.OpportunitiesDetectedTotal.Inc()
	netCents, _ := opp.NetProfit.Mul(hundred).Float64()
	arbitrage.NetProfitCents.Observe(netCents)

	if err := m.opps.Put(context.Background(), opp); err != nil {
		m.logger.Warn("opportunity-queue-rejected", zap.String("symbol", opp.Symbol), zap.Error(err))
	}
}

// Snapshot returns a copy of the current book for symbol, for diagnostics
// and the HTTP inspection endpoint.
func (m *Manager) Snapshot(symbol string) (SymbolBook, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	book, ok := m.books[symbol]
	if !ok {
		return SymbolBook{}, false
	}
	return *book, true
}

// AllSymbols returns the unified symbols currently tracked.
func (m *Manager) AllSymbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.books))
	for symbol := range m.books {
		out = append(out, symbol)
	}
	return out
}
