// Package circuitbreaker monitors the capital ledger's total available
// cash and disables execution when it falls below a dynamically computed
// threshold: a hysteresis state machine that disables below a
// trade-size-scaled floor and re-enables only once balance recovers past
// a higher threshold, to avoid flapping at the boundary. It reads the
// Capital Ledger (internal/ledger) rather than a wallet RPC balance
// fetch — there is no wallet in this system, so "balance" means the sum
// of cash_available across every configured venue.
package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parityarb/xvenue-arb/internal/ledger"
	"go.uber.org/zap"
)

// BalanceCircuitBreaker monitors ledger capital and controls trade
// execution. It dynamically calculates thresholds based on recent trade
// history and uses hysteresis to prevent rapid state changes.
type BalanceCircuitBreaker struct {
	enabled atomic.Bool // lock-free reads from the executor's hot path

	checkInterval   time.Duration
	ledger          *ledger.Ledger
	logger          *zap.Logger
	tradeMultiplier float64
	minAbsolute     float64
	hysteresisRatio float64

	mu               sync.RWMutex
	lastBalance      float64
	lastCheck        time.Time
	recentTrades     []float64
	disableThreshold float64
	enableThreshold  float64
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval   time.Duration
	TradeMultiplier float64
	MinAbsolute     float64
	HysteresisRatio float64
	Ledger          *ledger.Ledger
	Logger          *zap.Logger
}

// Status holds current circuit breaker status for debugging and HTTP
// endpoints.
type Status struct {
	Enabled          bool
	LastBalance      float64
	LastCheck        time.Time
	DisableThreshold float64
	EnableThreshold  float64
	AvgTradeSize     float64
	RecentTradeCount int
}

// New creates a circuit breaker from cfg.
func New(cfg *Config) (*BalanceCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.TradeMultiplier <= 0 {
		return nil, fmt.Errorf("trade multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, fmt.Errorf("min absolute must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	b := &BalanceCircuitBreaker{
		checkInterval:    cfg.CheckInterval,
		ledger:           cfg.Ledger,
		logger:           cfg.Logger,
		tradeMultiplier:  cfg.TradeMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentTrades:     make([]float64, 0, 20),
		disableThreshold: cfg.MinAbsolute,
		enableThreshold:  cfg.MinAbsolute * cfg.HysteresisRatio,
	}
	b.enabled.Store(true)

	CircuitBreakerEnabled.Set(1)
	CircuitBreakerDisableThreshold.Set(b.disableThreshold)
	CircuitBreakerEnableThreshold.Set(b.enableThreshold)
	CircuitBreakerAvgTradeSize.Set(0)

	return b, nil
}

// IsEnabled returns true if trades should be executed. Lock-free, safe to
// call from the Executor's hot path.
func (b *BalanceCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordTrade adds a trade's total cost to the rolling window and
// recalculates thresholds. Call after a successful execution.
func (b *BalanceCircuitBreaker) RecordTrade(tradeCost float64) {
	if tradeCost <= 0 {
		b.logger.Warn("invalid-trade-cost", zap.Float64("cost", tradeCost))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.recentTrades = append(b.recentTrades, tradeCost)
	if len(b.recentTrades) > 20 {
		b.recentTrades = b.recentTrades[1:]
	}

	sum := 0.0
	for _, size := range b.recentTrades {
		sum += size
	}
	avgTradeSize := sum / float64(len(b.recentTrades))

	b.disableThreshold = math.Max(avgTradeSize*b.tradeMultiplier, b.minAbsolute)
	b.enableThreshold = b.disableThreshold * b.hysteresisRatio

	CircuitBreakerAvgTradeSize.Set(avgTradeSize)
	CircuitBreakerDisableThreshold.Set(b.disableThreshold)
	CircuitBreakerEnableThreshold.Set(b.enableThreshold)
}

// CheckBalance reads total ledger cash and updates the enabled state based
// on the current thresholds.
func (b *BalanceCircuitBreaker) CheckBalance(ctx context.Context) error {
	start := time.Now()
	defer func() { CircuitBreakerCheckDuration.Observe(time.Since(start).Seconds()) }()

	balance, _ := b.ledger.TotalAvailable().Float64()

	b.mu.RLock()
	disableThreshold := b.disableThreshold
	enableThreshold := b.enableThreshold
	b.mu.RUnlock()

	currentlyEnabled := b.enabled.Load()

	b.mu.Lock()
	b.lastBalance = balance
	b.lastCheck = time.Now()
	b.mu.Unlock()

	CircuitBreakerBalance.Set(balance)

	shouldDisable := currentlyEnabled && balance < disableThreshold
	shouldEnable := !currentlyEnabled && balance >= enableThreshold

	switch {
	case shouldDisable:
		b.enabled.Store(false)
		CircuitBreakerEnabled.Set(0)
		CircuitBreakerStateChanges.Inc()
		b.logger.Warn("circuit-breaker-disabled",
			zap.Float64("balance", balance),
			zap.Float64("disable_threshold", disableThreshold))
	case shouldEnable:
		b.enabled.Store(true)
		CircuitBreakerEnabled.Set(1)
		CircuitBreakerStateChanges.Inc()
		b.logger.Info("circuit-breaker-enabled",
			zap.Float64("balance", balance),
			zap.Float64("enable_threshold", enableThreshold))
	default:
		b.logger.Debug("balance-checked", zap.Float64("balance", balance), zap.Bool("enabled", currentlyEnabled))
	}

	return nil
}

// Start begins the background monitoring loop. Runs until ctx is
// cancelled.
func (b *BalanceCircuitBreaker) Start(ctx context.Context) {
	b.logger.Info("circuit-breaker-started",
		zap.Duration("check_interval", b.checkInterval),
		zap.Float64("min_absolute", b.minAbsolute))

	if err := b.CheckBalance(ctx); err != nil {
		b.logger.Error("initial-balance-check-failed", zap.Error(err))
	}

	go b.monitorLoop(ctx)
}

func (b *BalanceCircuitBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("circuit-breaker-stopped")
			return
		case <-ticker.C:
			if err := b.CheckBalance(ctx); err != nil {
				b.logger.Error("balance-check-error", zap.Error(err))
			}
		}
	}
}

// GetStatus returns current circuit breaker status for debugging and HTTP
// endpoints.
func (b *BalanceCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sum := 0.0
	for _, size := range b.recentTrades {
		sum += size
	}
	avg := 0.0
	if len(b.recentTrades) > 0 {
		avg = sum / float64(len(b.recentTrades))
	}

	return Status{
		Enabled:          b.enabled.Load(),
		LastBalance:      b.lastBalance,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgTradeSize:     avg,
		RecentTradeCount: len(b.recentTrades),
	}
}
