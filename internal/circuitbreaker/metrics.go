package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CircuitBreakerEnabled indicates whether the circuit breaker allows trade execution.
	CircuitBreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_circuit_breaker_enabled",
		Help: "Whether circuit breaker allows trade execution (1=enabled, 0=disabled)",
	})

	// CircuitBreakerBalance tracks the last checked total ledger cash.
	CircuitBreakerBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_circuit_breaker_balance_usd",
		Help: "Last checked sum of cash_available across all venue accounts",
	})

	// CircuitBreakerDisableThreshold tracks the current threshold for disabling execution.
	CircuitBreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_circuit_breaker_disable_threshold_usd",
		Help: "Current balance threshold for disabling execution (dynamically calculated)",
	})

	// CircuitBreakerEnableThreshold tracks the current threshold for re-enabling execution.
	CircuitBreakerEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_circuit_breaker_enable_threshold_usd",
		Help: "Current balance threshold for re-enabling execution (with hysteresis)",
	})

	// CircuitBreakerAvgTradeSize tracks the rolling average trade cost.
	CircuitBreakerAvgTradeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_circuit_breaker_avg_trade_size_usd",
		Help: "Rolling average executed trade cost (used for threshold calculation)",
	})

	// CircuitBreakerStateChanges tracks the number of times the circuit breaker changed state.
	CircuitBreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_circuit_breaker_state_changes_total",
		Help: "Total number of times circuit breaker changed state (enabled/disabled)",
	})

	// CircuitBreakerCheckDuration tracks the time taken to check balance.
	CircuitBreakerCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_circuit_breaker_check_duration_seconds",
		Help:    "Time taken to sum ledger balances",
		Buckets: prometheus.DefBuckets,
	})
)
