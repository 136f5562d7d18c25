package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpportunitiesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_opportunities_received_total",
		Help: "Total sized opportunities handed to the Executor",
	})

	OpportunitiesExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_opportunities_executed_total",
		Help: "Total opportunities that reached the Committed terminal state",
	})

	OpportunitiesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_opportunities_skipped_total",
		Help: "Opportunities skipped before any reservation was attempted, by reason",
	}, []string{"reason"})

	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_execution_duration_seconds",
		Help:    "Wall-clock duration of one Execute call, reserve through terminal state",
		Buckets: prometheus.DefBuckets,
	})

	ExecutionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_errors_total",
		Help: "Total executions that ended Aborted (no fills)",
	})

	RollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_rollbacks_total",
		Help: "Total executions that ended Rolled-Back, by whether the hedge filled",
	}, []string{"hedge_filled"})

	ManualInterventionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_manual_intervention_total",
		Help: "Total rollbacks whose hedge failed to fill and need manual intervention",
	})

	ProfitRealizedUSD = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_profit_realized_usd",
		Help: "Cumulative realized net profit across committed executions",
	})
)
