package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_opportunities_detected_total",
		Help: "Total number of arbitrage opportunities detected",
	})

	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_opportunities_rejected_total",
			Help: "Total number of candidate pairings rejected before sizing",
		},
		[]string{"reason"},
	)

	NetProfitCents = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_net_profit_cents",
		Help:    "Detected opportunity net profit per contract, in cents",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50, 100},
	})

	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_detection_duration_seconds",
		Help:    "Duration of one detector evaluation over a tick pair",
		Buckets: prometheus.DefBuckets,
	})
)
