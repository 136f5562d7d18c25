package orderbook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var hundred = decimal.New(100, 0)

var (
	updateDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_book_update_duration_seconds",
		Help:    "Duration of one Central Order Book update call, including detection",
		Buckets: prometheus.DefBuckets,
	})

	booksTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_book_symbols_tracked",
		Help: "Number of unified symbols currently tracked by the order book",
	})
)
