package vrpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	polledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_vrpc_polls_total",
		Help: "Total successful market quote polls against V-RPC",
	})

	pollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_vrpc_poll_errors_total",
		Help: "Total failed market quote polls against V-RPC",
	})

	subscriptionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_vrpc_subscriptions_active",
		Help: "Number of markets currently polled on V-RPC",
	})
)
