package vstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_vstream_reconnect_attempts_total",
		Help: "Total reconnection attempts made by the V-Stream gateway",
	})

	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_vstream_reconnect_failures_total",
		Help: "Total failed reconnection attempts by the V-Stream gateway",
	})

	messagesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_vstream_messages_received_total",
		Help: "Total inbound messages received from V-Stream, by kind",
	}, []string{"kind"})

	subscriptionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_vstream_subscriptions_active",
		Help: "Number of market subscriptions currently active on V-Stream",
	})

	connectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_vstream_connected",
		Help: "1 if the V-Stream gateway is currently connected, 0 otherwise",
	})
)
