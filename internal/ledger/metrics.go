package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	accountAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xvenue_arb_ledger_cash_available",
		Help: "Spendable cash balance per venue",
	}, []string{"venue"})

	accountReserved = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xvenue_arb_ledger_cash_reserved",
		Help: "Reserved (earmarked, not spendable) cash balance per venue",
	}, []string{"venue"})

	accountReserveRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_ledger_reserve_rejected_total",
		Help: "Total reservation attempts rejected for insufficient available cash",
	}, []string{"venue"})
)
