package sizing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var OpportunitiesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xvenue_arb_gate_rejected_total",
	Help: "Opportunities rejected by the Opportunity Gate, by reason",
}, []string{"reason"})
