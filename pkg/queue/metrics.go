package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xvenue_arb_queue_size",
		Help: "Current number of items held by a bounded event queue",
	}, []string{"queue"})

	queueEnqueuedTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xvenue_arb_queue_enqueued_total",
		Help: "Total items accepted onto a bounded event queue",
	}, []string{"queue"})

	queueDequeuedTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xvenue_arb_queue_dequeued_total",
		Help: "Total items removed from a bounded event queue",
	}, []string{"queue"})

	queueDroppedTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xvenue_arb_queue_dropped_total",
		Help: "Total items dropped by a bounded event queue's overflow policy",
	}, []string{"queue"})

	queueWaitSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xvenue_arb_queue_mean_wait_seconds",
		Help: "Rolling mean wait time between enqueue and dequeue for a bounded event queue",
	}, []string{"queue"})
)

// ReportMetrics publishes the queue's current counters under name. The
// queue never calls it itself, so its counters stay allocation-free and
// lock-cheap on the hot path and reach Prometheus only when this is called.
func (q *BoundedEventQueue[T]) ReportMetrics(name string) {
	st := q.Stats()
	queueSize.WithLabelValues(name).Set(float64(st.Size))
	queueEnqueuedTotal.WithLabelValues(name).Set(float64(st.Enqueued))
	queueDequeuedTotal.WithLabelValues(name).Set(float64(st.Dequeued))
	queueDroppedTotal.WithLabelValues(name).Set(float64(st.Dropped))
	queueWaitSeconds.WithLabelValues(name).Set(q.MeanWaitTime().Seconds())
}
