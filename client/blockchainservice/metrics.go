package blockchainservice

import "github.com/prometheus/client_golang/prometheus"

var (
	permitHeldSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storagehub_bcs_write_permit_held_seconds",
		Help: "Duration the forest-root write permit has been continuously held.",
	})
	queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storagehub_bcs_queue_depth",
		Help: "Number of items currently queued per persisted request kind.",
	}, []string{"kind"})
	nonceDesyncTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storagehub_bcs_nonce_desync_total",
		Help: "Times the on-chain nonce exceeded the local counter unexpectedly.",
	})
	rootMismatchTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storagehub_bcs_root_mismatch_total",
		Help: "Times a local-root verification after reorg replay diverged from the on-chain root.",
	})
	itemsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storagehub_bcs_items_dropped_total",
		Help: "Queued items dropped after exceeding MaxQueueItemRetries, by kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(permitHeldSeconds, queueDepth, nonceDesyncTotal, rootMismatchTotal, itemsDroppedTotal)
}
