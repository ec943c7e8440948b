// Package metrics exposes the engine's counters and gauges through a
// private prometheus registry (never the global DefaultRegisterer, so
// multiple engines can run side by side in tests without collisions).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every metric the core subsystems publish. It is
// constructed once per engine and threaded through C3-C8 constructors.
type Registry struct {
	registry *prometheus.Registry

	ExpiredKeysTotal   prometheus.Counter
	SweepCyclesTotal   prometheus.Counter
	SweepAbortedTotal  prometheus.Counter

	EvictionCyclesTotal prometheus.Counter
	EvictedKeysTotal    *prometheus.CounterVec // labeled by policy

	ReclaimPending   prometheus.Gauge
	ReclaimCompleted prometheus.Counter

	DispatchQueueDepth  *prometheus.GaugeVec // labeled by worker id
	DispatchDroppedRead prometheus.Counter

	ACLDenialsTotal prometheus.Counter

	PubSubDeliveredTotal prometheus.Counter
	PubSubDroppedTotal   prometheus.Counter
}

// New builds a Registry and registers every metric against a fresh
// prometheus.Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		ExpiredKeysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redcore_expired_keys_total",
			Help: "Keys removed by the active expiration sweeper.",
		}),
		SweepCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redcore_sweep_cycles_total",
			Help: "Active expiration sweep iterations performed.",
		}),
		SweepAbortedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redcore_sweep_aborted_total",
			Help: "Sweep cycles cut short by the CPU-share soft cap.",
		}),
		EvictionCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redcore_eviction_cycles_total",
			Help: "Eviction cycles run by the maxmemory engine.",
		}),
		EvictedKeysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redcore_evicted_keys_total",
			Help: "Keys evicted, labeled by policy.",
		}, []string{"policy"}),
		ReclaimPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redcore_reclaim_pending",
			Help: "Destructor closures queued for the lazy-free workers.",
		}),
		ReclaimCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redcore_reclaim_completed_total",
			Help: "Destructor closures completed by the lazy-free workers.",
		}),
		DispatchQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "redcore_dispatch_queue_depth",
			Help: "Pending reads queued per I/O worker.",
		}, []string{"worker"}),
		DispatchDroppedRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redcore_dispatch_dropped_reads_total",
			Help: "Reads dropped because a worker's input queue overflowed.",
		}),
		ACLDenialsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redcore_acl_denials_total",
			Help: "Commands rejected by the ACL authorizer.",
		}),
		PubSubDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redcore_pubsub_delivered_total",
			Help: "Pub/Sub messages delivered to a subscriber.",
		}),
		PubSubDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redcore_pubsub_dropped_total",
			Help: "Pub/Sub messages dropped because a subscriber's buffer was full.",
		}),
	}

	reg.MustRegister(
		r.ExpiredKeysTotal, r.SweepCyclesTotal, r.SweepAbortedTotal,
		r.EvictionCyclesTotal, r.EvictedKeysTotal,
		r.ReclaimPending, r.ReclaimCompleted,
		r.DispatchQueueDepth, r.DispatchDroppedRead,
		r.ACLDenialsTotal,
		r.PubSubDeliveredTotal, r.PubSubDroppedTotal,
	)

	return r
}

// Gatherer exposes the underlying registry for an HTTP /metrics handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
