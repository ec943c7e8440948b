// Package expire implements the active expiration sweeper (spec.md C3):
// a ticker-driven maintenance pass that bounds TTL cleanup CPU cost,
// complementing the keyspace's own lazy, read-path expiry check.
//
// Grounded on the teacher's internal/processor.periodicCleanup (the
// ticker/command-submission shape) and internal/storage.CleanupExpiredKeys
// (the time-budgeted, percentage-threshold sampling loop), generalized
// from one global store to per-shard sweeps across the sharded keyspace.
package expire

import (
	"context"
	"time"

	"redcore/internal/keyspace"
	"redcore/internal/metrics"

	"go.uber.org/zap"
)

const (
	// Cadence is the fixed tick interval spec.md §4.3 mandates.
	Cadence = 100 * time.Millisecond
	// thresholdRatio: above this expired-fraction, keep iterating.
	thresholdRatio = 0.25
	// cpuSoftCap bounds wall-clock spent sweeping per tick.
	cpuSoftCap = Cadence / 4
)

// Sweeper runs C3's active expiration pass on a fixed cadence across
// every non-empty shard of a Keyspace.
type Sweeper struct {
	ks            *keyspace.Keyspace
	metrics       *metrics.Registry
	log           *zap.SugaredLogger
	sampleSize    int
	maxIterations int
}

// New builds a Sweeper. sampleSize is config's active-expire-cycle-effort
// (default 20); maxIterations bounds the repeat-while-above-threshold loop.
func New(ks *keyspace.Keyspace, reg *metrics.Registry, log *zap.SugaredLogger, sampleSize, maxIterations int) *Sweeper {
	if sampleSize <= 0 {
		sampleSize = 20
	}
	if maxIterations <= 0 {
		maxIterations = 16
	}
	return &Sweeper{ks: ks, metrics: reg, log: log, sampleSize: sampleSize, maxIterations: maxIterations}
}

// Run blocks, ticking every Cadence until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(Cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.tick()
		}
	}
}

// tick runs one pass over all shards, each bounded independently by the
// maxIterations/threshold rule, and aborts the whole pass if the
// cumulative soft CPU cap for the tick is exceeded.
func (sw *Sweeper) tick() {
	start := time.Now()
	var reaped int

	for _, shard := range sw.ks.Shards() {
		if time.Since(start) > cpuSoftCap {
			sw.metrics.SweepAbortedTotal.Inc()
			break
		}
		n := sw.ks.CleanupExpired(shard, sw.sampleSize, sw.maxIterations)
		reaped += n
	}

	sw.metrics.SweepCyclesTotal.Inc()
	if reaped > 0 {
		sw.metrics.ExpiredKeysTotal.Add(float64(reaped))
		sw.log.Debugw("active expiration pass", "reaped", reaped, "elapsed", time.Since(start))
	}
}
