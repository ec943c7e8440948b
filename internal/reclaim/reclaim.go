// Package reclaim implements the lazy-free reclaimer (spec.md C5): an
// async destructor queue so that freeing a large aggregate (a million-
// element hash, say) never stalls the shard command loop that deleted it.
//
// The teacher repo frees everything inline (internal/storage never
// defers destruction), so this package's worker-pool shape is grounded
// on golang.org/x/sync/errgroup's managed-goroutine pattern instead —
// the idiomatic way this corpus starts and drains a fixed worker count.
package reclaim

import (
	"context"
	"sync"
	"time"

	"redcore/internal/metrics"
	"redcore/internal/value"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FreeEffortThreshold is the free_effort above which destruction is
// handed to a background worker instead of happening inline (spec.md §4.5).
const FreeEffortThreshold = 64

// job is a destructor closure queued for a background worker.
type job func()

// Reclaimer owns the MPSC queue and its worker pool.
type Reclaimer struct {
	queue   chan job
	workers int
	drain   time.Duration
	metrics *metrics.Registry
	log     *zap.SugaredLogger

	pending sync.WaitGroup
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// New builds a Reclaimer with the given worker count and shutdown drain
// timeout, but does not start it — call Start.
func New(workers int, drainTimeout time.Duration, reg *metrics.Registry, log *zap.SugaredLogger) *Reclaimer {
	if workers <= 0 {
		workers = 2
	}
	if drainTimeout <= 0 {
		drainTimeout = 5 * time.Second
	}
	return &Reclaimer{
		queue:   make(chan job, 4096),
		workers: workers,
		drain:   drainTimeout,
		metrics: reg,
		log:     log,
	}
}

// Start launches the worker pool under a context derived from ctx, which
// Shutdown cancels to signal workers to stop pulling new jobs once the
// queue drains.
func (r *Reclaimer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	r.group = g
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			r.runWorker(gctx)
			return nil
		})
	}
}

func (r *Reclaimer) runWorker(ctx context.Context) {
	for {
		select {
		case j, ok := <-r.queue:
			if !ok {
				return
			}
			j()
			r.pending.Done()
			r.metrics.ReclaimCompleted.Inc()
			r.metrics.ReclaimPending.Dec()
		case <-ctx.Done():
			// Drain whatever is already buffered before exiting.
			for {
				select {
				case j, ok := <-r.queue:
					if !ok {
						return
					}
					j()
					r.pending.Done()
					r.metrics.ReclaimCompleted.Inc()
					r.metrics.ReclaimPending.Dec()
				default:
					return
				}
			}
		}
	}
}

// QueueFree enqueues v for background destruction if its free_effort
// exceeds FreeEffortThreshold; otherwise it is dropped immediately
// (Go's GC reclaims it once unreferenced — there is no manual destructor
// to run, only the bookkeeping below).
func (r *Reclaimer) QueueFree(v value.Value) {
	if v == nil {
		return
	}
	if v.FreeEffort() <= FreeEffortThreshold {
		return
	}
	r.enqueue(func() { _ = v })
}

// QueueFlush enqueues a whole shard's worth of values for destruction if
// the shard's key count exceeds FreeEffortThreshold (spec.md §4.5).
func (r *Reclaimer) QueueFlush(values []value.Value) {
	if len(values) <= FreeEffortThreshold {
		return
	}
	snapshot := append([]value.Value(nil), values...)
	r.enqueue(func() {
		for range snapshot {
			// Dropping the reference is the destructor; cost is
			// accounted for, not separately executed.
		}
	})
}

func (r *Reclaimer) enqueue(j job) {
	r.pending.Add(1)
	r.metrics.ReclaimPending.Inc()
	select {
	case r.queue <- j:
	default:
		// Queue is nominally unbounded per spec.md §4.5; this buffered
		// channel is large enough in practice, but never block a
		// request path waiting on it — spin up a one-off goroutine
		// instead of stalling the caller.
		go func() {
			r.queue <- j
		}()
	}
}

// Shutdown stops accepting new work conceptually and waits up to the
// configured drain timeout for queued destructors to finish.
func (r *Reclaimer) Shutdown() {
	if r.cancel != nil {
		r.cancel()
	}
	close(r.queue)

	done := make(chan struct{})
	go func() {
		r.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(r.drain):
		r.log.Warnw("lazy-free shutdown drain timed out", "timeout", r.drain)
	}

	if r.group != nil {
		_ = r.group.Wait()
	}
}
