// Package dispatch implements the I/O dispatcher (spec.md C8): one
// accept thread's worth of client affinitization, M I/O workers, and one
// command loop per shard partition, connected by bounded MPSC queues.
//
// The teacher repo runs one goroutine per connection straight through to
// command execution (internal/handler.HandlePipeline); this package
// generalizes that into the spec's worker/command-loop split, using
// golang.org/x/sync/semaphore as the "short spin, then block with a
// timeout" wakeup primitive spec.md §4.8 calls for, and
// golang.org/x/sync/errgroup to start and drain the worker and
// command-loop goroutines together on shutdown.
package dispatch

import (
	"context"
	"sync"
	"time"

	"redcore/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Command is one parsed request handed from a worker to its command loop.
type Command struct {
	ClientID uint64
	Argv     [][]byte
	Reply    chan Reply
}

// Reply is the result a command loop hands back to the worker that
// submitted the Command, for writing to the client connection.
type Reply struct {
	Bytes []byte
	Err   error
}

// Executor runs one parsed command to completion and returns its wire
// reply bytes. Supplied by internal/engine; the dispatcher itself has no
// notion of command semantics.
type Executor func(ctx context.Context, clientID uint64, argv [][]byte) []byte

const (
	// defaultQueueSize bounds each partition's input queue (spec.md §4.8:
	// "e.g. 10,000").
	defaultQueueSize = 10000
	// wakeupTimeout bounds how long a worker blocks on the semaphore
	// before re-checking for shutdown (spec.md §4.8).
	wakeupTimeout = 100 * time.Millisecond
)

// Partition is one command-loop goroutine owning a disjoint slice of
// keyspace shards (spec.md §4.8: "shards-per-partition"). Commands
// routed to the same partition execute one at a time, giving
// single-threaded command semantics per shard.
type Partition struct {
	id       int
	queue    chan *Command
	dropped  *metrics.Registry
	executor Executor
}

func newPartition(id int, queueSize int, executor Executor, reg *metrics.Registry) *Partition {
	return &Partition{id: id, queue: make(chan *Command, queueSize), executor: executor, dropped: reg}
}

// submit enqueues cmd, dropping the oldest queued command on overflow
// (spec.md §4.8's "oldest read is dropped" back-pressure policy).
func (p *Partition) submit(cmd *Command) {
	select {
	case p.queue <- cmd:
		return
	default:
	}
	select {
	case old := <-p.queue:
		old.Reply <- Reply{Err: errOverload}
		p.dropped.DispatchDroppedRead.Inc()
	default:
	}
	select {
	case p.queue <- cmd:
	default:
		cmd.Reply <- Reply{Err: errOverload}
		p.dropped.DispatchDroppedRead.Inc()
	}
}

func (p *Partition) run(ctx context.Context) {
	for {
		select {
		case cmd := <-p.queue:
			p.execute(ctx, cmd)
		case <-ctx.Done():
			p.drain(ctx)
			return
		}
	}
}

func (p *Partition) execute(ctx context.Context, cmd *Command) {
	reply := p.executor(ctx, cmd.ClientID, cmd.Argv)
	cmd.Reply <- Reply{Bytes: reply}
}

func (p *Partition) drain(ctx context.Context) {
	for {
		select {
		case cmd := <-p.queue:
			p.execute(ctx, cmd)
		default:
			return
		}
	}
}

// errOverload is returned to clients whose command was dropped for
// back-pressure (spec.md §7's Overload error kind).
var errOverload = overloadErr{}

type overloadErr struct{}

func (overloadErr) Error() string { return "OVERLOAD input queue full" }

// ClientConn is the narrow read/write surface a worker needs from a
// connection; actual socket and RESP framing live in internal/protocol
// and the listener built on top of it.
type ClientConn interface {
	// ReadCommand blocks for the next parsed command, honoring ctx's
	// deadline. Returning an error (including context cancellation)
	// ends that connection's service loop.
	ReadCommand(ctx context.Context) (argv [][]byte, err error)
	WriteReply(reply []byte) error
}

// Worker is one of M I/O workers. Every client is permanently
// affinitized to exactly one worker at accept time (spec.md §4.8); many
// clients may share a worker, each served by its own goroutine, but all
// of a worker's blocking reads funnel through its single-slot semaphore,
// which is the "M I/O workers" budget made concrete — the worker never
// busy-loops waiting for data, it blocks on Acquire with a bounded
// timeout and simply retries.
type Worker struct {
	id  int
	sem *semaphore.Weighted
	log *zap.SugaredLogger
}

func newWorker(id int, log *zap.SugaredLogger) *Worker {
	return &Worker{id: id, sem: semaphore.NewWeighted(1), log: log}
}

// Serve runs one client's read-execute-write loop until the connection
// errors out or ctx is cancelled. shardOf maps a parsed command's target
// key(s) to the owning shard id, used to route the command to its
// command-loop partition.
func (w *Worker) Serve(ctx context.Context, d *Dispatcher, clientID uint64, shardOf func(argv [][]byte) int, conn ClientConn) {
	for {
		if !w.acquireWithRetry(ctx) {
			return
		}
		argv, err := conn.ReadCommand(ctx)
		w.sem.Release(1)
		if err != nil {
			return
		}

		reply, err := d.Submit(ctx, shardOf(argv), clientID, argv)
		if err != nil {
			_ = conn.WriteReply([]byte("-" + err.Error() + "\r\n"))
			return
		}
		if err := conn.WriteReply(reply); err != nil {
			return
		}
	}
}

// acquireWithRetry implements the "short spin, then block on a
// semaphore-like primitive with 100ms timeout" wakeup spec.md §4.8
// mandates: it never busy-polls, just retries the bounded-timeout
// acquire until ctx itself is done.
func (w *Worker) acquireWithRetry(ctx context.Context) bool {
	for {
		acquireCtx, cancel := context.WithTimeout(ctx, wakeupTimeout)
		err := w.sem.Acquire(acquireCtx, 1)
		cancel()
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
}

// Dispatcher owns the worker pool and the set of command-loop
// partitions, and routes an incoming client's commands to the partition
// that owns its shard.
type Dispatcher struct {
	workers    []*Worker
	partitions []*Partition

	mu        sync.Mutex
	nextWorker int

	group  *errgroup.Group
	cancel context.CancelFunc

	log *zap.SugaredLogger
}

// New builds a Dispatcher with ioThreads workers (resolved: 0 means
// auto — max(2, cpu-1) — the caller resolves that before calling New)
// and one command-loop partition per shard group.
func New(ioThreads, partitions int, queueSize int, executor Executor, reg *metrics.Registry, log *zap.SugaredLogger) *Dispatcher {
	if ioThreads <= 0 {
		ioThreads = 2
	}
	if partitions <= 0 {
		partitions = 1
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	d := &Dispatcher{log: log}
	for i := 0; i < ioThreads; i++ {
		d.workers = append(d.workers, newWorker(i, log))
	}
	for i := 0; i < partitions; i++ {
		d.partitions = append(d.partitions, newPartition(i, queueSize, executor, reg))
	}
	return d
}

// Start launches every partition's command loop. Workers are driven
// externally (by the connection-accept layer calling AssignWorker +
// Submit), since actual socket I/O lives outside this package's scope.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	d.group = g
	for _, p := range d.partitions {
		p := p
		g.Go(func() error {
			p.run(gctx)
			return nil
		})
	}
}

// AssignWorker returns the worker a newly accepted client is
// permanently affinitized to, round-robin (spec.md §4.8).
func (d *Dispatcher) AssignWorker() *Worker {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.workers[d.nextWorker%len(d.workers)]
	d.nextWorker++
	return w
}

// partitionFor routes a shard id to its owning command-loop partition.
func (d *Dispatcher) partitionFor(shardID int) *Partition {
	return d.partitions[shardID%len(d.partitions)]
}

// Submit enqueues a parsed command for the partition owning shardID and
// blocks until that partition produces a reply or ctx is cancelled.
func (d *Dispatcher) Submit(ctx context.Context, shardID int, clientID uint64, argv [][]byte) ([]byte, error) {
	cmd := &Command{ClientID: clientID, Argv: argv, Reply: make(chan Reply, 1)}
	d.partitionFor(shardID).submit(cmd)
	select {
	case r := <-cmd.Reply:
		return r.Bytes, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops accepting new partition work and waits for in-flight
// queues to drain, honoring the 5s hard timeout spec.md §4.8 and §5 mandate.
func (d *Dispatcher) Shutdown() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.group == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		d.log.Warnw("dispatcher shutdown hit hard timeout")
	}
}
