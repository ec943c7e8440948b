package reclaim

import (
	"context"
	"testing"
	"time"

	"redcore/internal/logging"
	"redcore/internal/metrics"
	"redcore/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigList(n int) *value.List {
	l := value.NewList()
	for i := 0; i < n; i++ {
		l.PushTail("x")
	}
	return l
}

func TestQueueFreeSkipsSmallValues(t *testing.T) {
	r := New(1, time.Second, metrics.New(), logging.Noop())
	r.Start(context.Background())
	defer r.Shutdown()

	small := value.NewStringBytes([]byte("v"))
	r.QueueFree(small)

	// String.FreeEffort() is always 1, well under the threshold, so no
	// job should have been queued: pending stays at zero immediately.
	r.pending.Wait()
}

func TestQueueFreeNilIsNoop(t *testing.T) {
	r := New(1, time.Second, metrics.New(), logging.Noop())
	r.Start(context.Background())
	defer r.Shutdown()

	assert.NotPanics(t, func() { r.QueueFree(nil) })
}

func TestQueueFreeEnqueuesLargeValue(t *testing.T) {
	reg := metrics.New()
	r := New(1, time.Second, reg, logging.Noop())
	r.Start(context.Background())

	big := bigList(FreeEffortThreshold + 1)
	r.QueueFree(big)

	done := make(chan struct{})
	go func() {
		r.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued destructor never completed")
	}
	r.Shutdown()
}

func TestQueueFlushBelowThresholdIsNoop(t *testing.T) {
	r := New(1, time.Second, metrics.New(), logging.Noop())
	r.Start(context.Background())
	defer r.Shutdown()

	values := make([]value.Value, FreeEffortThreshold)
	r.QueueFlush(values)
	r.pending.Wait()
}

func TestQueueFlushAboveThresholdCompletes(t *testing.T) {
	r := New(1, time.Second, metrics.New(), logging.Noop())
	r.Start(context.Background())

	values := make([]value.Value, FreeEffortThreshold+10)
	r.QueueFlush(values)

	done := make(chan struct{})
	go func() {
		r.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flush destructor never completed")
	}
	r.Shutdown()
}

func TestShutdownDrainsBeforeReturning(t *testing.T) {
	r := New(2, 2*time.Second, metrics.New(), logging.Noop())
	r.Start(context.Background())

	for i := 0; i < 5; i++ {
		r.QueueFree(bigList(FreeEffortThreshold + 1))
	}
	r.Shutdown()

	select {
	case _, ok := <-r.queue:
		require.False(t, ok, "queue should be closed after Shutdown")
	default:
	}
}

func TestNewAppliesDefaultsForNonPositiveArgs(t *testing.T) {
	r := New(0, 0, metrics.New(), logging.Noop())
	assert.Equal(t, 2, r.workers)
	assert.Equal(t, 5*time.Second, r.drain)
}
