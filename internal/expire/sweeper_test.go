package expire

import (
	"context"
	"testing"
	"time"

	"redcore/internal/keyspace"
	"redcore/internal/logging"
	"redcore/internal/metrics"
	"redcore/internal/value"

	"github.com/stretchr/testify/assert"
)

func TestSweeperTickReapsExpiredKeys(t *testing.T) {
	ks := keyspace.New()
	ks.Set("k", value.NewStringBytes([]byte("v")))
	ks.SetExpire("k", time.Now().Add(-time.Second))

	reg := metrics.New()
	sw := New(ks, reg, logging.Noop(), 20, 16)
	sw.tick()

	assert.False(t, ks.IsExpired("k"))
	assert.Equal(t, 0, ks.DBSize())
}

func TestSweeperTickLeavesLiveKeysAlone(t *testing.T) {
	ks := keyspace.New()
	ks.Set("k", value.NewStringBytes([]byte("v")))
	ks.SetExpire("k", time.Now().Add(time.Hour))

	reg := metrics.New()
	sw := New(ks, reg, logging.Noop(), 20, 16)
	sw.tick()

	assert.Equal(t, 1, ks.DBSize())
}

func TestNewAppliesDefaultsForNonPositiveArgs(t *testing.T) {
	ks := keyspace.New()
	sw := New(ks, metrics.New(), logging.Noop(), 0, 0)
	assert.Equal(t, 20, sw.sampleSize)
	assert.Equal(t, 16, sw.maxIterations)
}

func TestSweeperRunStopsOnContextCancel(t *testing.T) {
	ks := keyspace.New()
	sw := New(ks, metrics.New(), logging.Noop(), 20, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
