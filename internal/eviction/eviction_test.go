package eviction

import (
	"testing"

	"redcore/internal/config"
	"redcore/internal/keyspace"
	"redcore/internal/logging"
	"redcore/internal/metrics"
	"redcore/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSizeTracker struct{ used int64 }

func (f *fakeSizeTracker) UsedBytes() int64 { return f.used }

func newEngine(t *testing.T, policy config.MaxMemoryPolicy, maxMemory int64, used int64) (*Engine, *keyspace.Keyspace) {
	t.Helper()
	ks := keyspace.New()
	cfg := config.DefaultConfig()
	cfg.MaxMemory = maxMemory
	cfg.MaxMemoryPolicy = policy
	sizes := &fakeSizeTracker{used: used}
	e := New(ks, sizes, metrics.New(), logging.Noop(), cfg)
	return e, ks
}

func TestNeedsEvictionFalseWhenNoEvictionPolicy(t *testing.T) {
	e, _ := newEngine(t, config.NoEviction, 100, 1000)
	assert.False(t, e.NeedsEviction())
}

func TestNeedsEvictionFalseWhenUnderBudget(t *testing.T) {
	e, _ := newEngine(t, config.AllKeysLRU, 1000, 100)
	assert.False(t, e.NeedsEviction())
}

func TestNeedsEvictionTrueWhenOverBudget(t *testing.T) {
	e, _ := newEngine(t, config.AllKeysLRU, 100, 1000)
	assert.True(t, e.NeedsEviction())
}

func TestOnSetInitializesLFUCounterOnlyForLFUPolicies(t *testing.T) {
	e, ks := newEngine(t, config.AllKeysLFU, 1000, 0)
	ks.Set("k", value.NewStringBytes([]byte("v")))
	e.OnSet("k", 10)

	counter, ok := ks.LFUCounter("k")
	require.True(t, ok)
	assert.Equal(t, uint8(lfuInitCounter), counter)
}

func TestOnSetLeavesLFUCounterUnsetForLRUPolicy(t *testing.T) {
	e, ks := newEngine(t, config.AllKeysLRU, 1000, 0)
	ks.Set("k", value.NewStringBytes([]byte("v")))
	e.OnSet("k", 10)

	_, ok := ks.LFUCounter("k")
	assert.False(t, ok)
}

func TestOnAccessBumpsLRUClock(t *testing.T) {
	e, ks := newEngine(t, config.AllKeysLRU, 1000, 0)
	ks.Set("k", value.NewStringBytes([]byte("v")))
	ks.SetLRUClock("k", 0)

	e.OnAccess("k")
	clock, ok := ks.LRUClock("k")
	require.True(t, ok)
	assert.NotEqual(t, uint32(0), clock)
}

func TestIdleSecondsHandlesWraparound(t *testing.T) {
	const mask = uint32(0x00FFFFFF)
	// stored just before wraparound, now just after: elapsed should be small.
	assert.Equal(t, uint32(2), idleSeconds(mask, 1))
}

func TestIdleSecondsNormalOrder(t *testing.T) {
	assert.Equal(t, uint32(5), idleSeconds(10, 15))
}

func TestIncrLFUSaturatesAt255(t *testing.T) {
	assert.Equal(t, uint8(255), incrLFU(255, 10))
}

func TestEvictReturnsNilForNoEvictionPolicy(t *testing.T) {
	e, _ := newEngine(t, config.NoEviction, 100, 1000)
	assert.Nil(t, e.Evict(5))
}

func TestEvictRespectsCycleBudgetAndDeletesVictims(t *testing.T) {
	e, ks := newEngine(t, config.AllKeysRandom, 1000, 0)
	for i := 0; i < 20; i++ {
		ks.Set(string(rune('a'+i)), value.NewStringBytes([]byte("v")))
	}
	e.sizes.(*fakeSizeTracker).used = 2000

	// Simulate usage dropping back under the watermark after a few keys
	// are gone, by shrinking the tracked usage alongside each delete via
	// a small custom tracker would require a different size hook; here we
	// simply assert eviction makes forward progress and respects the
	// budget cap.
	evicted := e.Evict(3)
	assert.LessOrEqual(t, len(evicted), 3*e.samples)
	for _, k := range evicted {
		assert.False(t, ks.Exists(k))
	}
}

func TestEvictStopsAtBudgetWhenStillOverMemory(t *testing.T) {
	e, ks := newEngine(t, config.AllKeysRandom, 1, 1000)
	for i := 0; i < 20; i++ {
		ks.Set(string(rune('a'+i)), value.NewStringBytes([]byte("v")))
	}
	// used never drops (fixed fakeSizeTracker), so Evict should stop once
	// it exhausts its cycle budget rather than loop forever.
	evicted := e.Evict(2)
	assert.NotEmpty(t, evicted)
}

func TestVolatileTTLPolicyOnlySamplesVolatileKeys(t *testing.T) {
	e, ks := newEngine(t, config.VolatileTTL, 1, 1000)
	ks.Set("persistent", value.NewStringBytes([]byte("v")))

	victims := e.selectVictims()
	assert.Empty(t, victims)
}
