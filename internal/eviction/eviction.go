// Package eviction implements the maxmemory eviction engine (spec.md
// C4): sampled LRU/LFU/TTL/Random candidate selection, approximating
// Redis's own maxmemory-policy behavior without maintaining a fully
// ordered eviction structure.
//
// Grounded on the teacher's internal/storage.CleanupExpiredKeys (the
// sampling-loop shape is reused for candidate gathering) and this
// module's own reading of spec.md §4.4 for the ranking math, since the
// teacher repo has no memory-bounded eviction of its own to crib from.
package eviction

import (
	"math"
	"math/rand"
	"time"

	"redcore/internal/config"
	"redcore/internal/keyspace"
	"redcore/internal/metrics"

	"go.uber.org/zap"
)

// SizeTracker lets the engine observe approximate memory usage without
// owning accounting itself; the keyspace or engine facade supplies a
// live estimate (spec.md §4.4's "observed-size accounting").
type SizeTracker interface {
	UsedBytes() int64
}

// Engine implements on_set/on_delete/on_access/needs_eviction/evict.
type Engine struct {
	ks      *keyspace.Keyspace
	sizes   SizeTracker
	metrics *metrics.Registry
	log     *zap.SugaredLogger

	policy      config.MaxMemoryPolicy
	maxMemory   int64
	samples     int // N
	maxPerCycle int
	logFactor   int
	halfLifeMin int
}

func New(ks *keyspace.Keyspace, sizes SizeTracker, reg *metrics.Registry, log *zap.SugaredLogger, cfg *config.Config) *Engine {
	samples := cfg.MaxMemorySamples
	if samples <= 0 {
		samples = 5
	}
	return &Engine{
		ks:          ks,
		sizes:       sizes,
		metrics:     reg,
		log:         log,
		policy:      cfg.MaxMemoryPolicy,
		maxMemory:   cfg.MaxMemory,
		samples:     samples,
		maxPerCycle: cfg.MaxEvictionsPerIO,
		logFactor:   cfg.LFULogFactor,
		halfLifeMin: cfg.LFUDecayMinutes,
	}
}

// NeedsEviction reports whether used memory currently exceeds the budget.
func (e *Engine) NeedsEviction() bool {
	if e.maxMemory <= 0 || e.policy == config.NoEviction {
		return false
	}
	return e.sizes.UsedBytes() > e.maxMemory
}

// target is the watermark eviction drives usage back down to (90% of budget).
func (e *Engine) target() int64 {
	return int64(float64(e.maxMemory) * 0.9)
}

// OnAccess updates a key's recency/frequency bookkeeping. LRU bumps the
// 24-bit clock; LFU applies the Morris-style probabilistic increment
// with logarithmic saturation at 255 (spec.md §4.4).
func (e *Engine) OnAccess(key string) {
	switch e.policy {
	case config.AllKeysLRU, config.VolatileLRU:
		e.ks.SetLRUClock(key, nowClock())
	case config.AllKeysLFU, config.VolatileLFU:
		counter, ok := e.ks.LFUCounter(key)
		if !ok {
			return
		}
		e.ks.SetLFUCounter(key, incrLFU(counter, e.logFactor))
	}
}

func nowClock() uint32 {
	return uint32(time.Now().Unix()) & 0x00FFFFFF
}

// lfuInitCounter is Redis's LFU_INIT_VAL: a freshly written key starts
// warm rather than cold, so it survives one early sampling pass.
const lfuInitCounter = 5

// OnSet initializes a freshly written key's LFU counter. sizeEstimate is
// accepted for symmetry with spec.md §4.4's contract; observed-size
// accounting itself is owned by the SizeTracker the engine was built with.
func (e *Engine) OnSet(key string, sizeEstimate int) {
	if e.policy == config.AllKeysLFU || e.policy == config.VolatileLFU {
		e.ks.SetLFUCounter(key, lfuInitCounter)
	}
}

// OnDelete exists for spec.md §4.4 contract symmetry; the keyspace
// already drops all per-key bookkeeping on delete, so there is nothing
// further for the eviction engine to reconcile here.
func (e *Engine) OnDelete(key string) {}

// incrLFU applies Redis's logarithmic counter update: probability of
// incrementing shrinks as the counter grows, saturating at 255.
func incrLFU(counter uint8, logFactor int) uint8 {
	if counter == 255 {
		return counter
	}
	if logFactor <= 0 {
		logFactor = 10
	}
	baseline := float64(counter) - 5 // LFU_INIT_VAL equivalent baseline
	if baseline < 0 {
		baseline = 0
	}
	p := 1.0 / (baseline*float64(logFactor) + 1)
	if rand.Float64() < p {
		return counter + 1
	}
	return counter
}

// decayedFrequency folds in age-based decay: counter * exp(-age/half_life).
func decayedFrequency(counter uint8, lastClock, nowClockVal uint32, halfLifeMin int) float64 {
	if halfLifeMin <= 0 {
		halfLifeMin = 60
	}
	ageSeconds := idleSeconds(lastClock, nowClockVal)
	ageMinutes := float64(ageSeconds) / 60.0
	decay := math.Exp(-ageMinutes / float64(halfLifeMin))
	return float64(counter) * decay
}

// idleSeconds computes elapsed seconds between a stored 24-bit clock
// reading and now, accounting for wraparound at 1<<24.
func idleSeconds(stored, now uint32) uint32 {
	const mask = uint32(0x00FFFFFF)
	if now >= stored {
		return now - stored
	}
	return (mask - stored) + now + 1
}

// candidate is a sampled key annotated with the ranking fields the
// active policy needs.
type candidate struct {
	key       string
	hasTTL    bool
	expireAt  time.Time
	lruClock  uint32
	lfuScore  float64
}

// Evict runs cycles of {sample 4N, rank, delete top-N} until usage is
// back under the 90% watermark or budget cycles are exhausted. Returns
// the keys evicted, in eviction order.
func (e *Engine) Evict(budget int) []string {
	if e.policy == config.NoEviction || e.maxMemory <= 0 {
		return nil
	}
	if budget <= 0 || budget > e.maxPerCycle {
		budget = e.maxPerCycle
	}

	var evicted []string
	cycles := 0
	for e.sizes.UsedBytes() > e.target() && cycles < budget {
		cycles++
		victims := e.selectVictims()
		if len(victims) == 0 {
			break
		}
		for _, v := range victims {
			if e.ks.Delete(v) {
				evicted = append(evicted, v)
			}
		}
		e.metrics.EvictionCyclesTotal.Inc()
		e.metrics.EvictedKeysTotal.WithLabelValues(e.policy.String()).Add(float64(len(victims)))
	}
	if len(evicted) > 0 {
		e.log.Debugw("eviction cycle", "policy", e.policy.String(), "evicted", len(evicted))
	}
	return evicted
}

// selectVictims draws 4N candidates and ranks them per the active
// policy, returning the top N to delete (spec.md §4.4 step 1-3).
func (e *Engine) selectVictims() []string {
	onlyVolatile := e.policy.IsVolatile()
	raw := e.ks.SampleKeys(4*e.samples, onlyVolatile)
	if len(raw) == 0 {
		return nil
	}

	now := time.Now()
	nowC := nowClock()
	candidates := make([]candidate, 0, len(raw))
	for _, k := range raw {
		c := candidate{key: k}
		if at, ok := e.ks.GetExpire(k); ok {
			c.hasTTL = true
			c.expireAt = at
		} else if onlyVolatile {
			continue
		}
		if clock, ok := e.ks.LRUClock(k); ok {
			c.lruClock = clock
		}
		if counter, ok := e.ks.LFUCounter(k); ok {
			c.lfuScore = decayedFrequency(counter, c.lruClock, nowC, e.halfLifeMin)
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil
	}

	rankCandidates(candidates, e.policy, nowC, now)

	n := e.samples
	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].key
	}
	return out
}

// rankCandidates sorts candidates in-place, best-victim-first, per the
// active policy's ordering (spec.md §4.4 step 2).
func rankCandidates(candidates []candidate, policy config.MaxMemoryPolicy, nowC uint32, now time.Time) {
	switch policy {
	case config.AllKeysLRU, config.VolatileLRU:
		insertionSort(candidates, func(a, b candidate) bool {
			return idleSeconds(a.lruClock, nowC) > idleSeconds(b.lruClock, nowC)
		})
	case config.AllKeysLFU, config.VolatileLFU:
		insertionSort(candidates, func(a, b candidate) bool {
			return a.lfuScore < b.lfuScore
		})
	case config.VolatileTTL:
		insertionSort(candidates, func(a, b candidate) bool {
			if !a.hasTTL {
				return false
			}
			if !b.hasTTL {
				return true
			}
			return a.expireAt.Before(b.expireAt)
		})
	case config.AllKeysRandom, config.VolatileRandom:
		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	}
}

// insertionSort is a tiny stable sort; candidate slices from one
// sampling pass are small (4N, N default 5), so O(n^2) is plenty and
// keeps this package free of an extra sort.Slice closure-allocation
// dependency.
func insertionSort(c []candidate, less func(a, b candidate) bool) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && less(c[j], c[j-1]); j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}
