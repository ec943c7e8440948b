// Package keyspace implements the sharded keyspace (spec.md C2): a
// 16,384-slot partitioned key/value map with per-key versioning, an
// expiry index folded into the main map, and the CRC16 hash-slot routing
// Redis Cluster itself uses. Grounded on the teacher's
// internal/storage/store.go (single-map version) and internal/cluster
// (slot bookkeeping), generalized from one global store into one Shard
// per slot.
package keyspace

import (
	"math/rand"
	"time"

	"redcore/internal/value"

	"github.com/pkg/errors"
)

// ErrWrongType is returned by the typed accessors when a key's Value
// kind doesn't match what the caller expects.
var ErrWrongType = value.ErrWrongType

// Keyspace owns all NumSlots shards and routes every operation to the
// one owning a given key's slot.
type Keyspace struct {
	shards [NumSlots]*Shard
}

// New allocates a Keyspace with all shards initialized.
func New() *Keyspace {
	ks := &Keyspace{}
	for i := range ks.shards {
		ks.shards[i] = newShard(i)
	}
	return ks
}

// ShardFor returns the shard owning key, for callers (C8's command
// loops) that want to batch several operations under one lock
// acquisition.
func (ks *Keyspace) ShardFor(key string) *Shard {
	return ks.shards[SlotOf(key)]
}

// Shards returns all shards, for maintenance passes (C3, DBSIZE, FLUSHALL).
func (ks *Keyspace) Shards() []*Shard {
	out := make([]*Shard, len(ks.shards))
	copy(out, ks.shards[:])
	return out
}

// Get returns key's live value, or (nil, false) if absent or expired.
// Invariant (a): an expired key is never returned.
func (ks *Keyspace) Get(key string) (value.Value, bool) {
	s := ks.ShardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key, time.Now())
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// GetAs returns key's value asserted to be of kind k, failing with
// ErrWrongType if it holds something else.
func (ks *Keyspace) GetAs(key string, k value.Kind) (value.Value, bool, error) {
	v, ok := ks.Get(key)
	if !ok {
		return nil, false, nil
	}
	if v.Kind() != k {
		return nil, true, ErrWrongType
	}
	return v, true, nil
}

// Set replaces key's value wholesale, clearing any prior TTL and
// bumping its version. Returns the new version.
func (ks *Keyspace) Set(key string, v value.Value) uint64 {
	s := ks.ShardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, existed := s.entries[key]
	if !existed {
		e = &KeyEntry{LRUClock: currentLRUClock()}
		s.entries[key] = e
	}
	e.Value = v
	e.ExpireAt = nil
	e.Version++
	e.LRUClock = currentLRUClock()
	return e.Version
}

// SetIfAbsent sets key to v only if it is not live; an expired entry
// still in the map counts as absent and is replaced. Returns false
// without effect if key is already live.
func (ks *Keyspace) SetIfAbsent(key string, v value.Value) bool {
	s := ks.ShardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.get(key, time.Now()); ok {
		return false
	}
	e := &KeyEntry{Value: v, LRUClock: currentLRUClock(), Version: 1}
	s.entries[key] = e
	return true
}

// Mutate looks up key (failing the read-path expiry check first), hands
// the live entry's Value to fn for in-place mutation, and bumps the
// key's version only if fn reports the value itself changed identity
// (replace) rather than a routine per-field write. Returns false if the
// key doesn't exist.
//
// Most command handlers mutate a Value in place (e.g. LPUSH) without
// swapping the Value out, so they call Mutate with an fn that returns the
// same Value, which refreshes the LRU clock and leaves the version — see
// spec.md §3's Key Entry note that per-field modifications don't bump
// version unless the whole value is replaced.
func (ks *Keyspace) Mutate(key string, fn func(value.Value) (value.Value, error)) (uint64, error) {
	s := ks.ShardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key, time.Now())
	if !ok {
		return 0, nil
	}
	next, err := fn(e.Value)
	if err != nil {
		return 0, err
	}
	if next != nil && next != e.Value {
		e.Value = next
		e.Version++
	}
	e.LRUClock = currentLRUClock()
	return e.Version, nil
}

// Delete removes key. Invariant (c): key_version resets to 0 afterward
// since the entry is gone entirely; a later Set starts a fresh chain at 1.
func (ks *Keyspace) Delete(key string) bool {
	s := ks.ShardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(key)
}

// Exists reports whether key is live.
func (ks *Keyspace) Exists(key string) bool {
	_, ok := ks.Get(key)
	return ok
}

// Rename moves the value (and TTL) at oldKey to newKey, overwriting
// whatever was at newKey. Returns false if oldKey doesn't exist.
// oldKey and newKey may hash to different shards, so both shards' locks
// are taken in a fixed slot-id order to prevent deadlock (spec.md §5).
func (ks *Keyspace) Rename(oldKey, newKey string) bool {
	sOld := ks.ShardFor(oldKey)
	sNew := ks.ShardFor(newKey)
	if sOld == sNew {
		sOld.mu.Lock()
		defer sOld.mu.Unlock()
		e, ok := sOld.get(oldKey, time.Now())
		if !ok {
			return false
		}
		delete(sOld.entries, oldKey)
		e.Version++
		sOld.entries[newKey] = e
		return true
	}

	first, second := sOld, sNew
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	e, ok := sOld.get(oldKey, time.Now())
	if !ok {
		return false
	}
	delete(sOld.entries, oldKey)
	e.Version++
	sNew.entries[newKey] = e
	return true
}

// RandomKey returns a live key chosen uniformly at random across all
// non-empty shards, or ("", false) if the keyspace is empty.
func (ks *Keyspace) RandomKey() (string, bool) {
	nonEmpty := make([]*Shard, 0)
	for _, s := range ks.shards {
		s.mu.RLock()
		n := len(s.entries)
		s.mu.RUnlock()
		if n > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return "", false
	}
	for attempt := 0; attempt < len(nonEmpty); attempt++ {
		s := nonEmpty[pseudoShardPick(len(nonEmpty))]
		s.mu.Lock()
		k, ok := s.randomKey(time.Now())
		s.mu.Unlock()
		if ok {
			return k, true
		}
	}
	return "", false
}

// SampleKeys draws up to n keys — the substrate for C4's eviction
// candidate sampling. It starts at a random shard and takes keys shard by
// shard (each in its map iteration order) until n are collected, so one
// call covers a run of consecutive slots; it is not proportional to
// shard sizes.
func (ks *Keyspace) SampleKeys(n int, onlyVolatile bool) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	now := time.Now()
	start := rand.Intn(len(ks.shards))
	for i := 0; i < len(ks.shards) && len(out) < n; i++ {
		s := ks.shards[(start+i)%len(ks.shards)]
		s.mu.Lock()
		remaining := n - len(out)
		out = append(out, s.sampleKeys(remaining, now, onlyVolatile)...)
		s.mu.Unlock()
	}
	return out
}

// SetExpire sets key's expiration instant. Returns false if key doesn't exist.
func (ks *Keyspace) SetExpire(key string, at time.Time) bool {
	s := ks.ShardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key, time.Now())
	if !ok {
		return false
	}
	e.ExpireAt = &at
	return true
}

// GetExpire returns key's expiration instant, if any.
func (ks *Keyspace) GetExpire(key string) (time.Time, bool) {
	s := ks.ShardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.get(key, time.Now())
	if !ok || e.ExpireAt == nil {
		return time.Time{}, false
	}
	return *e.ExpireAt, true
}

// Persist clears key's TTL, if any. Returns true if a TTL was removed.
func (ks *Keyspace) Persist(key string) bool {
	s := ks.ShardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key, time.Now())
	if !ok || e.ExpireAt == nil {
		return false
	}
	e.ExpireAt = nil
	return true
}

// TTL returns key's remaining time-to-live. ok is false if key doesn't
// exist; hasTTL is false if key exists but has no expiration set.
func (ks *Keyspace) TTL(key string) (ttl time.Duration, hasTTL bool, ok bool) {
	s := ks.ShardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, exists := s.get(key, time.Now())
	if !exists {
		return 0, false, false
	}
	if e.ExpireAt == nil {
		return 0, false, true
	}
	return time.Until(*e.ExpireAt), true, true
}

// IsExpired reports whether key currently holds an expired-but-not-yet-
// reaped entry (used internally by the sweeper; does not itself delete).
func (ks *Keyspace) IsExpired(key string) bool {
	s := ks.ShardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	return e.isExpired(time.Now())
}

// Flush empties every shard. Returns the number of keys removed.
func (ks *Keyspace) Flush() int {
	total := 0
	for _, s := range ks.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.entries = make(map[string]*KeyEntry)
		s.mu.Unlock()
	}
	return total
}

// KeyVersion returns key's current version, or 0 if absent — invariant
// (c): it resets to 0 the instant the key is deleted.
func (ks *Keyspace) KeyVersion(key string) uint64 {
	s := ks.ShardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.get(key, time.Now())
	if !ok {
		return 0
	}
	return e.Version
}

// WatchCheck implements the WATCH substrate: true iff key's version
// still equals v0, meaning no mutation or deletion has occurred since
// v0 was observed.
func (ks *Keyspace) WatchCheck(key string, v0 uint64) bool {
	return ks.KeyVersion(key) == v0
}

// DBSize returns the total live key count across all shards (invariant 5).
func (ks *Keyspace) DBSize() int {
	total := 0
	now := time.Now()
	for _, s := range ks.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if e.isExpired(now) {
				delete(s.entries, k)
				continue
			}
			total++
		}
		s.mu.Unlock()
	}
	return total
}

// AllKeys returns every live key across all shards, reaping expired
// entries encountered along the way. Used by the KEYS command; callers
// own filtering by pattern (spec.md treats glob matching as a shared
// concept, not a keyspace concern).
func (ks *Keyspace) AllKeys() []string {
	var out []string
	now := time.Now()
	for _, s := range ks.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if e.isExpired(now) {
				delete(s.entries, k)
				continue
			}
			out = append(out, k)
		}
		s.mu.Unlock()
	}
	return out
}

// LRUClock and LFUCounter expose the C4 eviction engine's bookkeeping
// fields for reading and writing candidate ranking state; C2 itself
// never interprets them.
func (ks *Keyspace) LRUClock(key string) (uint32, bool) {
	s := ks.ShardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return e.LRUClock, true
}

func (ks *Keyspace) SetLRUClock(key string, clock uint32) {
	s := ks.ShardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.LRUClock = clock
	}
}

func (ks *Keyspace) LFUCounter(key string) (uint8, bool) {
	s := ks.ShardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return e.LFUCounter, true
}

func (ks *Keyspace) SetLFUCounter(key string, counter uint8) {
	s := ks.ShardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.LFUCounter = counter
	}
}

// CleanupExpired runs one pass of probabilistic active expiration over a
// single shard (spec.md §4.3): sample sampleSize keys from its expiry
// index, delete the expired ones, and repeat while the expired ratio
// exceeds 25%, up to maxIterations. Returns the number of keys reaped.
func (ks *Keyspace) CleanupExpired(shard *Shard, sampleSize, maxIterations int) int {
	total := 0
	now := time.Now()
	for iter := 0; iter < maxIterations; iter++ {
		shard.mu.Lock()
		sampled, expired := 0, 0
		for k, e := range shard.entries {
			if e.ExpireAt == nil {
				continue
			}
			sampled++
			if e.isExpired(now) {
				delete(shard.entries, k)
				expired++
			}
			if sampled >= sampleSize {
				break
			}
		}
		shard.mu.Unlock()

		total += expired
		if sampled == 0 || float64(expired)/float64(sampled) <= 0.25 {
			break
		}
	}
	return total
}

var ErrNoSuchKey = errors.New("no such key")

func pseudoShardPick(n int) int {
	if n <= 1 {
		return 0
	}
	return rand.Intn(n)
}
