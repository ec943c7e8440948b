package engine

import (
	"sync/atomic"

	"redcore/internal/value"
)

// setValue replaces key wholesale with v, folding in eviction bookkeeping
// and lazy-free release of whatever key held before (spec.md §5's "every
// write path consults eviction and reclaim").
func (e *Engine) setValue(key string, v value.Value) {
	old, existed := e.ks.Get(key)
	e.ks.Set(key, v)
	delta := int64(v.SizeEstimate())
	if existed {
		delta -= int64(old.SizeEstimate())
		e.reclaimer.QueueFree(old)
	}
	atomic.AddInt64(&e.usedBytes, delta)
	e.evict.OnSet(key, v.SizeEstimate())
}

// deleteKey removes key, releasing its value through the lazy-free
// reclaimer if it was large enough to warrant a background destructor.
func (e *Engine) deleteKey(key string) bool {
	old, existed := e.ks.Get(key)
	if !existed {
		return false
	}
	e.ks.Delete(key)
	atomic.AddInt64(&e.usedBytes, -int64(old.SizeEstimate()))
	e.evict.OnDelete(key)
	e.reclaimer.QueueFree(old)
	return true
}

// mutateExisting fetches key asserted to be of kind k and applies fn to
// it in place, refreshing size accounting and LRU/LFU bookkeeping. ok is
// false if the key does not exist; err is ErrWrongType or whatever fn
// itself returns.
func (e *Engine) mutateExisting(key string, k value.Kind, fn func(value.Value) error) (ok bool, err error) {
	v, exists, err := e.ks.GetAs(key, k)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	before := v.SizeEstimate()
	if err := fn(v); err != nil {
		return false, err
	}
	e.afterMutate(key, v, before)
	return true, nil
}

// mutateOrCreate is mutateExisting but creates a fresh zero() value
// first when key is absent (LPUSH/SADD/HSET/ZADD/PFADD-style commands
// that implicitly create their key on first write).
func (e *Engine) mutateOrCreate(key string, k value.Kind, zero func() value.Value, fn func(value.Value) error) (value.Value, error) {
	v, exists, err := e.ks.GetAs(key, k)
	if err != nil {
		return nil, err
	}
	if !exists {
		v = zero()
		e.ks.Set(key, v)
		atomic.AddInt64(&e.usedBytes, int64(v.SizeEstimate()))
		e.evict.OnSet(key, v.SizeEstimate())
	}
	before := v.SizeEstimate()
	if err := fn(v); err != nil {
		return nil, err
	}
	e.afterMutate(key, v, before)
	return v, nil
}

// afterMutate reconciles size accounting after an in-place mutation and
// bumps the key's LRU/LFU recency without bumping its WATCH version
// (ks.Mutate only bumps the version when the Value's identity changes,
// which an in-place mutation never does — spec.md §3's per-field rule).
func (e *Engine) afterMutate(key string, v value.Value, sizeBefore int) {
	after := v.SizeEstimate()
	atomic.AddInt64(&e.usedBytes, int64(after-sizeBefore))
	_, _ = e.ks.Mutate(key, func(cur value.Value) (value.Value, error) { return cur, nil })
	e.evict.OnAccess(key)
}

// readAccess records an LRU/LFU touch for a read-only command, without
// any size accounting change.
func (e *Engine) readAccess(key string) {
	e.evict.OnAccess(key)
}
