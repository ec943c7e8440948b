package value

import (
	"strconv"
	"time"
)

// HashEncoding enumerates the two encodings spec.md §3 allows for Hash
// values. The per-field TTL map is independent of encoding.
type HashEncoding int

const (
	HashListpack HashEncoding = iota
	HashHashtable
)

func (e HashEncoding) String() string {
	if e == HashHashtable {
		return "hashtable"
	}
	return "listpack"
}

const (
	hashListpackMaxLen  = 128
	hashListpackMaxElem = 64
)

// Hash is the Hash variant: a field->value map plus an independent
// field->expiration index (HEXPIRE/HTTL/HPERSIST, a feature spec.md's
// distillation names in its contract but the command layer historically
// omits — see SPEC_FULL.md's supplemented-features section).
type Hash struct {
	encoding HashEncoding
	fields   map[string]string
	fieldTTL map[string]time.Time // only entries with an active TTL
	order    []string             // insertion order, kept for Listpack's natural HGETALL order
}

func NewHash() *Hash {
	return &Hash{encoding: HashListpack, fields: make(map[string]string)}
}

func (h *Hash) Kind() Kind       { return KindHash }
func (h *Hash) Encoding() string { return h.encoding.String() }

// FreeEffort and SizeEstimate only count live (non-expired) fields —
// resolving spec.md §9's Open Question on whether per-field TTL weighs
// on eviction: it does not, since expired fields are lazily stripped
// before either is computed (see DESIGN.md).
func (h *Hash) FreeEffort() int { return h.liveLen() }
func (h *Hash) SizeEstimate() int {
	return 24 + 24*h.liveLen()
}

func (h *Hash) Clone() Value {
	c := &Hash{encoding: h.encoding, fields: make(map[string]string, len(h.fields))}
	for k, v := range h.fields {
		c.fields[k] = v
	}
	if h.fieldTTL != nil {
		c.fieldTTL = make(map[string]time.Time, len(h.fieldTTL))
		for k, v := range h.fieldTTL {
			c.fieldTTL[k] = v
		}
	}
	c.order = append([]string(nil), h.order...)
	return c
}

// expireFieldsIfNeeded lazily evicts fields whose TTL has passed —
// "reading an expired field transparently deletes it" (spec.md §4.1).
func (h *Hash) expireFieldsIfNeeded() {
	if len(h.fieldTTL) == 0 {
		return
	}
	now := time.Now()
	for f, at := range h.fieldTTL {
		if now.After(at) {
			h.removeField(f)
		}
	}
}

func (h *Hash) removeField(field string) {
	delete(h.fields, field)
	delete(h.fieldTTL, field)
	for i, f := range h.order {
		if f == field {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Hash) liveLen() int {
	h.expireFieldsIfNeeded()
	return len(h.fields)
}

func (h *Hash) Len() int { return h.liveLen() }

// HSet sets field to value, returning true if field is new.
func (h *Hash) HSet(field, val string) bool {
	h.expireFieldsIfNeeded()
	_, exists := h.fields[field]
	h.fields[field] = val
	delete(h.fieldTTL, field) // a plain HSET clears any prior field TTL
	if !exists {
		h.order = append(h.order, field)
	}
	h.maybeUpgrade(field, val)
	return !exists
}

// HSetIfAbsent sets field only if it doesn't already exist (HSETNX).
func (h *Hash) HSetIfAbsent(field, val string) bool {
	h.expireFieldsIfNeeded()
	if _, exists := h.fields[field]; exists {
		return false
	}
	h.HSet(field, val)
	return true
}

func (h *Hash) maybeUpgrade(field, val string) {
	if h.encoding == HashHashtable {
		return
	}
	if len(h.fields) > hashListpackMaxLen || len(field) > hashListpackMaxElem || len(val) > hashListpackMaxElem {
		h.encoding = HashHashtable
	}
}

// HGet returns field's value.
func (h *Hash) HGet(field string) (string, bool) {
	h.expireFieldsIfNeeded()
	v, ok := h.fields[field]
	return v, ok
}

// HDel removes one or more fields, returning the count actually removed.
func (h *Hash) HDel(fields ...string) int {
	h.expireFieldsIfNeeded()
	n := 0
	for _, f := range fields {
		if _, exists := h.fields[f]; exists {
			h.removeField(f)
			n++
		}
	}
	return n
}

// HExists reports whether field is present (and live).
func (h *Hash) HExists(field string) bool {
	h.expireFieldsIfNeeded()
	_, ok := h.fields[field]
	return ok
}

// HKeys returns all live field names, in insertion order for Listpack or
// Go map order for Hashtable (matching Set's ordering resolution).
func (h *Hash) HKeys() []string {
	h.expireFieldsIfNeeded()
	if h.encoding == HashListpack {
		return append([]string(nil), h.order...)
	}
	out := make([]string, 0, len(h.fields))
	for f := range h.fields {
		out = append(out, f)
	}
	return out
}

// HVals returns all live values, ordered consistently with HKeys.
func (h *Hash) HVals() []string {
	keys := h.HKeys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = h.fields[k]
	}
	return out
}

// HGetAll returns the full live field->value map.
func (h *Hash) HGetAll() map[string]string {
	h.expireFieldsIfNeeded()
	out := make(map[string]string, len(h.fields))
	for k, v := range h.fields {
		out[k] = v
	}
	return out
}

// HIncrBy adds delta to field's integer value, failing if the current
// content doesn't parse as an integer.
func (h *Hash) HIncrBy(field string, delta int64) (int64, error) {
	h.expireFieldsIfNeeded()
	cur := int64(0)
	if v, ok := h.fields[field]; ok {
		n, ok := parseStrictInt64([]byte(v))
		if !ok {
			return 0, ErrNotAnInteger
		}
		cur = n
	}
	next := cur + delta
	h.HSet(field, formatInt64(next))
	return next, nil
}

// HIncrByFloat adds delta to field's float value.
func (h *Hash) HIncrByFloat(field string, delta float64) (float64, error) {
	h.expireFieldsIfNeeded()
	cur := 0.0
	if v, ok := h.fields[field]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, ErrNotAFloat
		}
		cur = f
	}
	next := cur + delta
	h.HSet(field, strconv.FormatFloat(next, 'f', -1, 64))
	return next, nil
}

// ExpireField sets field's expiration instant (HEXPIRE).
func (h *Hash) ExpireField(field string, at time.Time) bool {
	h.expireFieldsIfNeeded()
	if _, ok := h.fields[field]; !ok {
		return false
	}
	if h.fieldTTL == nil {
		h.fieldTTL = make(map[string]time.Time)
	}
	h.fieldTTL[field] = at
	return true
}

// PersistField clears field's expiration (HPERSIST).
func (h *Hash) PersistField(field string) bool {
	if _, ok := h.fieldTTL[field]; !ok {
		return false
	}
	delete(h.fieldTTL, field)
	return true
}

// TTLField returns field's remaining TTL, or (0, false) if it has none.
func (h *Hash) TTLField(field string) (time.Duration, bool) {
	at, ok := h.fieldTTL[field]
	if !ok {
		return 0, false
	}
	return time.Until(at), true
}

func formatInt64(n int64) string {
	return strconv.FormatInt(n, 10)
}
