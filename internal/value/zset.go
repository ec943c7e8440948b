package value

import "sort"

// ZMember pairs a member with its score, the shape returned by range queries.
type ZMember struct {
	Member string
	Score  float64
}

// ZSetEncoding enumerates the two encodings spec.md §3 allows for
// SortedSet values.
type ZSetEncoding int

const (
	ZSetListpack ZSetEncoding = iota
	ZSetSkipList
)

func (e ZSetEncoding) String() string {
	if e == ZSetSkipList {
		return "skiplist"
	}
	return "listpack"
}

const (
	zsetListpackMaxLen  = 128
	zsetListpackMaxElem = 64
)

// AddResult reports whether Add inserted a brand-new member or updated
// an existing one's score.
type AddResult int

const (
	ZAdded AddResult = iota
	ZUpdated
)

// SortedSet is the SortedSet variant. Below the listpack threshold it
// keeps a flat slice ordered lazily on read; above it, it pairs a
// skiplist (ordered by (score, member)) with a dict (member -> score) —
// the two must always agree on membership and scores (spec.md invariant 6).
type SortedSet struct {
	encoding ZSetEncoding

	packed []ZMember // valid when encoding == ZSetListpack, unordered append log

	sl   *skipList          // valid when encoding == ZSetSkipList
	dict map[string]float64 // valid when encoding == ZSetSkipList
}

func NewSortedSet() *SortedSet {
	return &SortedSet{encoding: ZSetListpack}
}

func (z *SortedSet) Kind() Kind       { return KindSortedSet }
func (z *SortedSet) Encoding() string { return z.encoding.String() }
func (z *SortedSet) FreeEffort() int  { return z.Len() }
func (z *SortedSet) SizeEstimate() int {
	return 24 + 32*z.Len()
}

func (z *SortedSet) Clone() Value {
	c := &SortedSet{encoding: z.encoding}
	if z.packed != nil {
		c.packed = append([]ZMember(nil), z.packed...)
	}
	if z.encoding == ZSetSkipList {
		c.sl = newSkipList()
		c.dict = make(map[string]float64, len(z.dict))
		for m, sc := range z.dict {
			c.sl.insert(m, sc)
			c.dict[m] = sc
		}
	}
	return c
}

func (z *SortedSet) Len() int {
	if z.encoding == ZSetListpack {
		return len(z.packed)
	}
	return len(z.dict)
}

// Add inserts or updates member's score.
func (z *SortedSet) Add(member string, score float64) AddResult {
	if z.encoding == ZSetListpack {
		for i, m := range z.packed {
			if m.Member == member {
				z.packed[i].Score = score
				return ZUpdated
			}
		}
		z.packed = append(z.packed, ZMember{Member: member, Score: score})
		z.maybeUpgrade()
		return ZAdded
	}

	if old, exists := z.dict[member]; exists {
		if old != score {
			z.sl.delete(member, old)
			z.sl.insert(member, score)
			z.dict[member] = score
		}
		return ZUpdated
	}
	z.sl.insert(member, score)
	z.dict[member] = score
	return ZAdded
}

func (z *SortedSet) maybeUpgrade() {
	if len(z.packed) <= zsetListpackMaxLen {
		longElem := false
		for _, m := range z.packed {
			if len(m.Member) > zsetListpackMaxElem {
				longElem = true
				break
			}
		}
		if !longElem {
			return
		}
	}
	packed := z.packed
	z.packed = nil
	z.encoding = ZSetSkipList
	z.sl = newSkipList()
	z.dict = make(map[string]float64, len(packed))
	for _, m := range packed {
		z.sl.insert(m.Member, m.Score)
		z.dict[m.Member] = m.Score
	}
}

// Remove deletes member, returning true if it was present.
func (z *SortedSet) Remove(member string) bool {
	if z.encoding == ZSetListpack {
		for i, m := range z.packed {
			if m.Member == member {
				z.packed = append(z.packed[:i], z.packed[i+1:]...)
				return true
			}
		}
		return false
	}
	score, exists := z.dict[member]
	if !exists {
		return false
	}
	z.sl.delete(member, score)
	delete(z.dict, member)
	return true
}

// ScoreOf returns member's score.
func (z *SortedSet) ScoreOf(member string) (float64, bool) {
	if z.encoding == ZSetListpack {
		for _, m := range z.packed {
			if m.Member == member {
				return m.Score, true
			}
		}
		return 0, false
	}
	s, ok := z.dict[member]
	return s, ok
}

// IncrScore adds delta to member's score, inserting it at delta if absent.
func (z *SortedSet) IncrScore(member string, delta float64) float64 {
	cur, _ := z.ScoreOf(member)
	next := cur + delta
	z.Add(member, next)
	return next
}

func (z *SortedSet) sortedPacked() []ZMember {
	out := append([]ZMember(nil), z.packed...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out
}

// Rank returns member's 0-based rank (ascending by default; reverse for
// descending), or -1 if absent.
func (z *SortedSet) Rank(member string, reverse bool) int {
	if z.encoding == ZSetListpack {
		ordered := z.sortedPacked()
		for i, m := range ordered {
			if m.Member == member {
				if reverse {
					return len(ordered) - 1 - i
				}
				return i
			}
		}
		return -1
	}
	score, ok := z.dict[member]
	if !ok {
		return -1
	}
	rank := z.sl.getRank(member, score)
	if rank == -1 {
		return -1
	}
	if reverse {
		return z.Len() - 1 - rank
	}
	return rank
}

// RangeByRank returns members with rank in [start, stop] inclusive.
func (z *SortedSet) RangeByRank(start, stop int, reverse bool) []ZMember {
	n := z.Len()
	if n == 0 {
		return nil
	}
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil
	}

	if z.encoding == ZSetListpack {
		ordered := z.sortedPacked()
		if reverse {
			out := make([]ZMember, 0, stop-start+1)
			for i := n - 1 - start; i >= n-1-stop; i-- {
				out = append(out, ordered[i])
			}
			return out
		}
		return append([]ZMember(nil), ordered[start:stop+1]...)
	}
	return z.sl.getRangeByRank(start, stop, reverse)
}

// RangeByScore returns members with score in [min, max], offset/limited
// (count == -1 means unlimited).
func (z *SortedSet) RangeByScore(min, max float64, offset, count int, reverse bool) []ZMember {
	if z.encoding == ZSetListpack {
		ordered := z.sortedPacked()
		filtered := make([]ZMember, 0, len(ordered))
		for _, m := range ordered {
			if m.Score >= min && m.Score <= max {
				filtered = append(filtered, m)
			}
		}
		if reverse {
			for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
				filtered[i], filtered[j] = filtered[j], filtered[i]
			}
		}
		if offset > len(filtered) {
			offset = len(filtered)
		}
		filtered = filtered[offset:]
		if count >= 0 && count < len(filtered) {
			filtered = filtered[:count]
		}
		return filtered
	}
	return z.sl.getRangeByScore(min, max, offset, count, reverse)
}

// CountByScore counts members with score in [min, max].
func (z *SortedSet) CountByScore(min, max float64) int {
	if z.encoding == ZSetListpack {
		count := 0
		for _, m := range z.packed {
			if m.Score >= min && m.Score <= max {
				count++
			}
		}
		return count
	}
	return z.sl.countByScore(min, max)
}
