package value

import (
	"sort"
	"strconv"
)

// SetEncoding enumerates the three encodings spec.md §3 allows for Set
// values. All transitions are one-way on threshold breach.
type SetEncoding int

const (
	SetIntSet SetEncoding = iota
	SetListpack
	SetHashtable
)

func (e SetEncoding) String() string {
	switch e {
	case SetIntSet:
		return "intset"
	case SetListpack:
		return "listpack"
	default:
		return "hashtable"
	}
}

const (
	intsetMaxEntries    = 512
	setListpackMaxLen   = 128
	setListpackMaxElem  = 64
)

// Set is the Set variant. An IntSet keeps a sorted []int64 and tracks the
// widest element it has ever held (the "monotonic-width upgrade 2->4->8
// bytes" spec.md §3 describes); a Listpack keeps small non-integer
// members in insertion order; a Hashtable is the general fallback.
type Set struct {
	encoding SetEncoding

	ints     []int64 // sorted, valid when encoding == SetIntSet
	intWidth int     // 2, 4, or 8; monotonic high-water mark

	packedOrder []string // insertion order, valid when encoding == SetListpack

	table map[string]struct{} // valid when encoding == SetHashtable
}

func NewSet() *Set {
	return &Set{encoding: SetIntSet, intWidth: 2}
}

func (s *Set) Kind() Kind       { return KindSet }
func (s *Set) Encoding() string { return s.encoding.String() }
func (s *Set) FreeEffort() int  { return s.Len() }
func (s *Set) SizeEstimate() int {
	return 24 + 16*s.Len()
}

func (s *Set) Clone() Value {
	c := &Set{encoding: s.encoding, intWidth: s.intWidth}
	if s.ints != nil {
		c.ints = append([]int64(nil), s.ints...)
	}
	if s.packedOrder != nil {
		c.packedOrder = append([]string(nil), s.packedOrder...)
	}
	if s.table != nil {
		c.table = make(map[string]struct{}, len(s.table))
		for k := range s.table {
			c.table[k] = struct{}{}
		}
	}
	return c
}

func (s *Set) Len() int {
	switch s.encoding {
	case SetIntSet:
		return len(s.ints)
	case SetListpack:
		return len(s.packedOrder)
	default:
		return len(s.table)
	}
}

func widthFor(v int64) int {
	if v >= -32768 && v <= 32767 {
		return 2
	}
	if v >= -2147483648 && v <= 2147483647 {
		return 4
	}
	return 8
}

// Add inserts member, returning true if it was not already present.
func (s *Set) Add(member string) bool {
	switch s.encoding {
	case SetIntSet:
		if n, ok := parseStrictInt64([]byte(member)); ok {
			if s.intAdd(n) {
				if w := widthFor(n); w > s.intWidth {
					s.intWidth = w
				}
				s.maybeDowngradeFromIntSet()
				return true
			}
			return false
		}
		// Non-integer insert into an IntSet jumps straight to Hashtable.
		s.convertToHashtable()
		return s.Add(member)
	case SetListpack:
		for _, m := range s.packedOrder {
			if m == member {
				return false
			}
		}
		s.packedOrder = append(s.packedOrder, member)
		s.maybeUpgradeListpack(member)
		return true
	default:
		if _, exists := s.table[member]; exists {
			return false
		}
		s.table[member] = struct{}{}
		return true
	}
}

func (s *Set) intAdd(n int64) bool {
	i := sort.Search(len(s.ints), func(i int) bool { return s.ints[i] >= n })
	if i < len(s.ints) && s.ints[i] == n {
		return false
	}
	s.ints = append(s.ints, 0)
	copy(s.ints[i+1:], s.ints[i:])
	s.ints[i] = n
	return true
}

func (s *Set) maybeDowngradeFromIntSet() {
	if len(s.ints) > intsetMaxEntries {
		s.convertToHashtable()
	}
}

func (s *Set) maybeUpgradeListpack(lastAdded string) {
	if len(s.packedOrder) > setListpackMaxLen || len(lastAdded) > setListpackMaxElem {
		s.convertToHashtable()
	}
}

func (s *Set) convertToHashtable() {
	if s.encoding == SetHashtable {
		return
	}
	members := s.membersSlice()
	s.encoding = SetHashtable
	s.ints = nil
	s.packedOrder = nil
	s.table = make(map[string]struct{}, len(members))
	for _, m := range members {
		s.table[m] = struct{}{}
	}
}

func (s *Set) membersSlice() []string {
	switch s.encoding {
	case SetIntSet:
		out := make([]string, len(s.ints))
		for i, n := range s.ints {
			out[i] = strconv.FormatInt(n, 10)
		}
		return out
	case SetListpack:
		return append([]string(nil), s.packedOrder...)
	default:
		out := make([]string, 0, len(s.table))
		for m := range s.table {
			out = append(out, m)
		}
		return out
	}
}

// Remove deletes member, returning true if it was present.
func (s *Set) Remove(member string) bool {
	switch s.encoding {
	case SetIntSet:
		n, ok := parseStrictInt64([]byte(member))
		if !ok {
			return false
		}
		i := sort.Search(len(s.ints), func(i int) bool { return s.ints[i] >= n })
		if i >= len(s.ints) || s.ints[i] != n {
			return false
		}
		s.ints = append(s.ints[:i], s.ints[i+1:]...)
		return true
	case SetListpack:
		for i, m := range s.packedOrder {
			if m == member {
				s.packedOrder = append(s.packedOrder[:i], s.packedOrder[i+1:]...)
				return true
			}
		}
		return false
	default:
		if _, exists := s.table[member]; !exists {
			return false
		}
		delete(s.table, member)
		return true
	}
}

// Contains reports whether member is in the set.
func (s *Set) Contains(member string) bool {
	switch s.encoding {
	case SetIntSet:
		n, ok := parseStrictInt64([]byte(member))
		if !ok {
			return false
		}
		i := sort.Search(len(s.ints), func(i int) bool { return s.ints[i] >= n })
		return i < len(s.ints) && s.ints[i] == n
	case SetListpack:
		for _, m := range s.packedOrder {
			if m == member {
				return true
			}
		}
		return false
	default:
		_, exists := s.table[member]
		return exists
	}
}

// Members returns the set's members. IntSet yields ascending numeric
// order (its native sorted representation); Listpack yields insertion
// order; Hashtable yields Go map iteration order — matching real Redis,
// whose own hash table has no defined member order either (spec.md §9
// Open Question, resolved this way: each encoding reports the order
// natural to its representation rather than forcing one artificial order).
func (s *Set) Members() []string {
	return s.membersSlice()
}

// PopRandom removes and returns one random member.
func (s *Set) PopRandom() (string, bool) {
	members := s.membersSlice()
	if len(members) == 0 {
		return "", false
	}
	m := members[pseudoRandomIndex(len(members))]
	s.Remove(m)
	return m, true
}

// RandomMember returns a random member without removing it.
func (s *Set) RandomMember() (string, bool) {
	members := s.membersSlice()
	if len(members) == 0 {
		return "", false
	}
	return members[pseudoRandomIndex(len(members))], true
}

// Union, Intersect, and Difference return new Sets; inputs are never mutated.
func Union(sets ...*Set) *Set {
	out := NewSet()
	for _, s := range sets {
		for _, m := range s.membersSlice() {
			out.Add(m)
		}
	}
	return out
}

func Intersect(sets ...*Set) *Set {
	out := NewSet()
	if len(sets) == 0 {
		return out
	}
	base := sets[0].membersSlice()
	for _, m := range base {
		inAll := true
		for _, s := range sets[1:] {
			if !s.Contains(m) {
				inAll = false
				break
			}
		}
		if inAll {
			out.Add(m)
		}
	}
	return out
}

func Difference(sets ...*Set) *Set {
	out := NewSet()
	if len(sets) == 0 {
		return out
	}
	for _, m := range sets[0].membersSlice() {
		excluded := false
		for _, s := range sets[1:] {
			if s.Contains(m) {
				excluded = true
				break
			}
		}
		if !excluded {
			out.Add(m)
		}
	}
	return out
}
