package value

// List is the List variant. It starts as a flat Listpack and transitions
// one-way to a QuickList (teacher's doubly linked list, kept as the
// backing representation) once it grows past the thresholds in spec.md §3.
type List struct {
	encoding ListEncoding
	packed   []string  // valid when encoding == ListListpack
	linked   *listNode // sentinel-free doubly linked list head; valid when encoding == ListQuickList
	tail     *listNode
	length   int
}

type ListEncoding int

const (
	ListListpack ListEncoding = iota
	ListQuickList
)

func (e ListEncoding) String() string {
	if e == ListQuickList {
		return "quicklist"
	}
	return "listpack"
}

const (
	listpackMaxLen    = 128
	listpackMaxElemLen = 64
)

type listNode struct {
	value      string
	prev, next *listNode
}

func NewList() *List {
	return &List{encoding: ListListpack, packed: make([]string, 0)}
}

func (l *List) Kind() Kind       { return KindList }
func (l *List) Encoding() string { return l.encoding.String() }
func (l *List) FreeEffort() int  { return l.Len() }
func (l *List) SizeEstimate() int {
	return 24 + 16*l.Len()
}

func (l *List) Clone() Value {
	c := NewList()
	c.encoding = l.encoding
	for _, v := range l.toSlice() {
		c.pushBackRaw(v)
	}
	return c
}

func (l *List) Len() int { return l.length }

// PushHead prepends values, leftmost argument ending up as the new head
// (matching Redis's LPUSH "each value pushed in turn" semantics).
func (l *List) PushHead(values ...string) int {
	for _, v := range values {
		l.pushFrontRaw(v)
	}
	l.maybeUpgrade()
	return l.length
}

// PushTail appends values.
func (l *List) PushTail(values ...string) int {
	for _, v := range values {
		l.pushBackRaw(v)
	}
	l.maybeUpgrade()
	return l.length
}

func (l *List) pushFrontRaw(v string) {
	if l.encoding == ListListpack {
		l.packed = append([]string{v}, l.packed...)
		l.length++
		return
	}
	n := &listNode{value: v}
	if l.linked == nil {
		l.linked, l.tail = n, n
	} else {
		n.next = l.linked
		l.linked.prev = n
		l.linked = n
	}
	l.length++
}

func (l *List) pushBackRaw(v string) {
	if l.encoding == ListListpack {
		l.packed = append(l.packed, v)
		l.length++
		return
	}
	n := &listNode{value: v}
	if l.tail == nil {
		l.linked, l.tail = n, n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.length++
}

// maybeUpgrade checks the one-way Listpack -> QuickList transition
// condition at the end of every write (spec.md §4.1's "checked at the end
// of every write op").
func (l *List) maybeUpgrade() {
	if l.encoding == ListQuickList {
		return
	}
	upgrade := l.length > listpackMaxLen
	if !upgrade {
		for _, v := range l.packed {
			if len(v) > listpackMaxElemLen {
				upgrade = true
				break
			}
		}
	}
	if !upgrade {
		return
	}
	packed := l.packed
	l.packed = nil
	l.encoding = ListQuickList
	l.linked, l.tail, l.length = nil, nil, 0
	for _, v := range packed {
		l.pushBackRaw(v)
	}
}

// PopHead removes and returns the first element.
func (l *List) PopHead() (string, bool) {
	if l.length == 0 {
		return "", false
	}
	if l.encoding == ListListpack {
		v := l.packed[0]
		l.packed = l.packed[1:]
		l.length--
		return v, true
	}
	n := l.linked
	v := n.value
	l.linked = n.next
	if l.linked != nil {
		l.linked.prev = nil
	} else {
		l.tail = nil
	}
	l.length--
	return v, true
}

// PopTail removes and returns the last element.
func (l *List) PopTail() (string, bool) {
	if l.length == 0 {
		return "", false
	}
	if l.encoding == ListListpack {
		v := l.packed[l.length-1]
		l.packed = l.packed[:l.length-1]
		l.length--
		return v, true
	}
	n := l.tail
	v := n.value
	l.tail = n.prev
	if l.tail != nil {
		l.tail.next = nil
	} else {
		l.linked = nil
	}
	l.length--
	return v, true
}

// normalize converts a possibly-negative index ("-1" = last) to an
// absolute one, returning false if it is out of range.
func (l *List) normalize(i int) (int, bool) {
	if i < 0 {
		i = l.length + i
	}
	if i < 0 || i >= l.length {
		return 0, false
	}
	return i, true
}

// GetAt returns the element at i, or false ("returns nothing, not an
// error" per spec.md §4.1) if out of range.
func (l *List) GetAt(i int) (string, bool) {
	idx, ok := l.normalize(i)
	if !ok {
		return "", false
	}
	if l.encoding == ListListpack {
		return l.packed[idx], true
	}
	return l.nodeAt(idx).value, true
}

// SetAt overwrites the element at i.
func (l *List) SetAt(i int, v string) bool {
	idx, ok := l.normalize(i)
	if !ok {
		return false
	}
	if l.encoding == ListListpack {
		l.packed[idx] = v
		if len(v) > listpackMaxElemLen {
			l.maybeUpgrade()
		}
		return true
	}
	l.nodeAt(idx).value = v
	return true
}

func (l *List) nodeAt(idx int) *listNode {
	var n *listNode
	if idx < l.length/2 {
		n = l.linked
		for i := 0; i < idx; i++ {
			n = n.next
		}
	} else {
		n = l.tail
		for i := l.length - 1; i > idx; i-- {
			n = n.prev
		}
	}
	return n
}

// Range returns elements [start, end] inclusive, empty if start > end
// after normalization (spec.md §4.1).
func (l *List) Range(start, end int) []string {
	if l.length == 0 {
		return []string{}
	}
	if start < 0 {
		start = l.length + start
	}
	if end < 0 {
		end = l.length + end
	}
	if start < 0 {
		start = 0
	}
	if end >= l.length {
		end = l.length - 1
	}
	if start > end || start >= l.length {
		return []string{}
	}

	if l.encoding == ListListpack {
		out := make([]string, end-start+1)
		copy(out, l.packed[start:end+1])
		return out
	}

	out := make([]string, 0, end-start+1)
	n := l.nodeAt(start)
	for i := start; i <= end && n != nil; i++ {
		out = append(out, n.value)
		n = n.next
	}
	return out
}

// Trim keeps only elements [start, end] inclusive, clearing the list if
// the range is empty. The current encoding is kept.
func (l *List) Trim(start, end int) {
	kept := l.Range(start, end)
	l.packed = nil
	l.linked, l.tail, l.length = nil, nil, 0
	for _, v := range kept {
		l.pushBackRaw(v)
	}
	l.maybeUpgrade()
}

func (l *List) toSlice() []string {
	return l.Range(0, -1)
}
