package value

import (
	"strconv"
	"strings"
)

// StringEncoding enumerates the three encodings spec.md §3 allows for
// String values. Downgrade from Int to Raw is allowed; the reverse only
// on full replacement (handled by the caller constructing a fresh String).
type StringEncoding int

const (
	StringInt StringEncoding = iota
	StringEmbedded
	StringRaw
)

func (e StringEncoding) String() string {
	switch e {
	case StringInt:
		return "int"
	case StringEmbedded:
		return "embstr"
	case StringRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// embeddedMaxLen is Redis's 44-byte inline threshold (OBJ_ENCODING_EMBSTR_SIZE_LIMIT).
const embeddedMaxLen = 44

// String is the String variant: an encoding-tagged byte sequence that
// transparently recognizes integer content.
type String struct {
	bytes    []byte
	intVal   int64
	encoding StringEncoding
}

func NewStringBytes(b []byte) *String {
	s := &String{}
	s.setBytes(b)
	return s
}

func NewStringInt(v int64) *String {
	return &String{intVal: v, encoding: StringInt}
}

func (s *String) Kind() Kind          { return KindString }
func (s *String) Encoding() string    { return s.encoding.String() }
func (s *String) FreeEffort() int     { return 1 }
func (s *String) SizeEstimate() int   { return 24 + len(s.bytesView()) }

func (s *String) Clone() Value {
	c := &String{intVal: s.intVal, encoding: s.encoding}
	if s.bytes != nil {
		c.bytes = append([]byte(nil), s.bytes...)
	}
	return c
}

// bytesView materializes the current value as bytes regardless of encoding.
func (s *String) bytesView() []byte {
	if s.encoding == StringInt {
		return []byte(strconv.FormatInt(s.intVal, 10))
	}
	return s.bytes
}

// Bytes returns the string's byte representation.
func (s *String) Bytes() []byte {
	return s.bytesView()
}

// Len reports the logical byte length.
func (s *String) Len() int {
	return len(s.bytesView())
}

// setBytes stores raw content, picking Int or Embedded/Raw encoding.
func (s *String) setBytes(b []byte) {
	if n, ok := parseStrictInt64(b); ok {
		s.intVal = n
		s.bytes = nil
		s.encoding = StringInt
		return
	}
	s.bytes = append([]byte(nil), b...)
	s.intVal = 0
	if len(b) <= embeddedMaxLen {
		s.encoding = StringEmbedded
	} else {
		s.encoding = StringRaw
	}
}

// SetBytes replaces the full value (a total replacement, the one case
// where a downgrade-then-reupgrade across encodings is legal — spec.md §3).
func (s *String) SetBytes(b []byte) {
	s.setBytes(b)
}

// SetInt replaces the full value with an integer.
func (s *String) SetInt(v int64) {
	s.intVal = v
	s.bytes = nil
	s.encoding = StringInt
}

// TryAsInt returns the integer value if the current encoding parses as one.
func (s *String) TryAsInt() (int64, bool) {
	if s.encoding == StringInt {
		return s.intVal, true
	}
	n, ok := parseStrictInt64(s.bytes)
	return n, ok
}

// TryAsFloat returns the float value if the current content parses as one.
func (s *String) TryAsFloat() (float64, bool) {
	f, err := strconv.ParseFloat(string(s.bytesView()), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IncrBy adds delta to the integer value, failing with ErrNotAnInteger if
// the current encoding cannot be parsed as an integer, or ErrIncrOverflow on
// signed 64-bit overflow.
func (s *String) IncrBy(delta int64) (int64, error) {
	cur, ok := s.TryAsInt()
	if !ok {
		return 0, ErrNotAnInteger
	}
	sum := cur + delta
	// Overflow check: sign of delta determines the direction that can overflow.
	if (delta > 0 && sum < cur) || (delta < 0 && sum > cur) {
		return 0, ErrIncrOverflow
	}
	s.SetInt(sum)
	return sum, nil
}

// IncrByFloat adds delta to the float value.
func (s *String) IncrByFloat(delta float64) (float64, error) {
	cur, ok := s.TryAsFloat()
	if !ok {
		return 0, ErrNotAFloat
	}
	sum := cur + delta
	s.setBytes([]byte(strconv.FormatFloat(sum, 'f', -1, 64)))
	return sum, nil
}

// Append appends b to the value, always downgrading Int encoding to Raw
// (spec.md §4.1: "append on an Int-encoded string downgrades to Raw").
func (s *String) Append(b []byte) int {
	cur := s.bytesView()
	next := make([]byte, 0, len(cur)+len(b))
	next = append(next, cur...)
	next = append(next, b...)
	s.bytes = next
	s.intVal = 0
	s.encoding = StringRaw // append never re-promotes to Int/Embedded
	return len(next)
}

// Range returns the inclusive byte range [start, end], normalizing
// negative indices as "from the tail", matching Redis GETRANGE semantics.
func (s *String) Range(start, end int) []byte {
	b := s.bytesView()
	n := len(b)
	if n == 0 {
		return []byte{}
	}
	start = normalizeIndex(start, n)
	end = normalizeIndex(end, n)
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || start >= n {
		return []byte{}
	}
	out := make([]byte, end-start+1)
	copy(out, b[start:end+1])
	return out
}

func normalizeIndex(i, n int) int {
	if i < 0 {
		return n + i
	}
	return i
}

// parseStrictInt64 parses b as a base-10 signed 64-bit integer with no
// leading/trailing whitespace and no leading zeros (matching Redis's
// "string2ll" strictness, so "007" stays Raw rather than becoming Int 7).
func parseStrictInt64(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 20 {
		return 0, false
	}
	s := string(b)
	if s != strings.TrimSpace(s) {
		return 0, false
	}
	if len(s) > 1 && (s[0] == '0' || (s[0] == '-' && s[1] == '0')) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
