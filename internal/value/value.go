// Package value implements the polymorphic Value layer (spec.md C1): a
// tagged sum of {String, List, Set, SortedSet, Hash, HyperLogLog}, each
// with an internal encoding that may change during the value's lifetime
// without changing its externally observable semantics.
//
// Streams are out of this package's scope; spec.md lists Stream as a
// Value variant only for its free-effort constant (§4.5) and is not
// otherwise exercised by the retrieved command surface.
package value

import "github.com/pkg/errors"

// Kind is the outer tag of the Value sum type.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSet
	KindSortedSet
	KindHash
	KindHyperLogLog
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindSortedSet:
		return "zset"
	case KindHash:
		return "hash"
	case KindHyperLogLog:
		return "hyperloglog"
	default:
		return "unknown"
	}
}

// ErrWrongType is returned whenever a command is issued against a value
// whose Kind does not match the command's expected variant.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// Value is the common contract every variant satisfies. Encoding() names
// the current internal representation for OBJECT ENCODING-style
// introspection; it never affects external semantics (spec.md §3).
type Value interface {
	Kind() Kind
	Encoding() string
	// SizeEstimate is the approximate byte cost used by the eviction
	// engine's observed-size accounting (spec.md §4.4).
	SizeEstimate() int
	// FreeEffort is the logical allocation count a destructor must
	// release, used by the lazy-free reclaimer (spec.md §4.5).
	FreeEffort() int
	// Clone returns a deep copy, used for copy-on-write snapshots.
	Clone() Value
}
