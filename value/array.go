package value

import (
	"sort"

	"github.com/fuzzball-muck/muckcore/internal/invariant"
)

// arrayShape is the in-memory representation an array node currently
// uses. The engine promotes transparently between the two (spec.md
// §3.3): a packed array that receives a non-sequential ARRAY_SETITEM
// key, or any non-integer key, becomes a dictionary; a dictionary never
// demotes back to packed (mirrors the legacy engine: demotion would be
// observable as a reordering, which no caller should rely on).
type arrayShape uint8

const (
	shapePacked arrayShape = iota
	shapeDict
)

// arrayNode is the shared, possibly-multiply-held backing store for one
// or more SharedArray handles. refs counts how many *distinct* handles
// currently point at this node; it is what COW mutation on an unpinned
// handle forks against (spec.md §8 property 5).
type arrayNode struct {
	shape arrayShape

	packed []Value

	// dict is kept as two parallel slices, always sorted by Compare(key)
	// ascending, so NEXT/PREV and ordered iteration are O(1) amortised
	// and ARRAY_KEYS/ARRAY_VALS need no separate sort.
	dictKeys []Value
	dictVals []Value

	refs int32
}

func newPackedNode() *arrayNode { return &arrayNode{shape: shapePacked, refs: 1} }
func newDictNode() *arrayNode   { return &arrayNode{shape: shapeDict, refs: 1} }

func (n *arrayNode) clone() *arrayNode {
	c := &arrayNode{shape: n.shape, refs: 1}
	if n.packed != nil {
		c.packed = append([]Value(nil), n.packed...)
	}
	if n.dictKeys != nil {
		c.dictKeys = append([]Value(nil), n.dictKeys...)
		c.dictVals = append([]Value(nil), n.dictVals...)
	}
	return c
}

// SharedArray is a handle over an arrayNode, with a pin bit controlling
// mutation semantics (spec.md §3.3, §8 property 5):
//
//   - pinned: mutation through any holder is visible to every holder
//     sharing the node (no fork, ever).
//   - unpinned (default): mutation through a holder that does not
//     exclusively own the node first clones it (copy-on-write), so other
//     holders are unaffected.
type SharedArray struct {
	node   *arrayNode
	pinned bool
}

// NewPackedArray returns an empty packed array.
func NewPackedArray() *SharedArray { return &SharedArray{node: newPackedNode()} }

// NewDictArray returns an empty dictionary array.
func NewDictArray() *SharedArray { return &SharedArray{node: newDictNode()} }

// NewPackedArrayFrom builds a packed array from a slice of values.
func NewPackedArrayFrom(vals []Value) *SharedArray {
	n := newPackedNode()
	n.packed = append([]Value(nil), vals...)
	return &SharedArray{node: n}
}

// Share returns a new handle over the same backing node, incrementing
// the node's share count. Every primitive that duplicates an array value
// onto the stack or into a variable/property without deep-copying
// (DUP, PUT, storing into a property, ARRAY_MAKE's callers retaining
// their copy, ...) must go through Share, not a bare struct copy, or
// the COW accounting in mutable() undercounts holders.
func (a *SharedArray) Share() *SharedArray {
	invariant.NotNil(a, "array")
	a.node.refs++
	return &SharedArray{node: a.node, pinned: a.pinned}
}

// Pin returns a pinned handle sharing this array's node (ARRAY_PIN).
func (a *SharedArray) Pin() *SharedArray {
	return &SharedArray{node: a.node, pinned: true}
}

// Unpin returns an unpinned handle sharing this array's node (ARRAY_UNPIN).
func (a *SharedArray) Unpin() *SharedArray {
	return &SharedArray{node: a.node, pinned: false}
}

// IsPinned reports the handle's pin state.
func (a *SharedArray) IsPinned() bool { return a.pinned }

// Decouple returns a fresh, deep-unshared copy (ARRAY_DECOUPLE): the
// returned handle's node always has refs == 1, regardless of how many
// other holders the original node had.
func (a *SharedArray) Decouple() *SharedArray {
	return &SharedArray{node: a.node.clone(), pinned: a.pinned}
}

// Count returns the number of elements.
func (a *SharedArray) Count() int {
	if a == nil {
		return 0
	}
	if a.node.shape == shapePacked {
		return len(a.node.packed)
	}
	return len(a.node.dictKeys)
}

func (a *SharedArray) IsDict() bool { return a.node.shape == shapeDict }

// PackedView returns the element sequence for recursive comparison
// (spec.md §4.A): for a packed array, its elements in order; for a
// dictionary, its values in key order.
func (a *SharedArray) PackedView() []Value {
	if a.node.shape == shapePacked {
		return a.node.packed
	}
	return a.node.dictVals
}

// mutable returns the node to mutate in place, forking first if this is
// an unpinned handle over a shared node (refs > 1). This is the single
// choke point implementing spec.md §8 property 5.
func (a *SharedArray) mutable() *arrayNode {
	if !a.pinned && a.node.refs > 1 {
		a.node.refs--
		a.node = a.node.clone()
	}
	return a.node
}

// ErrTypeMismatch-style failures are reported by callers in interp/muckerr
// terms; this package only exposes the raw, typed operations so it has no
// dependency on the interpreter's error taxonomy.

// GetItem implements ARRAY_GETITEM: out-of-range indexing or a missing
// dictionary key returns (Cleared, false), not an error (spec.md §4.A).
func (a *SharedArray) GetItem(key Value) (Value, bool) {
	if a.node.shape == shapePacked && key.Kind == KindInt {
		idx := int(key.I)
		if idx < 0 || idx >= len(a.node.packed) {
			return Cleared, false
		}
		return a.node.packed[idx], true
	}
	return a.dictGet(key)
}

func (a *SharedArray) dictGet(key Value) (Value, bool) {
	i := a.dictSearch(key)
	if i < len(a.node.dictKeys) && Compare(a.node.dictKeys[i], key) == 0 {
		return a.node.dictVals[i], true
	}
	return Cleared, false
}

func (a *SharedArray) dictSearch(key Value) int {
	return sort.Search(len(a.node.dictKeys), func(i int) bool {
		return Compare(a.node.dictKeys[i], key) >= 0
	})
}

// promote converts a packed node to a dictionary node in place, keyed by
// 0..n-1 integer indices, used when a non-sequential or non-integer key
// is set on a packed array.
func (n *arrayNode) promote() {
	n.shape = shapeDict
	n.dictKeys = make([]Value, len(n.packed))
	n.dictVals = append([]Value(nil), n.packed...)
	for i := range n.packed {
		n.dictKeys[i] = Int(int32(i))
	}
	n.packed = nil
}

// SetItem implements ARRAY_SETITEM, promoting packed->dict as needed.
func (a *SharedArray) SetItem(key, val Value) *SharedArray {
	n := a.mutable()
	if n.shape == shapePacked {
		if key.Kind == KindInt && int(key.I) >= 0 && int(key.I) <= len(n.packed) {
			idx := int(key.I)
			if idx == len(n.packed) {
				n.packed = append(n.packed, val)
			} else {
				n.packed[idx] = val
			}
			return a
		}
		n.promote()
	}
	i := a.dictSearch(key)
	if i < len(n.dictKeys) && Compare(n.dictKeys[i], key) == 0 {
		n.dictVals[i] = val
		return a
	}
	n.dictKeys = insertAt(n.dictKeys, i, key)
	n.dictVals = insertAt(n.dictVals, i, val)
	return a
}

func insertAt(s []Value, i int, v Value) []Value {
	s = append(s, Cleared)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeAt(s []Value, i int) []Value {
	return append(s[:i], s[i+1:]...)
}

// AppendItem implements ARRAY_APPENDITEM: append at the next integer key.
func (a *SharedArray) AppendItem(val Value) *SharedArray {
	n := a.mutable()
	if n.shape == shapePacked {
		n.packed = append(n.packed, val)
		return a
	}
	nextKey := int32(0)
	if len(n.dictKeys) > 0 {
		last := n.dictKeys[len(n.dictKeys)-1]
		if last.Kind == KindInt {
			nextKey = last.I + 1
		}
	}
	return a.SetItem(Int(nextKey), val)
}

// DelItem implements ARRAY_DELITEM.
func (a *SharedArray) DelItem(key Value) *SharedArray {
	n := a.mutable()
	if n.shape == shapePacked {
		if key.Kind != KindInt {
			return a
		}
		idx := int(key.I)
		if idx < 0 || idx >= len(n.packed) {
			return a
		}
		n.packed = removeAt(n.packed, idx)
		return a
	}
	i := a.dictSearch(key)
	if i < len(n.dictKeys) && Compare(n.dictKeys[i], key) == 0 {
		n.dictKeys = removeAt(n.dictKeys, i)
		n.dictVals = removeAt(n.dictVals, i)
	}
	return a
}

// Keys implements ARRAY_KEYS.
func (a *SharedArray) Keys() []Value {
	if a.node.shape == shapePacked {
		keys := make([]Value, len(a.node.packed))
		for i := range keys {
			keys[i] = Int(int32(i))
		}
		return keys
	}
	return append([]Value(nil), a.node.dictKeys...)
}

// Vals implements ARRAY_VALS.
func (a *SharedArray) Vals() []Value {
	if a.node.shape == shapePacked {
		return append([]Value(nil), a.node.packed...)
	}
	return append([]Value(nil), a.node.dictVals...)
}

// GetRange implements ARRAY_GETRANGE, clamping to [0,count) for packed
// arrays; for dictionaries a missing start/end key rounds to the
// next-greater/next-lesser key (spec.md §4.A "Containers").
func (a *SharedArray) GetRange(start, end Value) *SharedArray {
	if a.node.shape == shapePacked {
		n := len(a.node.packed)
		lo := clampInt(int(start.I), 0, n)
		hi := clampInt(int(end.I), 0, n)
		if lo > hi {
			return NewPackedArray()
		}
		return NewPackedArrayFrom(a.node.packed[lo:hi])
	}
	lo := a.dictSearch(start)
	hi := sort.Search(len(a.node.dictKeys), func(i int) bool {
		return Compare(a.node.dictKeys[i], end) > 0
	})
	out := NewDictArray()
	for i := lo; i < hi && i < len(a.node.dictKeys); i++ {
		out.SetItem(a.node.dictKeys[i], a.node.dictVals[i])
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sort implements ARRAY_SORT/ARRAY_SORT_INDEXED: byVals sorts by value,
// otherwise by key; descending reverses the comparator.
func (a *SharedArray) Sort(byVals, descending bool) *SharedArray {
	keys := a.Keys()
	vals := a.Vals()
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	cmpSlice := keys
	if byVals {
		cmpSlice = vals
	}
	sort.SliceStable(idx, func(i, j int) bool {
		c := Compare(cmpSlice[idx[i]], cmpSlice[idx[j]])
		if descending {
			return c > 0
		}
		return c < 0
	})
	out := NewDictArray()
	for rank, i := range idx {
		out.SetItem(Int(int32(rank)), vals[i])
	}
	return out
}
