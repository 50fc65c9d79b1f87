package store

import (
	"strings"

	"github.com/fuzzball-muck/muckcore/value"
)

// PropFlags are the per-node visibility/mutability bits of spec.md §3.3.
type PropFlags uint8

const (
	PropReadOnly PropFlags = 1 << iota
	PropPrivate
	PropHidden // SysOnly
	PropBlessed
)

// propNode is one node of the ordered property-path tree. A node may be
// a leaf (Set), a directory (non-empty children), or both.
type propNode struct {
	name     string
	value    value.Value
	set      bool
	flags    PropFlags
	children map[string]*propNode
	order    []string // insertion order of children, for NEXTPROP's stable walk
}

// PropTree is the ordered map from '/'-separated path to (value, flags,
// children) described in spec.md §3.3.
type PropTree struct {
	root *propNode
}

// NewPropTree returns an empty tree.
func NewPropTree() *PropTree {
	return &PropTree{root: &propNode{children: map[string]*propNode{}}}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func joinPath(parts []string) string { return strings.Join(parts, "/") }

// walk returns the node at path, creating intermediate directory nodes
// as needed when create is true.
func (t *PropTree) walk(path string, create bool) *propNode {
	n := t.root
	for _, part := range splitPath(path) {
		child, ok := n.children[part]
		if !ok {
			if !create {
				return nil
			}
			child = &propNode{name: part, children: map[string]*propNode{}}
			n.children[part] = child
			n.order = append(n.order, part)
		}
		n = child
	}
	return n
}

// find returns the node at path without creating it.
func (t *PropTree) find(path string) *propNode { return t.walk(path, false) }

// Clone returns a deep, independent copy of the tree, used by COPYOBJ/
// COPYPLAYER so the new object owns its own property nodes instead of
// sharing them with the original (spec.md §4.D.4 DB write group).
func (t *PropTree) Clone() *PropTree {
	return &PropTree{root: cloneNode(t.root)}
}

// ByteSize estimates the tree's encoded footprint (OBJMEM): each node
// contributes its name plus, for leaves, a rough encoding of its value.
// Approximate by design — OBJMEM is an administrative sizing hint, not
// a byte-exact accounting.
func (t *PropTree) ByteSize() int {
	return nodeByteSize(t.root)
}

func nodeByteSize(n *propNode) int {
	size := len(n.name)
	if n.set {
		size += n.value.ApproxSize()
	}
	for _, c := range n.children {
		size += nodeByteSize(c)
	}
	return size
}

func cloneNode(n *propNode) *propNode {
	c := &propNode{
		name:     n.name,
		value:    n.value,
		set:      n.set,
		flags:    n.flags,
		children: make(map[string]*propNode, len(n.children)),
		order:    append([]string(nil), n.order...),
	}
	for k, v := range n.children {
		c.children[k] = cloneNode(v)
	}
	return c
}

// SetProp sets the leaf value at path, creating intermediate directory
// nodes as needed (ADDPROP/SETPROP family).
func (t *PropTree) SetProp(path string, v value.Value, flags PropFlags) {
	n := t.walk(path, true)
	n.value = v
	n.set = true
	n.flags = flags
}

// GetProp returns the leaf value at path and whether it is set
// (GETPROPVAL family). A directory-only node (no leaf value) reports
// !ok, matching "absent marker, not an error" semantics.
func (t *PropTree) GetProp(path string) (value.Value, bool) {
	n := t.find(path)
	if n == nil || !n.set {
		return value.Cleared, false
	}
	return n.value, true
}

// PropFlagsAt returns the flags stored at path.
func (t *PropTree) PropFlagsAt(path string) (PropFlags, bool) {
	n := t.find(path)
	if n == nil {
		return 0, false
	}
	return n.flags, true
}

// SetPropFlags updates the flags at an existing path (BLESSPROP,
// UNBLESSPROP, and the Read-only/Private/Hidden toggles).
func (t *PropTree) SetPropFlags(path string, flags PropFlags) bool {
	n := t.find(path)
	if n == nil {
		return false
	}
	n.flags = flags
	return true
}

// PropDir reports whether the node at path has children (PROPDIR?).
func (t *PropTree) PropDir(path string) bool {
	n := t.find(path)
	return n != nil && len(n.children) > 0
}

// RemoveProp removes only the leaf value at path, leaving any children
// intact (spec.md §8 property 3: "remove_prop on a node with children
// removes only the leaf value"). If the node becomes a childless,
// unset leaf it is pruned from its parent entirely.
func (t *PropTree) RemoveProp(path string) {
	n := t.find(path)
	if n == nil {
		return
	}
	n.value = value.Cleared
	n.set = false
	n.flags = 0
	if len(n.children) == 0 {
		t.prune(path)
	}
}

func (t *PropTree) prune(path string) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return
	}
	parent := t.walk(joinPath(parts[:len(parts)-1]), false)
	if parent == nil {
		return
	}
	leaf := parts[len(parts)-1]
	delete(parent.children, leaf)
	for i, name := range parent.order {
		if name == leaf {
			parent.order = append(parent.order[:i], parent.order[i+1:]...)
			break
		}
	}
}

// NextProp implements the NEXTPROP primitive: given the last path
// visited ("" to start), returns the next leaf path in tree order, or
// ("", false) when iteration is exhausted. Tree order is depth-first,
// insertion order within a directory — the legacy engine's iteration
// order, preserved here because properties are frequently used as an
// ordered list (e.g. a room's exit-description properties).
func (t *PropTree) NextProp(last string) (string, bool) {
	var leaves []string
	t.collectLeaves(t.root, "", &leaves)
	if last == "" {
		if len(leaves) == 0 {
			return "", false
		}
		return leaves[0], true
	}
	for i, p := range leaves {
		if p == last && i+1 < len(leaves) {
			return leaves[i+1], true
		}
	}
	return "", false
}

func (t *PropTree) collectLeaves(n *propNode, prefix string, out *[]string) {
	if n.set {
		*out = append(*out, prefix)
	}
	for _, name := range n.order {
		child := n.children[name]
		childPath := name
		if prefix != "" {
			childPath = prefix + "/" + name
		}
		t.collectLeaves(child, childPath, out)
	}
}

// AllLeaves returns every set leaf path (used by property-tree-invariant
// tests and by full dump serialisation).
func (t *PropTree) AllLeaves() []string {
	var out []string
	t.collectLeaves(t.root, "", &out)
	return out
}
