package secrets

import (
	"fmt"
	"strings"
)

// Node is one position in a resolved secret tree: either an Interior map of
// child nodes or a Leaf wrapping a Value. The set of implementations is
// closed; consumers switch exhaustively over the two.
type Node interface {
	isNode()
}

// Interior is a read-only map of name to child node, preserving the
// insertion order of the resolve pass that built it.
type Interior struct {
	children map[string]Node
	order    []string
}

func (n *Interior) isNode() {}

// Child returns the direct child by name.
func (n *Interior) Child(name string) (Node, bool) {
	c, ok := n.children[name]
	return c, ok
}

// At walks a dot-joined path from this node and returns the node it lands
// on. An empty path returns the node itself.
func (n *Interior) At(path string) (Node, bool) {
	if path == "" {
		return n, true
	}
	var cur Node = n
	for _, part := range strings.Split(path, ".") {
		in, ok := cur.(*Interior)
		if !ok {
			return nil, false
		}
		next, ok := in.Child(part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Keys returns the child names in insertion order.
func (n *Interior) Keys() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// Len returns the number of direct children.
func (n *Interior) Len() int { return len(n.order) }

// ToMap projects the subtree to plain nested maps. Unrevealed leaves become
// the mask literal; revealed leaves become their Cast results, so an
// int-typed leaf comes back as a Go int. Reveal never fails for a tree built
// by the resolver, which validates every cast up front.
func (n *Interior) ToMap(reveal bool) map[string]any {
	out := make(map[string]any, len(n.order))
	for _, name := range n.order {
		out[name] = project(n.children[name], reveal)
	}
	return out
}

func project(n Node, reveal bool) any {
	switch t := n.(type) {
	case *Interior:
		return t.ToMap(reveal)
	case *Leaf:
		if !reveal {
			return Mask
		}
		v, err := t.value.Cast()
		if err != nil {
			return Mask
		}
		return v
	default:
		return Mask
	}
}

// String renders the masked projection only.
func (n *Interior) String() string {
	return fmt.Sprintf("%v", n.ToMap(false))
}

// GoString matches String; no format verb reveals raw values.
func (n *Interior) GoString() string { return n.String() }

// Leaf wraps a single resolved Value.
type Leaf struct {
	value Value
}

func (l *Leaf) isNode() {}

// Get returns the raw string. This is the explicit reveal path.
func (l *Leaf) Get() string { return l.value.Get() }

// Equals compares a candidate under the leaf's declared type.
func (l *Leaf) Equals(candidate string) (bool, error) {
	return l.value.Equals(candidate)
}

// Value returns the underlying typed value.
func (l *Leaf) Value() Value { return l.value }

// String is always masked.
func (l *Leaf) String() string { return Mask }

// GoString is always masked.
func (l *Leaf) GoString() string { return Mask }

// TreeBuilder assembles an Interior tree during a resolve pass. The zero
// value is not usable; call NewTreeBuilder. After Build the builder rejects
// further inserts, so a finished tree is never mutated.
type TreeBuilder struct {
	root *Interior
}

// NewTreeBuilder returns an empty builder.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{root: &Interior{children: map[string]Node{}}}
}

// Insert places a value at path. Any collision on the final segment, leaf
// against leaf or leaf against group key, is a DuplicatePathError naming the
// dot-joined path; so is traversing through a segment already occupied by a
// leaf.
func (b *TreeBuilder) Insert(path []string, v Value) error {
	if b.root == nil {
		return fmt.Errorf("tree already built")
	}
	if len(path) == 0 {
		return fmt.Errorf("empty secret path")
	}
	cur := b.root
	for i, part := range path[:len(path)-1] {
		existing, ok := cur.children[part]
		if !ok {
			next := &Interior{children: map[string]Node{}}
			cur.children[part] = next
			cur.order = append(cur.order, part)
			cur = next
			continue
		}
		in, ok := existing.(*Interior)
		if !ok {
			return DuplicatePathError{Path: strings.Join(path[:i+1], ".")}
		}
		cur = in
	}
	last := path[len(path)-1]
	if _, ok := cur.children[last]; ok {
		return DuplicatePathError{Path: strings.Join(path, ".")}
	}
	cur.children[last] = &Leaf{value: v}
	cur.order = append(cur.order, last)
	return nil
}

// Build returns the finished tree and invalidates the builder.
func (b *TreeBuilder) Build() *Interior {
	root := b.root
	b.root = nil
	return root
}
