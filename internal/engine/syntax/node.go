// # internal/engine/syntax/node.go
package syntax

import (
	"fmt"
	"strings"

	"fern/internal/engine/language"
	"fern/internal/engine/source"
)

type nodeFlags uint8

const (
	flagNamed nodeFlags = 1 << iota
	flagMissing
	flagExtra
	flagError
	flagDirty // span overlaps a recorded edit; set by Tree.Edit
)

// nodeData is the in-memory representation of one tree node. Instances
// are arena-allocated and immutable once their tree is returned; edits
// clone affected nodes rather than mutating shared ones. Parent links are
// deliberately absent so subtrees can be shared by reference across
// trees; ancestors are recovered by walking from the root (or, cheaply,
// by a Cursor).
type nodeData struct {
	sym        language.Symbol
	flags      nodeFlags
	parseState language.StateID // state the parser pushed this node in
	production uint16

	startByte  uint32
	endByte    uint32
	startPoint source.Point
	endPoint   source.Point

	children    []*nodeData
	childFields []language.FieldID // parallel to children; nil if none
}

func (d *nodeData) has(f nodeFlags) bool { return d.flags&f != 0 }

// Node is a lightweight coordinate into a Tree: it never owns tree
// memory and is invalid once its Tree is closed. The zero Node is
// invalid. Nodes are compared by identity: Equal is O(1).
type Node struct {
	tree *Tree
	d    *nodeData
}

// Valid reports whether the node references anything.
func (n Node) Valid() bool { return n.d != nil }

// Tree returns the tree this node belongs to.
func (n Node) Tree() *Tree { return n.tree }

// Equal reports whether two nodes are the same node of the same tree.
func (n Node) Equal(o Node) bool { return n.d == o.d && n.tree == o.tree }

// Same reports whether two nodes share the same underlying subtree,
// even across trees. Structural sharing makes this true for subtrees
// reused by an incremental re-parse.
func (n Node) Same(o Node) bool { return n.d != nil && n.d == o.d }

// Symbol returns the node's grammar symbol id.
func (n Node) Symbol() language.Symbol { return n.d.sym }

// Kind returns the node's type name from the language.
func (n Node) Kind() string { return n.tree.lang.SymbolName(n.d.sym) }

// IsNamed reports whether the node is semantically meaningful, as
// opposed to anonymous punctuation.
func (n Node) IsNamed() bool { return n.d.has(flagNamed) }

// IsMissing reports whether the node was synthesized by error recovery.
// Missing nodes are always zero-width.
func (n Node) IsMissing() bool { return n.d.has(flagMissing) }

// IsExtra reports whether the node is an extra token (comment) or an
// error region absorbed outside the grammar proper.
func (n Node) IsExtra() bool { return n.d.has(flagExtra) }

// IsError reports whether this node itself is an ERROR node.
func (n Node) IsError() bool { return n.d.sym == language.SymbolError }

// HasError reports whether this node or any descendant contains a
// syntax error. The flag is propagated upward at build time, so the
// check is O(1).
func (n Node) HasError() bool { return n.d.has(flagError) }

func (n Node) StartByte() uint32 { return n.d.startByte }
func (n Node) EndByte() uint32   { return n.d.endByte }

func (n Node) StartPoint() source.Point { return n.d.startPoint }
func (n Node) EndPoint() source.Point   { return n.d.endPoint }

// Range returns the node's full span.
func (n Node) Range() source.Range {
	return source.Range{
		StartByte:  n.d.startByte,
		EndByte:    n.d.endByte,
		StartPoint: n.d.startPoint,
		EndPoint:   n.d.endPoint,
	}
}

// Text returns the source text the node covers.
func (n Node) Text(src []byte) string {
	start, end := n.d.startByte, n.d.endByte
	if int(end) > len(src) {
		end = uint32(len(src))
	}
	if start > end {
		start = end
	}
	return string(src[start:end])
}

// ChildCount returns the number of children, named and anonymous.
func (n Node) ChildCount() int { return len(n.d.children) }

// Child returns the i-th child. The ok result is false when no such
// child exists; that is an ordinary outcome, not an error.
func (n Node) Child(i int) (Node, bool) {
	if i < 0 || i >= len(n.d.children) {
		return Node{}, false
	}
	return Node{tree: n.tree, d: n.d.children[i]}, true
}

// NamedChildCount returns the number of named children.
func (n Node) NamedChildCount() int {
	count := 0
	for _, c := range n.d.children {
		if c.has(flagNamed) {
			count++
		}
	}
	return count
}

// NamedChild returns the i-th named child, skipping anonymous ones.
func (n Node) NamedChild(i int) (Node, bool) {
	if i < 0 {
		return Node{}, false
	}
	count := 0
	for _, c := range n.d.children {
		if c.has(flagNamed) {
			if count == i {
				return Node{tree: n.tree, d: c}, true
			}
			count++
		}
	}
	return Node{}, false
}

// Parent returns the node's parent. The root has none. Cost is
// O(depth); use a Cursor for repeated ancestor access.
func (n Node) Parent() (Node, bool) {
	if n.d == n.tree.root {
		return Node{}, false
	}
	p := findParent(n.tree.root, n.d)
	if p == nil {
		return Node{}, false
	}
	return Node{tree: n.tree, d: p}, true
}

func findParent(cur, target *nodeData) *nodeData {
	for _, c := range cur.children {
		if c == target {
			return cur
		}
		if c.startByte <= target.startByte && c.endByte >= target.endByte {
			if p := findParent(c, target); p != nil {
				return p
			}
		}
	}
	return nil
}

func (n Node) childIndex(parent *nodeData) int {
	for i, c := range parent.children {
		if c == n.d {
			return i
		}
	}
	return -1
}

// NextSibling returns the following child of this node's parent.
func (n Node) NextSibling() (Node, bool) {
	return n.sibling(1, false)
}

// PrevSibling returns the preceding child of this node's parent.
func (n Node) PrevSibling() (Node, bool) {
	return n.sibling(-1, false)
}

// NextNamedSibling returns the next named sibling.
func (n Node) NextNamedSibling() (Node, bool) {
	return n.sibling(1, true)
}

// PrevNamedSibling returns the previous named sibling.
func (n Node) PrevNamedSibling() (Node, bool) {
	return n.sibling(-1, true)
}

func (n Node) sibling(step int, namedOnly bool) (Node, bool) {
	parent, ok := n.Parent()
	if !ok {
		return Node{}, false
	}
	i := n.childIndex(parent.d)
	if i < 0 {
		return Node{}, false
	}
	for i += step; i >= 0 && i < len(parent.d.children); i += step {
		c := parent.d.children[i]
		if !namedOnly || c.has(flagNamed) {
			return Node{tree: n.tree, d: c}, true
		}
	}
	return Node{}, false
}

// ChildByFieldName returns the first child assigned to the given field.
func (n Node) ChildByFieldName(name string) (Node, bool) {
	fid, ok := n.tree.lang.FieldByName(name)
	if !ok || fid == 0 || n.d.childFields == nil {
		return Node{}, false
	}
	for i, f := range n.d.childFields {
		if f == fid && i < len(n.d.children) {
			return Node{tree: n.tree, d: n.d.children[i]}, true
		}
	}
	return Node{}, false
}

// FieldName returns the field this node fills in its parent, or "".
// Cost is O(depth); a Cursor reports the same without the walk.
func (n Node) FieldName() string {
	parent, ok := n.Parent()
	if !ok || parent.d.childFields == nil {
		return ""
	}
	i := n.childIndex(parent.d)
	if i < 0 || i >= len(parent.d.childFields) {
		return ""
	}
	return n.tree.lang.FieldName(parent.d.childFields[i])
}

// DescendantForByteRange finds the smallest node fully containing
// [start, end). Ties prefer the deepest, left-most such node.
func (n Node) DescendantForByteRange(start, end uint32) (Node, bool) {
	if start > end || n.d.startByte > start || n.d.endByte < end {
		return Node{}, false
	}
	cur := n.d
descend:
	for {
		for _, c := range cur.children {
			if c.startByte <= start && c.endByte >= end {
				cur = c
				continue descend
			}
		}
		return Node{tree: n.tree, d: cur}, true
	}
}

// NamedDescendantForByteRange is DescendantForByteRange restricted to
// named nodes.
func (n Node) NamedDescendantForByteRange(start, end uint32) (Node, bool) {
	d, ok := n.DescendantForByteRange(start, end)
	for ok {
		if d.IsNamed() {
			return d, true
		}
		d, ok = d.Parent()
	}
	return Node{}, false
}

// DescendantForPointRange finds the smallest node fully containing the
// given point range, with the same tie-breaking as the byte variant.
func (n Node) DescendantForPointRange(start, end source.Point) (Node, bool) {
	if end.Before(start) || start.Before(n.d.startPoint) || n.d.endPoint.Before(end) {
		return Node{}, false
	}
	cur := n.d
descend:
	for {
		for _, c := range cur.children {
			if c.startPoint.BeforeOrEqual(start) && end.BeforeOrEqual(c.endPoint) {
				cur = c
				continue descend
			}
		}
		return Node{tree: n.tree, d: cur}, true
	}
}

// NamedDescendantForPointRange is DescendantForPointRange restricted to
// named nodes.
func (n Node) NamedDescendantForPointRange(start, end source.Point) (Node, bool) {
	d, ok := n.DescendantForPointRange(start, end)
	for ok {
		if d.IsNamed() {
			return d, true
		}
		d, ok = d.Parent()
	}
	return Node{}, false
}

// Sexp renders the named structure of the subtree as an s-expression,
// the way grammar test fixtures are usually written.
func (n Node) Sexp() string {
	var b strings.Builder
	n.writeSexp(&b)
	return b.String()
}

func (n Node) writeSexp(b *strings.Builder) {
	if n.IsMissing() {
		fmt.Fprintf(b, "(MISSING %q)", n.Kind())
		return
	}
	b.WriteByte('(')
	b.WriteString(n.Kind())
	for i, c := range n.d.children {
		child := Node{tree: n.tree, d: c}
		if !child.IsNamed() && !child.IsMissing() {
			continue
		}
		b.WriteByte(' ')
		if n.d.childFields != nil && i < len(n.d.childFields) && n.d.childFields[i] != 0 {
			b.WriteString(n.tree.lang.FieldName(n.d.childFields[i]))
			b.WriteString(": ")
		}
		child.writeSexp(b)
	}
	b.WriteByte(')')
}
