// # internal/engine/syntax/cursor.go
package syntax

// Cursor is a stateful walker over one tree. It keeps the ancestor
// chain on an internal stack, so a full traversal is linear instead of
// paying the O(depth) parent recomputation a bare Node costs.
//
// A cursor never mutates its tree; any number of cursors may walk the
// same tree concurrently. A single cursor is not goroutine-safe.
type Cursor struct {
	tree   *Tree
	cur    *nodeData
	frames []cursorFrame
}

type cursorFrame struct {
	node       *nodeData
	childIndex int
}

func newCursor(t *Tree) *Cursor {
	return &Cursor{tree: t, cur: t.root}
}

// Node returns the node the cursor is positioned at.
func (c *Cursor) Node() Node { return Node{tree: c.tree, d: c.cur} }

// Depth returns how many ancestors the current node has.
func (c *Cursor) Depth() int { return len(c.frames) }

// FieldName returns the field the current node fills in its parent,
// or "". Unlike Node.FieldName this needs no walk from the root.
func (c *Cursor) FieldName() string {
	if len(c.frames) == 0 {
		return ""
	}
	f := c.frames[len(c.frames)-1]
	if f.node.childFields == nil || f.childIndex >= len(f.node.childFields) {
		return ""
	}
	return c.tree.lang.FieldName(f.node.childFields[f.childIndex])
}

// GotoFirstChild moves to the current node's first child. On failure
// the position is unchanged.
func (c *Cursor) GotoFirstChild() bool {
	if len(c.cur.children) == 0 {
		return false
	}
	c.frames = append(c.frames, cursorFrame{node: c.cur, childIndex: 0})
	c.cur = c.cur.children[0]
	return true
}

// GotoNextSibling moves to the current node's next sibling. On failure
// the position is unchanged.
func (c *Cursor) GotoNextSibling() bool {
	if len(c.frames) == 0 {
		return false
	}
	f := &c.frames[len(c.frames)-1]
	if f.childIndex+1 >= len(f.node.children) {
		return false
	}
	f.childIndex++
	c.cur = f.node.children[f.childIndex]
	return true
}

// GotoParent moves to the current node's parent. Fails at the root,
// leaving the position unchanged.
func (c *Cursor) GotoParent() bool {
	if len(c.frames) == 0 {
		return false
	}
	c.cur = c.frames[len(c.frames)-1].node
	c.frames = c.frames[:len(c.frames)-1]
	return true
}

// Reset repositions the cursor at the tree's root, keeping its
// allocated stack.
func (c *Cursor) Reset() {
	c.cur = c.tree.root
	c.frames = c.frames[:0]
}
