// # internal/engine/syntax/edit.go
package syntax

import (
	"log/slog"

	"fern/internal/engine/source"
)

// Edit applies one text replacement to the tree's bookkeeping and
// returns the adjusted tree. No reparsing happens here: node spans are
// shifted, nodes overlapping the replaced range are marked stale, and
// the edit is recorded so the next Parse call can reuse everything
// untouched.
//
// Nodes whose coordinates change are cloned copy-on-write; subtrees
// entirely before the edit are shared with the receiver, so readers of
// the old tree are never invalidated. Call Edit once per text
// replacement, in the order the replacements were applied — handing
// Parse a previous tree whose edit history does not match the actual
// text transformation leaves the reused subtrees undefined. That
// ordering is a caller contract, not something the engine checks.
func (t *Tree) Edit(e source.InputEdit) *Tree {
	arena := acquireArena()
	byteDelta := int64(e.NewEndByte) - int64(e.OldEndByte)

	nt := newTree(editNode(t.root, e, byteDelta, arena), t.src, t.lang, t.retainedArenas(arena))
	nt.edits = append(append([]source.InputEdit(nil), t.edits...), e)

	slog.Debug("tree edited",
		"tree", nt.id,
		"start_byte", e.StartByte,
		"old_end_byte", e.OldEndByte,
		"new_end_byte", e.NewEndByte)
	return nt
}

func editNode(d *nodeData, e source.InputEdit, byteDelta int64, arena *nodeArena) *nodeData {
	// Entirely before the edit: untouched, shared by reference. A node
	// ending exactly at the edit start is not safe to share: inserted
	// text can extend its final token.
	if d.endByte < e.StartByte {
		return d
	}

	// Entirely after the replaced range: the whole subtree shifts.
	if d.startByte >= e.OldEndByte {
		return shiftNode(d, e, byteDelta, arena)
	}

	// Overlapping the edit: stale until the next parse.
	c := arena.clone(d)
	c.flags |= flagDirty

	if d.endByte <= e.OldEndByte {
		// The node's tail was swallowed by the replacement.
		c.endByte = e.NewEndByte
		c.endPoint = e.NewEndPoint
	} else {
		c.endByte = addByteDelta(d.endByte, byteDelta)
		c.endPoint = shiftPoint(d.endPoint, e)
	}
	if d.startByte > e.StartByte && d.startByte > e.NewEndByte {
		// The node started inside the replaced range.
		c.startByte = e.NewEndByte
		c.startPoint = e.NewEndPoint
	}

	if len(d.children) > 0 {
		children := make([]*nodeData, len(d.children))
		for i, ch := range d.children {
			children[i] = editNode(ch, e, byteDelta, arena)
		}
		c.children = children
	}
	return c
}

func shiftNode(d *nodeData, e source.InputEdit, byteDelta int64, arena *nodeArena) *nodeData {
	c := arena.clone(d)
	c.startByte = addByteDelta(d.startByte, byteDelta)
	c.endByte = addByteDelta(d.endByte, byteDelta)
	c.startPoint = shiftPoint(d.startPoint, e)
	c.endPoint = shiftPoint(d.endPoint, e)

	if len(d.children) > 0 {
		children := make([]*nodeData, len(d.children))
		for i, ch := range d.children {
			children[i] = shiftNode(ch, e, byteDelta, arena)
		}
		c.children = children
	}
	return c
}

// shiftPoint moves a point that sits at or after the edit's old end.
// Rows shift by the edit's row delta; columns only change for positions
// on the same line as the old end.
func shiftPoint(p source.Point, e source.InputEdit) source.Point {
	rowDelta := int64(e.NewEndPoint.Row) - int64(e.OldEndPoint.Row)
	if p.Row == e.OldEndPoint.Row {
		colDelta := int64(e.NewEndPoint.Column) - int64(e.OldEndPoint.Column)
		p.Column = addByteDelta(p.Column, colDelta)
	}
	p.Row = addByteDelta(p.Row, rowDelta)
	return p
}

func addByteDelta(value uint32, delta int64) uint32 {
	next := int64(value) + delta
	if next < 0 {
		return 0
	}
	if next > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(next)
}
