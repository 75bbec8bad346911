// # internal/engine/source/source.go
//
// Package source holds the geometry types shared by the lexer, the tree,
// and the edit bookkeeping: byte offsets, row/column points, ranges, and
// the InputEdit descriptor. Columns are counted in bytes, not runes.
package source

// Point is a zero-based row/column position in a source buffer.
type Point struct {
	Row    uint32
	Column uint32
}

// Before reports whether p comes strictly before q in document order.
func (p Point) Before(q Point) bool {
	if p.Row != q.Row {
		return p.Row < q.Row
	}
	return p.Column < q.Column
}

// BeforeOrEqual reports whether p comes before or equals q.
func (p Point) BeforeOrEqual(q Point) bool {
	return !q.Before(p)
}

// Range is a span of source text in both byte and point coordinates.
type Range struct {
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
}

// InputEdit describes one text replacement applied to a source buffer.
// StartByte..OldEndByte was replaced by StartByte..NewEndByte.
//
// Applying an edit to a tree never reparses; it only shifts coordinates so
// the next parse can tell which subtrees are stale. Edits must be recorded
// in the order they were applied to the underlying text.
type InputEdit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Advance returns pos moved forward over the given bytes.
func Advance(pos Point, text []byte) Point {
	for _, b := range text {
		if b == '\n' {
			pos.Row++
			pos.Column = 0
		} else {
			pos.Column++
		}
	}
	return pos
}

// PointForOffset computes the point for a byte offset from the start of
// text. Offsets past the end of text clamp to the final point.
func PointForOffset(text []byte, offset uint32) Point {
	if int(offset) > len(text) {
		offset = uint32(len(text))
	}
	return Advance(Point{}, text[:offset])
}
