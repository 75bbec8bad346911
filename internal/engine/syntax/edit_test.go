package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fern/internal/engine/source"
	"fern/internal/engine/syntax"
)

func namedPair(t *testing.T, tree *syntax.Tree) (syntax.Node, syntax.Node) {
	t.Helper()
	f, ok := tree.Root().NamedChild(0)
	require.True(t, ok)
	g, ok := tree.Root().NamedChild(1)
	require.True(t, ok)
	return f, g
}

func TestEditShiftsLaterSubtrees(t *testing.T) {
	src := "fn f() { }\nfn g() { }\n"
	tree := mustParse(t, src)

	// Insert three bytes at the start of the second line.
	edited := tree.Edit(source.InputEdit{
		StartByte:   11,
		OldEndByte:  11,
		NewEndByte:  14,
		StartPoint:  source.Point{Row: 1, Column: 0},
		OldEndPoint: source.Point{Row: 1, Column: 0},
		NewEndPoint: source.Point{Row: 1, Column: 3},
	})
	t.Cleanup(edited.Close)

	fOld, gOld := namedPair(t, tree)
	fNew, gNew := namedPair(t, edited)

	// Untouched prefix is shared by reference, the shifted tail is not.
	assert.True(t, fOld.Same(fNew))
	assert.False(t, gOld.Same(gNew))

	assert.Equal(t, uint32(14), gNew.StartByte())
	assert.Equal(t, uint32(24), gNew.EndByte())
	assert.Equal(t, source.Point{Row: 1, Column: 3}, gNew.StartPoint())

	gName, ok := gNew.ChildByFieldName("name")
	require.True(t, ok)
	assert.Equal(t, uint32(17), gName.StartByte())

	// Whole-tree coordinates follow the byte delta.
	assert.Equal(t, uint32(25), edited.Root().EndByte())
}

func TestEditLeavesOldTreeIntact(t *testing.T) {
	src := "fn f() { }\nfn g() { }\n"
	tree := mustParse(t, src)
	before := tree.Root().Sexp()

	edited := tree.Edit(source.InputEdit{
		StartByte:   11,
		OldEndByte:  11,
		NewEndByte:  14,
		StartPoint:  source.Point{Row: 1, Column: 0},
		OldEndPoint: source.Point{Row: 1, Column: 0},
		NewEndPoint: source.Point{Row: 1, Column: 3},
	})
	t.Cleanup(edited.Close)

	_, gOld := namedPair(t, tree)
	assert.Equal(t, uint32(11), gOld.StartByte())
	assert.Equal(t, before, tree.Root().Sexp())
	assert.Equal(t, []byte(src), tree.Source())

	// The edited tree still reports the pre-edit text; the new text
	// arrives with the next parse.
	assert.Equal(t, []byte(src), edited.Source())
}

func TestEditShiftsRowsAcrossNewline(t *testing.T) {
	src := "fn f() { }\nfn g() { }\n"
	tree := mustParse(t, src)

	// Replace the first function's empty body with one spanning a line.
	edited := tree.Edit(source.InputEdit{
		StartByte:   7,
		OldEndByte:  10,
		NewEndByte:  18,
		StartPoint:  source.Point{Row: 0, Column: 7},
		OldEndPoint: source.Point{Row: 0, Column: 10},
		NewEndPoint: source.Point{Row: 1, Column: 1},
	})
	t.Cleanup(edited.Close)

	_, gNew := namedPair(t, edited)
	assert.Equal(t, uint32(19), gNew.StartByte())
	assert.Equal(t, source.Point{Row: 2, Column: 0}, gNew.StartPoint())
}
