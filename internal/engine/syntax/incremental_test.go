package syntax_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fern/internal/engine/source"
)

// editFor describes replacing one occurrence of old with new inside
// src, returning the resulting text and the matching InputEdit.
func editFor(t *testing.T, src, old, new string) (string, source.InputEdit) {
	t.Helper()
	idx := strings.Index(src, old)
	require.GreaterOrEqual(t, idx, 0)
	newSrc := src[:idx] + new + src[idx+len(old):]
	return newSrc, source.InputEdit{
		StartByte:   uint32(idx),
		OldEndByte:  uint32(idx + len(old)),
		NewEndByte:  uint32(idx + len(new)),
		StartPoint:  source.PointForOffset([]byte(src), uint32(idx)),
		OldEndPoint: source.PointForOffset([]byte(src), uint32(idx+len(old))),
		NewEndPoint: source.PointForOffset([]byte(newSrc), uint32(idx+len(new))),
	}
}

func TestIncrementalParseReusesUntouchedSubtrees(t *testing.T) {
	src := "fn f() { let x = 1; }\nfn g() { let y = 2; }\n"
	parser := newFixtureParser(t)

	tree1, err := parser.Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	t.Cleanup(tree1.Close)

	newSrc, edit := editFor(t, src, "2", "42")
	edited := tree1.Edit(edit)
	t.Cleanup(edited.Close)

	tree2, err := parser.Parse(context.Background(), []byte(newSrc), edited)
	require.NoError(t, err)
	t.Cleanup(tree2.Close)

	f1, g1 := namedPair(t, tree1)
	f2, g2 := namedPair(t, tree2)

	// The first function did not change: same subtree by reference.
	assert.True(t, f1.Same(f2))
	// The second one contains the edit and was rebuilt.
	assert.False(t, g1.Same(g2))

	assert.False(t, tree2.Root().HasError())
	val, ok := g2.ChildByFieldName("body")
	require.True(t, ok)
	assert.Contains(t, val.Text([]byte(newSrc)), "42")
}

func TestIncrementalParseMatchesFromScratch(t *testing.T) {
	src := "fn f(a) { return a + 1; }\nfn g() { let y = 2; }\n"
	parser := newFixtureParser(t)

	tree1, err := parser.Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	t.Cleanup(tree1.Close)

	newSrc, edit := editFor(t, src, "let y = 2;", "return 3;")
	edited := tree1.Edit(edit)
	t.Cleanup(edited.Close)

	incremental, err := parser.Parse(context.Background(), []byte(newSrc), edited)
	require.NoError(t, err)
	t.Cleanup(incremental.Close)

	fresh := mustParse(t, newSrc)
	assert.Equal(t, fresh.Root().Sexp(), incremental.Root().Sexp())

	// Spans agree node for node, not just shapes.
	want := cursorPreorder(fresh)
	got := cursorPreorder(incremental)
	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].Kind(), got[i].Kind())
		assert.Equal(t, want[i].StartByte(), got[i].StartByte())
		assert.Equal(t, want[i].EndByte(), got[i].EndByte())
		assert.Equal(t, want[i].StartPoint(), got[i].StartPoint())
	}
}

func TestReusedSubtreeOutlivesOldTree(t *testing.T) {
	src := "fn f() { let x = 1; }\nfn g() { let y = 2; }\n"
	parser := newFixtureParser(t)

	tree1, err := parser.Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)

	newSrc, edit := editFor(t, src, "2", "42")
	edited := tree1.Edit(edit)

	tree2, err := parser.Parse(context.Background(), []byte(newSrc), edited)
	require.NoError(t, err)
	t.Cleanup(tree2.Close)

	// Closing the originals must not invalidate subtrees shared into
	// the new tree.
	tree1.Close()
	edited.Close()

	f2, _ := namedPair(t, tree2)
	assert.Equal(t, "function", f2.Kind())
	name, ok := f2.ChildByFieldName("name")
	require.True(t, ok)
	assert.Equal(t, "f", name.Text([]byte(newSrc)))
	assert.NotEmpty(t, tree2.Root().Sexp())
}

func TestPrevTreeWithoutEditsIsIgnored(t *testing.T) {
	src := "fn f() { }\n"
	parser := newFixtureParser(t)

	tree1, err := parser.Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	t.Cleanup(tree1.Close)

	tree2, err := parser.Parse(context.Background(), []byte(src), tree1)
	require.NoError(t, err)
	t.Cleanup(tree2.Close)

	f1, _ := tree1.Root().NamedChild(0)
	f2, _ := tree2.Root().NamedChild(0)
	assert.False(t, f1.Same(f2))
	assert.Equal(t, tree1.Root().Sexp(), tree2.Root().Sexp())
}

func TestIncrementalParseAfterInsertion(t *testing.T) {
	src := "fn f() { }\nfn g() { }\n"
	parser := newFixtureParser(t)

	tree1, err := parser.Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	t.Cleanup(tree1.Close)

	// Grow the first body; everything after it shifts.
	newSrc, edit := editFor(t, src, "fn f() { }", "fn f() { let x = 1; }")
	edited := tree1.Edit(edit)
	t.Cleanup(edited.Close)

	tree2, err := parser.Parse(context.Background(), []byte(newSrc), edited)
	require.NoError(t, err)
	t.Cleanup(tree2.Close)

	assert.False(t, tree2.Root().HasError())
	assert.Equal(t, mustParse(t, newSrc).Root().Sexp(), tree2.Root().Sexp())

	_, g2 := namedPair(t, tree2)
	assert.Equal(t, uint32(22), g2.StartByte())
}

func TestUndoneEditReusesStaleLeaves(t *testing.T) {
	src := "fn f() { return value; }"
	parser := newFixtureParser(t)

	tree1, err := parser.Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	t.Cleanup(tree1.Close)

	// Insert into the identifier, then take the insertion back out.
	midSrc, insert := editFor(t, src, "value", "valXue")
	edited := tree1.Edit(insert)
	t.Cleanup(edited.Close)

	finalSrc, undo := editFor(t, midSrc, "valXue", "value")
	undone := edited.Edit(undo)
	t.Cleanup(undone.Close)
	require.Equal(t, src, finalSrc)

	tree2, err := parser.Parse(context.Background(), []byte(finalSrc), undone)
	require.NoError(t, err)
	t.Cleanup(tree2.Close)

	assert.False(t, tree2.Root().HasError())

	fresh := mustParse(t, src)
	assert.Equal(t, fresh.Root().Sexp(), tree2.Root().Sexp())

	// The identifier token itself came back by reference from the
	// edited tree even though the edits had marked it stale.
	idx := uint32(strings.Index(src, "value"))
	oldLeaf, ok := undone.Root().DescendantForByteRange(idx, idx+5)
	require.True(t, ok)
	newLeaf, ok := tree2.Root().DescendantForByteRange(idx, idx+5)
	require.True(t, ok)
	assert.Equal(t, "identifier", newLeaf.Kind())
	assert.True(t, oldLeaf.Same(newLeaf))
}
