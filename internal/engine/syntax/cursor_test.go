package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fern/internal/engine/syntax"
)

func cursorPreorder(tree *syntax.Tree) []syntax.Node {
	var nodes []syntax.Node
	c := tree.Walk()
	for {
		nodes = append(nodes, c.Node())
		if c.GotoFirstChild() {
			continue
		}
		for !c.GotoNextSibling() {
			if !c.GotoParent() {
				return nodes
			}
		}
	}
}

func TestCursorVisitsEveryNodeInPreorder(t *testing.T) {
	tree := mustParse(t, "fn f(a) { let x = a; return x; }\nfn g() { } // end\n")

	var want []syntax.Node
	walk(tree.Root(), func(n syntax.Node) { want = append(want, n) })

	got := cursorPreorder(tree)
	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "mismatch at position %d: %s vs %s",
			i, want[i].Kind(), got[i].Kind())
	}
}

func TestCursorFieldNameAndDepth(t *testing.T) {
	tree := mustParse(t, navSrc)
	c := tree.Walk()

	assert.Equal(t, 0, c.Depth())
	assert.Equal(t, "", c.FieldName())

	require.True(t, c.GotoFirstChild()) // function
	assert.Equal(t, "function", c.Node().Kind())
	assert.Equal(t, 1, c.Depth())
	assert.Equal(t, "", c.FieldName())

	require.True(t, c.GotoFirstChild())  // "fn"
	require.True(t, c.GotoNextSibling()) // name identifier
	assert.Equal(t, "identifier", c.Node().Kind())
	assert.Equal(t, "name", c.FieldName())
	assert.Equal(t, 2, c.Depth())

	require.True(t, c.GotoParent())
	assert.Equal(t, "function", c.Node().Kind())
}

func TestCursorFailedMovesKeepPosition(t *testing.T) {
	tree := mustParse(t, "x;")
	c := tree.Walk()

	assert.False(t, c.GotoParent())
	assert.False(t, c.GotoNextSibling())
	assert.Equal(t, "source_file", c.Node().Kind())

	// Descend to a leaf and fail downward.
	for c.GotoFirstChild() {
	}
	leaf := c.Node()
	assert.False(t, c.GotoFirstChild())
	assert.True(t, leaf.Equal(c.Node()))
}

func TestCursorReset(t *testing.T) {
	tree := mustParse(t, navSrc)
	c := tree.Walk()
	require.True(t, c.GotoFirstChild())
	require.True(t, c.GotoFirstChild())

	c.Reset()
	assert.Equal(t, 0, c.Depth())
	assert.True(t, c.Node().Equal(tree.Root()))
}

func TestConcurrentCursors(t *testing.T) {
	tree := mustParse(t, "fn f(a, b) { return a + b; }\nfn g() { }\n")

	done := make(chan []syntax.Node, 4)
	for i := 0; i < 4; i++ {
		go func() {
			done <- cursorPreorder(tree)
		}()
	}
	first := <-done
	for i := 1; i < 4; i++ {
		other := <-done
		require.Equal(t, len(first), len(other))
	}
}
