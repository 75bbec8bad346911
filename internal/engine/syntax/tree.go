// # internal/engine/syntax/tree.go
package syntax

import (
	"sync/atomic"

	"github.com/google/uuid"

	"fern/internal/engine/language"
	"fern/internal/engine/source"
	"fern/internal/shared/observability"
)

// Tree is an immutable syntax tree produced by one parse. It is safe to
// share read-only across goroutines and cursors. Subtrees may be shared
// by reference with trees produced by later incremental parses; the
// arenas backing shared nodes are reference counted so they outlive
// whichever tree was closed first.
type Tree struct {
	id     uuid.UUID
	root   *nodeData
	src    []byte
	lang   *language.Language
	edits  []source.InputEdit
	arenas []*nodeArena
	refs   atomic.Int32
}

func newTree(root *nodeData, src []byte, lang *language.Language, arenas []*nodeArena) *Tree {
	t := &Tree{
		id:     uuid.New(),
		root:   root,
		src:    src,
		lang:   lang,
		arenas: arenas,
	}
	t.refs.Store(1)
	observability.TreesAlive.Inc()
	return t
}

// ID identifies the tree in logs and traces.
func (t *Tree) ID() uuid.UUID { return t.id }

// Root returns the tree's root node. Its span is always
// [0, len(source)), whatever the input looked like.
func (t *Tree) Root() Node { return Node{tree: t, d: t.root} }

// Source returns the source bytes this tree was parsed from. After
// Edit, the bytes are the pre-edit text; the post-edit text arrives
// with the next Parse call.
func (t *Tree) Source() []byte { return t.src }

// Language returns the language the tree was parsed with.
func (t *Tree) Language() *language.Language { return t.lang }

// Walk returns a cursor positioned at the root.
func (t *Tree) Walk() *Cursor { return newCursor(t) }

// Retain adds a reference to the tree. Every Retain needs a matching
// Close; the backing memory is released when the last one lands.
func (t *Tree) Retain() *Tree {
	t.refs.Add(1)
	return t
}

// Close releases one reference to the tree. After the last Close,
// nodes obtained from the tree are invalid; using them is a caller
// contract violation, not a detected error.
func (t *Tree) Close() {
	if t.refs.Add(-1) != 0 {
		return
	}
	for _, a := range t.arenas {
		a.Release()
	}
	t.arenas = nil
	observability.TreesAlive.Dec()
}

// retainedArenas hands a new tree references to everything this tree
// can reach, so shared subtrees stay alive.
func (t *Tree) retainedArenas(extra *nodeArena) []*nodeArena {
	arenas := make([]*nodeArena, 0, len(t.arenas)+1)
	for _, a := range t.arenas {
		a.Retain()
		arenas = append(arenas, a)
	}
	if extra != nil {
		arenas = append(arenas, extra)
	}
	return arenas
}
