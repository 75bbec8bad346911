// # internal/engine/syntax/arena.go
package syntax

import (
	"sync"
	"sync/atomic"
)

const (
	arenaSlabNodes   = 4096
	minArenaNodeCap  = 64
	arenaPoolEnabled = true
)

// nodeArena is a slab-backed allocator for node structs. Arenas are
// reference counted: a tree retains every arena whose nodes it can
// reach, so subtrees shared into later trees stay alive until the last
// dependent tree is closed.
type nodeArena struct {
	slabs [][]nodeData
	used  int
	refs  atomic.Int32
}

var arenaPool = sync.Pool{
	New: func() any {
		return &nodeArena{slabs: [][]nodeData{make([]nodeData, arenaSlabNodes)}}
	},
}

func acquireArena() *nodeArena {
	a := arenaPool.Get().(*nodeArena)
	a.refs.Store(1)
	return a
}

func (a *nodeArena) Retain() {
	if a == nil {
		return
	}
	a.refs.Add(1)
}

func (a *nodeArena) Release() {
	if a == nil {
		return
	}
	if a.refs.Add(-1) != 0 {
		return
	}
	a.reset()
	if arenaPoolEnabled {
		arenaPool.Put(a)
	}
}

func (a *nodeArena) reset() {
	// Zero only the slots that were handed out; keep the first slab warm.
	remaining := a.used
	for _, slab := range a.slabs {
		n := len(slab)
		if n > remaining {
			n = remaining
		}
		for i := 0; i < n; i++ {
			slab[i] = nodeData{}
		}
		remaining -= n
		if remaining == 0 {
			break
		}
	}
	a.slabs = a.slabs[:1]
	a.used = 0
}

func (a *nodeArena) alloc() *nodeData {
	if a == nil {
		return &nodeData{}
	}
	idx := a.used
	for _, slab := range a.slabs {
		if idx < len(slab) {
			a.used++
			return &slab[idx]
		}
		idx -= len(slab)
	}
	slab := make([]nodeData, arenaSlabNodes)
	a.slabs = append(a.slabs, slab)
	a.used++
	return &slab[0]
}

func (a *nodeArena) clone(d *nodeData) *nodeData {
	c := a.alloc()
	*c = *d
	return c
}
