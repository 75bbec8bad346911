// # internal/engine/syntax/stack.go
package syntax

import "fern/internal/engine/language"

// stackEntry pairs a parse state with the node shifted or reduced into
// it. The bottom sentinel carries the initial state and a nil node.
// extra marks entries that are invisible to reduces: comments and error
// regions absorbed between grammar children.
type stackEntry struct {
	state language.StateID
	node  *nodeData
	extra bool
}

// parseStack is one version of the GLR parse stack. Usually a parse
// runs a single stack; grammar conflicts fork additional versions,
// which die off as soon as they hit a token with no action.
type parseStack struct {
	entries []stackEntry
}

func newParseStack(initial language.StateID) *parseStack {
	return &parseStack{entries: []stackEntry{{state: initial}}}
}

func (s *parseStack) top() *stackEntry {
	return &s.entries[len(s.entries)-1]
}

func (s *parseStack) push(state language.StateID, node *nodeData, extra bool) {
	s.entries = append(s.entries, stackEntry{state: state, node: node, extra: extra})
}

func (s *parseStack) pop() (stackEntry, bool) {
	if len(s.entries) <= 1 {
		return stackEntry{}, false
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return e, true
}

// clone copies the stack so a forked version can diverge. Nodes are
// shared: they are immutable once built.
func (s *parseStack) clone() *parseStack {
	entries := make([]stackEntry, len(s.entries))
	copy(entries, s.entries)
	return &parseStack{entries: entries}
}

// progress returns the byte offset this stack has consumed up to, used
// to pick the most advanced stack when every version has died.
func (s *parseStack) progress() uint32 {
	for i := len(s.entries) - 1; i > 0; i-- {
		if n := s.entries[i].node; n != nil {
			return n.endByte
		}
	}
	return 0
}

// nodes returns every node on the stack in push order.
func (s *parseStack) nodes() []*nodeData {
	var out []*nodeData
	for _, e := range s.entries {
		if e.node != nil {
			out = append(out, e.node)
		}
	}
	return out
}
