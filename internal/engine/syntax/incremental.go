// # internal/engine/syntax/incremental.go
package syntax

import (
	"fern/internal/engine/language"
	"fern/internal/shared/observability"
)

// reuseCursor walks a previous tree in pre-order, serving subtrees the
// new parse may adopt by reference. Interior nodes marked stale by Edit
// are descended into, never served; their untouched children still
// qualify. Stale leaves are offered anyway, because an undone edit
// leaves them valid, and the parser can verify that against the fresh
// lookahead.
type reuseCursor struct {
	newLen uint32
	cur    *nodeData
	frames []reuseFrame
	done   bool
}

type reuseFrame struct {
	node *nodeData
	idx  int
}

func newReuseCursor(prev *Tree, newSrc []byte) *reuseCursor {
	return &reuseCursor{newLen: uint32(len(newSrc)), cur: prev.root}
}

// candidate returns the highest reusable node starting exactly at the
// given byte, or nil if the old tree has nothing aligned there. The
// cursor never moves backwards; callers ask with increasing offsets.
func (rc *reuseCursor) candidate(start uint32) *nodeData {
	for !rc.done {
		n := rc.cur
		if n.startByte > start {
			return nil
		}
		if n.startByte == start && rc.reusable(n) {
			return n
		}
		if n.endByte > start && len(n.children) > 0 {
			rc.down()
		} else {
			rc.skip()
		}
	}
	return nil
}

func (rc *reuseCursor) reusable(n *nodeData) bool {
	if n.has(flagError) || n.has(flagMissing) {
		return false
	}
	if n.endByte <= n.startByte || n.endByte > rc.newLen {
		return false
	}
	return !n.has(flagDirty) || len(n.children) == 0
}

// accept moves the cursor past the subtree just adopted.
func (rc *reuseCursor) accept() { rc.skip() }

// reject moves into the offered node so its children get a turn.
func (rc *reuseCursor) reject() {
	if len(rc.cur.children) > 0 {
		rc.down()
	} else {
		rc.skip()
	}
}

func (rc *reuseCursor) down() {
	rc.frames = append(rc.frames, reuseFrame{node: rc.cur})
	rc.cur = rc.cur.children[0]
}

// skip advances past the current subtree in pre-order.
func (rc *reuseCursor) skip() {
	for len(rc.frames) > 0 {
		f := &rc.frames[len(rc.frames)-1]
		if f.idx+1 < len(f.node.children) {
			f.idx++
			rc.cur = f.node.children[f.idx]
			return
		}
		rc.frames = rc.frames[:len(rc.frames)-1]
	}
	rc.done = true
}

// pushReused tries to adopt one old subtree at the lookahead position.
// On success the subtree lands on the stack by reference and the lexer
// hops over its span.
func (r *run) pushReused(s *parseStack) bool {
	start := r.tok.StartByte
	for {
		n := r.reuse.candidate(start)
		if n == nil {
			return false
		}
		if n.endByte < r.tok.EndByte {
			// Shorter than the freshly lexed lookahead, so the
			// tokenization changed around this node.
			r.reuse.reject()
			continue
		}
		if n.has(flagDirty) {
			// A stale leaf is good again only when the fresh lex
			// reproduces it exactly, as after an undone edit.
			if n.sym != r.tok.Symbol || n.endByte != r.tok.EndByte ||
				n.startPoint != r.tok.StartPoint || n.endPoint != r.tok.EndPoint {
				r.reuse.reject()
				continue
			}
		}
		state, ok := r.reuseTargetState(s.top().state, n)
		if !ok {
			r.reuse.reject()
			continue
		}

		extra := n.has(flagExtra) || r.lang.IsExtra(n.sym)
		s.push(state, n, extra)
		r.reuse.accept()
		r.reusedAny = true
		r.missing = missingBudget
		observability.NodesReused.Inc()

		r.tok = r.lex.SkipToByte(n.endByte)
		return true
	}
}

// reuseTargetState decides whether the current state can take the old
// node, and which state it lands in. Terminals need a shift action;
// interior nodes need the goto to land in the same state the old parse
// recorded, which guarantees the surrounding context still matches.
func (r *run) reuseTargetState(state language.StateID, n *nodeData) (language.StateID, bool) {
	if n.has(flagExtra) || r.lang.IsExtra(n.sym) {
		return state, true
	}
	if r.lang.IsTerminal(n.sym) {
		entry := r.lang.Entry(state, n.sym)
		if entry == nil {
			return 0, false
		}
		for _, act := range entry.Actions {
			if act.Type == language.ActionShift {
				if act.Extra {
					return state, true
				}
				return act.State, true
			}
		}
		return 0, false
	}
	next, ok := r.lang.Goto(state, n.sym)
	if !ok || next != n.parseState {
		return 0, false
	}
	return next, true
}
