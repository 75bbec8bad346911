// # internal/engine/syntax/recovery.go
package syntax

import (
	"log/slog"

	"fern/internal/engine/language"
	"fern/internal/shared/observability"
)

// recoverStack resurrects a parse after every stack version died on the
// current lookahead. At end of input the parser synthesizes zero-width
// missing tokens so unclosed constructs still reduce; mid-input it
// sweeps unparseable tokens into an ERROR node and resumes at the first
// token the current state can act on. Returns false when neither move
// is possible, which sends the parse to bail.
func (r *run) recoverStack(s *parseStack) bool {
	observability.RecoveryEvents.Inc()
	if r.tok.EOF() {
		return r.insertMissing(s)
	}
	return r.skipIntoError(s)
}

func (r *run) insertMissing(s *parseStack) bool {
	if r.missing == 0 {
		return false
	}
	sym, target, ok := r.missingCandidate(s.top().state)
	if !ok {
		return false
	}
	r.missing--
	observability.MissingInserted.Inc()

	n := r.arena.alloc()
	n.sym = sym
	n.flags = flagMissing | flagError
	if r.lang.IsNamed(sym) {
		n.flags |= flagNamed
	}
	n.startByte, n.endByte = r.tok.StartByte, r.tok.StartByte
	n.startPoint, n.endPoint = r.tok.StartPoint, r.tok.StartPoint
	n.parseState = target
	s.push(target, n, false)

	slog.Debug("missing token inserted",
		"symbol", r.lang.SymbolName(sym),
		"byte", n.startByte)
	return true
}

// missingCandidate picks the terminal to synthesize in the given state.
// Candidates must be shiftable here; among those, prefer one after
// which the real lookahead becomes actionable, and prefer anonymous
// tokens (closing punctuation) over named ones, so an unterminated
// block gets its "}" rather than the start of a fresh construct.
func (r *run) missingCandidate(state language.StateID) (language.Symbol, language.StateID, bool) {
	best := -1
	var bestSym language.Symbol
	var bestState language.StateID
	for sym := language.Symbol(1); sym < r.lang.NonterminalStart; sym++ {
		if r.lang.IsExtra(sym) {
			continue
		}
		entry := r.lang.Entry(state, sym)
		if entry == nil {
			continue
		}
		var target language.StateID
		shift := false
		for _, act := range entry.Actions {
			if act.Type == language.ActionShift && !act.Extra {
				target = act.State
				shift = true
				break
			}
		}
		if !shift {
			continue
		}
		score := 0
		if r.lang.Entry(target, r.tok.Symbol) != nil {
			score += 2
		}
		if !r.lang.IsNamed(sym) {
			score++
		}
		if score > best {
			best, bestSym, bestState = score, sym, target
		}
	}
	return bestSym, bestState, best >= 0
}

func (r *run) skipIntoError(s *parseStack) bool {
	var skipped []*nodeData
	tok := r.tok
	for !tok.EOF() {
		skipped = append(skipped, r.leafNode(tok))
		tok = r.lex.Next()
		if r.lang.Entry(s.top().state, tok.Symbol) != nil {
			break
		}
	}
	if len(skipped) == 0 {
		return false
	}

	n := r.errorNode(skipped)
	n.flags |= flagExtra
	s.push(s.top().state, n, true)
	r.tok = tok

	slog.Debug("tokens folded into error node",
		"start_byte", n.startByte,
		"end_byte", n.endByte,
		"tokens", len(skipped))
	return true
}
