// # internal/engine/syntax/parser.go
//
// Package syntax builds and exposes concrete syntax trees. The parser
// is a table-driven LR engine with bounded stack forking: grammar
// conflicts split the parse stack into parallel versions, and the first
// version to accept wins. Syntax errors never abort a parse; recovery
// folds the offending region into ERROR nodes or synthesizes zero-width
// missing tokens, and the result is always a tree spanning the whole
// buffer.
package syntax

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"fern/internal/core/errors"
	"fern/internal/engine/language"
	"fern/internal/engine/lexer"
	"fern/internal/engine/source"
	"fern/internal/shared/observability"
)

const (
	// maxStacks bounds how many stack versions a conflict may fork.
	maxStacks = 8
	// missingBudget bounds consecutive missing-token insertions. The
	// budget refills whenever a real token is shifted.
	missingBudget = 8
)

// Parser turns source bytes into a Tree for one configured language.
// A Parser is cheap and carries no state between parses, but a single
// instance must not run concurrent parses; use a Pool for that.
type Parser struct {
	lang *language.Language
}

func NewParser() *Parser { return &Parser{} }

// SetLanguage assigns the grammar used by subsequent parses.
func (p *Parser) SetLanguage(lang *language.Language) error {
	if lang == nil {
		return errors.New(errors.CodeValidationError, "nil language")
	}
	if lang.Version != language.ABIVersion {
		return errors.AddContext(
			errors.New(errors.CodeVersionMismatch, "language tables do not match engine ABI"),
			errors.CtxLanguage, lang.Name)
	}
	p.lang = lang
	return nil
}

// Language returns the currently assigned language, or nil.
func (p *Parser) Language() *language.Language { return p.lang }

// Reset drops the assigned language so pooled parsers hold no
// references between leases.
func (p *Parser) Reset() { p.lang = nil }

// Parse produces a syntax tree for src. When prev is a tree of the same
// language whose Edit history describes how src was derived from the
// old text, unchanged subtrees are reused by reference instead of being
// re-lexed and re-parsed.
//
// Parse only fails on misconfiguration or context cancellation; syntax
// errors in src surface as ERROR and missing nodes inside the returned
// tree.
func (p *Parser) Parse(ctx context.Context, src []byte, prev *Tree) (*Tree, error) {
	if p.lang == nil {
		return nil, errors.New(errors.CodeValidationError, "parse requested before a language was set")
	}
	ctx, span := observability.Tracer.Start(ctx, "syntax.parse")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.ParseDuration.WithLabelValues(p.lang.Name).Observe(time.Since(start).Seconds())
	}()

	r := &run{
		lang:    p.lang,
		src:     src,
		arena:   acquireArena(),
		lex:     lexer.New(p.lang, src),
		stacks:  []*parseStack{newParseStack(0)},
		missing: missingBudget,
	}
	if prev != nil && prev.lang == p.lang && len(prev.edits) > 0 {
		r.prev = prev
		r.reuse = newReuseCursor(prev, src)
	}
	r.tok = r.lex.Next()

	root, err := r.parse(ctx)
	if err != nil {
		r.arena.Release()
		return nil, err
	}

	arenas := []*nodeArena{r.arena}
	if r.reusedAny {
		arenas = r.prev.retainedArenas(r.arena)
	}
	t := newTree(root, src, p.lang, arenas)
	span.SetAttributes(
		attribute.String("language", p.lang.Name),
		attribute.Int("bytes", len(src)),
		attribute.Bool("has_error", t.Root().HasError()),
	)
	slog.Debug("parse complete",
		"tree", t.id,
		"language", p.lang.Name,
		"bytes", len(src),
		"has_error", t.Root().HasError())
	return t, nil
}

// run is the per-parse state.
type run struct {
	lang   *language.Language
	src    []byte
	arena  *nodeArena
	lex    *lexer.Lexer
	stacks []*parseStack
	tok    lexer.Token // current lookahead

	prev      *Tree
	reuse     *reuseCursor
	reusedAny bool

	missing  int
	accepted *parseStack // set when a forked stack accepts
}

type stackStatus int

const (
	stackShifted stackStatus = iota
	stackAccepted
	stackDead
)

func (r *run) parse(ctx context.Context) (*nodeData, error) {
	for steps := 0; ; steps++ {
		if steps%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, errors.CodeInternal, "parse interrupted")
			}
		}

		// Subtree reuse only runs while the parse is unambiguous.
		if len(r.stacks) == 1 && r.reuse != nil && r.pushReused(r.stacks[0]) {
			continue
		}

		tok := r.tok
		live := make([]*parseStack, 0, len(r.stacks))
		for _, s := range r.stacks {
			switch r.advance(s, tok, &live) {
			case stackAccepted:
				return r.buildRoot(s, tok), nil
			case stackShifted:
				live = append(live, s)
			}
			if r.accepted != nil {
				return r.buildRoot(r.accepted, tok), nil
			}
		}

		if len(live) == 0 {
			best := r.bestStack()
			if !r.recoverStack(best) {
				return r.bail(best), nil
			}
			r.stacks = r.stacks[:1]
			r.stacks[0] = best
			continue
		}
		r.stacks = live
		r.tok = r.lex.Next()
	}
}

// advance runs one stack against the lookahead until the token is
// consumed, the stack accepts, or it dies. Conflicting table entries
// fork clones that are advanced the same way and collected into live.
func (r *run) advance(s *parseStack, tok lexer.Token, live *[]*parseStack) stackStatus {
	for {
		entry := r.lang.Entry(s.top().state, tok.Symbol)
		if entry == nil {
			if r.lang.IsExtra(tok.Symbol) {
				n := r.leafNode(tok)
				n.flags |= flagExtra
				s.push(s.top().state, n, true)
				return stackShifted
			}
			return stackDead
		}

		for _, alt := range entry.Actions[1:] {
			if len(*live)+len(r.stacks) >= maxStacks || r.accepted != nil {
				break
			}
			fork := s.clone()
			observability.StackForks.Inc()
			switch r.applyForked(fork, alt, tok, live) {
			case stackShifted:
				*live = append(*live, fork)
			case stackAccepted:
				r.accepted = fork
			}
		}

		switch act := entry.Actions[0]; act.Type {
		case language.ActionShift:
			r.shift(s, act, tok)
			return stackShifted
		case language.ActionReduce:
			r.reduce(s, act, tok)
		case language.ActionAccept:
			return stackAccepted
		default:
			return stackDead
		}
	}
}

// applyForked applies one alternative action to a freshly forked stack,
// then keeps advancing it against the same lookahead.
func (r *run) applyForked(s *parseStack, act language.Action, tok lexer.Token, live *[]*parseStack) stackStatus {
	switch act.Type {
	case language.ActionShift:
		r.shift(s, act, tok)
		return stackShifted
	case language.ActionReduce:
		r.reduce(s, act, tok)
		return r.advance(s, tok, live)
	case language.ActionAccept:
		return stackAccepted
	}
	return stackDead
}

func (r *run) shift(s *parseStack, act language.Action, tok lexer.Token) {
	n := r.leafNode(tok)
	state := act.State
	if act.Extra {
		state = s.top().state
		n.flags |= flagExtra
	}
	n.parseState = state
	s.push(state, n, act.Extra)
	r.missing = missingBudget
}

// reduce pops the production's children, builds their parent, and
// pushes it in the goto state. Extra entries between children become
// children of the new node; extras sitting above the last grammar child
// stay on the stack, after the reduced node.
func (r *run) reduce(s *parseStack, act language.Action, tok lexer.Token) {
	need := int(act.ChildCount)
	var rev, trailing []stackEntry
	for need > 0 {
		e, ok := s.pop()
		if !ok {
			break
		}
		if e.extra && len(rev) == 0 {
			trailing = append(trailing, e)
			continue
		}
		rev = append(rev, e)
		if !e.extra {
			need--
		}
	}
	parts := make([]stackEntry, len(rev))
	for i, e := range rev {
		parts[len(rev)-1-i] = e
	}

	node := r.interiorNode(act, parts, tok)
	state, ok := r.lang.Goto(s.top().state, act.Symbol)
	if !ok {
		// Inconsistent tables; keep the stack well-formed anyway.
		state = s.top().state
	}
	node.parseState = state
	s.push(state, node, false)
	for i := len(trailing) - 1; i >= 0; i-- {
		s.push(state, trailing[i].node, true)
	}
}

// interiorNode assembles the node for a reduce. Hidden children are
// spliced: their own children take their place in the parent.
func (r *run) interiorNode(act language.Action, parts []stackEntry, tok lexer.Token) *nodeData {
	n := r.arena.alloc()
	n.sym = act.Symbol
	n.production = act.Production
	if r.lang.IsNamed(act.Symbol) {
		n.flags |= flagNamed
	}

	var children []*nodeData
	var fields []language.FieldID
	hasFields := false
	grammarIdx := 0
	for _, e := range parts {
		child := e.node
		if e.extra {
			children = append(children, child)
			fields = append(fields, 0)
			continue
		}
		fid := r.lang.FieldForChild(act.Production, grammarIdx)
		grammarIdx++
		if !r.lang.IsVisible(child.sym) {
			for j, gc := range child.children {
				children = append(children, gc)
				var f language.FieldID
				if child.childFields != nil && j < len(child.childFields) {
					f = child.childFields[j]
				}
				fields = append(fields, f)
				if f != 0 {
					hasFields = true
				}
			}
			continue
		}
		children = append(children, child)
		fields = append(fields, fid)
		if fid != 0 {
			hasFields = true
		}
	}
	n.children = children
	if hasFields {
		n.childFields = fields
	}

	if len(children) > 0 {
		first, last := children[0], children[len(children)-1]
		n.startByte, n.startPoint = first.startByte, first.startPoint
		n.endByte, n.endPoint = last.endByte, last.endPoint
	} else {
		// Empty production: zero width at the lookahead position.
		n.startByte, n.endByte = tok.StartByte, tok.StartByte
		n.startPoint, n.endPoint = tok.StartPoint, tok.StartPoint
	}
	for _, c := range children {
		if c.has(flagError) {
			n.flags |= flagError
			break
		}
	}
	return n
}

func (r *run) leafNode(tok lexer.Token) *nodeData {
	observability.TokensLexed.Inc()
	n := r.arena.alloc()
	n.sym = tok.Symbol
	n.startByte, n.endByte = tok.StartByte, tok.EndByte
	n.startPoint, n.endPoint = tok.StartPoint, tok.EndPoint
	if tok.Symbol == language.SymbolError {
		// Stray bytes carry the error flag; the enclosing ERROR node is
		// the named one.
		n.flags |= flagError
	} else if r.lang.IsNamed(tok.Symbol) {
		n.flags |= flagNamed
	}
	return n
}

func (r *run) bestStack() *parseStack {
	best := r.stacks[0]
	for _, s := range r.stacks[1:] {
		if s.progress() > best.progress() {
			best = s
		}
	}
	return best
}

// buildRoot finishes an accepted stack. The start-symbol node becomes
// the root; extras still on the stack are folded into its children. The
// root's span always covers the whole buffer.
func (r *run) buildRoot(s *parseStack, eof lexer.Token) *nodeData {
	var core, extras []*nodeData
	for _, e := range s.entries[1:] {
		if e.node == nil {
			continue
		}
		if e.extra {
			extras = append(extras, e.node)
		} else {
			core = append(core, e.node)
		}
	}

	var root *nodeData
	if len(core) == 1 {
		// Clone before stretching the span: the node may be a subtree
		// shared with a previous tree.
		root = r.arena.clone(core[0])
		root.children = append([]*nodeData(nil), core[0].children...)
		if core[0].childFields != nil {
			root.childFields = append([]language.FieldID(nil), core[0].childFields...)
		}
		r.insertExtras(root, extras)
	} else {
		root = r.errorNode(s.nodes())
	}
	return r.stretchRoot(root, eof)
}

// bail gives up on recovery: everything parsed so far becomes children
// of an ERROR root spanning the whole buffer.
func (r *run) bail(s *parseStack) *nodeData {
	slog.Debug("parse bailed out", "progress", s.progress(), "bytes", len(r.src))
	return r.stretchRoot(r.errorNode(s.nodes()), r.tok)
}

func (r *run) stretchRoot(root *nodeData, eof lexer.Token) *nodeData {
	root.startByte, root.startPoint = 0, source.Point{}
	root.endByte = uint32(len(r.src))
	root.endPoint = eof.EndPoint
	for _, c := range root.children {
		if c.has(flagError) {
			root.flags |= flagError
			break
		}
	}
	return root
}

func (r *run) errorNode(children []*nodeData) *nodeData {
	n := r.arena.alloc()
	n.sym = language.SymbolError
	n.flags = flagNamed | flagError
	n.children = children
	if len(children) > 0 {
		first, last := children[0], children[len(children)-1]
		n.startByte, n.startPoint = first.startByte, first.startPoint
		n.endByte, n.endPoint = last.endByte, last.endPoint
	}
	return n
}

// insertExtras merges extra nodes into the root's children by start
// position. Both inputs are already ordered.
func (r *run) insertExtras(root *nodeData, extras []*nodeData) {
	if len(extras) == 0 {
		return
	}
	merged := make([]*nodeData, 0, len(root.children)+len(extras))
	var fields []language.FieldID
	if root.childFields != nil {
		fields = make([]language.FieldID, 0, len(root.children)+len(extras))
	}
	i, j := 0, 0
	for i < len(root.children) || j < len(extras) {
		takeExtra := i >= len(root.children) ||
			(j < len(extras) && extras[j].startByte < root.children[i].startByte)
		if takeExtra {
			merged = append(merged, extras[j])
			j++
			if fields != nil {
				fields = append(fields, 0)
			}
		} else {
			merged = append(merged, root.children[i])
			if fields != nil {
				fields = append(fields, root.childFields[i])
			}
			i++
		}
	}
	root.children = merged
	if fields != nil {
		root.childFields = fields
	}
}
