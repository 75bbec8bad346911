// # internal/engine/language/grammar/lexer.go
package grammar

import (
	"fmt"
	"unicode/utf8"

	"fern/internal/core/errors"
	"fern/internal/engine/language"
)

// dfaBuilder assembles the lexer DFA one transition at a time. State 0 is
// the start state.
type dfaBuilder struct {
	states []language.LexState
}

func newDFABuilder() *dfaBuilder {
	return &dfaBuilder{states: make([]language.LexState, 1)}
}

func (b *dfaBuilder) newState() int32 {
	b.states = append(b.states, language.LexState{})
	return int32(len(b.states) - 1)
}

func (b *dfaBuilder) target(from int32, ch rune) (int32, bool) {
	for _, t := range b.states[from].Transitions {
		if ch >= t.Lo && ch <= t.Hi {
			return t.Next, true
		}
	}
	return 0, false
}

func (b *dfaBuilder) addRange(from int32, lo, hi rune, to int32) error {
	for _, t := range b.states[from].Transitions {
		if lo > t.Hi || hi < t.Lo {
			continue
		}
		if t.Lo == lo && t.Hi == hi && t.Next == to {
			return nil
		}
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("lexer transition overlap on range %q-%q", string(lo), string(hi)))
	}
	b.states[from].Transitions = append(b.states[from].Transitions,
		language.LexTransition{Lo: lo, Hi: hi, Next: to})
	return nil
}

func (b *dfaBuilder) accept(state int32, sym language.Symbol, skip bool) error {
	st := &b.states[state]
	if st.HasAccept && st.Accept != sym {
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("lexer state accepts both symbol %d and %d", st.Accept, sym))
	}
	st.Accept = sym
	st.HasAccept = true
	st.Skip = skip
	return nil
}

// triePath threads the literal's runes through the DFA, creating states
// as needed, and returns the final state.
func (b *dfaBuilder) triePath(text string) (int32, error) {
	cur := int32(0)
	for _, ch := range text {
		next, ok := b.target(cur, ch)
		if !ok {
			next = b.newState()
			if err := b.addRange(cur, ch, ch, next); err != nil {
				return 0, err
			}
		}
		cur = next
	}
	return cur, nil
}

func (c *compiler) buildLexer() ([]language.LexState, map[string]language.Symbol, language.Symbol, error) {
	b := newDFABuilder()

	for _, tok := range c.g.Tokens {
		sym := c.symOf[tok.Name]
		var err error
		switch tok.Class {
		case ClassWhitespace:
			err = c.buildWhitespace(b, sym)
		case ClassIdentifier:
			err = c.buildIdentifier(b, sym)
		case ClassNumber:
			err = c.buildNumber(b, sym)
		case ClassString:
			err = c.buildString(b, sym)
		case ClassLineComment:
			err = c.buildLineComment(b, sym)
		default:
			err = errors.New(errors.CodeValidationError,
				fmt.Sprintf("token %q has unknown class", tok.Name))
		}
		if err != nil {
			return nil, nil, 0, err
		}
	}

	keywords := make(map[string]language.Symbol)
	var capture language.Symbol
	if c.g.WordToken != "" {
		sym, ok := c.symOf[c.g.WordToken]
		if !ok {
			return nil, nil, 0, errors.New(errors.CodeValidationError,
				fmt.Sprintf("word token %q is not declared", c.g.WordToken))
		}
		capture = sym
	}

	for text, sym := range c.litOf {
		if isWordLiteral(text) {
			// Keywords are lexed by the word token and re-classified
			// by exact match, tree-sitter style.
			if capture == 0 {
				return nil, nil, 0, errors.New(errors.CodeValidationError,
					fmt.Sprintf("literal %q needs a word token to capture it", text))
			}
			keywords[text] = sym
			continue
		}
		final, err := b.triePath(text)
		if err != nil {
			return nil, nil, 0, err
		}
		if err := b.accept(final, sym, false); err != nil {
			return nil, nil, 0, err
		}
	}

	return b.states, keywords, capture, nil
}

func (c *compiler) buildWhitespace(b *dfaBuilder, sym language.Symbol) error {
	ws := b.newState()
	for _, pair := range [][2]rune{{' ', ' '}, {'\t', '\t'}, {'\n', '\n'}, {'\r', '\r'}} {
		if err := b.addRange(0, pair[0], pair[1], ws); err != nil {
			return err
		}
		if err := b.addRange(ws, pair[0], pair[1], ws); err != nil {
			return err
		}
	}
	return b.accept(ws, sym, true)
}

func (c *compiler) buildIdentifier(b *dfaBuilder, sym language.Symbol) error {
	ident := b.newState()
	starts := [][2]rune{{'a', 'z'}, {'A', 'Z'}, {'_', '_'}}
	for _, pair := range starts {
		if err := b.addRange(0, pair[0], pair[1], ident); err != nil {
			return err
		}
	}
	continues := append(starts, [2]rune{'0', '9'})
	for _, pair := range continues {
		if err := b.addRange(ident, pair[0], pair[1], ident); err != nil {
			return err
		}
	}
	return b.accept(ident, sym, false)
}

func (c *compiler) buildNumber(b *dfaBuilder, sym language.Symbol) error {
	whole := b.newState()
	dot := b.newState()
	frac := b.newState()
	if err := b.addRange(0, '0', '9', whole); err != nil {
		return err
	}
	if err := b.addRange(whole, '0', '9', whole); err != nil {
		return err
	}
	if err := b.addRange(whole, '.', '.', dot); err != nil {
		return err
	}
	if err := b.addRange(dot, '0', '9', frac); err != nil {
		return err
	}
	if err := b.addRange(frac, '0', '9', frac); err != nil {
		return err
	}
	if err := b.accept(whole, sym, false); err != nil {
		return err
	}
	return b.accept(frac, sym, false)
}

func (c *compiler) buildString(b *dfaBuilder, sym language.Symbol) error {
	body := b.newState()
	esc := b.newState()
	done := b.newState()
	if err := b.addRange(0, '"', '"', body); err != nil {
		return err
	}
	// Any rune except quote, backslash, and newline stays in the body.
	for _, pair := range [][2]rune{
		{0, '\t'}, {0x0B, '!'}, {'#', '['}, {']', utf8.MaxRune},
	} {
		if err := b.addRange(body, pair[0], pair[1], body); err != nil {
			return err
		}
	}
	if err := b.addRange(body, '\\', '\\', esc); err != nil {
		return err
	}
	if err := b.addRange(esc, 0, '\t', body); err != nil {
		return err
	}
	if err := b.addRange(esc, 0x0B, utf8.MaxRune, body); err != nil {
		return err
	}
	if err := b.addRange(body, '"', '"', done); err != nil {
		return err
	}
	return b.accept(done, sym, false)
}

func (c *compiler) buildLineComment(b *dfaBuilder, sym language.Symbol) error {
	slash, err := b.triePath("//")
	if err != nil {
		return err
	}
	for _, pair := range [][2]rune{{0, '\t'}, {0x0B, utf8.MaxRune}} {
		if err := b.addRange(slash, pair[0], pair[1], slash); err != nil {
			return err
		}
	}
	return b.accept(slash, sym, false)
}
