// # internal/engine/lexer/lexer.go
//
// Package lexer executes a Language's precompiled DFA over a byte
// buffer, producing terminal tokens with byte and row/column spans.
//
// The lexer never fails on malformed input: when no DFA path matches, it
// emits a one-byte error terminal and moves on, leaving resynchronization
// to the parser.
package lexer

import (
	"unicode/utf8"

	"fern/internal/engine/language"
	"fern/internal/engine/source"
)

// Token is one terminal produced by the lexer. Symbol is
// language.SymbolEnd at end of input and language.SymbolError for bytes
// no rule matches.
type Token struct {
	Symbol     language.Symbol
	StartByte  uint32
	EndByte    uint32
	StartPoint source.Point
	EndPoint   source.Point
}

// EOF reports whether this is the end-of-input token.
func (t Token) EOF() bool { return t.Symbol == language.SymbolEnd }

// Lexer walks one source buffer left to right. Output is deterministic
// given (source, offset): re-lexing the same buffer yields the same
// token stream.
type Lexer struct {
	lang   *language.Language
	src    []byte
	offset uint32
	pos    source.Point
}

func New(lang *language.Language, src []byte) *Lexer {
	return &Lexer{lang: lang, src: src}
}

// Offset returns the current byte position.
func (l *Lexer) Offset() uint32 { return l.offset }

// Next returns the next token, applying longest-match over the DFA and
// keyword re-classification on the capture token. Skip tokens
// (whitespace) are consumed silently.
func (l *Lexer) Next() Token {
	for {
		if int(l.offset) >= len(l.src) {
			return Token{
				Symbol:     language.SymbolEnd,
				StartByte:  l.offset,
				EndByte:    l.offset,
				StartPoint: l.pos,
				EndPoint:   l.pos,
			}
		}

		sym, end, skip, matched := l.match(l.offset)
		if !matched {
			// No rule matches this byte: emit a one-byte error
			// terminal so the parser can resynchronize.
			return l.emit(language.SymbolError, l.offset+1)
		}
		if skip {
			l.advance(end)
			continue
		}
		if sym == l.lang.KeywordCapture && len(l.lang.Keywords) > 0 {
			if kw, ok := l.lang.Keywords[string(l.src[l.offset:end])]; ok {
				sym = kw
			}
		}
		return l.emit(sym, end)
	}
}

// SkipToByte jumps the lexer to the given byte offset (never backwards)
// and returns the next token from there. The parser uses this to hop
// over subtrees reused from a previous parse without re-lexing them.
func (l *Lexer) SkipToByte(offset uint32) Token {
	if offset > l.offset {
		l.advance(offset)
	}
	return l.Next()
}

// match runs the DFA from the start state at the given offset and
// returns the longest accepting match.
func (l *Lexer) match(start uint32) (sym language.Symbol, end uint32, skip, matched bool) {
	states := l.lang.LexStates
	state := int32(0)
	i := start
	for int(i) < len(l.src) {
		r, width := utf8.DecodeRune(l.src[i:])
		next, ok := transition(&states[state], r)
		if !ok {
			break
		}
		i += uint32(width)
		state = next
		if states[state].HasAccept {
			sym = states[state].Accept
			end = i
			skip = states[state].Skip
			matched = true
		}
	}
	return sym, end, skip, matched
}

func transition(st *language.LexState, r rune) (int32, bool) {
	for _, t := range st.Transitions {
		if r >= t.Lo && r <= t.Hi {
			return t.Next, true
		}
	}
	return 0, false
}

func (l *Lexer) emit(sym language.Symbol, end uint32) Token {
	tok := Token{
		Symbol:     sym,
		StartByte:  l.offset,
		StartPoint: l.pos,
	}
	l.advance(end)
	tok.EndByte = l.offset
	tok.EndPoint = l.pos
	return tok
}

func (l *Lexer) advance(to uint32) {
	if to > uint32(len(l.src)) {
		to = uint32(len(l.src))
	}
	l.pos = source.Advance(l.pos, l.src[l.offset:to])
	l.offset = to
}
