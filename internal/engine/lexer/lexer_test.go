package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fern/internal/engine/language"
	"fern/internal/engine/language/langtest"
	"fern/internal/engine/lexer"
	"fern/internal/engine/source"
)

func lexNames(t *testing.T, src string) []string {
	t.Helper()
	lang := langtest.Language()
	lx := lexer.New(lang, []byte(src))
	var names []string
	for {
		tok := lx.Next()
		if tok.EOF() {
			return names
		}
		names = append(names, lang.SymbolName(tok.Symbol))
	}
}

func TestTokenStream(t *testing.T) {
	names := lexNames(t, `fn add(x) { return x + 1; }`)
	assert.Equal(t, []string{
		"fn", "identifier", "(", "identifier", ")",
		"{", "return", "identifier", "+", "number", ";", "}",
	}, names)
}

func TestKeywordsAreExactMatches(t *testing.T) {
	assert.Equal(t, []string{"fn"}, lexNames(t, "fn"))
	assert.Equal(t, []string{"identifier"}, lexNames(t, "fnord"))
	assert.Equal(t, []string{"identifier"}, lexNames(t, "Fn"))
	assert.Equal(t, []string{"let", "identifier", "return"}, lexNames(t, "let lettuce return"))
}

func TestLiteralsAndComment(t *testing.T) {
	assert.Equal(t, []string{"string"}, lexNames(t, `"hi there"`))
	assert.Equal(t, []string{"number"}, lexNames(t, "3.14"))
	assert.Equal(t, []string{"comment"}, lexNames(t, "// trailing\n"))
	assert.Equal(t, []string{"identifier", "comment", "identifier"}, lexNames(t, "a // b\nc"))
}

func TestUnknownByteBecomesErrorToken(t *testing.T) {
	lang := langtest.Language()
	lx := lexer.New(lang, []byte("@ab"))

	tok := lx.Next()
	assert.Equal(t, language.SymbolError, tok.Symbol)
	assert.Equal(t, uint32(0), tok.StartByte)
	assert.Equal(t, uint32(1), tok.EndByte)

	tok = lx.Next()
	assert.Equal(t, "identifier", lang.SymbolName(tok.Symbol))
	assert.Equal(t, uint32(1), tok.StartByte)
	assert.Equal(t, uint32(3), tok.EndByte)
}

func TestPointsTrackNewlines(t *testing.T) {
	lang := langtest.Language()
	src := []byte("fn f() {\n  x;\n}")
	lx := lexer.New(lang, src)

	var toks []lexer.Token
	for {
		tok := lx.Next()
		if tok.EOF() {
			toks = append(toks, tok)
			break
		}
		toks = append(toks, tok)
	}

	// "x" sits on row 1, column 2.
	x := toks[5]
	require.Equal(t, "identifier", lang.SymbolName(x.Symbol))
	assert.Equal(t, source.Point{Row: 1, Column: 2}, x.StartPoint)
	assert.Equal(t, source.Point{Row: 1, Column: 3}, x.EndPoint)

	// Closing brace on row 2.
	brace := toks[7]
	require.Equal(t, "}", lang.SymbolName(brace.Symbol))
	assert.Equal(t, source.Point{Row: 2, Column: 0}, brace.StartPoint)

	eof := toks[len(toks)-1]
	assert.True(t, eof.EOF())
	assert.Equal(t, uint32(len(src)), eof.StartByte)
	assert.Equal(t, source.Point{Row: 2, Column: 1}, eof.EndPoint)
}

func TestSkipToByte(t *testing.T) {
	lang := langtest.Language()
	src := []byte("fn f() {\n  x;\n}")
	lx := lexer.New(lang, src)

	require.Equal(t, "fn", lang.SymbolName(lx.Next().Symbol))

	// Hop straight to "x" as an incremental parse would after reusing
	// the function header.
	tok := lx.SkipToByte(11)
	assert.Equal(t, "identifier", lang.SymbolName(tok.Symbol))
	assert.Equal(t, uint32(11), tok.StartByte)
	assert.Equal(t, source.Point{Row: 1, Column: 2}, tok.StartPoint)
}

func TestDeterministicOutput(t *testing.T) {
	src := `fn f(a, b) { let x = "s"; return x; } // done`
	assert.Equal(t, lexNames(t, src), lexNames(t, src))
}
