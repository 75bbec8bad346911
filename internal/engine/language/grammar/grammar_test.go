package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fern/internal/core/errors"
	"fern/internal/engine/language"
	"fern/internal/engine/language/grammar"
	"fern/internal/engine/language/langtest"
)

func TestCompileFixtureGrammar(t *testing.T) {
	lang, err := grammar.Compile(langtest.Grammar())
	require.NoError(t, err)

	assert.Equal(t, "ferntest", lang.Name)
	assert.Equal(t, language.ABIVersion, lang.Version)
	assert.Greater(t, lang.StateCount, uint32(1))
	assert.Greater(t, lang.NonterminalStart, language.Symbol(1))

	fn, ok := lang.SymbolForName("function")
	require.True(t, ok)
	assert.True(t, lang.IsNamed(fn))
	assert.True(t, lang.IsVisible(fn))
	assert.False(t, lang.IsTerminal(fn))

	ident, ok := lang.SymbolForName("identifier")
	require.True(t, ok)
	assert.True(t, lang.IsTerminal(ident))
	assert.Equal(t, ident, lang.KeywordCapture)

	hidden, ok := lang.SymbolForName("_params")
	require.True(t, ok)
	assert.False(t, lang.IsNamed(hidden))
	assert.False(t, lang.IsVisible(hidden))

	brace, ok := lang.SymbolForName("{")
	require.True(t, ok)
	assert.False(t, lang.IsNamed(brace))
	assert.True(t, lang.IsVisible(brace))
}

func TestCompileKeywords(t *testing.T) {
	lang, err := grammar.Compile(langtest.Grammar())
	require.NoError(t, err)

	for _, kw := range []string{"fn", "let", "return"} {
		sym, ok := lang.Keywords[kw]
		require.True(t, ok, "keyword %q missing", kw)
		assert.Equal(t, kw, lang.SymbolName(sym))
		assert.True(t, lang.IsTerminal(sym))
	}
}

func TestCompileFields(t *testing.T) {
	lang, err := grammar.Compile(langtest.Grammar())
	require.NoError(t, err)

	for _, name := range []string{"name", "parameters", "body", "function", "arguments"} {
		id, ok := lang.FieldByName(name)
		require.True(t, ok, "field %q missing", name)
		assert.Equal(t, name, lang.FieldName(id))
	}
	_, ok := lang.FieldByName("nonexistent")
	assert.False(t, ok)
}

func TestCompileExtras(t *testing.T) {
	lang, err := grammar.Compile(langtest.Grammar())
	require.NoError(t, err)

	comment, ok := lang.SymbolForName("comment")
	require.True(t, ok)
	assert.True(t, lang.IsExtra(comment))

	ident, _ := lang.SymbolForName("identifier")
	assert.False(t, lang.IsExtra(ident))
}

// The fixture's binary expression rule is ambiguous; the compiler must
// keep the conflicting actions instead of resolving them.
func TestCompilePreservesConflicts(t *testing.T) {
	lang, err := grammar.Compile(langtest.Grammar())
	require.NoError(t, err)

	conflicts := 0
	for _, e := range lang.Entries {
		if len(e.Actions) > 1 {
			conflicts++
		}
	}
	assert.Greater(t, conflicts, 0)
}

func TestCompileRejectsUnknownSymbol(t *testing.T) {
	g := &grammar.Grammar{
		Name: "bad",
		Tokens: []grammar.Token{
			{Name: "identifier", Class: grammar.ClassIdentifier},
		},
		Rules: []grammar.Rule{
			{Name: "start", Alts: [][]grammar.Element{{grammar.Sym("ghost")}}},
		},
	}
	_, err := grammar.Compile(g)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestCompileRejectsFieldOnHiddenRule(t *testing.T) {
	g := &grammar.Grammar{
		Name: "bad",
		Tokens: []grammar.Token{
			{Name: "identifier", Class: grammar.ClassIdentifier},
		},
		Rules: []grammar.Rule{
			{Name: "start", Alts: [][]grammar.Element{
				{grammar.Field("item", grammar.Sym("_hidden"))},
			}},
			{Name: "_hidden", Alts: [][]grammar.Element{{grammar.Sym("identifier")}}},
		},
	}
	_, err := grammar.Compile(g)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestCompileRejectsEmptyGrammar(t *testing.T) {
	_, err := grammar.Compile(&grammar.Grammar{Name: "empty"})
	require.Error(t, err)
}

func TestCompileRejectsWordLiteralWithoutWordToken(t *testing.T) {
	g := &grammar.Grammar{
		Name: "bad",
		Tokens: []grammar.Token{
			{Name: "identifier", Class: grammar.ClassIdentifier},
		},
		Rules: []grammar.Rule{
			{Name: "start", Alts: [][]grammar.Element{{grammar.Lit("while")}}},
		},
	}
	_, err := grammar.Compile(g)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}
