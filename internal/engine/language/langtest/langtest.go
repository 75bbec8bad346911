// # internal/engine/language/langtest/langtest.go
//
// Package langtest carries a small fixture language used by engine
// tests, examples, and the artifact generator. The language is a toy
// procedural syntax with functions, let/return statements, calls, and
// line comments. Its binary expression rule is deliberately ambiguous
// so conflict handling gets exercised.
package langtest

import (
	"sync"

	"fern/internal/engine/language"
	"fern/internal/engine/language/grammar"
)

// Grammar returns a fresh copy of the fixture grammar description.
func Grammar() *grammar.Grammar {
	return &grammar.Grammar{
		Name: "ferntest",
		Tokens: []grammar.Token{
			{Name: "identifier", Class: grammar.ClassIdentifier},
			{Name: "number", Class: grammar.ClassNumber},
			{Name: "string", Class: grammar.ClassString},
			{Name: "comment", Class: grammar.ClassLineComment},
			{Name: "whitespace", Class: grammar.ClassWhitespace},
		},
		WordToken: "identifier",
		Extras:    []string{"comment"},
		Rules: []grammar.Rule{
			{Name: "source_file", Alts: [][]grammar.Element{
				{},
				{grammar.Sym("_definitions")},
			}},
			{Name: "_definitions", Alts: [][]grammar.Element{
				{grammar.Sym("_definition")},
				{grammar.Sym("_definitions"), grammar.Sym("_definition")},
			}},
			{Name: "_definition", Alts: [][]grammar.Element{
				{grammar.Sym("function")},
				{grammar.Sym("_statement")},
			}},
			{Name: "function", Alts: [][]grammar.Element{
				{
					grammar.Lit("fn"),
					grammar.Field("name", grammar.Sym("identifier")),
					grammar.Field("parameters", grammar.Sym("parameters")),
					grammar.Field("body", grammar.Sym("block")),
				},
			}},
			{Name: "parameters", Alts: [][]grammar.Element{
				{grammar.Lit("("), grammar.Lit(")")},
				{grammar.Lit("("), grammar.Sym("_params"), grammar.Lit(")")},
			}},
			{Name: "_params", Alts: [][]grammar.Element{
				{grammar.Sym("parameter")},
				{grammar.Sym("_params"), grammar.Lit(","), grammar.Sym("parameter")},
			}},
			{Name: "parameter", Alts: [][]grammar.Element{
				{grammar.Field("name", grammar.Sym("identifier"))},
			}},
			{Name: "block", Alts: [][]grammar.Element{
				{grammar.Lit("{"), grammar.Lit("}")},
				{grammar.Lit("{"), grammar.Sym("_statements"), grammar.Lit("}")},
			}},
			{Name: "_statements", Alts: [][]grammar.Element{
				{grammar.Sym("_statement")},
				{grammar.Sym("_statements"), grammar.Sym("_statement")},
			}},
			{Name: "_statement", Alts: [][]grammar.Element{
				{grammar.Sym("let_statement")},
				{grammar.Sym("return_statement")},
				{grammar.Sym("expression_statement")},
			}},
			{Name: "let_statement", Alts: [][]grammar.Element{
				{
					grammar.Lit("let"),
					grammar.Field("name", grammar.Sym("identifier")),
					grammar.Lit("="),
					grammar.Sym("_expression"),
					grammar.Lit(";"),
				},
			}},
			{Name: "return_statement", Alts: [][]grammar.Element{
				{grammar.Lit("return"), grammar.Lit(";")},
				{grammar.Lit("return"), grammar.Sym("_expression"), grammar.Lit(";")},
			}},
			{Name: "expression_statement", Alts: [][]grammar.Element{
				{grammar.Sym("_expression"), grammar.Lit(";")},
			}},
			{Name: "_expression", Alts: [][]grammar.Element{
				{grammar.Sym("identifier")},
				{grammar.Sym("number")},
				{grammar.Sym("string")},
				{grammar.Sym("binary_expression")},
				{grammar.Sym("call_expression")},
			}},
			{Name: "binary_expression", Alts: [][]grammar.Element{
				{grammar.Sym("_expression"), grammar.Lit("+"), grammar.Sym("_expression")},
			}},
			{Name: "call_expression", Alts: [][]grammar.Element{
				{
					grammar.Field("function", grammar.Sym("identifier")),
					grammar.Field("arguments", grammar.Sym("arguments")),
				},
			}},
			{Name: "arguments", Alts: [][]grammar.Element{
				{grammar.Lit("("), grammar.Lit(")")},
				{grammar.Lit("("), grammar.Sym("_args"), grammar.Lit(")")},
			}},
			{Name: "_args", Alts: [][]grammar.Element{
				{grammar.Sym("_expression")},
				{grammar.Sym("_args"), grammar.Lit(","), grammar.Sym("_expression")},
			}},
		},
	}
}

var (
	langOnce sync.Once
	lang     *language.Language
	langErr  error
)

// Language compiles the fixture grammar once and returns the shared
// Language. Compilation is deterministic; a failure here is a bug in
// the grammar compiler, so it panics rather than returning an error.
func Language() *language.Language {
	langOnce.Do(func() {
		lang, langErr = grammar.Compile(Grammar())
	})
	if langErr != nil {
		panic(langErr)
	}
	return lang
}
