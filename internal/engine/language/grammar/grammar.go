// # internal/engine/language/grammar/grammar.go
//
// Package grammar compiles a small BNF-style grammar description into the
// table set a Language carries. It stands in for the offline grammar
// compiler: the engine proper only ever sees the resulting tables, which
// round-trip through the artifact format like any externally produced
// blob.
//
// Construction is SLR(1). Conflicting (state, symbol) pairs are legal and
// are preserved as multi-action entries; the parser resolves them by
// forking.
package grammar

import (
	"fmt"
	"strings"
	"unicode"

	"fern/internal/core/errors"
	"fern/internal/engine/language"
)

// TokenClass selects one of the built-in lexical shapes.
type TokenClass int

const (
	ClassIdentifier  TokenClass = iota // [A-Za-z_][A-Za-z0-9_]*
	ClassNumber                        // [0-9]+ ('.' [0-9]+)?
	ClassString                        // '"' ... '"' on one line
	ClassLineComment                   // '//' to end of line
	ClassWhitespace                    // spaces, tabs, newlines; never emitted
)

// Token declares a lexical token class.
type Token struct {
	Name  string
	Class TokenClass
}

// Element is one symbol occurrence on the right-hand side of a rule.
type Element struct {
	Name    string // rule name, token name, or literal text
	Literal bool
	Field   string
}

// Sym references a rule or token by name.
func Sym(name string) Element { return Element{Name: name} }

// Lit references a literal terminal such as "{" or "fn".
func Lit(text string) Element { return Element{Name: text, Literal: true} }

// Field attaches a field name to an element.
func Field(field string, e Element) Element {
	e.Field = field
	return e
}

// Rule is a nonterminal with one or more alternatives. Rules whose name
// starts with "_" are hidden: their nodes are spliced into the parent.
type Rule struct {
	Name string
	Alts [][]Element
}

// Grammar is the input to Compile. Rules[0] is the start rule.
type Grammar struct {
	Name   string
	Tokens []Token
	// WordToken names the token class whose matches are re-classified
	// through the keyword table (usually the identifier class).
	WordToken string
	Extras    []string // token names absorbed in any state (comments)
	Rules     []Rule
}

type production struct {
	lhs    language.Symbol
	rhs    []language.Symbol
	fields []language.FieldID // parallel to rhs, 0 = none
}

type compiler struct {
	g *Grammar

	symbols   []language.SymbolMetadata
	symOf     map[string]language.Symbol
	litOf     map[string]language.Symbol
	termCount int // symbols [0, termCount) are terminals

	fieldNames []string
	fieldOf    map[string]language.FieldID

	prods []production
}

// Compile turns the grammar into a Language ready for parsing.
func Compile(g *Grammar) (*language.Language, error) {
	c := &compiler{
		g:          g,
		symOf:      make(map[string]language.Symbol),
		litOf:      make(map[string]language.Symbol),
		fieldOf:    make(map[string]language.FieldID),
		fieldNames: []string{""},
	}
	if len(g.Rules) == 0 {
		return nil, errors.New(errors.CodeValidationError, "grammar has no rules")
	}
	if err := c.assignSymbols(); err != nil {
		return nil, err
	}
	if err := c.buildProductions(); err != nil {
		return nil, err
	}
	table, entries, stateCount, err := c.buildParseTable()
	if err != nil {
		return nil, err
	}
	lexStates, keywords, capture, err := c.buildLexer()
	if err != nil {
		return nil, err
	}

	lang := &language.Language{
		Name:             g.Name,
		Version:          language.ABIVersion,
		StateCount:       uint32(stateCount),
		NonterminalStart: language.Symbol(c.termCount),
		Symbols:          c.symbols,
		FieldNames:       c.fieldNames,
		Table:            table,
		Entries:          entries,
		LexStates:        lexStates,
		Keywords:         keywords,
		KeywordCapture:   capture,
		FieldMap:         c.fieldMap(),
	}
	for _, name := range g.Extras {
		sym, ok := c.symOf[name]
		if !ok {
			return nil, errors.New(errors.CodeValidationError,
				fmt.Sprintf("extra %q is not a declared token", name))
		}
		lang.Extras = append(lang.Extras, sym)
	}
	lang.Finish()
	return lang, nil
}

func isWordLiteral(text string) bool {
	if text == "" {
		return false
	}
	r := rune(text[0])
	return unicode.IsLetter(r) || r == '_'
}

func (c *compiler) assignSymbols() error {
	// Symbol 0 is end of input.
	c.symbols = append(c.symbols, language.SymbolMetadata{Name: "end", Named: false, Visible: false})

	for _, tok := range c.g.Tokens {
		if _, dup := c.symOf[tok.Name]; dup {
			return errors.New(errors.CodeValidationError, fmt.Sprintf("duplicate token %q", tok.Name))
		}
		named := tok.Class != ClassWhitespace
		c.symOf[tok.Name] = language.Symbol(len(c.symbols))
		c.symbols = append(c.symbols, language.SymbolMetadata{Name: tok.Name, Named: named, Visible: named})
	}

	// Literals, in order of first appearance across the rules.
	for _, rule := range c.g.Rules {
		for _, alt := range rule.Alts {
			for _, el := range alt {
				if !el.Literal {
					continue
				}
				if _, seen := c.litOf[el.Name]; seen {
					continue
				}
				c.litOf[el.Name] = language.Symbol(len(c.symbols))
				c.symbols = append(c.symbols, language.SymbolMetadata{Name: el.Name, Named: false, Visible: true})
			}
		}
	}

	c.termCount = len(c.symbols)

	for _, rule := range c.g.Rules {
		if _, dup := c.symOf[rule.Name]; dup {
			return errors.New(errors.CodeValidationError, fmt.Sprintf("duplicate rule %q", rule.Name))
		}
		hidden := strings.HasPrefix(rule.Name, "_")
		c.symOf[rule.Name] = language.Symbol(len(c.symbols))
		c.symbols = append(c.symbols, language.SymbolMetadata{Name: rule.Name, Named: !hidden, Visible: !hidden})
	}
	return nil
}

func (c *compiler) fieldID(name string) language.FieldID {
	if name == "" {
		return 0
	}
	if id, ok := c.fieldOf[name]; ok {
		return id
	}
	id := language.FieldID(len(c.fieldNames))
	c.fieldNames = append(c.fieldNames, name)
	c.fieldOf[name] = id
	return id
}

func (c *compiler) resolve(el Element) (language.Symbol, error) {
	if el.Literal {
		return c.litOf[el.Name], nil
	}
	sym, ok := c.symOf[el.Name]
	if !ok {
		return 0, errors.New(errors.CodeValidationError, fmt.Sprintf("unknown symbol %q", el.Name))
	}
	return sym, nil
}

func (c *compiler) buildProductions() error {
	for _, rule := range c.g.Rules {
		lhs := c.symOf[rule.Name]
		for _, alt := range rule.Alts {
			p := production{lhs: lhs}
			for _, el := range alt {
				sym, err := c.resolve(el)
				if err != nil {
					return err
				}
				if el.Field != "" {
					if int(sym) >= c.termCount && !c.symbols[sym].Visible {
						return errors.New(errors.CodeValidationError,
							fmt.Sprintf("field %q on hidden rule %q", el.Field, el.Name))
					}
				}
				p.rhs = append(p.rhs, sym)
				p.fields = append(p.fields, c.fieldID(el.Field))
			}
			c.prods = append(c.prods, p)
		}
	}
	return nil
}

func (c *compiler) fieldMap() []language.FieldMapEntry {
	var out []language.FieldMapEntry
	for id, p := range c.prods {
		for i, f := range p.fields {
			if f != 0 {
				out = append(out, language.FieldMapEntry{
					Production: uint16(id),
					ChildIndex: uint8(i),
					Field:      f,
				})
			}
		}
	}
	return out
}

func (c *compiler) isTerminal(sym language.Symbol) bool {
	return int(sym) < c.termCount
}
