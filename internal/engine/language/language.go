// # internal/engine/language/language.go
//
// Package language defines the compiled grammar artifact: symbol tables,
// parse-action tables, lexer DFA states, and field names. A Language is
// immutable once built and may be shared read-only by any number of
// parsers on any number of goroutines.
package language

// Symbol is a grammar symbol id (terminal or nonterminal). Symbol ids are
// stable for the lifetime of a Language: equal ids from trees parsed with
// the same Language denote the same grammar category.
type Symbol uint16

// StateID is a parser state index into the parse table.
type StateID uint16

// FieldID is an index into the field-name table. 0 means "no field".
type FieldID uint16

const (
	// SymbolEnd is the end-of-input terminal.
	SymbolEnd Symbol = 0
	// SymbolError is the synthetic symbol used for error nodes produced
	// during recovery.
	SymbolError Symbol = 65535
)

// ABIVersion is the table layout version this engine expects. Artifacts
// compiled against a different version are rejected at load time.
const ABIVersion = 3

// ActionType identifies the kind of parse action.
type ActionType uint8

const (
	ActionShift ActionType = iota
	ActionReduce
	ActionAccept
)

// Action is a single parser action from the parse table.
type Action struct {
	Type       ActionType
	State      StateID // target state (shift)
	Symbol     Symbol  // reduced symbol (reduce)
	ChildCount uint8   // children consumed (reduce)
	Production uint16  // production id (reduce)
	Extra      bool    // extra-token shift, state unchanged
}

// ActionEntry groups the actions for one (state, symbol) pair. More than
// one action means a grammar conflict; the parser forks on it.
type ActionEntry struct {
	Actions []Action
}

// LexTransition maps an inclusive rune range to a next DFA state.
type LexTransition struct {
	Lo, Hi rune
	Next   int32
}

// LexState is one state of the lexer DFA. Accept is SymbolEnd when the
// state does not accept. Skip marks tokens the lexer swallows entirely
// (whitespace).
type LexState struct {
	Accept      Symbol
	HasAccept   bool
	Skip        bool
	Transitions []LexTransition
}

// SymbolMetadata describes how a symbol surfaces in trees.
type SymbolMetadata struct {
	Name    string
	Named   bool // semantically meaningful, as opposed to punctuation
	Visible bool // hidden symbols are spliced into their parent
}

// FieldMapEntry assigns a field to one child position of a production.
type FieldMapEntry struct {
	Production uint16
	ChildIndex uint8
	Field      FieldID
}

// Language is a compiled grammar. All slices are read-only after build.
type Language struct {
	Name       string
	Version    int // ABI version the tables were compiled against
	StateCount uint32

	Symbols    []SymbolMetadata // indexed by Symbol
	FieldNames []string         // index 0 is ""

	// NonterminalStart splits the symbol space: ids below it are
	// terminals, ids at or above it are rule symbols.
	NonterminalStart Symbol

	// Table is the dense parse table: Table[state][symbol] is an index
	// into Entries, 0 meaning "no action". Gotos are stored as shift
	// actions on nonterminal symbols.
	Table   [][]uint32
	Entries []ActionEntry

	LexStates []LexState
	// Keywords re-classifies an accepted capture token by exact text:
	// the lexer runs the main DFA only, then consults this table, so
	// reserved words never require backtracking.
	Keywords       map[string]Symbol
	KeywordCapture Symbol

	// Extras are tokens the parser absorbs in any state (comments).
	Extras []Symbol

	FieldMap []FieldMapEntry

	fieldIDs map[string]FieldID
	extraSet map[Symbol]bool
}

// Finish builds the derived lookup tables. Called once by the grammar
// compiler or the artifact decoder, before the Language is shared.
func (l *Language) Finish() {
	l.fieldIDs = make(map[string]FieldID, len(l.FieldNames))
	for i, name := range l.FieldNames {
		if name != "" {
			l.fieldIDs[name] = FieldID(i)
		}
	}
	l.extraSet = make(map[Symbol]bool, len(l.Extras))
	for _, s := range l.Extras {
		l.extraSet[s] = true
	}
}

// SymbolName returns the display name for a symbol.
func (l *Language) SymbolName(sym Symbol) string {
	if sym == SymbolError {
		return "ERROR"
	}
	if int(sym) < len(l.Symbols) {
		return l.Symbols[sym].Name
	}
	return ""
}

// SymbolForName returns the symbol with the given name.
func (l *Language) SymbolForName(name string) (Symbol, bool) {
	for i, meta := range l.Symbols {
		if meta.Name == name {
			return Symbol(i), true
		}
	}
	return 0, false
}

// IsNamed reports whether sym produces named nodes.
func (l *Language) IsNamed(sym Symbol) bool {
	if sym == SymbolError {
		return true
	}
	if int(sym) < len(l.Symbols) {
		return l.Symbols[sym].Named
	}
	return false
}

// IsVisible reports whether sym produces nodes at all. Hidden rule
// symbols are spliced into their parent when reduced.
func (l *Language) IsVisible(sym Symbol) bool {
	if sym == SymbolError {
		return true
	}
	if int(sym) < len(l.Symbols) {
		return l.Symbols[sym].Visible
	}
	return false
}

// IsTerminal reports whether sym is a lexical terminal, as opposed to a
// rule symbol.
func (l *Language) IsTerminal(sym Symbol) bool {
	return sym == SymbolError || sym < l.NonterminalStart
}

// IsExtra reports whether sym is an extra token (absorbed in any state).
func (l *Language) IsExtra(sym Symbol) bool {
	return l.extraSet[sym]
}

// FieldByName resolves a field name to its id.
func (l *Language) FieldByName(name string) (FieldID, bool) {
	id, ok := l.fieldIDs[name]
	return id, ok
}

// FieldName returns the name for a field id, or "".
func (l *Language) FieldName(id FieldID) string {
	if int(id) < len(l.FieldNames) {
		return l.FieldNames[id]
	}
	return ""
}

// FieldForChild returns the field assigned to child index i of the given
// production, or 0.
func (l *Language) FieldForChild(production uint16, child int) FieldID {
	for _, e := range l.FieldMap {
		if e.Production == production && int(e.ChildIndex) == child {
			return e.Field
		}
	}
	return 0
}

// Entry returns the action entry for (state, symbol), or nil.
func (l *Language) Entry(state StateID, sym Symbol) *ActionEntry {
	if int(state) >= len(l.Table) {
		return nil
	}
	row := l.Table[state]
	if int(sym) >= len(row) {
		return nil
	}
	idx := row[sym]
	if idx == 0 || int(idx) >= len(l.Entries) {
		return nil
	}
	return &l.Entries[idx]
}

// Goto returns the successor state after reducing sym in state. Gotos are
// encoded as shift actions on nonterminal symbols.
func (l *Language) Goto(state StateID, sym Symbol) (StateID, bool) {
	entry := l.Entry(state, sym)
	if entry == nil {
		return 0, false
	}
	for _, act := range entry.Actions {
		if act.Type == ActionShift {
			return act.State, true
		}
	}
	return 0, false
}
