// # internal/engine/language/grammar/tables.go
package grammar

import (
	"fmt"
	"sort"

	"fern/internal/core/errors"
	"fern/internal/engine/language"
)

// item is an LR(0) item: a production with a dot position.
type item struct {
	prod int
	dot  int
}

type itemSet struct {
	items []item // sorted
}

func (s *itemSet) key() string {
	key := make([]byte, 0, len(s.items)*8)
	for _, it := range s.items {
		key = append(key,
			byte(it.prod), byte(it.prod>>8),
			byte(it.dot), byte(it.dot>>8))
	}
	return string(key)
}

func sortItems(items []item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].prod != items[j].prod {
			return items[i].prod < items[j].prod
		}
		return items[i].dot < items[j].dot
	})
}

// buildParseTable runs the SLR(1) construction: LR(0) canonical
// collection plus FOLLOW-restricted reductions. Conflicts survive as
// multi-action entries.
func (c *compiler) buildParseTable() ([][]uint32, []language.ActionEntry, int, error) {
	startSym := c.symOf[c.g.Rules[0].Name]

	// Augment with S' -> start. The pseudo symbol never appears on a
	// right-hand side and has no metadata entry.
	augSym := language.Symbol(len(c.symbols))
	augProd := len(c.prods)
	c.prods = append(c.prods, production{lhs: augSym, rhs: []language.Symbol{startSym}})
	defer func() { c.prods = c.prods[:augProd] }()

	if len(c.prods) > 0xFFFF {
		return nil, nil, 0, errors.New(errors.CodeValidationError, "too many productions")
	}

	prodsOf := make(map[language.Symbol][]int)
	for i, p := range c.prods {
		prodsOf[p.lhs] = append(prodsOf[p.lhs], i)
	}

	closure := func(items []item) []item {
		seen := make(map[item]bool, len(items))
		var out []item
		var work []item
		for _, it := range items {
			if !seen[it] {
				seen[it] = true
				out = append(out, it)
				work = append(work, it)
			}
		}
		for len(work) > 0 {
			it := work[len(work)-1]
			work = work[:len(work)-1]
			rhs := c.prods[it.prod].rhs
			if it.dot >= len(rhs) {
				continue
			}
			next := rhs[it.dot]
			if c.isTerminal(next) {
				continue
			}
			for _, pi := range prodsOf[next] {
				ni := item{prod: pi}
				if !seen[ni] {
					seen[ni] = true
					out = append(out, ni)
					work = append(work, ni)
				}
			}
		}
		sortItems(out)
		return out
	}

	// Canonical collection.
	var states []itemSet
	index := make(map[string]int)
	addState := func(items []item) int {
		s := itemSet{items: items}
		if id, ok := index[s.key()]; ok {
			return id
		}
		id := len(states)
		states = append(states, s)
		index[s.key()] = id
		return id
	}

	addState(closure([]item{{prod: augProd}}))
	transitions := []map[language.Symbol]int{}

	for si := 0; si < len(states); si++ {
		moved := make(map[language.Symbol][]item)
		for _, it := range states[si].items {
			rhs := c.prods[it.prod].rhs
			if it.dot < len(rhs) {
				x := rhs[it.dot]
				moved[x] = append(moved[x], item{prod: it.prod, dot: it.dot + 1})
			}
		}
		trans := make(map[language.Symbol]int, len(moved))
		syms := make([]language.Symbol, 0, len(moved))
		for x := range moved {
			syms = append(syms, x)
		}
		sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
		for _, x := range syms {
			trans[x] = addState(closure(moved[x]))
		}
		transitions = append(transitions, trans)
	}

	if len(states) > 0xFFFF {
		return nil, nil, 0, errors.New(errors.CodeValidationError, "too many parser states")
	}

	follow := c.followSets(augSym)

	// Collect actions per (state, symbol).
	numSyms := len(c.symbols)
	type cell struct {
		state int
		sym   language.Symbol
	}
	actions := make(map[cell][]language.Action)
	add := func(st int, sym language.Symbol, act language.Action) {
		key := cell{st, sym}
		for _, existing := range actions[key] {
			if existing == act {
				return
			}
		}
		actions[key] = append(actions[key], act)
	}

	for si, st := range states {
		for x, target := range transitions[si] {
			add(si, x, language.Action{Type: language.ActionShift, State: language.StateID(target)})
		}
		for _, it := range st.items {
			p := c.prods[it.prod]
			if it.dot < len(p.rhs) {
				continue
			}
			if it.prod == augProd {
				add(si, language.SymbolEnd, language.Action{Type: language.ActionAccept})
				continue
			}
			if len(p.rhs) > 255 {
				return nil, nil, 0, errors.New(errors.CodeValidationError,
					fmt.Sprintf("production for %s too long", c.symbols[p.lhs].Name))
			}
			for sym := range follow[p.lhs] {
				add(si, sym, language.Action{
					Type:       language.ActionReduce,
					Symbol:     p.lhs,
					ChildCount: uint8(len(p.rhs)),
					Production: uint16(it.prod),
				})
			}
		}
	}

	// Encode into the dense table. Entry 0 is the "no action" sentinel.
	entries := []language.ActionEntry{{}}
	table := make([][]uint32, len(states))
	for si := range states {
		row := make([]uint32, numSyms)
		for sym := 0; sym < numSyms; sym++ {
			acts := actions[cell{si, language.Symbol(sym)}]
			if len(acts) == 0 {
				continue
			}
			// Shifts sort ahead of reduces; reduces order by production.
			sort.SliceStable(acts, func(i, j int) bool {
				if acts[i].Type != acts[j].Type {
					return acts[i].Type < acts[j].Type
				}
				return acts[i].Production < acts[j].Production
			})
			row[sym] = uint32(len(entries))
			entries = append(entries, language.ActionEntry{Actions: acts})
		}
		table[si] = row
	}

	return table, entries, len(states), nil
}

// followSets computes SLR FOLLOW sets for every nonterminal, including
// the augmented start symbol (seeded with end-of-input).
func (c *compiler) followSets(augSym language.Symbol) map[language.Symbol]map[language.Symbol]bool {
	nullable := make(map[language.Symbol]bool)
	first := make(map[language.Symbol]map[language.Symbol]bool)

	firstOf := func(sym language.Symbol) map[language.Symbol]bool {
		if c.isTerminal(sym) {
			return map[language.Symbol]bool{sym: true}
		}
		return first[sym]
	}

	for changed := true; changed; {
		changed = false
		for _, p := range c.prods {
			if first[p.lhs] == nil {
				first[p.lhs] = make(map[language.Symbol]bool)
			}
			allNullable := true
			for _, sym := range p.rhs {
				for t := range firstOf(sym) {
					if !first[p.lhs][t] {
						first[p.lhs][t] = true
						changed = true
					}
				}
				if c.isTerminal(sym) || !nullable[sym] {
					allNullable = false
					break
				}
			}
			if allNullable && !nullable[p.lhs] {
				nullable[p.lhs] = true
				changed = true
			}
		}
	}

	follow := make(map[language.Symbol]map[language.Symbol]bool)
	ensure := func(sym language.Symbol) map[language.Symbol]bool {
		if follow[sym] == nil {
			follow[sym] = make(map[language.Symbol]bool)
		}
		return follow[sym]
	}
	ensure(augSym)[language.SymbolEnd] = true

	for changed := true; changed; {
		changed = false
		for _, p := range c.prods {
			for i, sym := range p.rhs {
				if c.isTerminal(sym) {
					continue
				}
				fs := ensure(sym)
				restNullable := true
				for _, rest := range p.rhs[i+1:] {
					for t := range firstOf(rest) {
						if !fs[t] {
							fs[t] = true
							changed = true
						}
					}
					if c.isTerminal(rest) || !nullable[rest] {
						restNullable = false
						break
					}
				}
				if restNullable {
					for t := range follow[p.lhs] {
						if !fs[t] {
							fs[t] = true
							changed = true
						}
					}
				}
			}
		}
	}

	return follow
}
