package lrtable

import (
	"sort"

	"github.com/entrydsm/formulon/internal/ferr"
	"github.com/entrydsm/formulon/internal/grammar"
	"github.com/entrydsm/formulon/internal/token"
)

// closure expands items with the standard LR(1) closure operation:
// for every item [A -> alpha . B beta, a], add [B -> .gamma, b] for
// every production B -> gamma and every b in FIRST(beta a).
func closure(items itemSet, prods []grammar.Production, first map[token.Type]map[token.Type]bool, nullable map[token.Type]bool) itemSet {
	result := items.clone()
	changed := true
	for changed {
		changed = false
		for it := range result {
			prod := prods[it.Prod]
			if it.Dot >= len(prod.Right) {
				continue
			}
			sym := prod.Right[it.Dot]
			if !sym.IsNonTerminal() {
				continue
			}
			beta := prod.Right[it.Dot+1:]
			las := firstOfSeq(beta, first, nullable, it.Lookahead)
			for _, p := range prods {
				if p.Left != sym {
					continue
				}
				for la := range las {
					ni := Item{Prod: p.ID, Dot: 0, Lookahead: la}
					if !result[ni] {
						result[ni] = true
						changed = true
					}
				}
			}
		}
	}
	return result
}

// gotoSet moves the dot past sym in every item that has sym next, then
// closes the result. It returns nil if no item advances on sym.
func gotoSet(items itemSet, sym token.Type, prods []grammar.Production, first map[token.Type]map[token.Type]bool, nullable map[token.Type]bool) itemSet {
	moved := itemSet{}
	for it := range items {
		prod := prods[it.Prod]
		if it.Dot < len(prod.Right) && prod.Right[it.Dot] == sym {
			moved[Item{Prod: it.Prod, Dot: it.Dot + 1, Lookahead: it.Lookahead}] = true
		}
	}
	if len(moved) == 0 {
		return nil
	}
	return closure(moved, prods, first, nullable)
}

// symbolsAfterDot returns, in deterministic order, every grammar
// symbol that appears immediately after some item's dot.
func symbolsAfterDot(items itemSet, prods []grammar.Production) []token.Type {
	seen := map[token.Type]bool{}
	var out []token.Type
	for it := range items {
		prod := prods[it.Prod]
		if it.Dot < len(prod.Right) {
			sym := prod.Right[it.Dot]
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// canonicalCollection builds the full LR(1) state graph by repeated
// closure/goto from the augmented start item, the same
// worklist-plus-visited-set traversal shape used throughout the
// reference graph-search code this module was adapted from (BFS over
// a frontier with a seen-key map guarding re-expansion).
func canonicalCollection(g *grammar.Grammar) (states []itemSet, transitions []map[token.Type]int, prods []grammar.Production) {
	prods = augmentedProductions(g)
	nullable := nullableSet(prods)
	first := firstSets(prods, g.Terminals, nullable)

	augProdID := len(prods) - 1
	start := closure(newItemSet(Item{Prod: augProdID, Dot: 0, Lookahead: token.DOLLAR}), prods, first, nullable)

	stateIndex := map[string]int{start.key(): 0}
	states = []itemSet{start}
	transitions = []map[token.Type]int{{}}

	worklist := []int{0}
	for len(worklist) > 0 {
		s := worklist[0]
		worklist = worklist[1:]

		for _, sym := range symbolsAfterDot(states[s], prods) {
			moved := gotoSet(states[s], sym, prods, first, nullable)
			if moved == nil {
				continue
			}
			k := moved.key()
			idx, ok := stateIndex[k]
			if !ok {
				idx = len(states)
				stateIndex[k] = idx
				states = append(states, moved)
				transitions = append(transitions, map[token.Type]int{})
				worklist = append(worklist, idx)
			}
			transitions[s][sym] = idx
		}
	}
	return states, transitions, prods
}

// BuildParsingTable runs the full LR(1) construction and returns the
// resulting ACTION/GOTO table, or a *ferr.Error of kind
// ferr.GrammarConflict if the grammar has a genuine reduce/reduce
// conflict or an unresolvable shift/reduce conflict.
func BuildParsingTable(g *grammar.Grammar) (*ParsingTable, error) {
	states, transitions, prods := canonicalCollection(g)
	augProdID := len(prods) - 1

	tbl := newParsingTable(g, prods, len(states))

	for s, items := range states {
		for sym, target := range transitions[s] {
			if sym.IsTerminal() {
				if err := tbl.setAction(s, sym, Action{Kind: ActionShift, State: target}, prods, g); err != nil {
					return nil, err
				}
			} else {
				tbl.Goto[gotoKey{State: s, Sym: sym}] = target
			}
		}

		for it := range items {
			prod := prods[it.Prod]
			if it.Dot != len(prod.Right) {
				continue
			}
			var act Action
			if it.Prod == augProdID {
				act = Action{Kind: ActionAccept}
			} else {
				act = Action{Kind: ActionReduce, Prod: it.Prod}
			}
			if err := tbl.setAction(s, it.Lookahead, act, prods, g); err != nil {
				return nil, err
			}
		}
	}

	return tbl, nil
}

// resolveConflict decides between an existing table entry and a newly
// discovered one for the same (state, terminal) cell. Reduce/reduce is
// always fatal. Shift/reduce is resolved by operator precedence and
// associativity when both sides carry precedence information, and is
// then counted in ConflictsResolved; a shift/reduce conflict that the
// precedence table does not cover is fatal too.
func resolveConflict(existing, next Action, term token.Type, prods []grammar.Production, g *grammar.Grammar) (Action, bool, error) {
	if existing == next {
		return existing, false, nil
	}

	if existing.Kind == ActionReduce && next.Kind == ActionReduce {
		return Action{}, false, ferr.New(ferr.GrammarConflict,
			"reduce/reduce conflict on %s between productions %d and %d", term, existing.Prod, next.Prod)
	}
	if existing.Kind == ActionAccept || next.Kind == ActionAccept {
		// ACCEPT only ever coincides with itself in a well-formed
		// augmented grammar; treat any mismatch as a conflict.
		return Action{}, false, ferr.New(ferr.GrammarConflict, "conflicting ACCEPT action on %s", term)
	}

	shiftAction, reduceAction := existing, next
	if existing.Kind == ActionReduce {
		shiftAction, reduceAction = next, existing
	}

	reduceProd := prods[reduceAction.Prod]
	shiftOp := tokenOperator[term]

	reducePrec, hasReduce := g.Precedence[reduceProd.Operator]
	shiftPrec, hasShift := g.Precedence[shiftOp]

	if hasReduce && hasShift {
		switch {
		case shiftPrec.Level > reducePrec.Level:
			return shiftAction, true, nil
		case shiftPrec.Level < reducePrec.Level:
			return reduceAction, true, nil
		default:
			if shiftPrec.Assoc == grammar.LeftAssoc {
				return reduceAction, true, nil
			}
			return shiftAction, true, nil
		}
	}

	return Action{}, false, ferr.New(ferr.GrammarConflict,
		"unresolvable shift/reduce conflict on %s with production %d", term, reduceAction.Prod)
}

// tokenOperator maps an operator terminal to the precedence-table key
// its binary productions register under (grammar.Default()'s Operator
// field values).
var tokenOperator = map[token.Type]string{
	token.OR: "||", token.AND: "&&",
	token.EQUAL: "==", token.NOT_EQUAL: "!=",
	token.LESS: "<", token.LESS_EQUAL: "<=", token.GREATER: ">", token.GREATER_EQUAL: ">=",
	token.PLUS: "+", token.MINUS: "-",
	token.MULTIPLY: "*", token.DIVIDE: "/", token.MODULO: "%",
	token.POWER: "^",
}
