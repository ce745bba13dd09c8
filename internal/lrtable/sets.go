package lrtable

import (
	"github.com/entrydsm/formulon/internal/grammar"
	"github.com/entrydsm/formulon/internal/token"
)

// nullableSet computes, for every non-terminal, whether it can derive
// the empty string — needed because ARGUMENTS -> ε participates in
// FIRST-set computation like any other production.
func nullableSet(prods []grammar.Production) map[token.Type]bool {
	nullable := map[token.Type]bool{}
	changed := true
	for changed {
		changed = false
		for _, p := range prods {
			if nullable[p.Left] {
				continue
			}
			if len(p.Right) == 0 {
				nullable[p.Left] = true
				changed = true
				continue
			}
			all := true
			for _, sym := range p.Right {
				if !nullable[sym] {
					all = false
					break
				}
			}
			if all {
				nullable[p.Left] = true
				changed = true
			}
		}
	}
	return nullable
}

// firstSets computes FIRST(X) for every grammar symbol X (terminal and
// non-terminal). FIRST of a terminal is itself.
func firstSets(prods []grammar.Production, terminals map[token.Type]bool, nullable map[token.Type]bool) map[token.Type]map[token.Type]bool {
	first := map[token.Type]map[token.Type]bool{}
	for t := range terminals {
		first[t] = map[token.Type]bool{t: true}
	}
	for _, p := range prods {
		if _, ok := first[p.Left]; !ok {
			first[p.Left] = map[token.Type]bool{}
		}
	}

	changed := true
	for changed {
		changed = false
		for _, p := range prods {
			dst := first[p.Left]
			for _, sym := range p.Right {
				for t := range first[sym] {
					if !dst[t] {
						dst[t] = true
						changed = true
					}
				}
				if !nullable[sym] {
					break
				}
			}
		}
	}
	return first
}

// firstOfSeq computes FIRST(seq trailing): the set of terminals that
// can begin seq, falling through to trailing if every symbol in seq is
// nullable. This is the lookahead set used when closing an LR(1) item.
func firstOfSeq(seq []token.Type, first map[token.Type]map[token.Type]bool, nullable map[token.Type]bool, trailing token.Type) map[token.Type]bool {
	out := map[token.Type]bool{}
	allNullable := true
	for _, sym := range seq {
		for t := range first[sym] {
			out[t] = true
		}
		if !nullable[sym] {
			allNullable = false
			break
		}
	}
	if allNullable {
		out[trailing] = true
	}
	return out
}
