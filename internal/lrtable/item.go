// Package lrtable builds a canonical LR(1) parsing table from a
// grammar.Grammar: item sets, the state graph reached by closure and
// goto, and the resulting ACTION/GOTO tables with precedence-based
// shift/reduce conflict resolution. It has no knowledge of formulas —
// internal/grammar supplies the productions, internal/parser drives the
// resulting table.
package lrtable

import (
	"sort"

	"github.com/entrydsm/formulon/internal/grammar"
	"github.com/entrydsm/formulon/internal/token"
)

// Item is one LR(1) item: a production with a dot position and a
// single lookahead terminal. Item is a plain comparable struct so item
// sets are just map[Item]bool.
type Item struct {
	Prod      int
	Dot       int
	Lookahead token.Type
}

type itemSet map[Item]bool

func newItemSet(items ...Item) itemSet {
	s := make(itemSet, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}

func (s itemSet) clone() itemSet {
	out := make(itemSet, len(s))
	for it := range s {
		out[it] = true
	}
	return out
}

// key returns a canonical, order-independent string identifying the
// item set's contents, used to deduplicate states in the canonical
// collection.
func (s itemSet) key() string {
	items := make([]Item, 0, len(s))
	for it := range s {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Prod != items[j].Prod {
			return items[i].Prod < items[j].Prod
		}
		if items[i].Dot != items[j].Dot {
			return items[i].Dot < items[j].Dot
		}
		return items[i].Lookahead < items[j].Lookahead
	})
	b := make([]byte, 0, len(items)*12)
	for _, it := range items {
		b = append(b, itemBytes(it)...)
	}
	return string(b)
}

func itemBytes(it Item) []byte {
	return []byte{
		byte(it.Prod), byte(it.Prod >> 8), byte(it.Prod >> 16), byte(it.Prod >> 24),
		byte(it.Dot), byte(it.Dot >> 8),
		byte(it.Lookahead), byte(it.Lookahead >> 8),
		';',
	}
}

// augmentedProductions returns the grammar's productions plus the
// synthetic S' -> Start production the algorithm needs as its single
// accepting root; its ID is one past the last real production.
func augmentedProductions(g *grammar.Grammar) []grammar.Production {
	out := make([]grammar.Production, len(g.Productions)+1)
	copy(out, g.Productions)
	out[len(g.Productions)] = grammar.Production{
		ID:    len(g.Productions),
		Left:  token.AugmentedStart,
		Right: []token.Type{g.Start},
		// Build is never invoked: the parser driver stops on ACCEPT
		// rather than reducing this production.
		Build: nil,
	}
	return out
}
