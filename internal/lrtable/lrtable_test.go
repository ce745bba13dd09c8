package lrtable

import (
	"testing"

	"github.com/entrydsm/formulon/internal/ferr"
	"github.com/entrydsm/formulon/internal/grammar"
	"github.com/entrydsm/formulon/internal/token"
)

// ambiguousArithmetic is a flat, deliberately ambiguous toy grammar
// (E -> E + E | E * E | NUMBER) that only a real table — stratified by
// precedence the way grammar.Default() is — avoids needing. It exists
// solely to exercise the shift/reduce conflict resolver in isolation,
// since the production grammar is conflict-free by construction and
// never reaches resolveConflict in practice.
func ambiguousArithmetic() *grammar.Grammar {
	prods := []grammar.Production{
		{Left: token.START, Right: []token.Type{token.EXPR}},
		{Left: token.EXPR, Right: []token.Type{token.EXPR, token.PLUS, token.EXPR}, Operator: "+"},
		{Left: token.EXPR, Right: []token.Type{token.EXPR, token.MULTIPLY, token.EXPR}, Operator: "*"},
		{Left: token.EXPR, Right: []token.Type{token.NUMBER}},
	}
	for i := range prods {
		prods[i].ID = i
	}

	return &grammar.Grammar{
		Start:       token.START,
		Productions: prods,
		Terminals: map[token.Type]bool{
			token.PLUS: true, token.MULTIPLY: true, token.NUMBER: true, token.DOLLAR: true,
		},
		NonTerminals: map[token.Type]bool{token.START: true, token.EXPR: true},
		Precedence: map[string]grammar.PrecedenceEntry{
			"+": {Level: 1, Assoc: grammar.LeftAssoc},
			"*": {Level: 2, Assoc: grammar.LeftAssoc},
		},
	}
}

// ambiguousReduceReduce has two distinct non-terminals that both
// derive a bare NUMBER with no disambiguating context, forcing a
// genuine reduce/reduce conflict.
func ambiguousReduceReduce() *grammar.Grammar {
	prods := []grammar.Production{
		{Left: token.START, Right: []token.Type{token.EXPR}},
		{Left: token.EXPR, Right: []token.Type{token.AND_EXPR}},
		{Left: token.EXPR, Right: []token.Type{token.EQUALITY_EXPR}},
		{Left: token.AND_EXPR, Right: []token.Type{token.NUMBER}},
		{Left: token.EQUALITY_EXPR, Right: []token.Type{token.NUMBER}},
	}
	for i := range prods {
		prods[i].ID = i
	}

	return &grammar.Grammar{
		Start:       token.START,
		Productions: prods,
		Terminals:   map[token.Type]bool{token.NUMBER: true, token.DOLLAR: true},
		NonTerminals: map[token.Type]bool{
			token.START: true, token.EXPR: true, token.AND_EXPR: true, token.EQUALITY_EXPR: true,
		},
		Precedence: map[string]grammar.PrecedenceEntry{},
	}
}

func TestShiftReduceResolvedByPrecedence(t *testing.T) {
	tbl, err := BuildParsingTable(ambiguousArithmetic())
	if err != nil {
		t.Fatalf("BuildParsingTable: %v", err)
	}
	stats := tbl.Stats()
	if stats.ConflictsResolved == 0 {
		t.Fatalf("expected at least one shift/reduce conflict resolved by precedence, got 0")
	}
}

func TestReduceReduceConflictIsFatal(t *testing.T) {
	_, err := BuildParsingTable(ambiguousReduceReduce())
	if err == nil {
		t.Fatalf("expected a reduce/reduce conflict error, got nil")
	}
	if !ferr.Is(err, ferr.GrammarConflict) {
		t.Fatalf("expected ferr.GrammarConflict, got %v", err)
	}
}

func TestDefaultGrammarBuildsWithoutConflicts(t *testing.T) {
	tbl, err := BuildParsingTable(grammar.Default())
	if err != nil {
		t.Fatalf("BuildParsingTable(grammar.Default()): %v", err)
	}
	stats := tbl.Stats()
	if stats.States == 0 {
		t.Fatalf("expected a non-empty state graph")
	}
	if stats.ConflictsResolved != 0 {
		t.Fatalf("stratified-by-precedence grammar should be conflict-free, got %d resolved conflicts", stats.ConflictsResolved)
	}
}

func TestDenseGotoMatchesSparse(t *testing.T) {
	tbl, err := BuildParsingTable(grammar.Default())
	if err != nil {
		t.Fatalf("BuildParsingTable: %v", err)
	}
	denseGoto, nts := tbl.DenseGoto()
	idx := map[token.Type]int{}
	for i, nt := range nts {
		idx[nt] = i
	}
	for key, target := range tbl.Goto {
		if denseGoto[key.State][idx[key.Sym]] != target {
			t.Fatalf("dense/sparse GOTO mismatch at state %d symbol %s", key.State, key.Sym)
		}
	}
	// Absent entries must hold the sentinel, never a real state id.
	sentinels := 0
	for s, row := range denseGoto {
		for col, target := range row {
			if target == NoGoto {
				sentinels++
				continue
			}
			if _, ok := tbl.Goto[gotoKey{State: s, Sym: nts[col]}]; !ok {
				t.Fatalf("dense GOTO has state %d at (%d, %s) but the sparse map has no entry", target, s, nts[col])
			}
		}
	}
	if sentinels == 0 {
		t.Fatalf("expected at least one empty GOTO cell in the dense table")
	}
}

func TestDenseMatchesSparse(t *testing.T) {
	tbl, err := BuildParsingTable(ambiguousArithmetic())
	if err != nil {
		t.Fatalf("BuildParsingTable: %v", err)
	}
	dense, terms := tbl.Dense()
	idx := map[token.Type]int{}
	for i, term := range terms {
		idx[term] = i
	}
	for key, act := range tbl.Action {
		if dense[key.State][idx[key.Term]] != act {
			t.Fatalf("dense/sparse mismatch at state %d term %s: dense=%v sparse=%v", key.State, key.Term, dense[key.State][idx[key.Term]], act)
		}
	}
}
