package exprgen_test

import (
	"testing"

	"github.com/entrydsm/formulon/internal/exprgen"
	"github.com/entrydsm/formulon/internal/grammar"
	"github.com/entrydsm/formulon/internal/lrtable"
	"github.com/entrydsm/formulon/internal/parser"
)

func TestGeneratorIsDeterministic(t *testing.T) {
	a := exprgen.New(42)
	b := exprgen.New(42)
	for i := 0; i < 50; i++ {
		ea, eb := a.Expr(4), b.Expr(4)
		if ea != eb {
			t.Fatalf("iteration %d: same seed produced different expressions: %q vs %q", i, ea, eb)
		}
	}
}

func TestGeneratorRespectsMaxDepthZero(t *testing.T) {
	g := exprgen.New(1)
	for i := 0; i < 20; i++ {
		src := g.Expr(0)
		if src == "" {
			t.Fatalf("Expr(0) produced an empty string")
		}
	}
}

func TestGeneratedExpressionsMostlyParse(t *testing.T) {
	tbl, err := lrtable.BuildParsingTable(grammar.Default())
	if err != nil {
		t.Fatalf("BuildParsingTable: %v", err)
	}
	g := exprgen.New(7)

	parsed := 0
	const total = 200
	for i := 0; i < total; i++ {
		src := g.Expr(4)
		if _, err := parser.Parse(tbl, src); err == nil {
			parsed++
		}
	}
	if parsed*2 <= total {
		t.Fatalf("only %d of %d generated expressions parsed", parsed, total)
	}
}
