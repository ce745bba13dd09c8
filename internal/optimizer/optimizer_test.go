package optimizer_test

import (
	"testing"

	"github.com/entrydsm/formulon/internal/ast"
	"github.com/entrydsm/formulon/internal/grammar"
	"github.com/entrydsm/formulon/internal/lrtable"
	"github.com/entrydsm/formulon/internal/optimizer"
	"github.com/entrydsm/formulon/internal/parser"
)

func mustParse(t *testing.T, src string) ast.Node {
	t.Helper()
	tbl, err := lrtable.BuildParsingTable(grammar.Default())
	if err != nil {
		t.Fatalf("BuildParsingTable: %v", err)
	}
	node, err := parser.Parse(tbl, src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return node
}

func TestOptimizeConstantFolding(t *testing.T) {
	cases := map[string]string{
		"1 + 2 * 3":   "7",
		"2 ^ 3 ^ 2":   "512",
		"(1 + 2) * 3": "9",
		"1 < 2 && 3 > 2": "true",
		"-(-5)":       "5",
		"!!true":      "true",
	}
	for src, want := range cases {
		n := mustParse(t, src)
		got, err := optimizer.Optimize(n)
		if err != nil {
			t.Fatalf("Optimize(%q): %v", src, err)
		}
		if got.String() != want {
			t.Errorf("Optimize(%q) = %q, want %q", src, got.String(), want)
		}
	}
}

func TestOptimizeIdentitiesKeepVariable(t *testing.T) {
	cases := map[string]string{
		"x + 0":     "x",
		"0 + x":     "x",
		"x - 0":     "x",
		"x * 1":     "x",
		"1 * x":     "x",
		"x / 1":     "x",
		"x ^ 1":     "x",
		"x && true": "x",
		"false || x": "x",
	}
	for src, want := range cases {
		n := mustParse(t, src)
		got, err := optimizer.Optimize(n)
		if err != nil {
			t.Fatalf("Optimize(%q): %v", src, err)
		}
		if got.String() != want {
			t.Errorf("Optimize(%q) = %q, want %q", src, got.String(), want)
		}
	}
}

func TestOptimizeNeverFoldsErrorCases(t *testing.T) {
	cases := []string{"1 / 0", "0 ^ 0", "5 % 0"}
	for _, src := range cases {
		n := mustParse(t, src)
		got, err := optimizer.Optimize(n)
		if err != nil {
			t.Fatalf("Optimize(%q): %v", src, err)
		}
		if _, ok := got.(*ast.Number); ok {
			t.Errorf("Optimize(%q) folded an expression that should error at evaluation time: %s", src, got.String())
		}
	}
}

func TestOptimizeIfFolding(t *testing.T) {
	n := mustParse(t, "if(1 < 2, 10, 20)")
	got, err := optimizer.Optimize(n)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if got.String() != "10" {
		t.Errorf("Optimize(if) = %q, want %q", got.String(), "10")
	}
}

func TestOptimizeNeverIncreasesDepthOrSize(t *testing.T) {
	n := mustParse(t, "1 + 2 * 3 - 4 / 2 + x * 1 - 0")
	got, err := optimizer.Optimize(n)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if got.Depth() > n.Depth() || got.Size() > n.Size() {
		t.Errorf("optimized tree grew: depth %d->%d size %d->%d", n.Depth(), got.Depth(), n.Size(), got.Size())
	}
}
