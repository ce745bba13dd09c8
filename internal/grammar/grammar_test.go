package grammar_test

import (
	"testing"

	"github.com/entrydsm/formulon/internal/grammar"
	"github.com/entrydsm/formulon/internal/token"
)

func TestDefaultStartSymbol(t *testing.T) {
	g := grammar.Default()
	if g.Start != token.START {
		t.Errorf("Start = %s, want %s", g.Start, token.START)
	}
}

func TestDefaultProductionIDsAreSequential(t *testing.T) {
	g := grammar.Default()
	for i, p := range g.Productions {
		if p.ID != i {
			t.Errorf("Productions[%d].ID = %d, want %d", i, p.ID, i)
		}
	}
}

func TestProductionsForReturnsOnlyMatchingLeft(t *testing.T) {
	g := grammar.Default()
	prods := g.ProductionsFor(token.ADDITIVE_EXPR)
	if len(prods) != 3 {
		t.Fatalf("ProductionsFor(ADDITIVE_EXPR) returned %d productions, want 3", len(prods))
	}
	for _, p := range prods {
		if p.Left != token.ADDITIVE_EXPR {
			t.Errorf("ProductionsFor returned a production with Left = %s", p.Left)
		}
	}
}

func TestProductionsForUnknownSymbolIsEmpty(t *testing.T) {
	g := grammar.Default()
	if prods := g.ProductionsFor(token.NUMBER); len(prods) != 0 {
		t.Errorf("ProductionsFor(NUMBER) = %d productions, want 0", len(prods))
	}
}

func TestTerminalsAndNonTerminalsArePartitioned(t *testing.T) {
	g := grammar.Default()
	for sym := range g.Terminals {
		if g.NonTerminals[sym] {
			t.Errorf("%s is marked as both terminal and non-terminal", sym)
		}
	}
}

func TestEveryProductionSymbolIsClassified(t *testing.T) {
	g := grammar.Default()
	for _, p := range g.Productions {
		if !g.Terminals[p.Left] && !g.NonTerminals[p.Left] {
			t.Errorf("production %d: left-hand symbol %s is neither terminal nor non-terminal", p.ID, p.Left)
		}
		for _, sym := range p.Right {
			if !g.Terminals[sym] && !g.NonTerminals[sym] {
				t.Errorf("production %d: right-hand symbol %s is neither terminal nor non-terminal", p.ID, sym)
			}
		}
	}
}

func TestPrecedenceOrderingIsStratified(t *testing.T) {
	g := grammar.Default()
	levels := []struct {
		lower  string
		higher string
	}{
		{"||", "&&"},
		{"&&", "=="},
		{"==", "<"},
		{"<", "+"},
		{"+", "*"},
		{"*", "u-"},
		{"u-", "^"},
	}
	for _, lv := range levels {
		lo, ok := g.Precedence[lv.lower]
		if !ok {
			t.Fatalf("missing precedence entry for %q", lv.lower)
		}
		hi, ok := g.Precedence[lv.higher]
		if !ok {
			t.Fatalf("missing precedence entry for %q", lv.higher)
		}
		if lo.Level >= hi.Level {
			t.Errorf("expected %q (level %d) to bind looser than %q (level %d)", lv.lower, lo.Level, lv.higher, hi.Level)
		}
	}
}

func TestPowerIsRightAssociative(t *testing.T) {
	g := grammar.Default()
	if entry := g.Precedence["^"]; entry.Assoc != grammar.RightAssoc {
		t.Errorf("^ associativity = %v, want RightAssoc", entry.Assoc)
	}
}

func TestAdditionIsLeftAssociative(t *testing.T) {
	g := grammar.Default()
	if entry := g.Precedence["+"]; entry.Assoc != grammar.LeftAssoc {
		t.Errorf("+ associativity = %v, want LeftAssoc", entry.Assoc)
	}
}

func TestStackValueConstructorsAreExclusive(t *testing.T) {
	tok := token.Token{Type: token.PLUS, Lexeme: "+"}
	fromTok := grammar.FromToken(tok)
	if fromTok.Tok != tok {
		t.Errorf("FromToken did not preserve the token")
	}
	if fromTok.Node != nil {
		t.Errorf("FromToken set a non-nil Node")
	}
}
