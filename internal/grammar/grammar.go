// Package grammar is the static description of the formula language:
// its productions, its terminal/non-terminal symbol sets, and its
// operator precedence/associativity table. It has no knowledge of LR
// states or tables — internal/lrtable consumes a *Grammar to build
// those. The grammar is built once and never mutated afterward, so it
// is safe to share across every parser built from it.
package grammar

import (
	"github.com/entrydsm/formulon/internal/ast"
	"github.com/entrydsm/formulon/internal/token"
)

// StackValue is what the parser runtime pushes on its fragment stack:
// either a shifted terminal token or a reduced AST node, never both.
type StackValue struct {
	Tok  token.Token
	Node ast.Node
}

func FromToken(t token.Token) StackValue { return StackValue{Tok: t} }
func FromNode(n ast.Node) StackValue     { return StackValue{Node: n} }

// BuildFunc constructs a parent fragment from a production's
// right-hand-side values, popped left to right.
type BuildFunc func([]StackValue) (ast.Node, error)

// Production is one grammar rule: Left -> Right, with the AST-builder
// action invoked on reduction. Operator is the dominant operator this
// production reduces on, used for precedence-based shift/reduce
// conflict resolution; it is "" for productions with no operator of
// their own (e.g. ATOM -> NUMBER).
type Production struct {
	ID       int
	Left     token.Type
	Right    []token.Type
	Build    BuildFunc
	Operator string
}

// Assoc is operator associativity.
type Assoc int

const (
	LeftAssoc Assoc = iota
	RightAssoc
)

// PrecedenceEntry is one row of the precedence/associativity table.
type PrecedenceEntry struct {
	Level int
	Assoc Assoc
}

// Grammar is the complete static description consumed by the table
// builder.
type Grammar struct {
	Start        token.Type
	Productions  []Production
	Terminals    map[token.Type]bool
	NonTerminals map[token.Type]bool
	Precedence   map[string]PrecedenceEntry
}

// ProductionsFor returns every production whose left-hand side is sym,
// in declaration order.
func (g *Grammar) ProductionsFor(sym token.Type) []Production {
	var out []Production
	for _, p := range g.Productions {
		if p.Left == sym {
			out = append(out, p)
		}
	}
	return out
}
