// Package exprgen generates random, syntactically well-formed formula
// strings for property-based tests (optimizer value preservation and
// idempotence). Every generator carries its own
// explicit seeded source, never ambient math/rand global state — a
// fixed seed must always reproduce the same sequence of expressions.
//
// This package is test-only scaffolding: nothing outside _test.go files
// imports it.
package exprgen

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

var binaryOps = []string{"+", "-", "*", "/", "%", "^", "==", "!=", "<", "<=", ">", ">=", "&&", "||"}
var unaryOps = []string{"-", "+", "!"}
var functions = []string{"ABS", "SQRT", "ROUND", "MIN", "MAX", "SUM"}
var variableNames = []string{"a", "b", "c", "x", "y", "result"}

// Generator produces random formula strings from a seeded source.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded deterministically from seed: the same
// seed always produces the same sequence of Expr calls.
func New(seed uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed))}
}

// Expr returns a random well-formed expression string in which generated
// constructs nest at most maxDepth levels deep. The parsed AST can be a
// little deeper: a negative numeric literal parses as a unary minus over
// a number, and an if-condition is a comparison of two such literals, so
// the AST depth is at most maxDepth+3. maxDepth <= 0 always yields a
// leaf (number, boolean, or variable).
func (g *Generator) Expr(maxDepth int) string {
	if maxDepth <= 0 || g.rnd.IntN(4) == 0 {
		return g.leaf()
	}

	switch g.rnd.IntN(5) {
	case 0:
		op := binaryOps[g.rnd.IntN(len(binaryOps))]
		return fmt.Sprintf("(%s %s %s)", g.Expr(maxDepth-1), op, g.Expr(maxDepth-1))
	case 1:
		op := unaryOps[g.rnd.IntN(len(unaryOps))]
		return fmt.Sprintf("%s(%s)", op, g.Expr(maxDepth-1))
	case 2:
		fn := functions[g.rnd.IntN(len(functions))]
		argc := 1 + g.rnd.IntN(2)
		args := make([]string, argc)
		for i := range args {
			args[i] = g.Expr(maxDepth - 1)
		}
		return fmt.Sprintf("%s(%s)", fn, joinArgs(args))
	case 3:
		return fmt.Sprintf("if(%s, %s, %s)", g.boolExpr(maxDepth-1), g.Expr(maxDepth-1), g.Expr(maxDepth-1))
	default:
		return fmt.Sprintf("(%s)", g.Expr(maxDepth-1))
	}
}

// boolExpr returns a numeric-comparison expression, which always
// evaluates to a boolean, so it can safely sit in an if-condition slot
// without a type mismatch against a non-numeric leaf on the other side.
func (g *Generator) boolExpr(maxDepth int) string {
	return fmt.Sprintf("(%s %s %s)", g.numericLeaf(), comparisonOps[g.rnd.IntN(len(comparisonOps))], g.numericLeaf())
}

var comparisonOps = []string{"==", "!=", "<", "<=", ">", ">="}

func (g *Generator) numericLeaf() string {
	return strconv.FormatFloat(g.rnd.Float64()*200-100, 'f', -1, 64)
}

func (g *Generator) leaf() string {
	switch g.rnd.IntN(3) {
	case 0:
		return g.numericLeaf()
	case 1:
		return variableNames[g.rnd.IntN(len(variableNames))]
	default:
		if g.rnd.IntN(2) == 0 {
			return "true"
		}
		return "false"
	}
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += ", " + a
	}
	return out
}
