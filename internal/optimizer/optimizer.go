// Package optimizer rewrites an AST into an equivalent, simpler one:
// constant folding, identity simplification, double-negation removal,
// and conditional folding. Rules preserve the value of the expression
// in every environment where the original evaluates successfully.
// Constant folding never folds an operation that would itself error
// (division or modulo by zero, 0^0): it stays in the tree so evaluation
// raises it. The absorber (x*0), self-cancellation (x-x) and
// equal-branch if rules drop a subexpression without evaluating it, so
// an error inside that subexpression is not kept.
//
// Rewriting is bottom-up and runs to a fixed point, capped at
// MaxPasses so a pathological rewrite sequence can't loop forever.
package optimizer

import (
	"math"

	"github.com/entrydsm/formulon/internal/ast"
)

// MaxPasses bounds the fixed-point loop.
const MaxPasses = 100

// Optimize rewrites n to a fixed point and returns the result. It
// never changes what a successful evaluation of n would produce; where
// evaluating n would fail, the optimized tree may fail differently or
// not at all (see the package comment).
func Optimize(n ast.Node) (ast.Node, error) {
	cur := n
	for i := 0; i < MaxPasses; i++ {
		next, changed, err := rewrite(cur)
		if err != nil {
			return nil, err
		}
		if !changed {
			return next, nil
		}
		cur = next
	}
	return cur, nil
}

func rewrite(n ast.Node) (ast.Node, bool, error) {
	switch v := n.(type) {
	case *ast.Number, *ast.Boolean, *ast.Variable:
		return n, false, nil

	case *ast.BinaryOp:
		left, lc, err := rewrite(v.Left)
		if err != nil {
			return nil, false, err
		}
		right, rc, err := rewrite(v.Right)
		if err != nil {
			return nil, false, err
		}
		node := v
		if lc || rc {
			node, err = ast.NewBinaryOp(left, v.Operator, right)
			if err != nil {
				return nil, false, err
			}
		}
		simplified, sc, err := simplifyBinary(node)
		if err != nil {
			return nil, false, err
		}
		return simplified, lc || rc || sc, nil

	case *ast.UnaryOp:
		operand, oc, err := rewrite(v.Operand)
		if err != nil {
			return nil, false, err
		}
		node := v
		if oc {
			node, err = ast.NewUnaryOp(v.Operator, operand)
			if err != nil {
				return nil, false, err
			}
		}
		simplified, sc, err := simplifyUnary(node)
		if err != nil {
			return nil, false, err
		}
		return simplified, oc || sc, nil

	case *ast.If:
		cond, cc, err := rewrite(v.Condition)
		if err != nil {
			return nil, false, err
		}
		t, tc, err := rewrite(v.TrueBranch)
		if err != nil {
			return nil, false, err
		}
		f, fc, err := rewrite(v.FalseBranch)
		if err != nil {
			return nil, false, err
		}
		if b, ok := cond.(*ast.Boolean); ok {
			if b.Value {
				return t, true, nil
			}
			return f, true, nil
		}
		if t.Equal(f) {
			// Both branches produce the same tree regardless of the
			// condition's outcome.
			return t, true, nil
		}
		changed := cc || tc || fc
		node := v
		if changed {
			node, err = ast.NewIf(cond, t, f)
			if err != nil {
				return nil, false, err
			}
		}
		return node, changed, nil

	case *ast.FunctionCall:
		changed := false
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			rewritten, ac, err := rewrite(a)
			if err != nil {
				return nil, false, err
			}
			args[i] = rewritten
			changed = changed || ac
		}
		if !changed {
			return v, false, nil
		}
		node, err := ast.NewFunctionCall(v.Name, args)
		if err != nil {
			return nil, false, err
		}
		return node, true, nil

	default:
		return n, false, nil
	}
}

// simplifyBinary applies constant folding, then — only if folding
// didn't apply — the identity rules that keep the potentially-erroring
// operand in the tree.
func simplifyBinary(b *ast.BinaryOp) (ast.Node, bool, error) {
	if folded, ok, err := foldConstantBinary(b); ok || err != nil {
		return folded, ok, err
	}
	if b.Operator == "-" && b.Left.Equal(b.Right) {
		return newNumber(0)
	}
	return identitySimplifyBinary(b)
}

func foldConstantBinary(b *ast.BinaryOp) (ast.Node, bool, error) {
	ln, lok := b.Left.(*ast.Number)
	rn, rok := b.Right.(*ast.Number)
	if lok && rok {
		return foldNumberBinary(ln.Value, b.Operator, rn.Value)
	}

	lb, lbok := b.Left.(*ast.Boolean)
	rb, rbok := b.Right.(*ast.Boolean)
	if lbok && rbok {
		return foldBooleanBinary(lb.Value, b.Operator, rb.Value)
	}

	return nil, false, nil
}

func foldNumberBinary(l float64, op string, r float64) (ast.Node, bool, error) {
	var result float64
	switch op {
	case "+":
		result = l + r
	case "-":
		result = l - r
	case "*":
		result = l * r
	case "/":
		if r == 0 {
			return nil, false, nil // preserve ferr.DivisionByZero at eval time
		}
		result = l / r
	case "%":
		if r == 0 {
			return nil, false, nil
		}
		result = math.Mod(l, r)
	case "^":
		if l == 0 && r == 0 {
			return nil, false, nil // preserve ferr.DomainError at eval time
		}
		result = math.Pow(l, r)
		if math.IsNaN(result) || math.IsInf(result, 0) {
			return nil, false, nil // fractional power of a negative base, overflow, etc.
		}
	case "==":
		return ast.NewBoolean(l == r), true, nil
	case "!=":
		return ast.NewBoolean(l != r), true, nil
	case "<":
		return ast.NewBoolean(l < r), true, nil
	case "<=":
		return ast.NewBoolean(l <= r), true, nil
	case ">":
		return ast.NewBoolean(l > r), true, nil
	case ">=":
		return ast.NewBoolean(l >= r), true, nil
	default:
		return nil, false, nil
	}
	n, err := ast.NewNumber(result)
	if err != nil {
		return nil, false, nil
	}
	return n, true, nil
}

func foldBooleanBinary(l bool, op string, r bool) (ast.Node, bool, error) {
	switch op {
	case "&&":
		return ast.NewBoolean(l && r), true, nil
	case "||":
		return ast.NewBoolean(l || r), true, nil
	case "==":
		return ast.NewBoolean(l == r), true, nil
	case "!=":
		return ast.NewBoolean(l != r), true, nil
	default:
		return nil, false, nil
	}
}

// identitySimplifyBinary rewrites b to one of its operands when the
// other operand is a literal identity element, or to a constant when
// the literal is an absorber (x*0, 1^x). Absorbers drop the other
// operand entirely, which keeps the value wherever the original
// evaluates successfully.
func identitySimplifyBinary(b *ast.BinaryOp) (ast.Node, bool, error) {
	if n, ok := b.Right.(*ast.Number); ok {
		switch {
		case (b.Operator == "+" || b.Operator == "-") && n.Value == 0:
			return b.Left, true, nil
		case (b.Operator == "*" || b.Operator == "/") && n.Value == 1:
			return b.Left, true, nil
		case b.Operator == "*" && n.Value == 0:
			return newNumber(0)
		case b.Operator == "^" && n.Value == 0:
			if ln, ok := b.Left.(*ast.Number); ok && ln.Value == 0 {
				// Literal 0^0: preserved so evaluation raises its
				// domain error (foldConstantBinary declined it too).
				return b, false, nil
			}
			return newNumber(1)
		case b.Operator == "^" && n.Value == 1:
			return b.Left, true, nil
		}
	}
	if n, ok := b.Left.(*ast.Number); ok {
		switch {
		case b.Operator == "+" && n.Value == 0:
			return b.Right, true, nil
		case b.Operator == "-" && n.Value == 0:
			neg, err := ast.NewUnaryOp("-", b.Right)
			if err != nil {
				return nil, false, err
			}
			return neg, true, nil
		case b.Operator == "*" && n.Value == 1:
			return b.Right, true, nil
		case b.Operator == "*" && n.Value == 0:
			return newNumber(0)
		case b.Operator == "^" && n.Value == 1:
			return newNumber(1)
		}
	}
	if bl, ok := b.Right.(*ast.Boolean); ok {
		switch {
		case b.Operator == "&&" && bl.Value:
			return b.Left, true, nil
		case b.Operator == "||" && !bl.Value:
			return b.Left, true, nil
		}
	}
	if bl, ok := b.Left.(*ast.Boolean); ok {
		switch {
		case b.Operator == "&&" && bl.Value:
			return b.Right, true, nil
		case b.Operator == "||" && !bl.Value:
			return b.Right, true, nil
		}
	}
	return b, false, nil
}

// newNumber adapts the two-value factory to the three-value rule
// signature.
func newNumber(v float64) (ast.Node, bool, error) {
	n, err := ast.NewNumber(v)
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

func simplifyUnary(u *ast.UnaryOp) (ast.Node, bool, error) {
	switch n := u.Operand.(type) {
	case *ast.Number:
		switch u.Operator {
		case "-":
			return newNumber(-n.Value)
		case "+":
			return n, true, nil
		}
	case *ast.Boolean:
		if u.Operator == "!" {
			return ast.NewBoolean(!n.Value), true, nil
		}
	case *ast.UnaryOp:
		// Double negation: --x -> x, !!x -> x. Safe because x is kept,
		// never dropped.
		if n.Operator == u.Operator && (u.Operator == "-" || u.Operator == "!") {
			return n.Operand, true, nil
		}
	}
	return u, false, nil
}
