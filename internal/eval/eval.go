package eval

import (
	"math"

	"github.com/entrydsm/formulon/internal/ast"
	"github.com/entrydsm/formulon/internal/ferr"
)

// MaxRecursionDepth bounds the post-order walk; ast.MaxDepth already
// bounds tree shape at construction time, this is a second,
// independent guard against a future AST source that skips the
// factory functions.
const MaxRecursionDepth = 128

// Evaluator walks an AST against a Registry of built-in and
// user-registered functions. An Evaluator is reusable and safe for
// concurrent Eval calls; all mutable state lives in the Registry,
// which guards itself.
type Evaluator struct {
	registry *Registry
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRegistry overrides the default built-in-seeded registry.
func WithRegistry(r *Registry) Option {
	return func(e *Evaluator) { e.registry = r }
}

// New returns an Evaluator seeded with the built-in function set.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{registry: NewRegistry()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the evaluator's function table so callers can
// register additional functions.
func (e *Evaluator) Registry() *Registry { return e.registry }

// Eval evaluates n against env. Security validation (reserved host
// names) runs first, before any node is walked, so a rejected formula
// never touches the registry or the environment.
func (e *Evaluator) Eval(n ast.Node, env Env) (Value, error) {
	if err := Validate(n); err != nil {
		return Value{}, err
	}
	return e.eval(n, env, 0)
}

func (e *Evaluator) eval(n ast.Node, env Env, depth int) (Value, error) {
	if depth > MaxRecursionDepth {
		return Value{}, ferr.New(ferr.DepthExceeded, "evaluation recursion exceeded %d", MaxRecursionDepth)
	}

	switch v := n.(type) {
	case *ast.Number:
		return Number(v.Value), nil

	case *ast.Boolean:
		return Boolean(v.Value), nil

	case *ast.Variable:
		val, ok := env[v.Name]
		if !ok {
			return Value{}, ferr.New(ferr.UndefinedVariable, "undefined variable %q", v.Name)
		}
		if val.Kind() == KindNull {
			// Null is an input placeholder, never a usable value: a
			// null-bound variable fails lookup the same way a missing
			// one does.
			return Value{}, ferr.New(ferr.UndefinedVariable, "variable %q is bound to null", v.Name)
		}
		return val, nil

	case *ast.UnaryOp:
		operand, err := e.eval(v.Operand, env, depth+1)
		if err != nil {
			return Value{}, err
		}
		return evalUnary(v.Operator, operand)

	case *ast.BinaryOp:
		// Strict, non-short-circuiting evaluation: both operands are
		// always evaluated, even for && and ||, so a formula like
		// `false && BAD()` still surfaces BAD()'s error.
		left, err := e.eval(v.Left, env, depth+1)
		if err != nil {
			return Value{}, err
		}
		right, err := e.eval(v.Right, env, depth+1)
		if err != nil {
			return Value{}, err
		}
		return evalBinary(v.Operator, left, right)

	case *ast.If:
		cond, err := e.eval(v.Condition, env, depth+1)
		if err != nil {
			return Value{}, err
		}
		if cond.Kind() != KindBoolean {
			return Value{}, ferr.New(ferr.TypeMismatch, "if condition must be boolean, got %s", cond.Kind())
		}
		if cond.Bool() {
			return e.eval(v.TrueBranch, env, depth+1)
		}
		return e.eval(v.FalseBranch, env, depth+1)

	case *ast.FunctionCall:
		fn, ok := e.registry.Lookup(v.Name)
		if !ok {
			return Value{}, ferr.New(ferr.UnknownFunction, "unknown function %q", v.Name)
		}
		args := make([]Value, len(v.Args))
		for i, a := range v.Args {
			val, err := e.eval(a, env, depth+1)
			if err != nil {
				return Value{}, err
			}
			args[i] = val
		}
		return fn(args)

	default:
		return Value{}, ferr.New(ferr.InvalidASTNode, "cannot evaluate node of kind %s", n.Kind())
	}
}

func evalUnary(op string, operand Value) (Value, error) {
	switch op {
	case "-":
		if operand.Kind() != KindNumber {
			return Value{}, ferr.New(ferr.TypeMismatch, "unary - requires a number, got %s", operand.Kind())
		}
		return Number(-operand.Num()), nil
	case "+":
		if operand.Kind() != KindNumber {
			return Value{}, ferr.New(ferr.TypeMismatch, "unary + requires a number, got %s", operand.Kind())
		}
		return operand, nil
	case "!":
		if operand.Kind() != KindBoolean {
			return Value{}, ferr.New(ferr.TypeMismatch, "! requires a boolean, got %s", operand.Kind())
		}
		return Boolean(!operand.Bool()), nil
	default:
		return Value{}, ferr.New(ferr.InvalidASTNode, "unknown unary operator %q", op)
	}
}

func evalBinary(op string, left, right Value) (Value, error) {
	switch op {
	case "&&", "||":
		if left.Kind() != KindBoolean || right.Kind() != KindBoolean {
			return Value{}, ferr.New(ferr.TypeMismatch, "%s requires booleans, got %s and %s", op, left.Kind(), right.Kind())
		}
		if op == "&&" {
			return Boolean(left.Bool() && right.Bool()), nil
		}
		return Boolean(left.Bool() || right.Bool()), nil

	case "==", "!=":
		if left.Kind() != right.Kind() {
			return Value{}, ferr.New(ferr.TypeMismatch, "cannot compare %s with %s", left.Kind(), right.Kind())
		}
		eq := left.Equal(right)
		if op == "!=" {
			eq = !eq
		}
		return Boolean(eq), nil

	case "<", "<=", ">", ">=":
		if left.Kind() != KindNumber || right.Kind() != KindNumber {
			return Value{}, ferr.New(ferr.TypeMismatch, "%s requires numbers, got %s and %s", op, left.Kind(), right.Kind())
		}
		l, r := left.Num(), right.Num()
		switch op {
		case "<":
			return Boolean(l < r), nil
		case "<=":
			return Boolean(l <= r), nil
		case ">":
			return Boolean(l > r), nil
		default:
			return Boolean(l >= r), nil
		}

	case "+", "-", "*", "/", "%", "^":
		if left.Kind() != KindNumber || right.Kind() != KindNumber {
			return Value{}, ferr.New(ferr.TypeMismatch, "%s requires numbers, got %s and %s", op, left.Kind(), right.Kind())
		}
		l, r := left.Num(), right.Num()
		switch op {
		case "+":
			return Number(l + r), nil
		case "-":
			return Number(l - r), nil
		case "*":
			return Number(l * r), nil
		case "/":
			if r == 0 {
				return Value{}, ferr.New(ferr.DivisionByZero, "division by zero")
			}
			return Number(l / r), nil
		case "%":
			if r == 0 {
				return Value{}, ferr.New(ferr.DivisionByZero, "modulo by zero")
			}
			return Number(math.Mod(l, r)), nil
		default: // "^"
			if l == 0 && r == 0 {
				return Value{}, ferr.New(ferr.DomainError, "0 raised to the power of 0")
			}
			result := math.Pow(l, r)
			if math.IsNaN(result) {
				return Value{}, ferr.New(ferr.DomainError, "%s^%s is not a real number", left.String(), right.String())
			}
			return Number(result), nil
		}

	default:
		return Value{}, ferr.New(ferr.InvalidASTNode, "unknown binary operator %q", op)
	}
}
