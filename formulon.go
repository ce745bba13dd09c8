// Package formulon is the external boundary of the expression engine:
// compile-and-run a single formula, run an ordered multi-step
// calculation over a shared variable environment, or build a parsing
// table once at startup and reuse it across many Engine instances.
// The root package re-exports the internal result types and wraps
// construction behind a handful of top-level functions so callers
// never reach into internal/*.
package formulon

import (
	"context"

	"github.com/entrydsm/formulon/internal/ast"
	"github.com/entrydsm/formulon/internal/calc"
	"github.com/entrydsm/formulon/internal/diagnostics"
	"github.com/entrydsm/formulon/internal/eval"
	"github.com/entrydsm/formulon/internal/ferr"
	"github.com/entrydsm/formulon/internal/grammar"
	"github.com/entrydsm/formulon/internal/lrtable"
)

// Re-exported types so callers never need to import internal/*
// themselves.
type (
	Value        = eval.Value
	Env          = eval.Env
	Func         = eval.Func
	Kind         = eval.Kind
	ParsingTable = lrtable.ParsingTable
	Step         = calc.Step
	StepResult   = calc.StepResult
	Report       = diagnostics.Report
)

// Value kind tags, re-exported for callers branching on a Value's Kind.
const (
	KindNumber  = eval.KindNumber
	KindBoolean = eval.KindBoolean
	KindString  = eval.KindString
	KindNull    = eval.KindNull
)

// Value constructors, re-exported for callers building an input
// environment without importing internal/eval.
var (
	Number  = eval.Number
	Boolean = eval.Boolean
	String  = eval.String
	Null    = eval.Null
)

// BuildParsingTable compiles g into a ParsingTable. One-time cost; the
// result is safe to share across goroutines and across every Engine
// built from it. Fails with a grammar-conflict error if g is not
// LR(1)-resolvable under its declared precedence table.
func BuildParsingTable(g *grammar.Grammar) (*ParsingTable, error) {
	return lrtable.BuildParsingTable(g)
}

// DefaultGrammar returns the grammar this engine ships with. Most
// callers only ever need BuildParsingTable(DefaultGrammar()).
func DefaultGrammar() *grammar.Grammar {
	return grammar.Default()
}

// Engine evaluates formulas and multi-step calculations against a
// fixed ParsingTable.
type Engine struct {
	calc *calc.Calculator
}

// EngineOption configures an Engine at construction.
type EngineOption func(*calc.Calculator)

// WithCacheCapacity overrides the default bounded compiled-formula
// cache size.
func WithCacheCapacity(n int) EngineOption {
	return EngineOption(calc.WithCacheCapacity(n))
}

// NewEngine returns an Engine over table.
func NewEngine(table *ParsingTable, opts ...EngineOption) *Engine {
	calcOpts := make([]calc.Option, len(opts))
	for i, o := range opts {
		calcOpts[i] = calc.Option(o)
	}
	return &Engine{calc: calc.New(table, calcOpts...)}
}

// RegisterFunction extends the engine's function registry with a
// user-supplied implementation of fixed arity (pass a negative arity
// for a variadic function that checks its own argument count). Must be
// called before any Calculate or CalculateMultiStep call that
// references name; reserved built-in and host-level names are
// rejected.
func (e *Engine) RegisterFunction(name string, arity int, fn Func) error {
	impl := fn
	if arity >= 0 {
		impl = func(args []Value) (Value, error) {
			if len(args) != arity {
				return Value{}, ferr.New(ferr.ArityMismatch, "%s expects %d argument(s), got %d", name, arity, len(args))
			}
			return fn(args)
		}
	}
	return e.calc.Evaluator().Registry().RegisterFunction(name, impl)
}

// Calculate evaluates formula against variables and returns its value.
func (e *Engine) Calculate(formula string, variables Env) (Value, error) {
	return e.calc.Calculate(formula, variables)
}

// CalculateMultiStep runs steps in order over initialVariables,
// returning every step's result plus the final accumulated
// environment. A failing step aborts the sequence with a StepFailure
// error naming the offending step index.
func (e *Engine) CalculateMultiStep(ctx context.Context, initialVariables Env, steps []Step) ([]StepResult, Env, error) {
	return e.calc.CalculateSteps(ctx, steps, initialVariables)
}

// Diagnostics reports the engine's parsing table shape: state count,
// action/goto entry counts, conflict-resolution count, and the
// sparse/dense load factor. Intended for operational visibility, not
// for any decision the engine itself makes.
func (e *Engine) Diagnostics(table *ParsingTable) Report {
	return diagnostics.BuildReport(table)
}

// IsValidIdentifier reports whether name is a legal variable or
// result-binding name under this engine's grammar.
func IsValidIdentifier(name string) bool {
	return ast.IsValidIdentifier(name)
}
