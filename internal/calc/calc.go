// Package calc runs formulas — single ones and ordered multi-step
// sequences that thread a growing variable environment between steps
// — against a fixed parsing table and evaluator. Step execution is
// sequential and cancellation-checked: a step's result both feeds the
// next step's environment and is returned to the caller.
package calc

import (
	"context"

	"github.com/entrydsm/formulon/internal/ast"
	"github.com/entrydsm/formulon/internal/eval"
	"github.com/entrydsm/formulon/internal/ferr"
	"github.com/entrydsm/formulon/internal/lexer"
	"github.com/entrydsm/formulon/internal/lrtable"
	"github.com/entrydsm/formulon/internal/optimizer"
	"github.com/entrydsm/formulon/internal/parser"
)

// Multi-step request limits checked before the first step runs.
const (
	MaxSteps        = 50
	MaxFormulaBytes = 5_000
	MaxVariables    = 100
)

// ResultVariable is the implicit binding every step's value is stored
// under, so the following step can refer to "result" without the
// caller having to name every intermediate.
const ResultVariable = "result"

// Step is one formula in a multi-step calculation. Name, if non-empty,
// additionally binds the step's value under that name for later steps
// to reference by its own identifier instead of (or in addition to)
// "result".
type Step struct {
	Name    string
	Formula string
}

// StepResult is what one step produced.
type StepResult struct {
	Name  string
	Value eval.Value
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithCacheCapacity overrides the default bounded AST cache size.
func WithCacheCapacity(n int) Option {
	return func(c *Calculator) { c.cache = newASTCache(n) }
}

// WithEvaluator overrides the default evaluator, e.g. to supply one
// seeded with extra registered functions.
func WithEvaluator(e *eval.Evaluator) Option {
	return func(c *Calculator) { c.eval = e }
}

// Calculator parses, optimizes, caches, and evaluates formulas against
// a fixed parsing table.
type Calculator struct {
	table *lrtable.ParsingTable
	eval  *eval.Evaluator
	cache *astCache
}

// New returns a Calculator over table.
func New(table *lrtable.ParsingTable, opts ...Option) *Calculator {
	c := &Calculator{
		table: table,
		eval:  eval.New(),
		cache: newASTCache(DefaultCacheCapacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluator exposes the calculator's evaluator so callers can register
// additional functions.
func (c *Calculator) Evaluator() *eval.Evaluator { return c.eval }

// compile returns formula's optimized AST, parsing and optimizing it
// on a cache miss.
func (c *Calculator) compile(formula string, opts ...lexer.Option) (ast.Node, error) {
	if node, ok := c.cache.get(formula); ok {
		return node, nil
	}

	node, err := parser.Parse(c.table, formula, opts...)
	if err != nil {
		return nil, err
	}
	node, err = optimizer.Optimize(node)
	if err != nil {
		return nil, err
	}

	c.cache.put(formula, node)
	return node, nil
}

// Calculate evaluates a single formula against env.
func (c *Calculator) Calculate(formula string, env eval.Env) (eval.Value, error) {
	node, err := c.compile(formula)
	if err != nil {
		return eval.Value{}, err
	}
	return c.eval.Eval(node, env)
}

// CalculateSteps runs steps in order, threading a shared environment:
// each step sees every prior step's bindings plus ResultVariable bound
// to the immediately preceding step's value. It returns the per-step
// results and the final environment. A step that fails aborts the
// whole sequence and returns a ferr.StepFailure wrapping the
// underlying cause with the 1-based step index and formula text.
func (c *Calculator) CalculateSteps(ctx context.Context, steps []Step, env eval.Env) ([]StepResult, eval.Env, error) {
	if err := validateMultiStepRequest(steps, env); err != nil {
		return nil, env, err
	}

	working := make(eval.Env, len(env)+len(steps))
	for k, v := range env {
		working[k] = v
	}

	results := make([]StepResult, 0, len(steps))
	for i, step := range steps {
		select {
		case <-ctx.Done():
			return results, working, ctx.Err()
		default:
		}

		val, err := c.Calculate(step.Formula, working)
		if err != nil {
			return results, working, ferr.Step(i+1, step.Formula, err)
		}

		working[ResultVariable] = val
		if step.Name != "" {
			working[step.Name] = val
		}
		results = append(results, StepResult{Name: step.Name, Value: val})
	}

	return results, working, nil
}

// validateMultiStepRequest enforces the request-shape limits on a
// multi-step calculation before any step runs, so a malformed request
// fails fast instead of partway through a sequence of side-effecting
// cache fills. None of the closed ferr.Kind values name a request-shape
// violation directly; step-count is reported as StepLimitExceeded (the
// closest existing kind — it already means "too many steps"), formula
// length and variable count as SizeExceeded (both are simple bounds on
// a size), and a malformed result name as InvalidASTNode, since
// ast.IsValidIdentifier is the exact shape check the AST factory itself
// applies to a Variable name.
func validateMultiStepRequest(steps []Step, env eval.Env) error {
	if len(steps) < 1 || len(steps) > MaxSteps {
		return ferr.New(ferr.StepLimitExceeded, "request must have between 1 and %d steps, got %d", MaxSteps, len(steps))
	}
	if len(env) > MaxVariables {
		return ferr.New(ferr.SizeExceeded, "request must have at most %d variables, got %d", MaxVariables, len(env))
	}
	for i, step := range steps {
		if len(step.Formula) > MaxFormulaBytes {
			return ferr.Step(i+1, step.Formula, ferr.New(ferr.SizeExceeded, "formula must be at most %d bytes, got %d", MaxFormulaBytes, len(step.Formula)))
		}
		if step.Name != "" && !ast.IsValidIdentifier(step.Name) {
			return ferr.Step(i+1, step.Formula, ferr.New(ferr.InvalidASTNode, "result variable name %q is not a valid identifier", step.Name))
		}
	}
	return nil
}

// CacheLen reports how many distinct formulas currently have a cached
// AST; exposed for diagnostics and tests, not for cache management.
func (c *Calculator) CacheLen() int { return c.cache.Len() }
