package eval_test

import (
	"testing"

	"github.com/entrydsm/formulon/internal/eval"
	"github.com/entrydsm/formulon/internal/ferr"
	"github.com/entrydsm/formulon/internal/grammar"
	"github.com/entrydsm/formulon/internal/lrtable"
	"github.com/entrydsm/formulon/internal/parser"
)

func mustEval(t *testing.T, src string, env eval.Env) (eval.Value, error) {
	t.Helper()
	tbl, err := lrtable.BuildParsingTable(grammar.Default())
	if err != nil {
		t.Fatalf("BuildParsingTable: %v", err)
	}
	node, err := parser.Parse(tbl, src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return eval.New().Eval(node, env)
}

func TestEvalArithmeticAndFunctions(t *testing.T) {
	cases := []struct {
		src  string
		env  eval.Env
		want eval.Value
	}{
		{"1 + 2 * 3", nil, eval.Number(7)},
		{"2 ^ 3 ^ 2", nil, eval.Number(512)},
		{"if(a > b, a, b)", eval.Env{"a": eval.Number(3), "b": eval.Number(5)}, eval.Number(5)},
		{"MIN(1, 2, 3) + MAX(4, 5, 6)", nil, eval.Number(7)},
		{"SQRT(16)", nil, eval.Number(4)},
		{"ROUND(3.14159, 2)", nil, eval.Number(3.14)},
	}
	for _, c := range cases {
		got, err := mustEval(t, c.src, c.env)
		if err != nil {
			t.Fatalf("Eval(%q): %v", c.src, err)
		}
		if !got.Equal(c.want) {
			t.Errorf("Eval(%q) = %s, want %s", c.src, got, c.want)
		}
	}
}

func TestEvalErrorKinds(t *testing.T) {
	cases := []struct {
		src  string
		env  eval.Env
		kind ferr.Kind
	}{
		{"x / 0", eval.Env{"x": eval.Number(1)}, ferr.DivisionByZero},
		{"SQRT(-1)", nil, ferr.DomainError},
		{"0 ^ 0", nil, ferr.DomainError},
		{"undefined_var + 1", nil, ferr.UndefinedVariable},
		{"1 + true", nil, ferr.TypeMismatch},
		{"NOPE(1)", nil, ferr.UnknownFunction},
		{"ABS(1, 2)", nil, ferr.ArityMismatch},
	}

	for _, c := range cases {
		_, err := mustEval(t, c.src, c.env)
		if err == nil {
			t.Fatalf("Eval(%q): expected error, got nil", c.src)
		}
		if !ferr.Is(err, c.kind) {
			t.Errorf("Eval(%q): expected kind %s, got %v", c.src, c.kind, err)
		}
	}
}

func TestEvalNullBindingFailsLookup(t *testing.T) {
	// Null is a placeholder, not a value: a null-bound variable must
	// fail at the lookup site, not leak into an operator as a type
	// mismatch.
	_, err := mustEval(t, "x + 1", eval.Env{"x": eval.Null()})
	if !ferr.Is(err, ferr.UndefinedVariable) {
		t.Fatalf("expected UndefinedVariable for a null-bound variable, got %v", err)
	}

	got, err := mustEval(t, "if(true, 1, x)", eval.Env{"x": eval.Null()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(eval.Number(1)) {
		t.Errorf("got %s, want 1 (null binding in the dead branch must not matter)", got)
	}
}

func TestConditionalFunctionFormShortCircuits(t *testing.T) {
	// IF in any casing is the same conditional form as the lowercase
	// `if` keyword: only the selected branch evaluates.
	cases := []struct {
		src  string
		want eval.Value
	}{
		{"IF(true, 1, 1/0)", eval.Number(1)},
		{"If(false, 1/0, 2)", eval.Number(2)},
		{"iF(1 < 2, 10, undefined_var)", eval.Number(10)},
	}
	for _, c := range cases {
		got, err := mustEval(t, c.src, nil)
		if err != nil {
			t.Fatalf("Eval(%q): %v", c.src, err)
		}
		if !got.Equal(c.want) {
			t.Errorf("Eval(%q) = %s, want %s", c.src, got, c.want)
		}
	}
}

func TestConditionalFunctionFormRequiresThreeArguments(t *testing.T) {
	tbl, err := lrtable.BuildParsingTable(grammar.Default())
	if err != nil {
		t.Fatalf("BuildParsingTable: %v", err)
	}
	_, err = parser.Parse(tbl, "IF(1, 2)")
	if !ferr.Is(err, ferr.ArityMismatch) {
		t.Fatalf("expected ArityMismatch for IF with 2 arguments, got %v", err)
	}
}

func TestEvalStrictBooleanEvaluatesBothOperands(t *testing.T) {
	// Non-short-circuit: the right side's undefined variable must
	// surface even though the left side alone already determines the
	// logical result.
	_, err := mustEval(t, "false && undefined_var", nil)
	if !ferr.Is(err, ferr.UndefinedVariable) {
		t.Fatalf("expected undefined variable error to propagate through &&, got %v", err)
	}
}

func TestRegisterFunctionRejectsReservedNames(t *testing.T) {
	e := eval.New()
	err := e.Registry().RegisterFunction("SUM", func(args []eval.Value) (eval.Value, error) {
		return eval.Number(0), nil
	})
	if !ferr.Is(err, ferr.SecurityViolation) {
		t.Fatalf("expected SecurityViolation overriding a built-in, got %v", err)
	}
}

func TestRegisterFunctionRejectsConditionalName(t *testing.T) {
	e := eval.New()
	err := e.Registry().RegisterFunction("IF", func(args []eval.Value) (eval.Value, error) {
		return eval.Number(0), nil
	})
	if !ferr.Is(err, ferr.SecurityViolation) {
		t.Fatalf("expected SecurityViolation registering IF, got %v", err)
	}
}

func TestRegisterFunctionRejectsReservedHostNames(t *testing.T) {
	e := eval.New()
	err := e.Registry().RegisterFunction("eval", func(args []eval.Value) (eval.Value, error) {
		return eval.Number(0), nil
	})
	if !ferr.Is(err, ferr.SecurityViolation) {
		t.Fatalf("expected SecurityViolation registering a reserved host name, got %v", err)
	}
}

func TestEvalRejectsReservedVariableAndFunctionNames(t *testing.T) {
	cases := []string{"eval + 1", "EXEC()", "system"}
	for _, src := range cases {
		_, err := mustEval(t, src, eval.Env{"eval": eval.Number(1), "system": eval.Number(1)})
		if !ferr.Is(err, ferr.SecurityViolation) {
			t.Errorf("Eval(%q): expected SecurityViolation, got %v", src, err)
		}
	}
}

func TestRegisterFunctionAddsCustomFunction(t *testing.T) {
	e := eval.New()
	if err := e.Registry().RegisterFunction("DOUBLE", func(args []eval.Value) (eval.Value, error) {
		return eval.Number(args[0].Num() * 2), nil
	}); err != nil {
		t.Fatalf("RegisterFunction: %v", err)
	}

	tbl, err := lrtable.BuildParsingTable(grammar.Default())
	if err != nil {
		t.Fatalf("BuildParsingTable: %v", err)
	}
	node, err := parser.Parse(tbl, "DOUBLE(21)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := e.Eval(node, nil)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !got.Equal(eval.Number(42)) {
		t.Errorf("Eval(DOUBLE(21)) = %s, want 42", got)
	}
}
