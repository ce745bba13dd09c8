package formulon_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrydsm/formulon"
)

func mustEngine(t *testing.T) *formulon.Engine {
	t.Helper()
	tbl, err := formulon.BuildParsingTable(formulon.DefaultGrammar())
	require.NoError(t, err, "BuildParsingTable")
	return formulon.NewEngine(tbl)
}

func TestEngineCalculate(t *testing.T) {
	e := mustEngine(t)
	got, err := e.Calculate("2 * (3 + 4)", formulon.Env{"unused": formulon.Number(0)})
	require.NoError(t, err)
	assert.True(t, got.Equal(formulon.Number(14)), "Calculate = %s, want 14", got)
}

func TestEngineCalculateMultiStep(t *testing.T) {
	e := mustEngine(t)
	steps := []formulon.Step{
		{Name: "subtotal", Formula: "price * quantity"},
		{Name: "total", Formula: "subtotal * 1.1"},
	}
	results, env, err := e.CalculateMultiStep(context.Background(), formulon.Env{
		"price": formulon.Number(10), "quantity": formulon.Number(3),
	}, steps)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, env["total"].Equal(formulon.Number(33)), "env[total] = %s, want 33", env["total"])
}

func TestEngineRegisterFunction(t *testing.T) {
	e := mustEngine(t)
	err := e.RegisterFunction("DOUBLE", 1, func(args []formulon.Value) (formulon.Value, error) {
		return formulon.Number(args[0].Num() * 2), nil
	})
	require.NoError(t, err)

	got, err := e.Calculate("DOUBLE(21)", nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(formulon.Number(42)), "Calculate(DOUBLE(21)) = %s, want 42", got)

	_, err = e.Calculate("DOUBLE(1, 2)", nil)
	require.Error(t, err, "registered arity must be enforced")
}

func TestEngineDiagnostics(t *testing.T) {
	tbl, err := formulon.BuildParsingTable(formulon.DefaultGrammar())
	require.NoError(t, err)
	e := formulon.NewEngine(tbl)
	report := e.Diagnostics(tbl)
	assert.Greater(t, report.States, 0)
	assert.Greater(t, report.LoadFactor, 0.0)
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, formulon.IsValidIdentifier("total_1"))
	assert.False(t, formulon.IsValidIdentifier("1bad"))
}
