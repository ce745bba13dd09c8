// Package parser drives a grammar.StackValue/lrtable.ParsingTable pair
// through the standard shift-reduce-accept loop to turn a token stream
// into an ast.Node. The driver itself is table-agnostic: it never
// special-cases a production, it only pops exactly as many symbols as
// the production's right-hand side and invokes its Build function.
package parser

import (
	"github.com/entrydsm/formulon/internal/ast"
	"github.com/entrydsm/formulon/internal/ferr"
	"github.com/entrydsm/formulon/internal/grammar"
	"github.com/entrydsm/formulon/internal/lexer"
	"github.com/entrydsm/formulon/internal/lrtable"
	"github.com/entrydsm/formulon/internal/token"
)

// Limits on pathological input: a formula that would otherwise drive
// the stack or the step count unbounded fails cleanly instead of
// exhausting memory or looping forever.
const (
	MaxSteps     = 100_000
	MaxStackSize = 1_000
)

// Parser runs the LR(1) driver over a fixed parsing table. A Parser is
// reusable across many Parse calls; it holds no per-parse state.
type Parser struct {
	table *lrtable.ParsingTable
}

// New wraps a built parsing table in a driver.
func New(table *lrtable.ParsingTable) *Parser {
	return &Parser{table: table}
}

// Parse lexes and parses src into a single AST root.
func (p *Parser) Parse(src string, opts ...lexer.Option) (ast.Node, error) {
	lx, err := lexer.New(src, opts...)
	if err != nil {
		return nil, err
	}

	tok, err := lx.Next()
	if err != nil {
		return nil, err
	}

	stateStack := []int{0}
	valueStack := make([]grammar.StackValue, 0, 64)
	parenDepth := 0

	for steps := 0; ; steps++ {
		if steps > MaxSteps {
			return nil, ferr.New(ferr.StepLimitExceeded, "parse exceeded %d steps", MaxSteps)
		}
		if len(stateStack) > MaxStackSize {
			return nil, ferr.New(ferr.StackOverflow, "parse stack exceeded %d entries", MaxStackSize)
		}

		state := stateStack[len(stateStack)-1]
		action := p.table.Lookup(state, tok.Type)

		switch action.Kind {
		case lrtable.ActionShift:
			switch tok.Type {
			case token.LEFT_PAREN:
				parenDepth++
			case token.RIGHT_PAREN:
				parenDepth--
			}
			valueStack = append(valueStack, grammar.FromToken(tok))
			stateStack = append(stateStack, action.State)
			tok, err = lx.Next()
			if err != nil {
				return nil, err
			}

		case lrtable.ActionReduce:
			prod := p.table.Productions[action.Prod]
			n := len(prod.Right)

			popped := append([]grammar.StackValue{}, valueStack[len(valueStack)-n:]...)
			valueStack = valueStack[:len(valueStack)-n]
			stateStack = stateStack[:len(stateStack)-n]

			node, err := prod.Build(popped)
			if err != nil {
				return nil, err
			}
			valueStack = append(valueStack, grammar.FromNode(node))

			top := stateStack[len(stateStack)-1]
			next, ok := p.table.LookupGoto(top, prod.Left)
			if !ok {
				return nil, ferr.New(ferr.GrammarConflict, "no GOTO entry for state %d on %s", top, prod.Left)
			}
			stateStack = append(stateStack, next)

		case lrtable.ActionAccept:
			if len(valueStack) != 1 {
				return nil, ferr.New(ferr.GrammarConflict, "accept reached with %d values on the stack", len(valueStack))
			}
			return valueStack[0].Node, nil

		default:
			if tok.Type == token.RIGHT_PAREN && parenDepth == 0 {
				return nil, ferr.AtToken(ferr.UnbalancedParentheses, tok, "unmatched closing parenthesis")
			}
			if tok.Type == token.DOLLAR {
				if parenDepth > 0 {
					return nil, ferr.AtToken(ferr.UnbalancedParentheses, tok, "missing closing parenthesis")
				}
				return nil, ferr.AtToken(ferr.UnexpectedEndOfInput, tok, "unexpected end of input")
			}
			return nil, ferr.AtToken(ferr.UnexpectedToken, tok, "unexpected token %s", tok.Type)
		}
	}
}

// Parse builds a one-shot Parser over table and parses src; a
// convenience wrapper for callers that don't reuse the table across
// many parses themselves.
func Parse(table *lrtable.ParsingTable, src string, opts ...lexer.Option) (ast.Node, error) {
	return New(table).Parse(src, opts...)
}
