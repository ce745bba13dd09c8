package grammar

import (
	"strconv"
	"strings"

	"github.com/entrydsm/formulon/internal/ast"
	"github.com/entrydsm/formulon/internal/ferr"
	"github.com/entrydsm/formulon/internal/token"
)

// passthrough is the AST-builder for unit productions (A -> B) that
// simply forward the single child fragment unchanged.
func passthrough(vals []StackValue) (ast.Node, error) {
	return vals[0].Node, nil
}

func binary(op string) BuildFunc {
	return func(vals []StackValue) (ast.Node, error) {
		return ast.NewBinaryOp(vals[0].Node, op, vals[2].Node)
	}
}

func unary(op string) BuildFunc {
	return func(vals []StackValue) (ast.Node, error) {
		return ast.NewUnaryOp(op, vals[1].Node)
	}
}

func parenthesized(vals []StackValue) (ast.Node, error) {
	return vals[1].Node, nil
}

func atomNumber(vals []StackValue) (ast.Node, error) {
	v, err := strconv.ParseFloat(vals[0].Tok.Lexeme, 64)
	if err != nil {
		return nil, ferr.AtToken(ferr.InvalidNumberFormat, vals[0].Tok, "%q is not a valid number", vals[0].Tok.Lexeme)
	}
	return ast.NewNumber(v)
}

func atomBoolean(vals []StackValue) (ast.Node, error) {
	return ast.NewBoolean(vals[0].Tok.Lexeme == "true"), nil
}

func atomVariable(vals []StackValue) (ast.Node, error) {
	return ast.NewVariable(vals[0].Tok.Lexeme)
}

func functionCall(vals []StackValue) (ast.Node, error) {
	name := vals[0].Tok.Lexeme
	args, _ := vals[2].Node.(*ast.Arguments)
	var list []ast.Node
	if args != nil {
		list = args.List
	}
	// Function names resolve case-insensitively, so IF(c, t, f) in any
	// casing is the conditional form and must build the same If node
	// the lowercase `if` keyword path builds — the selected branch is
	// evaluated lazily, which a pre-evaluated-args function cannot do.
	if strings.EqualFold(name, "if") {
		if len(list) != 3 {
			return nil, ferr.AtToken(ferr.ArityMismatch, vals[0].Tok, "if expects 3 arguments, got %d", len(list))
		}
		return ast.NewIf(list[0], list[1], list[2])
	}
	return ast.NewFunctionCall(name, list)
}

func emptyArguments(vals []StackValue) (ast.Node, error) {
	return ast.NewArguments(nil), nil
}

func argumentsFromList(vals []StackValue) (ast.Node, error) {
	return vals[0].Node, nil
}

func firstArgument(vals []StackValue) (ast.Node, error) {
	return ast.NewArguments([]ast.Node{vals[0].Node}), nil
}

func appendArgument(vals []StackValue) (ast.Node, error) {
	prev := vals[0].Node.(*ast.Arguments)
	return ast.NewArguments(append(append([]ast.Node{}, prev.List...), vals[2].Node)), nil
}

func conditional(vals []StackValue) (ast.Node, error) {
	return ast.NewIf(vals[2].Node, vals[4].Node, vals[6].Node)
}

// Operator precedence keys. Unary operators get a distinct key from
// their binary namesakes since they sit at a different precedence
// level.
const (
	precOr       = "||"
	precAnd      = "&&"
	precEq       = "=="
	precNeq      = "!="
	precLt       = "<"
	precLeq      = "<="
	precGt       = ">"
	precGeq      = ">="
	precAdd      = "+"
	precSub      = "-"
	precMul      = "*"
	precDiv      = "/"
	precMod      = "%"
	precUnaryPos = "u+"
	precUnaryNeg = "u-"
	precUnaryNot = "u!"
	precPow      = "^"
)

// Default returns the static grammar for the formula language.
func Default() *Grammar {
	prods := []Production{
		{Left: token.START, Right: []token.Type{token.EXPR}, Build: passthrough},

		{Left: token.EXPR, Right: []token.Type{token.EXPR, token.OR, token.AND_EXPR}, Build: binary("||"), Operator: precOr},
		{Left: token.EXPR, Right: []token.Type{token.AND_EXPR}, Build: passthrough},

		{Left: token.AND_EXPR, Right: []token.Type{token.AND_EXPR, token.AND, token.EQUALITY_EXPR}, Build: binary("&&"), Operator: precAnd},
		{Left: token.AND_EXPR, Right: []token.Type{token.EQUALITY_EXPR}, Build: passthrough},

		{Left: token.EQUALITY_EXPR, Right: []token.Type{token.EQUALITY_EXPR, token.EQUAL, token.RELATIONAL_EXPR}, Build: binary("=="), Operator: precEq},
		{Left: token.EQUALITY_EXPR, Right: []token.Type{token.EQUALITY_EXPR, token.NOT_EQUAL, token.RELATIONAL_EXPR}, Build: binary("!="), Operator: precNeq},
		{Left: token.EQUALITY_EXPR, Right: []token.Type{token.RELATIONAL_EXPR}, Build: passthrough},

		{Left: token.RELATIONAL_EXPR, Right: []token.Type{token.RELATIONAL_EXPR, token.LESS, token.ADDITIVE_EXPR}, Build: binary("<"), Operator: precLt},
		{Left: token.RELATIONAL_EXPR, Right: []token.Type{token.RELATIONAL_EXPR, token.LESS_EQUAL, token.ADDITIVE_EXPR}, Build: binary("<="), Operator: precLeq},
		{Left: token.RELATIONAL_EXPR, Right: []token.Type{token.RELATIONAL_EXPR, token.GREATER, token.ADDITIVE_EXPR}, Build: binary(">"), Operator: precGt},
		{Left: token.RELATIONAL_EXPR, Right: []token.Type{token.RELATIONAL_EXPR, token.GREATER_EQUAL, token.ADDITIVE_EXPR}, Build: binary(">="), Operator: precGeq},
		{Left: token.RELATIONAL_EXPR, Right: []token.Type{token.ADDITIVE_EXPR}, Build: passthrough},

		{Left: token.ADDITIVE_EXPR, Right: []token.Type{token.ADDITIVE_EXPR, token.PLUS, token.MULTIPLICATIVE_EXPR}, Build: binary("+"), Operator: precAdd},
		{Left: token.ADDITIVE_EXPR, Right: []token.Type{token.ADDITIVE_EXPR, token.MINUS, token.MULTIPLICATIVE_EXPR}, Build: binary("-"), Operator: precSub},
		{Left: token.ADDITIVE_EXPR, Right: []token.Type{token.MULTIPLICATIVE_EXPR}, Build: passthrough},

		{Left: token.MULTIPLICATIVE_EXPR, Right: []token.Type{token.MULTIPLICATIVE_EXPR, token.MULTIPLY, token.UNARY_EXPR}, Build: binary("*"), Operator: precMul},
		{Left: token.MULTIPLICATIVE_EXPR, Right: []token.Type{token.MULTIPLICATIVE_EXPR, token.DIVIDE, token.UNARY_EXPR}, Build: binary("/"), Operator: precDiv},
		{Left: token.MULTIPLICATIVE_EXPR, Right: []token.Type{token.MULTIPLICATIVE_EXPR, token.MODULO, token.UNARY_EXPR}, Build: binary("%"), Operator: precMod},
		{Left: token.MULTIPLICATIVE_EXPR, Right: []token.Type{token.UNARY_EXPR}, Build: passthrough},

		{Left: token.UNARY_EXPR, Right: []token.Type{token.PLUS, token.UNARY_EXPR}, Build: unary("+"), Operator: precUnaryPos},
		{Left: token.UNARY_EXPR, Right: []token.Type{token.MINUS, token.UNARY_EXPR}, Build: unary("-"), Operator: precUnaryNeg},
		{Left: token.UNARY_EXPR, Right: []token.Type{token.NOT, token.UNARY_EXPR}, Build: unary("!"), Operator: precUnaryNot},
		{Left: token.UNARY_EXPR, Right: []token.Type{token.POWER_EXPR}, Build: passthrough},

		// The exponent side is UNARY_EXPR, not POWER_EXPR: right
		// associativity still holds (UNARY_EXPR derives POWER_EXPR), and
		// a negated exponent like 2 ^ -3 stays parseable.
		{Left: token.POWER_EXPR, Right: []token.Type{token.PRIMARY_EXPR, token.POWER, token.UNARY_EXPR}, Build: binary("^"), Operator: precPow},
		{Left: token.POWER_EXPR, Right: []token.Type{token.PRIMARY_EXPR}, Build: passthrough},

		{Left: token.PRIMARY_EXPR, Right: []token.Type{token.ATOM}, Build: passthrough},
		{Left: token.PRIMARY_EXPR, Right: []token.Type{token.LEFT_PAREN, token.EXPR, token.RIGHT_PAREN}, Build: parenthesized},
		{Left: token.PRIMARY_EXPR, Right: []token.Type{token.FUNCTION_CALL}, Build: passthrough},
		{Left: token.PRIMARY_EXPR, Right: []token.Type{token.CONDITIONAL_EXPR}, Build: passthrough},

		{Left: token.ATOM, Right: []token.Type{token.NUMBER}, Build: atomNumber},
		{Left: token.ATOM, Right: []token.Type{token.BOOLEAN}, Build: atomBoolean},
		{Left: token.ATOM, Right: []token.Type{token.VARIABLE}, Build: atomVariable},

		{Left: token.FUNCTION_CALL, Right: []token.Type{token.FUNCTION, token.LEFT_PAREN, token.ARGUMENTS, token.RIGHT_PAREN}, Build: functionCall},

		{Left: token.ARGUMENTS, Right: []token.Type{token.ARGUMENT_LIST}, Build: argumentsFromList},
		{Left: token.ARGUMENTS, Right: []token.Type{}, Build: emptyArguments},

		{Left: token.ARGUMENT_LIST, Right: []token.Type{token.ARGUMENT_LIST, token.COMMA, token.EXPR}, Build: appendArgument},
		{Left: token.ARGUMENT_LIST, Right: []token.Type{token.EXPR}, Build: firstArgument},

		{Left: token.CONDITIONAL_EXPR, Right: []token.Type{token.IF, token.LEFT_PAREN, token.EXPR, token.COMMA, token.EXPR, token.COMMA, token.EXPR, token.RIGHT_PAREN}, Build: conditional},
	}

	for i := range prods {
		prods[i].ID = i
	}

	terminals := map[token.Type]bool{
		token.NUMBER: true, token.BOOLEAN: true, token.VARIABLE: true,
		token.PLUS: true, token.MINUS: true, token.MULTIPLY: true, token.DIVIDE: true,
		token.MODULO: true, token.POWER: true,
		token.EQUAL: true, token.NOT_EQUAL: true,
		token.LESS: true, token.LESS_EQUAL: true, token.GREATER: true, token.GREATER_EQUAL: true,
		token.AND: true, token.OR: true, token.NOT: true,
		token.LEFT_PAREN: true, token.RIGHT_PAREN: true, token.COMMA: true,
		token.IF: true, token.FUNCTION: true, token.DOLLAR: true,
	}

	nonTerminals := map[token.Type]bool{
		token.EXPR: true, token.AND_EXPR: true, token.EQUALITY_EXPR: true,
		token.RELATIONAL_EXPR: true, token.ADDITIVE_EXPR: true, token.MULTIPLICATIVE_EXPR: true,
		token.UNARY_EXPR: true, token.POWER_EXPR: true, token.PRIMARY_EXPR: true,
		token.ATOM: true, token.FUNCTION_CALL: true, token.ARGUMENTS: true,
		token.ARGUMENT_LIST: true, token.CONDITIONAL_EXPR: true, token.START: true,
	}

	precedence := map[string]PrecedenceEntry{
		precOr:       {Level: 1, Assoc: LeftAssoc},
		precAnd:      {Level: 2, Assoc: LeftAssoc},
		precEq:       {Level: 3, Assoc: LeftAssoc},
		precNeq:      {Level: 3, Assoc: LeftAssoc},
		precLt:       {Level: 4, Assoc: LeftAssoc},
		precLeq:      {Level: 4, Assoc: LeftAssoc},
		precGt:       {Level: 4, Assoc: LeftAssoc},
		precGeq:      {Level: 4, Assoc: LeftAssoc},
		precAdd:      {Level: 5, Assoc: LeftAssoc},
		precSub:      {Level: 5, Assoc: LeftAssoc},
		precMul:      {Level: 6, Assoc: LeftAssoc},
		precDiv:      {Level: 6, Assoc: LeftAssoc},
		precMod:      {Level: 6, Assoc: LeftAssoc},
		precUnaryPos: {Level: 7, Assoc: RightAssoc},
		precUnaryNeg: {Level: 7, Assoc: RightAssoc},
		precUnaryNot: {Level: 7, Assoc: RightAssoc},
		precPow:      {Level: 8, Assoc: RightAssoc},
	}

	return &Grammar{
		Start:        token.START,
		Productions:  prods,
		Terminals:    terminals,
		NonTerminals: nonTerminals,
		Precedence:   precedence,
	}
}
