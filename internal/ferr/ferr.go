// Package ferr defines the single error type shared by every stage of
// the pipeline (lexer, parser, table builder, AST factory, optimizer,
// evaluator, calculator): a {Kind; Message} value error with a closed
// Kind enum, so callers can branch on a stable code without string
// matching and every package reports failures the same way.
package ferr

import (
	"fmt"

	"github.com/entrydsm/formulon/internal/token"
)

// Kind is the closed, stable set of error codes produced by the
// pipeline.
type Kind int

const (
	// Lexer pre-validation.
	InputTooLong Kind = iota
	LineTooLong
	TooManyLines
	NestingTooDeep
	ForbiddenCharacter

	// Lexer.
	UnexpectedCharacter
	InvalidNumberFormat
	UnterminatedIdentifier

	// Parser.
	UnexpectedToken
	UnexpectedEndOfInput
	UnbalancedParentheses

	// Table builder.
	GrammarConflict

	// Parser runtime limits.
	StackOverflow
	StepLimitExceeded

	// AST factory.
	InvalidASTNode
	DepthExceeded
	SizeExceeded

	// Evaluator.
	UndefinedVariable
	UnknownFunction
	ArityMismatch
	TypeMismatch
	DivisionByZero
	DomainError

	// Validator.
	SecurityViolation

	// Multi-step calculator.
	StepFailure
)

var kindNames = map[Kind]string{
	InputTooLong:           "InputTooLong",
	LineTooLong:            "LineTooLong",
	TooManyLines:           "TooManyLines",
	NestingTooDeep:         "NestingTooDeep",
	ForbiddenCharacter:     "ForbiddenCharacter",
	UnexpectedCharacter:    "UnexpectedCharacter",
	InvalidNumberFormat:    "InvalidNumberFormat",
	UnterminatedIdentifier: "UnterminatedIdentifier",
	UnexpectedToken:        "UnexpectedToken",
	UnexpectedEndOfInput:   "UnexpectedEndOfInput",
	UnbalancedParentheses:  "UnbalancedParentheses",
	GrammarConflict:        "GrammarConflict",
	StackOverflow:          "StackOverflow",
	StepLimitExceeded:      "StepLimitExceeded",
	InvalidASTNode:         "InvalidASTNode",
	DepthExceeded:          "DepthExceeded",
	SizeExceeded:           "SizeExceeded",
	UndefinedVariable:      "UndefinedVariable",
	UnknownFunction:        "UnknownFunction",
	ArityMismatch:          "ArityMismatch",
	TypeMismatch:           "TypeMismatch",
	DivisionByZero:         "DivisionByZero",
	DomainError:            "DomainError",
	SecurityViolation:      "SecurityViolation",
	StepFailure:            "StepFailure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the single error type produced anywhere in the pipeline.
type Error struct {
	Kind     Kind
	Message  string
	Position *token.Position // nil when no source location applies
	Lexeme   string          // "" when no offending lexeme applies
	Step     int             // 0 unless this wraps a multi-step failure (1-based)
	Cause    error           // wrapped underlying error, set by StepFailure
}

func (e *Error) Error() string {
	switch {
	case e.Step > 0 && e.Cause != nil:
		return fmt.Sprintf("step %d: %s: %s: %v", e.Step, e.Kind, e.Message, e.Cause)
	case e.Position != nil:
		return fmt.Sprintf("%s: %s (line %d, col %d)", e.Kind, e.Message, e.Position.Line, e.Position.Column)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a plain error of the given kind with no location info.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At builds an error carrying a source position.
func At(kind Kind, pos token.Position, format string, args ...any) *Error {
	p := pos
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Position: &p}
}

// AtToken builds an error carrying a position and offending lexeme.
func AtToken(kind Kind, tok token.Token, format string, args ...any) *Error {
	p := tok.Pos
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Position: &p, Lexeme: tok.Lexeme}
}

// Step wraps cause as a StepFailure carrying the 1-based step index and
// the offending formula text.
func Step(index int, formula string, cause error) *Error {
	return &Error{
		Kind:    StepFailure,
		Message: fmt.Sprintf("formula %q failed", formula),
		Step:    index,
		Cause:   cause,
	}
}

// Is reports whether err is a *Error of the given kind, unwrapping
// StepFailure wrappers along the way.
func Is(err error, kind Kind) bool {
	for err != nil {
		if fe, ok := err.(*Error); ok {
			if fe.Kind == kind {
				return true
			}
			err = fe.Cause
			continue
		}
		break
	}
	return false
}
