// Package lexer turns formula source text into a token stream.
//
// The scan is a single left-to-right pass over the input maintaining a
// running token.Position. Input-contract violations (too long, too
// many lines, a line too long, brackets nested too deep) are checked
// up front so that every later error carries an honest line/column.
package lexer

import (
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/entrydsm/formulon/internal/ferr"
	"github.com/entrydsm/formulon/internal/token"
)

// Input contract limits checked before scanning starts.
const (
	MaxInputBytes   = 1_000_000
	MaxLines        = 50_000
	MaxLineLength   = 10_000
	MaxNestingDepth = 100
)

// ASCII classification tables, built once. The accepted character
// subset is deliberately ASCII-only (no Unicode identifiers), so table
// lookups are safe for all byte values.
var (
	isDigitTbl      [128]bool
	isIdentStartTbl [128]bool
	isIdentPartTbl  [128]bool
	isSpaceTbl      [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		c := byte(i)
		isDigitTbl[i] = c >= '0' && c <= '9'
		isIdentStartTbl[i] = (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		isIdentPartTbl[i] = isIdentStartTbl[i] || isDigitTbl[i]
		isSpaceTbl[i] = c == ' ' || c == '\t' || c == '\r' || c == '\n'
	}
}

func isDigit(c byte) bool      { return c < 128 && isDigitTbl[c] }
func isIdentStart(c byte) bool { return c < 128 && isIdentStartTbl[c] }
func isIdentPart(c byte) bool  { return c < 128 && isIdentPartTbl[c] }
func isSpace(c byte) bool      { return c < 128 && isSpaceTbl[c] }

var keywords = map[string]token.Type{
	"true":  token.BOOLEAN,
	"false": token.BOOLEAN,
	"if":    token.IF,
}

// Option configures a Lexer.
type Option func(*Lexer)

// WithLogger attaches a structured logger that receives a Debug record
// per token produced. The default is a logger that discards output.
func WithLogger(l *slog.Logger) Option {
	return func(lx *Lexer) { lx.logger = l }
}

// Lexer scans one input string into a token stream. A Lexer is single
// use: construct one per input via New.
type Lexer struct {
	src    string
	pos    int // byte offset
	line   int
	column int

	logger *slog.Logger
}

// New validates the input contract and returns a ready-to-scan Lexer.
func New(src string, opts ...Option) (*Lexer, error) {
	if len(src) > MaxInputBytes {
		return nil, ferr.New(ferr.InputTooLong, "input is %d bytes, limit is %d", len(src), MaxInputBytes)
	}

	lineCount := 1
	lineStart := 0
	depth := 0
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '\n' {
			if i-lineStart > MaxLineLength {
				return nil, ferr.At(ferr.LineTooLong, token.Position{Offset: lineStart, Line: lineCount, Column: 1},
					"line %d is %d bytes, limit is %d", lineCount, i-lineStart, MaxLineLength)
			}
			lineCount++
			lineStart = i + 1
			if lineCount > MaxLines {
				return nil, ferr.New(ferr.TooManyLines, "input has more than %d lines", MaxLines)
			}
			continue
		}
		if c == '(' {
			depth++
			if depth > MaxNestingDepth {
				return nil, ferr.At(ferr.NestingTooDeep, posAt(src, i), "bracket nesting exceeds %d", MaxNestingDepth)
			}
		} else if c == ')' {
			if depth > 0 {
				depth--
			}
		}
		if c >= 128 {
			return nil, ferr.At(ferr.ForbiddenCharacter, posAt(src, i), "byte 0x%02x is outside the accepted ASCII subset", c)
		}
	}
	if len(src)-lineStart > MaxLineLength {
		return nil, ferr.At(ferr.LineTooLong, token.Position{Offset: lineStart, Line: lineCount, Column: 1},
			"line %d is %d bytes, limit is %d", lineCount, len(src)-lineStart, MaxLineLength)
	}

	lx := &Lexer{src: src, pos: 0, line: 1, column: 1, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(lx)
	}
	return lx, nil
}

// posAt recomputes a Position for byte offset i; only used on the
// pre-validation path where an up-to-date running position isn't kept.
func posAt(src string, i int) token.Position {
	line, col := 1, 1
	for j := 0; j < i; j++ {
		if src[j] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return token.Position{Offset: i, Line: line, Column: col}
}

func (l *Lexer) here() token.Position {
	return token.Position{Offset: l.pos, Line: l.line, Column: l.column}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

// Next returns the next token, skipping whitespace. It returns a
// DOLLAR token at end of input and continues to do so on every
// subsequent call (the stream is idempotent past the end).
func (l *Lexer) Next() (token.Token, error) {
	for isSpace(l.peek()) {
		l.advance()
	}

	start := l.here()

	if l.pos >= len(l.src) {
		tok := token.Token{Type: token.DOLLAR, Lexeme: "", Pos: start}
		l.logger.Debug("lexed token", "type", tok.Type.String(), "lexeme", tok.Lexeme, "pos", tok.Pos.String())
		return tok, nil
	}

	c := l.peek()
	switch {
	case isDigit(c):
		return l.lexNumber(start)
	case isIdentStart(c):
		return l.lexIdentifier(start)
	default:
		return l.lexOperator(start)
	}
}

func (l *Lexer) lexNumber(start token.Position) (token.Token, error) {
	begin := l.pos
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if c := l.peek(); c == 'e' || c == 'E' {
		save := l.pos
		saveLine, saveCol := l.line, l.column
		l.advance()
		if c2 := l.peek(); c2 == '+' || c2 == '-' {
			l.advance()
		}
		if isDigit(l.peek()) {
			for isDigit(l.peek()) {
				l.advance()
			}
		} else {
			l.pos, l.line, l.column = save, saveLine, saveCol
		}
	}

	lexeme := l.src[begin:l.pos]
	v, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return token.Token{}, ferr.At(ferr.InvalidNumberFormat, start, "%q is not a valid number", lexeme)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return token.Token{}, ferr.At(ferr.InvalidNumberFormat, start, "%q is not a finite number", lexeme)
	}

	tok := token.Token{Type: token.NUMBER, Lexeme: lexeme, Pos: start}
	l.logger.Debug("lexed token", "type", tok.Type.String(), "lexeme", tok.Lexeme, "pos", tok.Pos.String())
	return tok, nil
}

func (l *Lexer) lexIdentifier(start token.Position) (token.Token, error) {
	begin := l.pos
	for isIdentPart(l.peek()) {
		l.advance()
	}
	lexeme := l.src[begin:l.pos]

	if kw, ok := keywords[lexeme]; ok {
		tok := token.Token{Type: kw, Lexeme: lexeme, Pos: start}
		l.logger.Debug("lexed token", "type", tok.Type.String(), "lexeme", tok.Lexeme, "pos", tok.Pos.String())
		return tok, nil
	}

	typ := token.VARIABLE
	if l.peek() == '(' {
		typ = token.FUNCTION
	}
	tok := token.Token{Type: typ, Lexeme: lexeme, Pos: start}
	l.logger.Debug("lexed token", "type", tok.Type.String(), "lexeme", tok.Lexeme, "pos", tok.Pos.String())
	return tok, nil
}

// multiCharOps must be checked before their single-character prefixes.
var multiCharOps = []struct {
	text string
	typ  token.Type
}{
	{"==", token.EQUAL},
	{"!=", token.NOT_EQUAL},
	{"<=", token.LESS_EQUAL},
	{">=", token.GREATER_EQUAL},
	{"&&", token.AND},
	{"||", token.OR},
}

var singleCharOps = map[byte]token.Type{
	'+': token.PLUS,
	'-': token.MINUS,
	'*': token.MULTIPLY,
	'/': token.DIVIDE,
	'%': token.MODULO,
	'^': token.POWER,
	'<': token.LESS,
	'>': token.GREATER,
	'!': token.NOT,
	'(': token.LEFT_PAREN,
	')': token.RIGHT_PAREN,
	',': token.COMMA,
}

func (l *Lexer) lexOperator(start token.Position) (token.Token, error) {
	for _, op := range multiCharOps {
		if strings.HasPrefix(l.src[l.pos:], op.text) {
			l.advance()
			l.advance()
			tok := token.Token{Type: op.typ, Lexeme: op.text, Pos: start}
			l.logger.Debug("lexed token", "type", tok.Type.String(), "lexeme", tok.Lexeme, "pos", tok.Pos.String())
			return tok, nil
		}
	}

	c := l.peek()
	if typ, ok := singleCharOps[c]; ok {
		l.advance()
		tok := token.Token{Type: typ, Lexeme: string(c), Pos: start}
		l.logger.Debug("lexed token", "type", tok.Type.String(), "lexeme", tok.Lexeme, "pos", tok.Pos.String())
		return tok, nil
	}

	return token.Token{}, ferr.At(ferr.UnexpectedCharacter, start, "unexpected character %q", c)
}

// Tokenize scans the entire input into a slice, ending with DOLLAR.
func Tokenize(src string, opts ...Option) ([]token.Token, error) {
	lx, err := New(src, opts...)
	if err != nil {
		return nil, err
	}
	var toks []token.Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == token.DOLLAR {
			return toks, nil
		}
	}
}
