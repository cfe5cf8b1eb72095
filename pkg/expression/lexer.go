package expression

import (
	"strings"
)

const (
	// MaxExpressionLength is the longest expression accepted, in bytes.
	MaxExpressionLength = 65535

	// MaxNestingDepth bounds parenthesis nesting and chains of unary operators.
	MaxNestingDepth = 64
)

const whitespaces = " \r\n\t"

var keywords = map[string]TokenKind{
	"and":  KindAnd,
	"or":   KindOr,
	"not":  KindNot,
	"eq":   KindComparison,
	"ne":   KindComparison,
	"gt":   KindComparison,
	"ge":   KindComparison,
	"lt":   KindComparison,
	"le":   KindComparison,
	"like": KindComparison,
	"band": KindComparison,
}

// Lexer splits an expression into tokens. It keeps the whole input so that
// whitespace survives as tokens and offsets stay exact.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
	parens []int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize splits expr into a gapless sequence of tokens, whitespace included.
func Tokenize(expr string) ([]Token, error) {
	return NewLexer(expr).Tokenize()
}

func (l *Lexer) Tokenize() ([]Token, error) {
	if len(l.input) > MaxExpressionLength {
		return nil, newParseError(MaxExpressionLength, "expression is longer than %d bytes", MaxExpressionLength)
	}
	if strings.Trim(l.input, whitespaces) == "" {
		return nil, &ParseError{Offset: 0, Reason: "expression is empty", err: ErrEmptyExpression}
	}

	for l.pos < len(l.input) {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		l.pos = tok.End + 1
	}

	if len(l.parens) > 0 {
		return nil, newParseError(l.parens[len(l.parens)-1], "unmatched '('")
	}
	return l.tokens, nil
}

// expectOperand reports whether the previous significant token leaves an
// operand slot open, which decides if a sign belongs to a number.
func (l *Lexer) expectOperand() bool {
	for i := len(l.tokens) - 1; i >= 0; i-- {
		switch l.tokens[i].Kind {
		case KindWhitespace:
			continue
		case KindAnd, KindOr, KindNot, KindComparison, KindArithmetic, KindParenOpen:
			return true
		default:
			return false
		}
	}
	return true
}

func (l *Lexer) single(kind TokenKind, length int) Token {
	return Token{
		Kind:  kind,
		Text:  l.input[l.pos : l.pos+length],
		Start: l.pos,
		End:   l.pos + length - 1,
	}
}

func (l *Lexer) peek(offset int) byte {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

func (l *Lexer) next() (Token, error) {
	c := l.input[l.pos]

	switch {
	case strings.IndexByte(whitespaces, c) >= 0:
		n := 1
		for l.pos+n < len(l.input) && strings.IndexByte(whitespaces, l.input[l.pos+n]) >= 0 {
			n++
		}
		return l.single(KindWhitespace, n), nil

	case c == '{':
		for _, parse := range macroParsers {
			if tok, ok := parse(l.input, l.pos); ok {
				return tok, nil
			}
		}
		return Token{}, newParseError(l.pos, "invalid macro")

	case c == '(':
		l.parens = append(l.parens, l.pos)
		if len(l.parens) > MaxNestingDepth {
			return Token{}, newParseError(l.pos, "nesting is deeper than %d levels", MaxNestingDepth)
		}
		return l.single(KindParenOpen, 1), nil

	case c == ')':
		if len(l.parens) == 0 {
			return Token{}, newParseError(l.pos, "unmatched ')'")
		}
		l.parens = l.parens[:len(l.parens)-1]
		return l.single(KindParenClose, 1), nil

	case c == '"':
		return l.readString()

	case isDigit(c), (c == '+' || c == '-') && isDigit(l.peek(1)) && l.expectOperand():
		return l.readNumber()

	case c == '+', c == '-', c == '*', c == '/':
		return l.single(KindArithmetic, 1), nil

	case c == '<':
		if n := l.peek(1); n == '>' || n == '=' {
			return l.single(KindComparison, 2), nil
		}
		return l.single(KindComparison, 1), nil

	case c == '>':
		if l.peek(1) == '=' {
			return l.single(KindComparison, 2), nil
		}
		return l.single(KindComparison, 1), nil

	case c == '=', c == '#':
		return l.single(KindComparison, 1), nil

	case isWordChar(c):
		return l.readWord()
	}

	return Token{}, newParseError(l.pos, "unexpected character %q", c)
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) || c == '_'
}

// readNumber reads [+-]?[0-9]+\.?[0-9]*[KMGTsmhdw]?. A letter glued to the end
// makes the constant invalid.
func (l *Lexer) readNumber() (Token, error) {
	n := 0
	if c := l.peek(0); c == '+' || c == '-' {
		n++
	}
	for isDigit(l.peek(n)) {
		n++
	}
	if l.peek(n) == '.' {
		n++
		for isDigit(l.peek(n)) {
			n++
		}
	}
	if isSuffix(l.peek(n)) {
		n++
	}
	if next := l.peek(n); isWordChar(next) || next == '.' {
		return Token{}, newParseError(l.pos+n, "invalid number")
	}
	return l.single(KindNumber, n), nil
}

// readWord reads a keyword operator. Keywords are lower case and must stand
// on word boundaries.
func (l *Lexer) readWord() (Token, error) {
	if l.pos > 0 && isWordChar(l.input[l.pos-1]) {
		return Token{}, newParseError(l.pos, "unexpected character %q", l.input[l.pos])
	}

	n := 0
	for isWordChar(l.peek(n)) {
		n++
	}
	word := l.input[l.pos : l.pos+n]
	kind, ok := keywords[word]
	if !ok {
		return Token{}, newParseError(l.pos, "unknown keyword %q", word)
	}
	return l.single(kind, n), nil
}

// readString reads a double-quoted constant. Backslash escapes '"' and '\'.
func (l *Lexer) readString() (Token, error) {
	for n := 1; l.pos+n < len(l.input); n++ {
		switch l.input[l.pos+n] {
		case '\\':
			n++
		case '"':
			return l.single(KindString, n+1), nil
		}
	}
	return Token{}, newParseError(l.pos, "unterminated string")
}

// unquote returns the value of a string constant token.
func unquote(text string) string {
	body := text[1 : len(text)-1]
	if strings.IndexByte(body, '\\') < 0 {
		return body
	}

	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) && (body[i+1] == '"' || body[i+1] == '\\') {
			i++
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}
