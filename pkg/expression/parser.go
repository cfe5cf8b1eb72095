package expression

type opcode int

const (
	opOr opcode = iota
	opAnd
	opEq
	opNe
	opLike
	opLt
	opLe
	opGt
	opGe
	opAdd
	opSub
	opMul
	opDiv
	opBand
	opNeg
	opNot
)

var operatorCodes = map[string]opcode{
	"or":   opOr,
	"and":  opAnd,
	"=":    opEq,
	"eq":   opEq,
	"<>":   opNe,
	"#":    opNe,
	"ne":   opNe,
	"like": opLike,
	"<":    opLt,
	"lt":   opLt,
	"<=":   opLe,
	"le":   opLe,
	">":    opGt,
	"gt":   opGt,
	">=":   opGe,
	"ge":   opGe,
	"+":    opAdd,
	"-":    opSub,
	"*":    opMul,
	"/":    opDiv,
	"band": opBand,
	"not":  opNot,
}

// Binary precedence levels, lowest first.
var precedence = [][]opcode{
	{opOr},
	{opAnd},
	{opEq, opNe, opLike},
	{opLt, opLe, opGt, opGe},
	{opAdd, opSub},
	{opMul, opDiv, opBand},
}

type astNode interface {
	astNode()
}

type numberNode struct {
	value float64
}

type stringNode struct {
	value string
}

type macroNode struct {
	tok Token
}

type unaryNode struct {
	op      opcode
	operand astNode
}

type binaryNode struct {
	op          opcode
	left, right astNode
}

func (numberNode) astNode() {}
func (stringNode) astNode() {}
func (macroNode) astNode()  {}
func (unaryNode) astNode()  {}
func (binaryNode) astNode() {}

// Parse tokenizes expr and checks that it forms one well-formed expression.
// It returns the full token sequence, whitespace included.
func Parse(expr string) ([]Token, error) {
	tokens, err := Tokenize(expr)
	if err != nil {
		return nil, err
	}
	if _, err := parseTokens(expr, tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

type parser struct {
	expr   string
	tokens []Token
	pos    int
	depth  int
}

func parseTokens(expr string, tokens []Token) (astNode, error) {
	p := &parser{expr: expr}
	for _, tok := range tokens {
		if tok.Kind != KindWhitespace {
			p.tokens = append(p.tokens, tok)
		}
	}

	node, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if tok, ok := p.current(); ok {
		return nil, newParseError(tok.Start, "unexpected %q", tok.Text)
	}
	return node, nil
}

func (p *parser) current() (Token, bool) {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos], true
	}
	return Token{}, false
}

func (p *parser) advance() {
	p.pos++
}

// binaryOp returns the opcode of the current token if it is a binary operator
// of the given precedence level.
func (p *parser) binaryOp(level int) (opcode, bool) {
	tok, ok := p.current()
	if !ok {
		return 0, false
	}
	switch tok.Kind {
	case KindAnd, KindOr, KindComparison, KindArithmetic:
	default:
		return 0, false
	}
	op := operatorCodes[tok.Text]
	for _, candidate := range precedence[level] {
		if candidate == op {
			return op, true
		}
	}
	return 0, false
}

func (p *parser) parseBinary(level int) (astNode, error) {
	if level == len(precedence) {
		return p.parseUnary()
	}

	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.binaryOp(level)
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) enter(offset int) error {
	p.depth++
	if p.depth > MaxNestingDepth {
		return newParseError(offset, "nesting is deeper than %d levels", MaxNestingDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseUnary() (astNode, error) {
	tok, ok := p.current()
	if ok && (tok.Kind == KindNot || tok.Kind == KindArithmetic && tok.Text == "-") {
		if err := p.enter(tok.Start); err != nil {
			return nil, err
		}
		defer p.leave()

		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := opNeg
		if tok.Kind == KindNot {
			op = opNot
		}
		return unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (astNode, error) {
	tok, ok := p.current()
	if !ok {
		return nil, newParseError(len(p.expr), "unexpected end of expression")
	}

	switch {
	case tok.Kind == KindNumber:
		v, err := ConvertSuffix(tok.Text)
		if err != nil {
			return nil, newParseError(tok.Start, "invalid number %q", tok.Text)
		}
		p.advance()
		return numberNode{value: v}, nil

	case tok.Kind == KindString:
		p.advance()
		return stringNode{value: unquote(tok.Text)}, nil

	case tok.IsMacro():
		p.advance()
		return macroNode{tok: tok}, nil

	case tok.Kind == KindParenOpen:
		if err := p.enter(tok.Start); err != nil {
			return nil, err
		}
		defer p.leave()

		p.advance()
		if next, ok := p.current(); ok && next.Kind == KindParenClose {
			return nil, newParseError(next.Start, "empty parentheses")
		}
		inner, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		closing, ok := p.current()
		if !ok {
			return nil, newParseError(len(p.expr), "missing ')'")
		}
		if closing.Kind != KindParenClose {
			return nil, newParseError(closing.Start, "unexpected %q", closing.Text)
		}
		p.advance()
		return inner, nil
	}

	return nil, newParseError(tok.Start, "unexpected %q", tok.Text)
}
