package expression

import (
	"fmt"
)

// Operator is a logical connective of the expression tree.
type Operator string

const (
	OperatorAnd Operator = "and"
	OperatorOr  Operator = "or"
)

// Node is an element of the logical expression tree: an *OperatorNode or a *LeafNode.
type Node interface {
	// GetID returns the "start_end" span id assigned when the tree was built.
	// Nodes created by an edit have an empty id.
	GetID() string

	// GetExpression returns the source text of the node.
	GetExpression() string

	node()
}

// OperatorNode joins two or more operands with the same logical operator.
type OperatorNode struct {
	ID         string
	Operator   Operator
	Elements   []Node
	Expression string
}

// LeafNode holds an operand expression that contains no top-level and/or.
type LeafNode struct {
	ID         string
	Expression string
}

func (n *OperatorNode) GetID() string         { return n.ID }
func (n *OperatorNode) GetExpression() string { return n.Expression }
func (n *OperatorNode) node()                 {}

func (n *LeafNode) GetID() string         { return n.ID }
func (n *LeafNode) GetExpression() string { return n.Expression }
func (n *LeafNode) node()                 {}

func spanID(start, end int) string {
	return fmt.Sprintf("%d_%d", start, end)
}

// BuildTree parses expr and builds its logical tree.
func BuildTree(expr string) (Node, error) {
	tokens, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return BuildTreeRange(expr, tokens, 0, len(expr)-1)
}

// BuildTreeRange builds the tree of expr[start:end+1] from tokens previously
// produced for the whole of expr.
//
// The range is split on top-level "or" first, then "and". Parentheses around
// the whole range are removed only when the last top-level pair spans it.
func BuildTreeRange(expr string, tokens []Token, start, end int) (Node, error) {
	b := &treeBuilder{expr: expr, tokens: make(map[int]Token, len(tokens))}
	for _, tok := range tokens {
		b.tokens[tok.Start] = tok
	}
	return b.build(start, end)
}

type treeBuilder struct {
	expr   string
	tokens map[int]Token
}

func (b *treeBuilder) trim(start, end int) (int, int) {
	for start <= end && isBlank(b.expr[start]) {
		start++
	}
	for end >= start && isBlank(b.expr[end]) {
		end--
	}
	return start, end
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\r' || c == '\n' || c == '\t'
}

func (b *treeBuilder) build(start, end int) (Node, error) {
	first, last := b.trim(start, end)
	if first > last {
		return nil, newParseError(start, "empty operand")
	}

	lParen, rParen := -1, -1
	for _, op := range []Operator{OperatorOr, OperatorAnd} {
		var elements []Node
		level := 0
		operandStart := first
		lParen, rParen = -1, -1

		for i := first; i <= last; {
			tok, ok := b.tokens[i]
			if !ok {
				i++
				continue
			}
			switch tok.Kind {
			case KindParenOpen:
				if level == 0 {
					lParen = i
				}
				level++
			case KindParenClose:
				level--
				if level == 0 {
					rParen = i
				}
			case KindAnd, KindOr:
				if level == 0 && Operator(tok.Text) == op {
					child, err := b.build(operandStart, i-1)
					if err != nil {
						return nil, err
					}
					elements = append(elements, child)
					operandStart = tok.End + 1
				}
			}
			i = tok.End + 1
		}

		if len(elements) > 0 {
			child, err := b.build(operandStart, last)
			if err != nil {
				return nil, err
			}
			return &OperatorNode{
				ID:         spanID(first, last),
				Operator:   op,
				Elements:   append(elements, child),
				Expression: b.expr[first : last+1],
			}, nil
		}
	}

	if first == lParen && last == rParen {
		return b.build(first+1, last-1)
	}

	return &LeafNode{ID: spanID(first, last), Expression: b.expr[first : last+1]}, nil
}
