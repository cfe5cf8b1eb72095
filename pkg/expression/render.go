package expression

import (
	"context"
	"strings"
)

// NumToLetter converts a zero-based index to spreadsheet-style column letters:
// 0 is "A", 25 is "Z", 26 is "AA".
func NumToLetter(n int) string {
	if n < 0 {
		return ""
	}

	var letters []byte
	for n >= 0 {
		letters = append(letters, byte('A'+n%26))
		n = n/26 - 1
	}
	for i, j := 0, len(letters)-1; i < j; i, j = i+1, j-1 {
		letters[i], letters[j] = letters[j], letters[i]
	}
	return string(letters)
}

// RenderRecord describes one node of a rendered tree, in pre-order.
type RenderRecord struct {
	ID         string
	Expression string

	// Level is the nesting depth, 0 for the root.
	Level int

	// Operator is set for operator nodes.
	Operator Operator

	// Letter is set for leaves.
	Letter string

	// Last is true when the node is the last element of its parent.
	Last bool

	Errors []MacroError
}

type renderer struct {
	ctx       context.Context
	validator *Validator
	records   []RenderRecord
	leaves    int
}

type RenderOption func(*renderer)

// WithValidator fills RenderRecord.Errors from v. Validator failures leave
// Errors empty.
func WithValidator(ctx context.Context, v *Validator) RenderOption {
	return func(r *renderer) {
		r.ctx = ctx
		r.validator = v
	}
}

// Render returns the lettered outline of tree and a record per node.
func Render(tree Node, opts ...RenderOption) (string, []RenderRecord) {
	if tree == nil {
		return "", nil
	}

	r := &renderer{ctx: context.Background()}
	for _, opt := range opts {
		opt(r)
	}
	outline := r.render([]Node{tree}, 0, "")
	return outline, r.records
}

func (r *renderer) errors(expression string) []MacroError {
	if r.validator == nil || expression == "" {
		return nil
	}
	errs, err := r.validator.Errors(r.ctx, expression)
	if err != nil {
		return nil
	}
	return errs
}

func (r *renderer) render(elements []Node, level int, parentOp Operator) string {
	var sb strings.Builder
	for i, el := range elements {
		last := i == len(elements)-1
		switch n := el.(type) {
		case *OperatorNode:
			r.records = append(r.records, RenderRecord{
				ID:         n.ID,
				Expression: n.Expression,
				Level:      level,
				Operator:   n.Operator,
				Last:       last,
				Errors:     r.errors(n.Expression),
			})
			inner := r.render(n.Elements, level+1, n.Operator)
			if level == 0 {
				sb.WriteString(inner)
			} else {
				sb.WriteString("(" + inner + ")")
			}
		case *LeafNode:
			letter := NumToLetter(r.leaves)
			r.leaves++
			r.records = append(r.records, RenderRecord{
				ID:         n.ID,
				Expression: n.Expression,
				Level:      level,
				Letter:     letter,
				Last:       last,
				Errors:     r.errors(n.Expression),
			})
			sb.WriteString(letter)
		}
		if parentOp != "" && !last {
			sb.WriteString(" " + string(parentOp) + " ")
		}
	}
	return sb.String()
}

// MakeExpression serializes tree back to an expression string. Nested
// operator nodes are parenthesized. A nil tree gives "".
func MakeExpression(tree Node) string {
	if tree == nil {
		return ""
	}
	return makeExpression([]Node{tree}, 0, "")
}

func makeExpression(elements []Node, level int, parentOp Operator) string {
	var sb strings.Builder
	for i, el := range elements {
		switch n := el.(type) {
		case *OperatorNode:
			inner := makeExpression(n.Elements, level+1, n.Operator)
			if level == 0 {
				sb.WriteString(inner)
			} else {
				sb.WriteString("(" + inner + ")")
			}
		case *LeafNode:
			sb.WriteString(n.Expression)
		}
		if parentOp != "" && i < len(elements)-1 {
			sb.WriteString(" " + string(parentOp) + " ")
		}
	}
	return sb.String()
}
