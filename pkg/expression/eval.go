package expression

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Substitute replaces every key of substitutions in expr with its value in a
// single pass. Longer keys win over their prefixes.
func Substitute(expr string, substitutions map[string]string) string {
	if len(substitutions) == 0 {
		return expr
	}

	keys := make([]string, 0, len(substitutions))
	for k := range substitutions {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, substitutions[k])
	}
	return strings.NewReplacer(pairs...).Replace(expr)
}

// Quote renders s as a string constant that Tokenize reads back as s.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// Evaluate substitutes values into expr and evaluates the result. A non-zero
// result is true. Any expression that cannot be evaluated, including one with
// macros left unresolved, yields an error wrapping ErrInvalidExpression.
func Evaluate(expr string, substitutions map[string]string) (bool, error) {
	substituted := Substitute(expr, substitutions)

	tokens, err := Tokenize(substituted)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	root, err := parseTokens(substituted, tokens)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	v, err := eval(root)
	if err != nil {
		return false, err
	}
	if v.isStr {
		return false, fmt.Errorf("%w: result %q is not numeric", ErrInvalidExpression, v.str)
	}
	return v.num != 0, nil
}

type value struct {
	num   float64
	str   string
	isStr bool
}

func numberValue(f float64) value {
	return value{num: f}
}

func boolValue(b bool) value {
	if b {
		return value{num: 1}
	}
	return value{num: 0}
}

func (v value) String() string {
	if v.isStr {
		return v.str
	}
	return FormatNumber(v.num)
}

// number returns the numeric value, converting numeric strings.
func (v value) number() (float64, error) {
	if !v.isStr {
		return v.num, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidExpression, v.str)
	}
	return f, nil
}

func eval(n astNode) (value, error) {
	switch n := n.(type) {
	case numberNode:
		return numberValue(n.value), nil
	case stringNode:
		return value{str: n.value, isStr: true}, nil
	case macroNode:
		return value{}, fmt.Errorf("%w: unresolved macro %s", ErrInvalidExpression, n.tok.Text)
	case unaryNode:
		return evalUnary(n)
	case binaryNode:
		return evalBinary(n)
	}
	return value{}, fmt.Errorf("%w: unknown node %T", ErrInvalidExpression, n)
}

func evalUnary(n unaryNode) (value, error) {
	operand, err := eval(n.operand)
	if err != nil {
		return value{}, err
	}
	f, err := operand.number()
	if err != nil {
		return value{}, err
	}
	if n.op == opNot {
		return boolValue(f == 0), nil
	}
	return numberValue(-f), nil
}

func evalBinary(n binaryNode) (value, error) {
	left, err := eval(n.left)
	if err != nil {
		return value{}, err
	}

	switch n.op {
	case opOr, opAnd:
		l, err := left.number()
		if err != nil {
			return value{}, err
		}
		if n.op == opOr && l != 0 {
			return boolValue(true), nil
		}
		if n.op == opAnd && l == 0 {
			return boolValue(false), nil
		}
		right, err := eval(n.right)
		if err != nil {
			return value{}, err
		}
		r, err := right.number()
		if err != nil {
			return value{}, err
		}
		return boolValue(r != 0), nil
	}

	right, err := eval(n.right)
	if err != nil {
		return value{}, err
	}

	switch n.op {
	case opEq:
		return boolValue(equal(left, right)), nil
	case opNe:
		return boolValue(!equal(left, right)), nil
	case opLike:
		return boolValue(strings.Contains(left.String(), right.String())), nil
	}

	l, err := left.number()
	if err != nil {
		return value{}, err
	}
	r, err := right.number()
	if err != nil {
		return value{}, err
	}

	switch n.op {
	case opLt:
		return boolValue(l < r), nil
	case opLe:
		return boolValue(l <= r), nil
	case opGt:
		return boolValue(l > r), nil
	case opGe:
		return boolValue(l >= r), nil
	case opAdd:
		return numberValue(l + r), nil
	case opSub:
		return numberValue(l - r), nil
	case opMul:
		return numberValue(l * r), nil
	case opDiv:
		if r == 0 {
			return value{}, fmt.Errorf("%w: division by zero", ErrInvalidExpression)
		}
		return numberValue(l / r), nil
	case opBand:
		if l < 0 || r < 0 || l != math.Trunc(l) || r != math.Trunc(r) || l >= 1<<64 || r >= 1<<64 {
			return value{}, fmt.Errorf("%w: band needs unsigned integers", ErrInvalidExpression)
		}
		return numberValue(float64(uint64(l) & uint64(r))), nil
	}
	return value{}, fmt.Errorf("%w: unsupported operator", ErrInvalidExpression)
}

// equal compares numerically when both sides are numbers, textually otherwise.
func equal(left, right value) bool {
	if left.isStr && right.isStr {
		return left.str == right.str
	}
	l, lerr := left.number()
	r, rerr := right.number()
	if lerr == nil && rerr == nil {
		return l == r
	}
	return left.String() == right.String()
}
