package expression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// Each operand is 14 bytes long, which keeps span ids easy to follow.
const (
	exprA = "{h:a.last()}=1"
	exprB = "{h:b.last()}=1"
	exprC = "{h:c.last()}=1"
	exprD = "{h:d.last()}=1"
)

func leaf(id, expression string) *LeafNode {
	return &LeafNode{ID: id, Expression: expression}
}

func TestBuildTree(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Node
	}{
		{
			"Single leaf",
			exprA,
			leaf("0_13", exprA),
		},
		{
			"N-ary or",
			exprA + " or " + exprB + " or " + exprC,
			&OperatorNode{
				ID:         "0_49",
				Operator:   OperatorOr,
				Expression: exprA + " or " + exprB + " or " + exprC,
				Elements:   []Node{leaf("0_13", exprA), leaf("18_31", exprB), leaf("36_49", exprC)},
			},
		},
		{
			"And binds tighter than or",
			exprA + " or " + exprB + " and " + exprC,
			&OperatorNode{
				ID:         "0_50",
				Operator:   OperatorOr,
				Expression: exprA + " or " + exprB + " and " + exprC,
				Elements: []Node{
					leaf("0_13", exprA),
					&OperatorNode{
						ID:         "18_50",
						Operator:   OperatorAnd,
						Expression: exprB + " and " + exprC,
						Elements:   []Node{leaf("18_31", exprB), leaf("37_50", exprC)},
					},
				},
			},
		},
		{
			"Parenthesized group",
			"(" + exprA + " or " + exprB + ") and " + exprC,
			&OperatorNode{
				ID:         "0_52",
				Operator:   OperatorAnd,
				Expression: "(" + exprA + " or " + exprB + ") and " + exprC,
				Elements: []Node{
					&OperatorNode{
						ID:         "1_32",
						Operator:   OperatorOr,
						Expression: exprA + " or " + exprB,
						Elements:   []Node{leaf("1_14", exprA), leaf("19_32", exprB)},
					},
					leaf("39_52", exprC),
				},
			},
		},
		{
			"Whitespace trimmed",
			"  " + exprA + "\tand\n" + exprB + " ",
			&OperatorNode{
				ID:         "2_34",
				Operator:   OperatorAnd,
				Expression: exprA + "\tand\n" + exprB,
				Elements:   []Node{leaf("2_15", exprA), leaf("21_34", exprB)},
			},
		},
		{
			"Parentheses around separate operands stay",
			"(" + exprA + ")+(" + exprB + ")",
			leaf("0_32", "("+exprA+")+("+exprB+")"),
		},
		{
			"Nested logic inside not",
			"not (" + exprA + " or " + exprB + ")",
			leaf("0_37", "not ("+exprA+" or "+exprB+")"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := BuildTree(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expected, tree)
		})
	}
}

func TestBuildTreeStripsRedundantParentheses(t *testing.T) {
	plain, err := BuildTree(exprA)
	require.NoError(t, err)

	wrapped, err := BuildTree("((" + exprA + "))")
	require.NoError(t, err)

	require.IsType(t, plain, wrapped)
	require.Equal(t, plain.GetExpression(), wrapped.GetExpression())
	require.Equal(t, "2_15", wrapped.GetID())

	group, err := BuildTree("((" + exprA + " and " + exprB + "))")
	require.NoError(t, err)
	op, ok := group.(*OperatorNode)
	require.True(t, ok)
	require.Len(t, op.Elements, 2)
}

func TestBuildTreeInvalid(t *testing.T) {
	for _, input := range []string{"", exprA + " and", "(" + exprA, exprA + " or or " + exprB} {
		tree, err := BuildTree(input)
		require.Error(t, err)
		require.Nil(t, tree)

		var perr *ParseError
		require.True(t, errors.As(err, &perr))
	}
}

func TestApplyEdit(t *testing.T) {
	ab := exprA + " and " + exprB
	abc := exprA + " and " + exprB + " and " + exprC

	tests := []struct {
		name     string
		input    string
		action   EditAction
		expected string
	}{
		{
			"Or on leaf wraps it",
			ab,
			EditAction{TargetID: "19_32", Action: ActionOr, NewExpression: exprC},
			exprA + " and (" + exprB + " or " + exprC + ")",
		},
		{
			"And on leaf with and parent appends to parent",
			ab,
			EditAction{TargetID: "19_32", Action: ActionAnd, NewExpression: exprC},
			abc,
		},
		{
			"Sibling is appended at the end of the parent",
			abc,
			EditAction{TargetID: "0_13", Action: ActionAnd, NewExpression: exprD},
			abc + " and " + exprD,
		},
		{
			"And on and node appends",
			ab,
			EditAction{TargetID: "0_32", Action: ActionAnd, NewExpression: exprC},
			abc,
		},
		{
			"Or on and node wraps",
			ab,
			EditAction{TargetID: "0_32", Action: ActionOr, NewExpression: exprC},
			"(" + ab + ") or " + exprC,
		},
		{
			"And on root leaf wraps",
			exprA,
			EditAction{TargetID: "0_13", Action: ActionAnd, NewExpression: exprB},
			ab,
		},
		{
			"Replace leaf",
			ab,
			EditAction{TargetID: "0_13", Action: ActionReplace, NewExpression: exprC},
			exprC + " and " + exprB,
		},
		{
			"Replace operator node",
			exprA + " or " + exprB + " and " + exprC,
			EditAction{TargetID: "18_50", Action: ActionReplace, NewExpression: exprD},
			exprA + " or " + exprD,
		},
		{
			"Remove middle",
			abc,
			EditAction{TargetID: "19_32", Action: ActionRemove},
			exprA + " and " + exprC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := BuildTree(tt.input)
			require.NoError(t, err)

			before := MakeExpression(tree)
			edited, err := ApplyEdit(tree, tt.action)
			require.NoError(t, err)
			require.Equal(t, tt.expected, MakeExpression(edited))
			require.Equal(t, before, MakeExpression(tree), "input tree must not change")
		})
	}
}

func TestApplyEditRemoveRoot(t *testing.T) {
	tree, err := BuildTree(exprA)
	require.NoError(t, err)

	edited, err := ApplyEdit(tree, EditAction{TargetID: "0_13", Action: ActionRemove})
	require.NoError(t, err)
	require.Nil(t, edited)
	require.Equal(t, "", MakeExpression(edited))
}

func TestApplyEditRemoveCollapsesEmptyOperators(t *testing.T) {
	tests := []struct {
		name     string
		tree     Node
		removals []string
		expected []string
	}{
		{
			"Nested operator emptied",
			&OperatorNode{ID: "r", Operator: OperatorAnd, Elements: []Node{
				leaf("a", exprA),
				&OperatorNode{ID: "o", Operator: OperatorOr, Elements: []Node{leaf("b", exprB), leaf("c", exprC)}},
			}},
			[]string{"b", "c"},
			[]string{exprA + " and (" + exprC + ")", exprA},
		},
		{
			"Chain of operators emptied",
			&OperatorNode{ID: "r", Operator: OperatorAnd, Elements: []Node{
				leaf("a", exprA),
				&OperatorNode{ID: "o", Operator: OperatorOr, Elements: []Node{
					&OperatorNode{ID: "i", Operator: OperatorAnd, Elements: []Node{leaf("b", exprB)}},
				}},
			}},
			[]string{"b"},
			[]string{exprA},
		},
		{
			"Root operator emptied",
			&OperatorNode{ID: "r", Operator: OperatorOr, Elements: []Node{leaf("a", exprA), leaf("b", exprB)}},
			[]string{"a", "b"},
			[]string{exprB, ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := tt.tree
			for i, id := range tt.removals {
				edited, err := ApplyEdit(tree, EditAction{TargetID: id, Action: ActionRemove})
				require.NoError(t, err)
				got := MakeExpression(edited)
				require.Equal(t, tt.expected[i], got)
				require.NotContains(t, got, "()")
				tree = edited
			}
			require.Equal(t, tt.expected[len(tt.expected)-1] == "", tree == nil)
		})
	}
}

func TestApplyEditErrors(t *testing.T) {
	tree, err := BuildTree(exprA + " and " + exprB)
	require.NoError(t, err)

	_, err = ApplyEdit(tree, EditAction{TargetID: "1_2", Action: ActionRemove})
	require.ErrorIs(t, err, ErrNodeNotFound)
	var eerr *EditError
	require.ErrorAs(t, err, &eerr)
	require.Equal(t, "1_2", eerr.ID)

	_, err = ApplyEdit(tree, EditAction{TargetID: "0_13", Action: "x"})
	require.ErrorIs(t, err, ErrUnknownAction)

	_, err = ApplyEdit(tree, EditAction{TargetID: "0_13", Action: ActionReplace})
	require.ErrorIs(t, err, ErrEmptyExpression)

	_, err = ApplyEdit(nil, EditAction{TargetID: "0_13", Action: ActionRemove})
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestApplyEditDuplicateIDsPanics(t *testing.T) {
	tree := &OperatorNode{
		ID:       "0_10",
		Operator: OperatorAnd,
		Elements: []Node{leaf("0_1", exprA), leaf("0_1", exprB)},
	}
	require.Panics(t, func() {
		_, _ = ApplyEdit(tree, EditAction{TargetID: "0_1", Action: ActionRemove})
	})
}

func TestRemake(t *testing.T) {
	result, err := Remake(exprA+" and "+exprB, "19_32", ActionOr, exprC)
	require.NoError(t, err)
	require.Equal(t, exprA+" and ("+exprB+" or "+exprC+")", result)

	_, err = Remake(exprA, "0_13", ActionRemove, "")
	require.ErrorIs(t, err, ErrEmptyExpression)

	_, err = Remake(exprA, "0_13", ActionAnd, "{h:b.last()}=")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)

	_, err = Remake(exprA, "9_9", ActionAnd, exprB)
	require.ErrorIs(t, err, ErrNodeNotFound)
}
