package expression

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Action is the kind of change ApplyEdit performs on the target node.
type Action string

const (
	ActionAnd     Action = "and"
	ActionOr      Action = "or"
	ActionReplace Action = "r"
	ActionRemove  Action = "R"
)

// EditAction describes one edit of the expression tree.
type EditAction struct {
	TargetID string
	Action   Action

	// NewExpression is required for and, or and replace.
	NewExpression string
}

// ApplyEdit returns a copy of tree with action applied. The input tree is not
// modified. Removing the root returns a nil tree and no error. Operator nodes
// left without elements by a removal are removed as well.
//
// and/or on an operator node with the same operator appends a leaf to it. On
// a leaf whose parent already uses that operator the leaf is appended to the
// parent. Anything else is wrapped in a new operator node.
func ApplyEdit(tree Node, action EditAction) (Node, error) {
	switch action.Action {
	case ActionAnd, ActionOr, ActionReplace:
		if action.NewExpression == "" {
			return nil, fmt.Errorf("%w: %s needs a new expression", ErrEmptyExpression, action.Action)
		}
	case ActionRemove:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action.Action)
	}
	if tree == nil || action.TargetID == "" {
		return nil, &EditError{ID: action.TargetID}
	}

	assertUniqueIDs(tree, map[string]struct{}{})

	root := []Node{cloneNode(tree)}
	if !rebuild(&root, action, "") {
		return nil, &EditError{ID: action.TargetID}
	}
	if len(root) == 0 {
		return nil, nil
	}
	return root[0], nil
}

func rebuild(list *[]Node, action EditAction, parentOp Operator) bool {
	for i, n := range *list {
		if n.GetID() != action.TargetID {
			if op, ok := n.(*OperatorNode); ok && rebuild(&op.Elements, action, op.Operator) {
				// An operator emptied by a removal goes away with its last child.
				if action.Action == ActionRemove && len(op.Elements) == 0 {
					*list = slices.Delete(*list, i, i+1)
				}
				return true
			}
			continue
		}

		switch action.Action {
		case ActionAnd, ActionOr:
			op := Operator(action.Action)
			leaf := &LeafNode{Expression: action.NewExpression}
			switch n := n.(type) {
			case *OperatorNode:
				if n.Operator == op {
					n.Elements = append(n.Elements, leaf)
				} else {
					(*list)[i] = &OperatorNode{Operator: op, Elements: []Node{n, leaf}}
				}
			case *LeafNode:
				if parentOp == op {
					*list = append(*list, leaf)
				} else {
					(*list)[i] = &OperatorNode{Operator: op, Elements: []Node{n, leaf}}
				}
			}
		case ActionReplace:
			(*list)[i] = &LeafNode{ID: n.GetID(), Expression: action.NewExpression}
		case ActionRemove:
			*list = slices.Delete(*list, i, i+1)
		}
		return true
	}
	return false
}

func cloneNode(n Node) Node {
	switch n := n.(type) {
	case *OperatorNode:
		elements := make([]Node, len(n.Elements))
		for i, el := range n.Elements {
			elements[i] = cloneNode(el)
		}
		return &OperatorNode{ID: n.ID, Operator: n.Operator, Elements: elements, Expression: n.Expression}
	case *LeafNode:
		c := *n
		return &c
	}
	return n
}

func assertUniqueIDs(n Node, seen map[string]struct{}) {
	if id := n.GetID(); id != "" {
		if _, ok := seen[id]; ok {
			panic(fmt.Sprintf("expression: duplicate node id %q", id))
		}
		seen[id] = struct{}{}
	}
	if op, ok := n.(*OperatorNode); ok {
		for _, el := range op.Elements {
			assertUniqueIDs(el, seen)
		}
	}
}

// Remake parses expr, applies one edit and returns the serialized result.
// The new expression is checked before it is inserted.
func Remake(expr, targetID string, action Action, newExpression string) (string, error) {
	tree, err := BuildTree(expr)
	if err != nil {
		return "", err
	}

	if action != ActionRemove {
		if _, err := Parse(newExpression); err != nil {
			return "", err
		}
	}

	edited, err := ApplyEdit(tree, EditAction{TargetID: targetID, Action: action, NewExpression: newExpression})
	if err != nil {
		return "", err
	}

	result := MakeExpression(edited)
	if result == "" {
		return "", ErrEmptyExpression
	}
	return result, nil
}
