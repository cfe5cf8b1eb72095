package expression

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyExpression is reported for blank input and for edits that
	// leave nothing behind.
	ErrEmptyExpression = errors.New("expression is empty")

	// ErrNodeNotFound is reported when an edit targets an id that is not
	// present in the tree.
	ErrNodeNotFound = errors.New("expression node not found")

	// ErrInvalidExpression is reported by Evaluate for any input it cannot
	// reduce to a boolean. It is an expected condition, not a fault.
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrUnknownAction is reported for edit actions other than and, or, r and R.
	ErrUnknownAction = errors.New("unknown edit action")
)

// ParseError describes malformed expression syntax at a byte offset.
type ParseError struct {
	Offset int
	Reason string
	err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("incorrect trigger expression at position %d: %s", e.Offset, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.err
}

func newParseError(offset int, format string, args ...any) *ParseError {
	return &ParseError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// EditError is returned when an edit references a node id absent from the tree.
// The tree may have changed since the id was rendered, so callers should
// re-render before retrying.
type EditError struct {
	ID string
}

func (e *EditError) Error() string {
	return fmt.Sprintf("expression node %q not found", e.ID)
}

func (e *EditError) Unwrap() error {
	return ErrNodeNotFound
}
