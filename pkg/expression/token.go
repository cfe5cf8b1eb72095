// Package expression implements the Zabbix trigger expression engine.
//
// It covers the whole life of a trigger expression string such as
//
//	{srv:system.cpu.load[all,avg1].last(0)}>5 and {srv:agent.ping.nodata(5m)}=1
//
// The package provides:
//   - Tokenize / Parse: lexical analysis of function macros, user and LLD macros,
//     operators, numbers with unit suffixes and parentheses
//   - BuildTree: the logical and/or tree used to display and edit expressions
//   - ApplyEdit / Remake: add, replace or remove a sub-expression by node id
//   - Render / MakeExpression: the lettered outline ("A and (B or C)") and the
//     flat expression string of a tree
//   - Evaluate: safe evaluation after function macros were replaced by values
//   - Validator: per-macro diagnostics through an external FunctionInfoResolver
//
// Everything in this package is pure and safe for concurrent use, as long as
// callers do not share a tree between concurrent edits.
package expression

// TokenKind identifies the lexical class of a Token.
type TokenKind int

const (
	// KindFunctionMacro is a {host:key.function(params)} reference.
	KindFunctionMacro TokenKind = iota

	// KindUserMacro is a {$NAME} or {$NAME:context} macro.
	KindUserMacro

	// KindLLDMacro is a {#NAME} low-level discovery macro.
	KindLLDMacro

	// KindTriggerValueMacro is the {TRIGGER.VALUE} macro.
	KindTriggerValueMacro

	KindAnd
	KindOr
	KindNot

	// KindComparison covers = <> # < <= > >= and the textual eq ne gt ge lt le like band.
	KindComparison

	// KindArithmetic covers + - * /.
	KindArithmetic

	// KindNumber is a numeric constant with an optional unit suffix.
	KindNumber

	// KindString is a double-quoted string constant.
	KindString

	KindParenOpen
	KindParenClose
	KindWhitespace
)

var tokenKindNames = map[TokenKind]string{
	KindFunctionMacro:     "FUNCTION_MACRO",
	KindUserMacro:         "USER_MACRO",
	KindLLDMacro:          "LLD_MACRO",
	KindTriggerValueMacro: "TRIGGER_VALUE_MACRO",
	KindAnd:               "OPERATOR_AND",
	KindOr:                "OPERATOR_OR",
	KindNot:               "OPERATOR_NOT",
	KindComparison:        "COMPARISON_OP",
	KindArithmetic:        "ARITHMETIC_OP",
	KindNumber:            "NUMBER",
	KindString:            "STRING",
	KindParenOpen:         "PAREN_OPEN",
	KindParenClose:        "PAREN_CLOSE",
	KindWhitespace:        "WHITESPACE",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// FunctionMacro is the decomposed form of a {host:key.function(params)} token.
type FunctionMacro struct {
	// Host is the technical host name before the first colon.
	Host string

	// ItemKey is the item key including its bracketed parameters,
	// e.g. "system.cpu.util[,iowait]".
	ItemKey string

	// Function is the trigger function name, e.g. "last".
	Function string

	// Params holds the raw function parameters split on top-level commas.
	// Quoted parameters keep their quotes.
	Params []string
}

// Token is one lexical unit of an expression.
//
// Start and End are inclusive byte offsets into the original string, so
// Text == expr[Start:End+1]. Tokens of one expression never overlap and,
// concatenated in order, reproduce the input exactly.
type Token struct {
	Kind  TokenKind
	Text  string
	Start int
	End   int

	// Macro is set for KindFunctionMacro tokens only.
	Macro *FunctionMacro
}

// Length returns the number of bytes covered by the token.
func (t Token) Length() int {
	return t.End - t.Start + 1
}

// IsMacro reports whether the token is any kind of macro.
func (t Token) IsMacro() bool {
	switch t.Kind {
	case KindFunctionMacro, KindUserMacro, KindLLDMacro, KindTriggerValueMacro:
		return true
	}
	return false
}

// isOperand reports whether the token can stand as a complete operand.
func (t Token) isOperand() bool {
	return t.IsMacro() || t.Kind == KindNumber || t.Kind == KindString
}
