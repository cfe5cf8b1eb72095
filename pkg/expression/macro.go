package expression

import (
	"strings"
)

// Macros that are recognized literally.
var literalMacros = map[string]TokenKind{
	"{TRIGGER.VALUE}": KindTriggerValueMacro,
}

type macroParser func(s string, start int) (Token, bool)

// Tried in order, first match wins.
var macroParsers = []macroParser{
	parseFunctionMacro,
	parseUserMacro,
	parseLLDMacro,
	parseLiteralMacro,
}

func isHostChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) ||
		c == '.' || c == ' ' || c == '_' || c == '-'
}

func isKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) ||
		c == '.' || c == '_' || c == '-'
}

func isFunctionChar(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isMacroNameChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || isDigit(c) || c == '_' || c == '.'
}

// parseFunctionMacro matches {host:key[params].function(params)} starting at s[start] == '{'.
func parseFunctionMacro(s string, start int) (Token, bool) {
	n := len(s)
	i := start + 1

	hostStart := i
	for i < n && isHostChar(s[i]) {
		i++
	}
	if i == hostStart || i >= n || s[i] != ':' {
		return Token{}, false
	}
	host := s[hostStart:i]
	i++

	// Key and function name run up to the first '(' outside key brackets.
	// The function name follows the last top-level dot.
	keyStart := i
	lastDot := -1
	brackets := 0
	inQuote := false
	openParen := -1
scan:
	for ; i < n; i++ {
		c := s[i]
		if inQuote {
			switch c {
			case '\\':
				i++
			case '"':
				inQuote = false
			}
			continue
		}
		switch {
		case c == '"' && brackets > 0:
			inQuote = true
		case c == '[':
			brackets++
		case c == ']':
			if brackets == 0 {
				return Token{}, false
			}
			brackets--
		case brackets > 0:
		case c == '(':
			openParen = i
			break scan
		case c == '.':
			lastDot = i
		case !isKeyChar(c):
			return Token{}, false
		}
	}
	if openParen < 0 || lastDot <= keyStart || lastDot == openParen-1 {
		return Token{}, false
	}
	function := s[lastDot+1 : openParen]
	for j := 0; j < len(function); j++ {
		if !isFunctionChar(function[j]) {
			return Token{}, false
		}
	}

	closeParen := -1
	depth := 1
	inQuote = false
	for i = openParen + 1; i < n && closeParen < 0; i++ {
		c := s[i]
		if inQuote {
			switch c {
			case '\\':
				i++
			case '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				closeParen = i
			}
		}
	}
	if closeParen < 0 || closeParen+1 >= n || s[closeParen+1] != '}' {
		return Token{}, false
	}

	end := closeParen + 1
	return Token{
		Kind:  KindFunctionMacro,
		Text:  s[start : end+1],
		Start: start,
		End:   end,
		Macro: &FunctionMacro{
			Host:     host,
			ItemKey:  s[keyStart:lastDot],
			Function: function,
			Params:   splitParams(s[openParen+1 : closeParen]),
		},
	}, true
}

// splitParams splits function parameters on commas outside quotes, brackets
// and parentheses.
func splitParams(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var (
		params  []string
		depth   int
		inQuote bool
		from    int
	)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inQuote {
			switch c {
			case '\\':
				i++
			case '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				params = append(params, strings.TrimSpace(raw[from:i]))
				from = i + 1
			}
		}
	}
	return append(params, strings.TrimSpace(raw[from:]))
}

// parseUserMacro matches {$NAME} and {$NAME:context}. A quoted context may
// contain '}'.
func parseUserMacro(s string, start int) (Token, bool) {
	n := len(s)
	if start+2 >= n || s[start+1] != '$' {
		return Token{}, false
	}

	i := start + 2
	for i < n && isMacroNameChar(s[i]) {
		i++
	}
	if i == start+2 || i >= n {
		return Token{}, false
	}

	if s[i] == ':' {
		i++
		if i < n && s[i] == '"' {
			i++
			for i < n && s[i] != '"' {
				if s[i] == '\\' {
					i++
				}
				i++
			}
			if i >= n {
				return Token{}, false
			}
			i++
		} else {
			for i < n && s[i] != '}' {
				i++
			}
		}
	}
	if i >= n || s[i] != '}' {
		return Token{}, false
	}

	return Token{Kind: KindUserMacro, Text: s[start : i+1], Start: start, End: i}, true
}

// parseLLDMacro matches {#NAME}.
func parseLLDMacro(s string, start int) (Token, bool) {
	n := len(s)
	if start+2 >= n || s[start+1] != '#' {
		return Token{}, false
	}

	i := start + 2
	for i < n && isMacroNameChar(s[i]) {
		i++
	}
	if i == start+2 || i >= n || s[i] != '}' {
		return Token{}, false
	}

	return Token{Kind: KindLLDMacro, Text: s[start : i+1], Start: start, End: i}, true
}

func parseLiteralMacro(s string, start int) (Token, bool) {
	for text, kind := range literalMacros {
		if strings.HasPrefix(s[start:], text) {
			return Token{Kind: kind, Text: text, Start: start, End: start + len(text) - 1}, true
		}
	}
	return Token{}, false
}
