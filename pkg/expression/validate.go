package expression

import (
	"context"
	"errors"
	"fmt"

	"zte.szuro.net/pkg/zbx"
)

// FunctionInfoResolver looks up the item behind a function macro. Expected
// failures are returned as *zbx.ResolveError; any other error is treated as
// an infrastructure failure.
type FunctionInfoResolver interface {
	Resolve(ctx context.Context, host, key, function string, params []string) (zbx.FunctionInfo, error)
}

// ErrorCache memoizes validation results per expression. Implementations
// must be safe for concurrent use.
type ErrorCache interface {
	Get(expression string) ([]MacroError, bool)
	Set(expression string, errs []MacroError)
}

// MacroError is a validation failure of one macro.
type MacroError struct {
	Macro string
	Code  zbx.ResolveErrorCode
}

func (e MacroError) Error() string {
	return fmt.Sprintf("%s: %s", e.Macro, e.Code.Message())
}

// Validator reports which macros of an expression cannot be resolved.
type Validator struct {
	resolver FunctionInfoResolver
	cache    ErrorCache
}

// NewValidator returns a Validator. cache may be nil.
func NewValidator(resolver FunctionInfoResolver, cache ErrorCache) *Validator {
	return &Validator{resolver: resolver, cache: cache}
}

// Errors returns one MacroError per distinct failing macro, in order of first
// occurrence. Expressions that do not tokenize have no macro errors.
func (v *Validator) Errors(ctx context.Context, expression string) ([]MacroError, error) {
	if v.cache != nil {
		if errs, ok := v.cache.Get(expression); ok {
			return errs, nil
		}
	}

	tokens, err := Tokenize(expression)
	if err != nil {
		return nil, nil
	}

	var errs []MacroError
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if !tok.IsMacro() {
			continue
		}
		if _, ok := seen[tok.Text]; ok {
			continue
		}
		seen[tok.Text] = struct{}{}

		_, err := v.info(ctx, tok)
		var rerr *zbx.ResolveError
		switch {
		case err == nil:
		case errors.As(err, &rerr):
			errs = append(errs, MacroError{Macro: tok.Text, Code: rerr.Code})
		default:
			return nil, fmt.Errorf("resolving %s: %w", tok.Text, err)
		}
	}

	if v.cache != nil {
		v.cache.Set(expression, errs)
	}
	return errs, nil
}

// FunctionInfo returns the metadata of a single macro. Anything that is not
// exactly one macro yields a NotAMacro error.
func (v *Validator) FunctionInfo(ctx context.Context, macro string) (zbx.FunctionInfo, error) {
	tokens, err := Tokenize(macro)
	if err != nil || len(tokens) != 1 || !tokens[0].IsMacro() {
		return zbx.FunctionInfo{}, &zbx.ResolveError{Code: zbx.NotAMacro, Macro: macro}
	}
	return v.info(ctx, tokens[0])
}

func (v *Validator) info(ctx context.Context, tok Token) (zbx.FunctionInfo, error) {
	switch tok.Kind {
	case KindTriggerValueMacro:
		return zbx.MacroInfo(), nil
	case KindUserMacro, KindLLDMacro:
		return zbx.UserMacroInfo(), nil
	case KindFunctionMacro:
		m := tok.Macro
		info, err := v.resolver.Resolve(ctx, m.Host, m.ItemKey, m.Function, m.Params)
		var rerr *zbx.ResolveError
		if errors.As(err, &rerr) && rerr.Macro == "" {
			rerr.Macro = tok.Text
		}
		return info, err
	}
	return zbx.FunctionInfo{}, &zbx.ResolveError{Code: zbx.NotAMacro, Macro: tok.Text}
}
