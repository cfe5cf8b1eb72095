// Package trigger evaluates configured trigger expressions against stored
// history and turns state changes into events.
package trigger

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"zte.szuro.net/internal/config"
	"zte.szuro.net/pkg/expression"
	"zte.szuro.net/pkg/zbx"
)

type State int

const (
	OK State = iota
	PROBLEM
)

func (s State) String() string {
	if s == PROBLEM {
		return "PROBLEM"
	}
	return "OK"
}

// ref is one distinct function macro used by a trigger.
type ref struct {
	text     string
	macro    *expression.FunctionMacro
	params   []string
	item     zbx.Item
	resolved bool
	warned   bool
}

type Trigger struct {
	Name               string
	Expression         string
	RecoveryExpression string
	Severity           int
	Tags               []zbx.Tag

	refs       []*ref
	userMacros []string
	state      State
	problemID  int
}

func (t *Trigger) State() State {
	return t.state
}

// newTrigger checks both expressions and collects their function macros.
func newTrigger(conf config.TriggerConf) (*Trigger, error) {
	t := &Trigger{
		Name:               conf.Name,
		Expression:         conf.Expression,
		RecoveryExpression: conf.RecoveryExpression,
		Severity:           conf.Severity,
	}
	for tag, value := range conf.Tags {
		t.Tags = append(t.Tags, zbx.Tag{Tag: tag, Value: value})
	}
	slices.SortFunc(t.Tags, func(a, b zbx.Tag) int { return strings.Compare(a.Tag, b.Tag) })

	for _, expr := range []string{t.Expression, t.RecoveryExpression} {
		if expr == "" {
			continue
		}
		tokens, err := expression.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("trigger %q: %w", t.Name, err)
		}
		for _, tok := range tokens {
			if tok.Kind == expression.KindUserMacro && !slices.Contains(t.userMacros, tok.Text) {
				t.userMacros = append(t.userMacros, tok.Text)
			}
			if tok.Kind != expression.KindFunctionMacro || t.ref(tok.Text) != nil {
				continue
			}
			if !zbx.IsFunction(tok.Macro.Function) {
				return nil, fmt.Errorf("trigger %q: unknown function %q in %s", t.Name, tok.Macro.Function, tok.Text)
			}
			t.refs = append(t.refs, &ref{text: tok.Text, macro: tok.Macro, params: unquoteParams(tok.Macro.Params)})
		}
	}
	return t, nil
}

func (t *Trigger) ref(text string) *ref {
	for _, r := range t.refs {
		if r.text == text {
			return r
		}
	}
	return nil
}

// hosts lists the distinct hosts of resolved macros in order of appearance.
func (t *Trigger) hosts() []zbx.Host {
	var hosts []zbx.Host
	for _, r := range t.refs {
		if !r.resolved {
			continue
		}
		h := zbx.Host{Host: r.item.Host}
		if !slices.Contains(hosts, h) {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// unquoteParams strips the quotes of quoted function parameters.
func unquoteParams(params []string) []string {
	out := make([]string, len(params))
	for i, p := range params {
		if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
			p = strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(p[1 : len(p)-1])
		}
		out[i] = p
	}
	return out
}
