package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"zte.szuro.net/internal/config"
	"zte.szuro.net/internal/history"
	"zte.szuro.net/internal/inventory"
	"zte.szuro.net/internal/logger"
	"zte.szuro.net/pkg/expression"
	"zte.szuro.net/pkg/zbx"
)

const triggerValueMacro = "{TRIGGER.VALUE}"

// Observer receives the events produced by state changes.
type Observer interface {
	GetName() string
	SaveEvents(events []zbx.Event) bool
}

// Evaluator owns the configured triggers and their state.
type Evaluator struct {
	// shipMu serializes evaluation runs so observers get events one batch
	// at a time and in the order they were produced.
	shipMu    sync.Mutex
	mu        sync.Mutex
	triggers  []*Trigger
	byItem    map[int][]*Trigger
	inv       inventory.Inventory
	store     *history.Store
	macros    map[string]string
	observers map[string]Observer
	eventID   atomic.Int64
	now       func() time.Time
}

// NewEvaluator parses every trigger and resolves the items it depends on.
// Malformed expressions are an error. Macros that cannot be resolved yet are
// logged and resolved again on every evaluation.
func NewEvaluator(ctx context.Context, triggers []config.TriggerConf, inv inventory.Inventory, store *history.Store, macros map[string]string) (*Evaluator, error) {
	e := &Evaluator{
		byItem:    make(map[int][]*Trigger),
		inv:       inv,
		store:     store,
		macros:    macros,
		observers: make(map[string]Observer),
		now:       time.Now,
	}
	e.eventID.Store(time.Now().UnixMilli())

	for _, conf := range triggers {
		t, err := newTrigger(conf)
		if err != nil {
			return nil, err
		}
		for _, r := range t.refs {
			e.resolve(ctx, t, r)
		}
		e.triggers = append(e.triggers, t)
		stateGauge.WithLabelValues(t.Name).Set(0)
		evaluationsTotal.WithLabelValues(t.Name).Add(0)
		errorsTotal.WithLabelValues(t.Name).Add(0)
	}
	return e, nil
}

func (e *Evaluator) GetName() string {
	return "evaluator"
}

func (e *Evaluator) Register(o Observer) {
	if o == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers[o.GetName()] = o
}

func (e *Evaluator) Triggers() []*Trigger {
	return e.triggers
}

// Trigger returns the trigger with the given name, or nil.
func (e *Evaluator) Trigger(name string) *Trigger {
	for _, t := range e.triggers {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// resolve looks up the item of r. Expected lookup failures are logged once.
func (e *Evaluator) resolve(ctx context.Context, t *Trigger, r *ref) error {
	if r.resolved {
		return nil
	}
	item, err := e.inv.Lookup(ctx, r.macro.Host, r.macro.ItemKey)
	if err != nil {
		var rerr *zbx.ResolveError
		if errors.As(err, &rerr) {
			rerr.Macro = r.text
			if !r.warned {
				logger.Warn("Cannot resolve macro", slog.String("trigger", t.Name), slog.String("macro", r.text), slog.String("code", rerr.Code.String()))
				r.warned = true
			}
			return rerr
		}
		return fmt.Errorf("resolving %s: %w", r.text, err)
	}

	if _, err := zbx.LookupFunction(r.macro.Function, item.ValueType); err != nil {
		var rerr *zbx.ResolveError
		if errors.As(err, &rerr) {
			rerr.Macro = r.text
		}
		return err
	}

	r.item = item
	r.resolved = true
	e.byItem[item.ItemID] = append(e.byItem[item.ItemID], t)
	logger.Debug("Resolved macro", slog.String("trigger", t.Name), slog.String("macro", r.text), slog.Int("itemid", item.ItemID))
	return nil
}

// Evaluate decides the problem expression of t at now.
func (e *Evaluator) Evaluate(ctx context.Context, t *Trigger, now time.Time) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluate(ctx, t, t.Expression, now)
}

func (e *Evaluator) evaluate(ctx context.Context, t *Trigger, expr string, now time.Time) (bool, error) {
	subs, err := e.substitutions(ctx, t, now)
	if err != nil {
		return false, err
	}
	return expression.Evaluate(expr, subs)
}

func (e *Evaluator) substitutions(ctx context.Context, t *Trigger, now time.Time) (map[string]string, error) {
	subs := make(map[string]string, len(t.refs)+len(e.macros)+1)
	for k, v := range e.macros {
		subs[k] = substitution(v)
	}
	subs[triggerValueMacro] = strconv.Itoa(int(t.state))

	for _, r := range t.refs {
		if err := e.resolve(ctx, t, r); err != nil {
			return nil, err
		}
		period, err := history.Request(r.macro.Function, r.params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.text, err)
		}
		values, err := e.store.Values(r.item.ItemID, period, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.text, err)
		}
		result, err := history.Compute(values, r.item.ValueType, r.macro.Function, r.params, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.text, err)
		}
		subs[r.text] = substitution(result)
	}
	for _, m := range t.userMacros {
		if _, ok := subs[m]; ok {
			continue
		}
		if v, ok := e.macros[macroBase(m)]; ok {
			subs[m] = substitution(v)
		}
	}
	return subs, nil
}

// macroBase turns {$NAME:context} into {$NAME}. A macro with a context but
// no value of its own falls back to the plain macro.
func macroBase(m string) string {
	name, _, found := strings.Cut(strings.TrimSuffix(m, "}"), ":")
	if !found {
		return m
	}
	return name + "}"
}

// substitution renders a value so the expression lexer reads it back as the
// same number or string.
func substitution(v string) string {
	if isPlainNumber(v) {
		if strings.ContainsAny(v, "eE") {
			f, _ := strconv.ParseFloat(v, 64)
			return expression.FormatNumber(f)
		}
		return v
	}
	return expression.Quote(v)
}

func isPlainNumber(v string) bool {
	s := strings.TrimPrefix(v, "-")
	if s == "" || !(s[0] >= '0' && s[0] <= '9') {
		return false
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

// process runs the state machine of t and returns the event of a state
// change, if any.
func (e *Evaluator) process(ctx context.Context, t *Trigger, now time.Time) (*zbx.Event, error) {
	evaluationsTotal.WithLabelValues(t.Name).Inc()

	var (
		next = t.state
		err  error
	)
	switch t.state {
	case OK:
		var problem bool
		if problem, err = e.evaluate(ctx, t, t.Expression, now); err == nil && problem {
			next = PROBLEM
		}
	case PROBLEM:
		// The recovery expression is only checked once the problem is gone.
		var problem bool
		if problem, err = e.evaluate(ctx, t, t.Expression, now); err == nil && !problem {
			if t.RecoveryExpression == "" {
				next = OK
			} else {
				var recovered bool
				if recovered, err = e.evaluate(ctx, t, t.RecoveryExpression, now); err == nil && recovered {
					next = OK
				}
			}
		}
	}
	if err != nil {
		errorsTotal.WithLabelValues(t.Name).Inc()
		return nil, err
	}
	if next == t.state {
		return nil, nil
	}

	event := &zbx.Event{
		Clock:      int(now.Unix()),
		NS:         now.Nanosecond(),
		Value:      int(next),
		EventID:    int(e.eventID.Add(1)),
		Name:       t.Name,
		Expression: t.Expression,
		Severity:   t.Severity,
		Hosts:      t.hosts(),
		Tags:       t.Tags,
	}
	if next == PROBLEM {
		t.problemID = event.EventID
	} else {
		event.PEventID = t.problemID
		t.problemID = 0
	}
	t.state = next
	stateGauge.WithLabelValues(t.Name).Set(float64(next))
	logger.Info("Trigger changed state", slog.String("trigger", t.Name), slog.String("state", next.String()), slog.Int("eventid", event.EventID))
	return event, nil
}

func (e *Evaluator) run(ctx context.Context, triggers []*Trigger) {
	e.shipMu.Lock()
	defer e.shipMu.Unlock()

	now := e.now()
	var events []zbx.Event

	e.mu.Lock()
	for _, t := range triggers {
		event, err := e.process(ctx, t, now)
		if err != nil {
			logger.Debug("Trigger evaluation undecided", slog.String("trigger", t.Name), slog.Any("error", err))
			continue
		}
		if event != nil {
			events = append(events, *event)
		}
	}
	observers := make([]Observer, 0, len(e.observers))
	for _, o := range e.observers {
		observers = append(observers, o)
	}
	e.mu.Unlock()

	if len(events) == 0 {
		return
	}
	for _, o := range observers {
		if !o.SaveEvents(events) {
			logger.Warn("Observer failed to save events", slog.String("observer", o.GetName()), slog.Int("events", len(events)))
		}
	}
}

// Consume stores history and evaluates every trigger that depends on it.
func (e *Evaluator) Consume(values []zbx.History) {
	var affected []*Trigger
	seen := make(map[*Trigger]struct{})

	e.mu.Lock()
	for _, h := range values {
		if err := e.store.Add(h); err != nil {
			logger.Error("Failed to store history", slog.Int("itemid", h.ItemID), slog.Any("error", err))
			continue
		}
		for _, t := range e.byItem[h.ItemID] {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				affected = append(affected, t)
			}
		}
	}
	e.mu.Unlock()

	if len(affected) > 0 {
		e.run(context.Background(), affected)
	}
}

// Run evaluates every trigger each interval until ctx is done. This covers
// time based functions such as nodata() and retries unresolved macros.
func (e *Evaluator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.run(ctx, e.triggers)
		}
	}
}
