// Package filter selects which trigger events a target receives.
package filter

import (
	"golang.org/x/exp/slices"

	zbxpkg "zte.szuro.net/pkg/zbx"
)

// EventFilter matches events by tags and severity. A zero EventFilter
// accepts everything.
//
// Only Accepted set: an event needs at least one matching tag.
// Only Rejected set: an event with a matching tag is dropped.
// Both set: accepted tags are checked first, rejected tags win.
//
// A filter tag with an empty value matches the tag name with any value.
type EventFilter struct {
	Accepted    []zbxpkg.Tag `yaml:"accepted"`
	Rejected    []zbxpkg.Tag `yaml:"rejected"`
	MinSeverity int          `yaml:"min_severity"`
}

func (f EventFilter) IsZero() bool {
	return len(f.Accepted) == 0 && len(f.Rejected) == 0 && f.MinSeverity == 0
}

func matches(filterTags []zbxpkg.Tag, tag zbxpkg.Tag) bool {
	return slices.ContainsFunc(filterTags, func(ft zbxpkg.Tag) bool {
		return ft.Tag == tag.Tag && (ft.Value == "" || ft.Value == tag.Value)
	})
}

// Accepts reports whether e passes the filter.
func (f EventFilter) Accepts(e zbxpkg.Event) bool {
	if e.Severity < f.MinSeverity {
		return false
	}

	accepted := len(f.Accepted) == 0
	for _, tag := range e.Tags {
		if !accepted && matches(f.Accepted, tag) {
			accepted = true
		}
		if matches(f.Rejected, tag) {
			return false
		}
	}
	return accepted
}

// Apply returns the events that pass the filter, in order.
func (f EventFilter) Apply(events []zbxpkg.Event) []zbxpkg.Event {
	if f.IsZero() {
		return events
	}
	out := make([]zbxpkg.Event, 0, len(events))
	for _, e := range events {
		if f.Accepts(e) {
			out = append(out, e)
		}
	}
	return out
}
