// Package observer ships trigger events to their targets.
package observer

import (
	"cmp"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/exp/slices"

	"zte.szuro.net/internal/config"
	"zte.szuro.net/internal/filter"
	"zte.szuro.net/internal/logger"
	zbxpkg "zte.szuro.net/pkg/zbx"
)

const (
	PRINT_TARGET        = "print"
	PSQL_TARGET         = "psql"
	PUSHGATEWAY_TARGET  = "pushgateway"
	REMOTE_WRITE_TARGET = "prometheus_remote_write"
)

var (
	shippingOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zte_shipping_operations_total",
		Help: "Total number of shipped events",
	}, []string{"target_name", "target_type"})

	shippingErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zte_shipping_errors_total",
		Help: "Total number of events that failed to ship",
	}, []string{"target_name", "target_type"})
)

type Observer interface {
	Cleanup()
	GetName() string
	SaveEvents(e []zbxpkg.Event) bool
}

type observerMetrics struct {
	eventsSent   prometheus.Counter
	eventsFailed prometheus.Counter
}

type baseObserver struct {
	name         string
	observerType string
	monitor      observerMetrics
	buffer       *EventBuffer
	filter       filter.EventFilter
}

func newBaseObserver(name, observerType string) baseObserver {
	return baseObserver{
		name:         name,
		observerType: observerType,
		monitor: observerMetrics{
			eventsSent:   shippingOperations.WithLabelValues(name, observerType),
			eventsFailed: shippingErrors.WithLabelValues(name, observerType),
		},
	}
}

// GetName returns the name of the observer.
func (bo *baseObserver) GetName() string {
	return bo.name
}

func (bo *baseObserver) setBuffer(b *EventBuffer) {
	bo.buffer = b
}

func (bo *baseObserver) setFilter(f filter.EventFilter) {
	bo.filter = f
}

// Cleanup releases the offline buffer.
func (bo *baseObserver) Cleanup() {
	if err := bo.buffer.Close(); err != nil {
		logger.Error("Failed to close offline buffer", slog.String("name", bo.name), slog.Any("error", err))
	}
}

// saveEvents ships events with saveFunc. Buffered events from earlier
// failures are shipped in the same call, merged with events and ordered by
// eventOrder. Events that fail go to the offline buffer when there is one,
// buffered events that were delivered are removed from it. Events rejected
// by the target filter count as delivered.
func (bo *baseObserver) saveEvents(events []zbxpkg.Event, saveFunc func([]zbxpkg.Event) ([]zbxpkg.Event, error)) bool {
	events = bo.filter.Apply(events)
	if len(events) == 0 {
		return true
	}

	var buffered []zbxpkg.Event
	if bo.buffer != nil {
		var err error
		if buffered, err = bo.buffer.Fetch(max(len(events), 100)); err != nil {
			logger.Error("Failed to read offline buffer", slog.String("name", bo.name), slog.Any("error", err))
			buffered = nil
		}
	}
	batch := mergeEvents(buffered, events)

	failed, err := saveFunc(batch)
	bo.monitor.eventsSent.Add(float64(len(batch) - len(failed)))
	bo.monitor.eventsFailed.Add(float64(len(failed)))
	if err != nil {
		logger.Error("Failed to ship events", slog.String("name", bo.name), slog.Any("error", err))
	}
	if bo.buffer == nil {
		return err == nil
	}

	if delivered := subtract(buffered, failed); len(delivered) > 0 {
		if err := bo.buffer.Delete(delivered); err != nil {
			logger.Error("Failed to delete from buffer", slog.String("name", bo.name), slog.Any("error", err))
		}
	}
	if fresh := subtract(failed, buffered); len(fresh) > 0 {
		if err := bo.buffer.Put(fresh); err != nil {
			logger.Error("Failed to save events to offline buffer", slog.String("name", bo.name), slog.Any("error", err))
		}
	}
	return err == nil
}

// eventOrder sorts events by time, then by id.
func eventOrder(a, b zbxpkg.Event) int {
	switch {
	case a.Clock != b.Clock:
		return cmp.Compare(a.Clock, b.Clock)
	case a.NS != b.NS:
		return cmp.Compare(a.NS, b.NS)
	}
	return cmp.Compare(a.EventID, b.EventID)
}

// mergeEvents joins buffered and new events without duplicate ids, in eventOrder.
func mergeEvents(buffered, events []zbxpkg.Event) []zbxpkg.Event {
	merged := make([]zbxpkg.Event, 0, len(buffered)+len(events))
	merged = append(merged, buffered...)
	merged = append(merged, subtract(events, buffered)...)
	slices.SortStableFunc(merged, eventOrder)
	return merged
}

// subtract returns the events of all whose id is not in drop.
func subtract(all, drop []zbxpkg.Event) []zbxpkg.Event {
	if len(drop) == 0 {
		return all
	}
	skip := make(map[int]struct{}, len(drop))
	for _, e := range drop {
		skip[e.EventID] = struct{}{}
	}
	out := make([]zbxpkg.Event, 0, len(all))
	for _, e := range all {
		if _, ok := skip[e.EventID]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// FromTarget builds the observer configured by target. Offline buffers live
// under dataDir.
func FromTarget(target config.Target, dataDir string) (Observer, error) {
	buffer, err := OpenEventBuffer(filepath.Join(dataDir, "buffer", target.Name), target.OfflineBufferTime)
	if err != nil {
		return nil, err
	}

	var o interface {
		Observer
		setBuffer(*EventBuffer)
		setFilter(filter.EventFilter)
	}
	switch target.Type {
	case PRINT_TARGET:
		o = NewPrint(target.Name, target.Connection)
	case PSQL_TARGET:
		o, err = NewPSQL(target.Name, target.Connection, target.Options)
	case PUSHGATEWAY_TARGET:
		o, err = NewPushGateway(target.Name, target.Connection, target.Options)
	case REMOTE_WRITE_TARGET:
		o, err = NewRemoteWrite(target.Name, target.Connection, target.Options)
	default:
		err = fmt.Errorf("unknown target type %q", target.Type)
	}
	if err != nil {
		buffer.Close()
		return nil, err
	}
	o.setBuffer(buffer)
	o.setFilter(target.Filter)
	return o, nil
}
