package observer

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"golang.org/x/exp/slices"

	zbxpkg "zte.szuro.net/pkg/zbx"
)

// PushGateway pushes the latest state of every trigger in a batch to a
// Prometheus Pushgateway, grouped by trigger name. The latest event is the
// greatest in eventOrder.
type PushGateway struct {
	baseObserver
	url string
	job string
}

func NewPushGateway(name, gatewayURL string, opts map[string]string) (*PushGateway, error) {
	if _, err := url.ParseRequestURI(gatewayURL); err != nil {
		return nil, fmt.Errorf("invalid pushgateway url: %w", err)
	}
	job := opts["job"]
	if job == "" {
		job, _ = os.Hostname()
	}
	if job == "" {
		job = "zted"
	}
	return &PushGateway{
		baseObserver: newBaseObserver(name, PUSHGATEWAY_TARGET),
		url:          gatewayURL,
		job:          job,
	}, nil
}

func (pg *PushGateway) SaveEvents(e []zbxpkg.Event) bool {
	return pg.saveEvents(e, pg.eventFunction)
}

func (pg *PushGateway) eventFunction(e []zbxpkg.Event) (failed []zbxpkg.Event, err error) {
	byTrigger := make(map[string][]zbxpkg.Event)
	var names []string
	for _, event := range e {
		if _, ok := byTrigger[event.Name]; !ok {
			names = append(names, event.Name)
		}
		byTrigger[event.Name] = append(byTrigger[event.Name], event)
	}
	slices.Sort(names)

	for _, name := range names {
		events := byTrigger[name]
		latest := slices.MaxFunc(events, eventOrder)

		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        problemMetric,
			Help:        "1 while the trigger is in problem state",
			ConstLabels: prometheus.Labels{"severity": strconv.Itoa(latest.Severity)},
		})
		gauge.Set(float64(latest.Value))

		if perr := push.New(pg.url, pg.job).Collector(gauge).Grouping("trigger", name).Push(); perr != nil {
			failed = append(failed, events...)
			err = perr
		}
	}
	return failed, err
}
