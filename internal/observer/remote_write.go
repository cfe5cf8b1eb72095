package observer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/m3db/prometheus_remote_client_golang/promremote"
	"github.com/prometheus/prometheus/prompb"
	"golang.org/x/exp/slices"

	"zte.szuro.net/internal/config"
	zbxpkg "zte.szuro.net/pkg/zbx"
)

const (
	problemMetric = "zte_trigger_problem"

	defaultWriteTimeout = 30 * time.Second
)

// RemoteWrite ships trigger state changes as samples of the
// zte_trigger_problem series, 1 for a problem and 0 for a recovery.
type RemoteWrite struct {
	baseObserver
	client  promremote.Client
	timeout time.Duration
}

func NewRemoteWrite(name, url string, opts map[string]string) (*RemoteWrite, error) {
	cfg := promremote.NewConfig(
		promremote.WriteURLOption(url),
		promremote.UserAgent(fmt.Sprintf("zted/%s", config.Version)),
	)
	client, err := promremote.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to construct remote write client: %w", err)
	}

	rw := &RemoteWrite{
		baseObserver: newBaseObserver(name, REMOTE_WRITE_TARGET),
		client:       client,
		timeout:      defaultWriteTimeout,
	}
	if v, ok := opts["timeout"]; ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			rw.timeout = d
		}
	}
	return rw, nil
}

func (rw *RemoteWrite) SaveEvents(e []zbxpkg.Event) bool {
	return rw.saveEvents(e, rw.eventFunction)
}

func (rw *RemoteWrite) eventFunction(e []zbxpkg.Event) ([]zbxpkg.Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rw.timeout)
	defer cancel()

	if _, err := rw.client.WriteProto(ctx, eventsToWriteRequest(e), promremote.WriteOptions{}); err != nil {
		return e, fmt.Errorf("remote write failed: %w", err)
	}
	return nil, nil
}

// eventsToWriteRequest builds one series per trigger. Samples of a series
// are in timestamp order and labels are sorted by name.
func eventsToWriteRequest(events []zbxpkg.Event) *prompb.WriteRequest {
	series := make(map[string]*prompb.TimeSeries)
	for _, e := range events {
		ts, ok := series[e.Name]
		if !ok {
			ts = &prompb.TimeSeries{
				Labels: []prompb.Label{
					{Name: "__name__", Value: problemMetric},
					{Name: "severity", Value: strconv.Itoa(e.Severity)},
					{Name: "trigger", Value: e.Name},
				},
			}
			series[e.Name] = ts
		}
		ts.Samples = append(ts.Samples, prompb.Sample{
			Value:     float64(e.Value),
			Timestamp: time.Unix(int64(e.Clock), int64(e.NS)).UnixMilli(),
		})
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	slices.Sort(names)

	wr := &prompb.WriteRequest{Timeseries: make([]prompb.TimeSeries, 0, len(series))}
	for _, name := range names {
		ts := series[name]
		slices.SortStableFunc(ts.Samples, func(a, b prompb.Sample) int {
			switch {
			case a.Timestamp < b.Timestamp:
				return -1
			case a.Timestamp > b.Timestamp:
				return 1
			}
			return 0
		})
		wr.Timeseries = append(wr.Timeseries, *ts)
	}
	return wr
}
