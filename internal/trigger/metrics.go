package trigger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zte_trigger_evaluations_total",
		Help: "Total number of trigger evaluations",
	}, []string{"trigger"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zte_trigger_errors_total",
		Help: "Total number of trigger evaluations that could not be decided",
	}, []string{"trigger"})

	stateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zte_trigger_state",
		Help: "Current trigger state, 1 for PROBLEM and 0 for OK",
	}, []string{"trigger"})
)
