// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/levelgrid/internal/model"
)

const namespace = "levelgrid"

// Run results
const (
	RunResultComplete = "complete"
	RunResultSkipped  = "skipped"
	RunResultError    = "error"
)

// Item outcomes
const (
	ItemOutcomeStillExists   = "still_exists"
	ItemOutcomeRemoved       = "removed"
	ItemOutcomeProviderError = "provider_error"
	ItemOutcomeCallbackError = "callback_error"
)

// DeleteCheck holds the deletion check collectors.
// A nil *DeleteCheck is valid and records nothing.
type DeleteCheck struct {
	runs      *prometheus.CounterVec
	items     *prometheus.CounterVec
	duration  prometheus.Histogram
	truncated prometheus.Counter
}

// NewDeleteCheck registers the deletion check collectors with reg
func NewDeleteCheck(reg prometheus.Registerer) *DeleteCheck {
	factory := promauto.With(reg)
	return &DeleteCheck{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deletecheck",
			Name:      "runs_total",
			Help:      "Deletion check runs by result",
		}, []string{"result"}),
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deletecheck",
			Name:      "items_total",
			Help:      "Deletion check candidates processed by outcome",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deletecheck",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of deletion check runs",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 15, 30},
		}),
		truncated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deletecheck",
			Name:      "truncated_total",
			Help:      "Deletion check runs stopped early by the time budget",
		}),
	}
}

// ObserveItem counts one processed candidate
func (m *DeleteCheck) ObserveItem(outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(outcome).Inc()
}

// ObserveRun records the result of a run. summary may be nil for skipped or failed runs.
func (m *DeleteCheck) ObserveRun(result string, summary *model.RunSummary) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	if summary == nil {
		return
	}
	m.duration.Observe(summary.Duration.Seconds())
	if summary.Truncated {
		m.truncated.Inc()
	}
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
