// Package metrics provides Prometheus metrics for quoting sessions
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/services/matching"
	"github.com/vsinha/quoting/pkg/infrastructure/events"
)

var (
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoting_passes_total",
			Help: "Total number of completed recompute passes",
		},
		[]string{"kind"},
	)

	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quoting_pass_duration_seconds",
			Help:    "Time taken by a recompute pass over the assembly tree",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"kind"},
	)

	NodesVisited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoting_nodes_visited_total",
			Help: "Total number of tree nodes visited by recompute passes",
		},
		[]string{"kind"},
	)

	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoting_matches_total",
			Help: "Material matches by shape and outcome",
		},
		[]string{"shape", "outcome"},
	)

	CatalogErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoting_catalog_errors_total",
			Help: "Catalog failures absorbed by the matcher",
		},
		[]string{"shape", "operation"},
	)

	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoting_session_events_total",
			Help: "Session events published by type",
		},
		[]string{"type"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quoting_sessions_active",
			Help: "Number of open quoting sessions",
		},
	)
)

// Recorder forwards matcher and session observations to the package metrics
type Recorder struct{}

// NewRecorder creates a recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

var _ matching.Observer = (*Recorder)(nil)
var _ events.EventHandler = (*Recorder)(nil)

func (r *Recorder) MatchCompleted(shape entities.ShapeKey, outcome matching.Outcome) {
	MatchesTotal.WithLabelValues(string(shape), string(outcome)).Inc()
}

func (r *Recorder) CatalogFailed(shape entities.ShapeKey, operation string) {
	CatalogErrorsTotal.WithLabelValues(string(shape), operation).Inc()
}

// PassCompleted records a finished recompute pass
func (r *Recorder) PassCompleted(kind string, duration time.Duration, nodes int) {
	PassesTotal.WithLabelValues(kind).Inc()
	PassDuration.WithLabelValues(kind).Observe(duration.Seconds())
	NodesVisited.WithLabelValues(kind).Add(float64(nodes))
}

// SessionOpened tracks a newly created session
func (r *Recorder) SessionOpened() {
	SessionsActive.Inc()
}

// SessionClosed tracks a disposed session
func (r *Recorder) SessionClosed() {
	SessionsActive.Dec()
}

// Handle counts a published session event
func (r *Recorder) Handle(event events.Event) error {
	SessionEventsTotal.WithLabelValues(event.Type()).Inc()
	return nil
}

func (r *Recorder) CanHandle(string) bool {
	return true
}
