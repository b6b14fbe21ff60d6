// Package metrics records reconciliation metrics with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/bomsync/pkg/errors"
)

// Metrics holds the collectors of one run. The CLI is short-lived, so the
// collectors live on their own registry and are flushed to a node-exporter
// textfile at exit.
type Metrics struct {
	registry *prometheus.Registry

	PushesTotal       *prometheus.CounterVec
	PushDuration      *prometheus.HistogramVec
	LinesCreated      *prometheus.CounterVec
	LinesDeleted      *prometheus.CounterVec
	DeleteFailures    *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	TransactionsTotal *prometheus.CounterVec
	RollbackDeletions prometheus.Counter
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PushesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bomsync_pushes_total",
				Help: "Total number of BOM pushes by outcome",
			},
			[]string{"outcome"},
		),
		PushDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bomsync_push_duration_seconds",
				Help:    "Time taken to replace a remote BOM",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"outcome"},
		),
		LinesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bomsync_lines_created_total",
				Help: "Total number of remote BOM lines created",
			},
			[]string{"entity"},
		),
		LinesDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bomsync_lines_deleted_total",
				Help: "Total number of remote BOM lines deleted",
			},
			[]string{"entity"},
		),
		DeleteFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bomsync_line_delete_failures_total",
				Help: "Total number of remote BOM line deletions that failed",
			},
			[]string{"entity"},
		),
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bomsync_status_transitions_total",
				Help: "Total number of entity status transitions",
			},
			[]string{"from", "to"},
		),
		TransactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bomsync_transactions_total",
				Help: "Total number of creation transactions by outcome",
			},
			[]string{"outcome"},
		),
		RollbackDeletions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bomsync_rollback_deletions_total",
				Help: "Total number of remote items deleted by rollback",
			},
		),
	}
}

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"
	OutcomeDryRun  = "dry_run"
)

// ObservePush records one push.
func (m *Metrics) ObservePush(entity, outcome string, deleted, created, deleteFailures int, d time.Duration) {
	if m == nil {
		return
	}
	m.PushesTotal.WithLabelValues(outcome).Inc()
	m.PushDuration.WithLabelValues(outcome).Observe(d.Seconds())
	m.LinesDeleted.WithLabelValues(entity).Add(float64(deleted))
	m.LinesCreated.WithLabelValues(entity).Add(float64(created))
	m.DeleteFailures.WithLabelValues(entity).Add(float64(deleteFailures))
}

// ObserveTransition records a status change.
func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

// ObserveTransaction records a creation transaction.
func (m *Metrics) ObserveTransaction(outcome string) {
	if m == nil {
		return
	}
	m.TransactionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRollback records items removed by a rollback.
func (m *Metrics) ObserveRollback(deleted int) {
	if m == nil {
		return
	}
	m.RollbackDeletions.Add(float64(deleted))
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the collectors in the text exposition format. The
// file is written atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
