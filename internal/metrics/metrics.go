// Package metrics exports journal operations as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace   = "reflections"
	labelOp     = "operation"
	labelStatus = "status"
	statusOK    = "ok"
)

// Recorder implements journal.OperationLogger by updating Prometheus collectors.
type Recorder struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	goldEarned  prometheus.Counter
	goldSpent   prometheus.Counter
	goldBalance prometheus.Gauge
	streak      prometheus.Gauge
}

// NewRecorder registers the journal collectors on a fresh registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Journal operations by operation and status.",
		}, []string{labelOp, labelStatus}),
		goldEarned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gold_earned_total",
			Help:      "Gold tokens credited by rewards and grants.",
		}),
		goldSpent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gold_spent_total",
			Help:      "Gold tokens debited by purchases.",
		}),
		goldBalance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gold_balance",
			Help:      "Gold balance after the last successful operation.",
		}),
		streak: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streak_days",
			Help:      "Streak after the last successful operation.",
		}),
	}
}

// LogOperation counts entry and, for successful operations, updates the balance and streak gauges.
func (recorder *Recorder) LogOperation(_ context.Context, entry journal.OperationLog) {
	recorder.operations.WithLabelValues(entry.Operation, entry.Status).Inc()
	if entry.Status != statusOK {
		return
	}
	switch {
	case entry.GoldDelta > 0:
		recorder.goldEarned.Add(float64(entry.GoldDelta))
	case entry.GoldDelta < 0:
		recorder.goldSpent.Add(float64(-entry.GoldDelta))
	}
	recorder.goldBalance.Set(float64(entry.GoldBalance))
	recorder.streak.Set(float64(entry.Streak))
}

// Registry returns the registry holding the journal collectors.
func (recorder *Recorder) Registry() *prometheus.Registry {
	return recorder.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (recorder *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(recorder.registry, promhttp.HandlerOpts{})
}
