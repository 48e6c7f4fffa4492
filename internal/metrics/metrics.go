// Package metrics instruments index passes and queries with Prometheus
// collectors registered on an injected registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ws_index"

// Failure stages for FileError.
const (
	StageRead  = "read"
	StageParse = "parse"
	StageSplit = "split"
	StageStore = "store"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	passes        prometheus.Counter
	passDuration  prometheus.Histogram
	filesIndexed  prometheus.Counter
	fileErrors    *prometheus.CounterVec
	splits        prometheus.Counter
	pruned        prometheus.Counter
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Completed index passes.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a full index pass.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		filesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_indexed_total",
			Help:      "Files written to the index.",
		}),
		fileErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_errors_total",
			Help:      "Per-file failures skipped during a pass.",
		}, []string{"stage"}),
		splits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "splits_total",
			Help:      "Oversized files split into parts.",
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_files_total",
			Help:      "Stale file rows removed.",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Search queries served.",
		}, []string{"kind"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Search query latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.passes, m.passDuration, m.filesIndexed, m.fileErrors,
			m.splits, m.pruned, m.queries, m.queryDuration,
		)
	}
	return m
}

func (m *Metrics) PassDone(d time.Duration) {
	if m == nil {
		return
	}
	m.passes.Inc()
	m.passDuration.Observe(d.Seconds())
}

func (m *Metrics) FileIndexed() {
	if m == nil {
		return
	}
	m.filesIndexed.Inc()
}

func (m *Metrics) FileError(stage string) {
	if m == nil {
		return
	}
	m.fileErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) Split() {
	if m == nil {
		return
	}
	m.splits.Inc()
}

func (m *Metrics) Pruned(n int) {
	if m == nil {
		return
	}
	m.pruned.Add(float64(n))
}

// ObserveQuery records one query of the given kind started at start.
func (m *Metrics) ObserveQuery(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(kind).Inc()
	m.queryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// Handler serves the collectors of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
