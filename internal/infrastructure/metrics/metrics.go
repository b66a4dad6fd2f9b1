// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

const namespace = "chronorag"

// Registry implements ports.Metrics on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	chunksPersisted prometheus.Counter
	chunksFailed    *prometheus.CounterVec
	queries         *prometheus.CounterVec
	queryFailures   *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
}

// New registers the collectors, plus the Go and process collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		chunksPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_persisted_total",
			Help:      "Chunks embedded and stored.",
		}),
		chunksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_failed_total",
			Help:      "Chunks dropped during ingestion, by stage.",
		}, []string{"stage"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries answered, by selection mode.",
		}, []string{"mode"}),
		queryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_failures_total",
			Help:      "Queries that returned an error, by reason.",
		}, []string{"reason"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time from query receipt to selected context.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.chunksPersisted,
		r.chunksFailed,
		r.queries,
		r.queryFailures,
		r.queryDuration,
	)
	return r
}

// ChunkPersisted counts a stored chunk.
func (r *Registry) ChunkPersisted(string) {
	r.chunksPersisted.Inc()
}

// ChunkFailed counts a dropped chunk.
func (r *Registry) ChunkFailed(_ string, stage string) {
	r.chunksFailed.WithLabelValues(stage).Inc()
}

// QueryServed records a successful selection.
func (r *Registry) QueryServed(mode entities.SelectionMode, elapsed time.Duration) {
	r.queries.WithLabelValues(string(mode)).Inc()
	r.queryDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
}

// QueryFailed counts a failed query.
func (r *Registry) QueryFailed(reason string) {
	r.queryFailures.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
