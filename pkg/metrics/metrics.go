// Package metrics exposes highlight pass statistics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/japaniel/lexilight/pkg/highlight"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lexilight"

// Recorder implements highlight.Recorder on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	passes   *prometheus.CounterVec
	spans    *prometheus.CounterVec
	replaced *prometheus.CounterVec
	duration *prometheus.HistogramVec
	sessions prometheus.Gauge
}

var _ highlight.Recorder = (*Recorder)(nil)

// NewRecorder registers the pass metrics plus the Go and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Highlight passes run, by scope.",
		}, []string{"scope"}),
		spans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spans_total",
			Help:      "Highlight spans created, by scope.",
		}, []string{"scope"}),
		replaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "text_nodes_replaced_total",
			Help:      "Text nodes rewritten into highlighted fragments, by scope.",
		}, []string{"scope"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of highlight passes, by scope.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"scope"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Open live page sessions.",
		}),
	}
	r.registry.MustRegister(
		r.passes, r.spans, r.replaced, r.duration, r.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObservePass records one completed pass.
func (r *Recorder) ObservePass(scope highlight.Scope, res highlight.Result, elapsed time.Duration) {
	s := string(scope)
	r.passes.WithLabelValues(s).Inc()
	r.spans.WithLabelValues(s).Add(float64(res.Spans))
	r.replaced.WithLabelValues(s).Add(float64(res.Replaced))
	r.duration.WithLabelValues(s).Observe(elapsed.Seconds())
}

// SessionOpened and SessionClosed track the live session gauge.
func (r *Recorder) SessionOpened() { r.sessions.Inc() }
func (r *Recorder) SessionClosed() { r.sessions.Dec() }

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
