// Package metrics exposes Prometheus metrics for ingestion, aggregate
// rebuilds and the HTTP facade on a private registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lineups"

// Recorder holds every metric. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	gamesIngested   *prometheus.CounterVec
	eventsIngested  prometheus.Counter
	possessions     prometheus.Counter
	eventFlags      *prometheus.CounterVec
	ingestDuration  prometheus.Histogram
	rebuildDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers all metrics on a fresh registry together with the Go
// runtime collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	auto := promauto.With(reg)

	return &Recorder{
		registry: reg,
		gamesIngested: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "games_total",
			Help:      "Games processed, by final status.",
		}, []string{"status"}),
		eventsIngested: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Events of successfully committed games.",
		}),
		possessions: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "possessions_total",
			Help:      "Possessions of successfully committed games.",
		}),
		eventFlags: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "event_flags_total",
			Help:      "Recoverable event problems, by reason.",
		}, []string{"reason"}),
		ingestDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "game_duration_seconds",
			Help:      "Wall time to derive and commit one game.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		rebuildDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregates",
			Name:      "rebuild_duration_seconds",
			Help:      "Wall time of one aggregate rebuild, by scope kind.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"scope"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry returns the registry to expose on /metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

func (r *Recorder) GameIngested(status string, events, possessions int, d time.Duration) {
	if r == nil {
		return
	}
	r.gamesIngested.WithLabelValues(status).Inc()
	r.ingestDuration.Observe(d.Seconds())
	if events > 0 {
		r.eventsIngested.Add(float64(events))
	}
	if possessions > 0 {
		r.possessions.Add(float64(possessions))
	}
}

func (r *Recorder) EventFlagged(reason string) {
	if r == nil {
		return
	}
	r.eventFlags.WithLabelValues(reason).Inc()
}

func (r *Recorder) Rebuilt(scopeKind string, d time.Duration) {
	if r == nil {
		return
	}
	r.rebuildDuration.WithLabelValues(scopeKind).Observe(d.Seconds())
}

func (r *Recorder) HTTPRequest(route string, code int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
