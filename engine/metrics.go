package engine

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// invocationBuckets are latency buckets in seconds, wide enough to cover
// both cheap round-trips and anything stuck pumping microtasks.
var invocationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics wraps the prometheus collectors the cache and invoker report
// to. One Metrics is shared process-wide.
type Metrics struct {
	registry *prometheus.Registry

	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheBuilds   prometheus.Counter
	cacheEvicts   prometheus.Counter
	singleflights prometheus.Counter

	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics builds a Metrics registered under namespace "faasrun".
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "faasrun", Subsystem: "cache", Name: "hits_total",
			Help: "Isolate cache lookups that found a warm Isolate.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "faasrun", Subsystem: "cache", Name: "misses_total",
			Help: "Isolate cache lookups that required a build.",
		}),
		cacheBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "faasrun", Subsystem: "cache", Name: "builds_total",
			Help: "Isolates constructed from source.",
		}),
		cacheEvicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "faasrun", Subsystem: "cache", Name: "evictions_total",
			Help: "Warm Isolates destroyed because a redeploy replaced them or Evict removed them.",
		}),
		singleflights: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "faasrun", Subsystem: "cache", Name: "singleflight_waits_total",
			Help: "Callers that waited on an in-progress build instead of starting their own.",
		}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "faasrun", Subsystem: "invoke", Name: "total",
			Help: "Invocations by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "faasrun", Subsystem: "invoke", Name: "duration_seconds",
			Help:    "Invocation latency, from Invoker entry to result or error.",
			Buckets: invocationBuckets,
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.cacheHits, m.cacheMisses, m.cacheBuilds, m.cacheEvicts, m.singleflights,
		m.invocations, m.duration,
	)
	return m
}

// Handler exposes the registry at GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) recordCacheHit()       { m.cacheHits.Inc() }
func (m *Metrics) recordCacheMiss()      { m.cacheMisses.Inc() }
func (m *Metrics) recordBuild()          { m.cacheBuilds.Inc() }
func (m *Metrics) recordEviction()       { m.cacheEvicts.Inc() }
func (m *Metrics) recordSingleflight()   { m.singleflights.Inc() }

func (m *Metrics) observe(outcome string, seconds float64) {
	m.invocations.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(seconds)
}

// outcomeFor maps an error returned by Invoke into a metrics label.
func outcomeFor(err error) string {
	if err == nil {
		return "ok"
	}
	switch err.(type) {
	case *CompileError:
		return "compile_error"
	case *ContractError:
		return "contract_error"
	case *RuntimeError:
		return "runtime_error"
	case *SerializationError:
		return "serialization_error"
	case *TimeoutError:
		return "timeout"
	default:
		return "error"
	}
}
