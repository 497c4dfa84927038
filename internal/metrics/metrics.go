// Package metrics exposes Prometheus instrumentation for the read-through cache
// and its circuit breaker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-contact-cache/circuitbreaker"
)

// Fallback reasons.
const (
	ReasonBreakerOpen = "breaker_open"
	ReasonCacheError  = "cache_error"
)

// Recorder receives cache events. Implementations must be safe for concurrent use.
type Recorder interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	Fallback(cache, reason string)
	WriteBackFailure(cache string)
	SourceDuration(cache string, d time.Duration)
	BreakerTransition(breaker string, from, to circuitbreaker.State)
}

// Nop discards every event.
type Nop struct{}

func (Nop) CacheHit(string)                                                      {}
func (Nop) CacheMiss(string)                                                     {}
func (Nop) Fallback(string, string)                                              {}
func (Nop) WriteBackFailure(string)                                              {}
func (Nop) SourceDuration(string, time.Duration)                                 {}
func (Nop) BreakerTransition(string, circuitbreaker.State, circuitbreaker.State) {}

// Collector is a Recorder backed by its own Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	Fallbacks          *prometheus.CounterVec
	WriteBackFailures  *prometheus.CounterVec
	SourceLatency      *prometheus.HistogramVec
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates and registers the cache metrics under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_fallbacks_total",
				Help:      "Reads served from the source because the cache was unavailable",
			},
			[]string{"cache", "reason"},
		),
		WriteBackFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_write_back_failures_total",
				Help:      "Cache writes that failed and were discarded",
			},
			[]string{"cache"},
		),
		SourceLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_read_duration_seconds",
				Help:      "Source repository read duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"cache"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
			},
			[]string{"breaker"},
		),
		BreakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_transitions_total",
				Help:      "Circuit breaker state transitions",
			},
			[]string{"breaker", "from", "to"},
		),
	}

	registry.MustRegister(
		c.CacheHits,
		c.CacheMisses,
		c.Fallbacks,
		c.WriteBackFailures,
		c.SourceLatency,
		c.BreakerState,
		c.BreakerTransitions,
	)

	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) CacheHit(cache string) {
	c.CacheHits.WithLabelValues(cache).Inc()
}

func (c *Collector) CacheMiss(cache string) {
	c.CacheMisses.WithLabelValues(cache).Inc()
}

func (c *Collector) Fallback(cache, reason string) {
	c.Fallbacks.WithLabelValues(cache, reason).Inc()
}

func (c *Collector) WriteBackFailure(cache string) {
	c.WriteBackFailures.WithLabelValues(cache).Inc()
}

func (c *Collector) SourceDuration(cache string, d time.Duration) {
	c.SourceLatency.WithLabelValues(cache).Observe(d.Seconds())
}

func (c *Collector) BreakerTransition(breaker string, from, to circuitbreaker.State) {
	c.BreakerState.WithLabelValues(breaker).Set(float64(to))
	c.BreakerTransitions.WithLabelValues(breaker, from.String(), to.String()).Inc()
}

// BreakerHook adapts r to circuitbreaker.WithOnStateChange.
func BreakerHook(r Recorder) circuitbreaker.Option {
	return circuitbreaker.WithOnStateChange(r.BreakerTransition)
}
