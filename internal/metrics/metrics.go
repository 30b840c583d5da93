// Package metrics exports cache and limiter activity as Prometheus metrics.
//
// A Collector implements both cache.Observer and limiter.Observer, so it is
// wired in with cache.WithObserver and limiter.WithObserver:
//
//	col := metrics.NewCollector(metrics.Config{Namespace: "spigot"}, nil)
//	c, _ := cache.New[string](100, time.Minute, cache.WithObserver(col))
//	http.Handle("/metrics", col.Handler())
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls metric naming.
type Config struct {
	Namespace   string    `json:"namespace" yaml:"namespace"`
	WaitBuckets []float64 `json:"wait_buckets,omitempty" yaml:"wait_buckets,omitempty"`
}

// Collector owns a registry and the metric vectors for caches and limiters.
type Collector struct {
	registry *prometheus.Registry

	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	cacheEvictions   *prometheus.CounterVec
	cacheExpirations *prometheus.CounterVec
	cacheEntries     *prometheus.GaugeVec

	limiterAdmitted *prometheus.CounterVec
	limiterRejected *prometheus.CounterVec
	limiterWait     *prometheus.HistogramVec
}

// NewCollector creates and registers every metric. If registry is nil a
// fresh one is used.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "spigot"
	}
	if len(cfg.WaitBuckets) == 0 {
		// 10ms poll interval up to a minute-long window.
		cfg.WaitBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}
	}

	counter := func(subsystem, name, help, label string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, []string{label})
	}

	c := &Collector{
		registry:         registry,
		cacheHits:        counter("cache", "hits_total", "Total number of cache hits", "cache"),
		cacheMisses:      counter("cache", "misses_total", "Total number of cache misses, expired entries included", "cache"),
		cacheEvictions:   counter("cache", "evictions_total", "Total number of entries evicted to make room", "cache"),
		cacheExpirations: counter("cache", "expirations_total", "Total number of entries removed on expiry", "cache"),
		cacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of entries in cache",
		}, []string{"cache"}),
		limiterAdmitted: counter("limiter", "admitted_total", "Total number of admitted calls", "limiter"),
		limiterRejected: counter("limiter", "rejected_total", "Total number of rejected attempts", "limiter"),
		limiterWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "limiter",
			Name:      "wait_seconds",
			Help:      "Time spent blocked in Wait before admission",
			Buckets:   cfg.WaitBuckets,
		}, []string{"limiter"}),
	}

	registry.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.cacheEvictions,
		c.cacheExpirations,
		c.cacheEntries,
		c.limiterAdmitted,
		c.limiterRejected,
		c.limiterWait,
	)
	return c
}

// Registry returns the registry the collector registered into.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

func (c *Collector) OnHit(cache string)    { c.cacheHits.WithLabelValues(cache).Inc() }
func (c *Collector) OnMiss(cache string)   { c.cacheMisses.WithLabelValues(cache).Inc() }
func (c *Collector) OnEvict(cache string)  { c.cacheEvictions.WithLabelValues(cache).Inc() }
func (c *Collector) OnExpire(cache string) { c.cacheExpirations.WithLabelValues(cache).Inc() }

func (c *Collector) OnSize(cache string, entries int) {
	c.cacheEntries.WithLabelValues(cache).Set(float64(entries))
}

func (c *Collector) OnAdmit(limiter string)  { c.limiterAdmitted.WithLabelValues(limiter).Inc() }
func (c *Collector) OnReject(limiter string) { c.limiterRejected.WithLabelValues(limiter).Inc() }

func (c *Collector) OnWait(limiter string, waited time.Duration) {
	c.limiterWait.WithLabelValues(limiter).Observe(waited.Seconds())
}
