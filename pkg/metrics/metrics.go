// Package metrics exposes Spigot's Prometheus collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	internalmetrics "github.com/SmitUplenchwar2687/Spigot/internal/metrics"
)

type (
	Config    = internalmetrics.Config
	Collector = internalmetrics.Collector
)

// NewCollector registers Spigot's cache and limiter metrics on registry.
// A nil registry gets a fresh one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	return internalmetrics.NewCollector(cfg, registry)
}
