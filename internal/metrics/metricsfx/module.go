package metricsfx

import (
	"github.com/0x5457/ws-index/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// NewRegistry creates the registry the application's collectors live in
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// NewMetrics registers the index collectors
func NewMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

// Module provides metrics components
var Module = fx.Module("metrics",
	fx.Provide(
		NewRegistry,
		NewMetrics,
	),
)
