// Package observability wires the metric provider from process config.
package observability

import (
	"go.uber.org/fx"

	"github.com/leaseline/leaseline/internal/config"
	"github.com/leaseline/leaseline/internal/observability/metrics"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
	),
)

func provideMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.MetricsEnabled,
		ExporterEndpoint: cfg.OTLPEndpoint,
		ServiceName:      cfg.AppName,
		Environment:      cfg.Environment,
	}
}
