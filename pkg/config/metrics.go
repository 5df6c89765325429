package config

import (
	"github.com/marmos91/mirrord/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// SyncMetrics is the metrics collector for the sync engine (never nil,
	// uses noop if disabled)
	SyncMetrics metrics.SyncMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for the engine
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Server:      nil,
			SyncMetrics: metrics.NewSyncMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Listen: cfg.Metrics.Listen,
	})

	return &MetricsResult{
		Server:      server,
		SyncMetrics: metrics.NewSyncMetrics(),
	}
}
