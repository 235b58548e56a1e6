package config

import (
	"github.com/marmos91/lodestone/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// HTTP is the metrics collector for the REST adapter (never nil, uses noop if disabled)
	HTTP metrics.HTTPMetrics

	// Lifecycle is the metrics collector for the orchestrator (never nil, uses noop if disabled)
	Lifecycle metrics.LifecycleMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
//
// Parameters:
//   - cfg: The complete Lodestone configuration
//
// Returns:
//   - MetricsResult containing all metrics components
func InitializeMetrics(cfg *Config) *MetricsResult {
	var server *metrics.Server

	if cfg.Server.Metrics.Enabled {
		// Initialize global Prometheus registry
		metrics.InitRegistry()

		// Create metrics HTTP server
		server = metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Server.Metrics.Port,
		})
	}

	// The constructors return no-op implementations while the registry is
	// uninitialized, so the disabled path needs no special casing.
	return &MetricsResult{
		Server:    server,
		HTTP:      metrics.NewHTTPMetrics(),
		Lifecycle: metrics.NewLifecycleMetrics(),
	}
}
