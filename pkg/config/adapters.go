package config

import (
	"fmt"

	"github.com/marmos91/lodestone/pkg/adapter"
	"github.com/marmos91/lodestone/pkg/api"
	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/metrics"
)

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// This factory function centralizes adapter creation logic and makes it easy to:
//   - Add new protocol adapters
//   - Configure metrics for all adapters
//   - Handle adapter-specific initialization
//
// Parameters:
//   - cfg: The complete Lodestone configuration
//   - users: The authentication manager shared by all API surfaces
//   - httpMetrics: Optional HTTP metrics collector (nil = no metrics)
//   - version: Release version reported by the version probe
//
// Returns:
//   - []adapter.Adapter: List of enabled adapters ready to be added to the server
//   - error: Any error during adapter creation
func CreateAdapters(cfg *Config, users *auth.Manager, httpMetrics metrics.HTTPMetrics, version string) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	// Create REST adapter if enabled
	if cfg.Adapters.REST.Enabled {
		restConfig := cfg.Adapters.REST
		restConfig.Version = version
		adapters = append(adapters, api.New(restConfig, users, httpMetrics))
	}

	// Future adapters can be added here:
	// if cfg.Adapters.GRPC.Enabled {
	//     grpcAdapter := grpc.New(cfg.Adapters.GRPC, users)
	//     adapters = append(adapters, grpcAdapter)
	// }

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
