package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/lodestone/internal/logger"
	"github.com/marmos91/lodestone/pkg/config"
	"github.com/marmos91/lodestone/pkg/server"

	// Game server factories register themselves on import.
	_ "github.com/marmos91/lodestone/pkg/instance/minecraft"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the control plane and serve all configured adapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// runServe assembles the control plane from configuration and blocks until
// the context is cancelled or an adapter fails.
//
// Startup order:
//  1. Load and validate configuration
//  2. Configure logging
//  3. Initialize metrics (registry, HTTP server when enabled)
//  4. Initialize the control plane (stores, orchestrator, instance restore)
//  5. Create and register protocol adapters
//  6. Serve until shutdown
func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	logger.Info("Lodestone %s starting", version)
	logger.Info("Instances directory: %s", cfg.Instances.Dir)

	telemetry := config.InitializeMetrics(cfg)
	if telemetry.Server != nil {
		// Start blocks until the context is cancelled and performs its
		// own graceful shutdown, so it only needs a goroutine here.
		go func() {
			if err := telemetry.Server.Start(ctx); err != nil {
				logger.Error("Metrics server: %v", err)
			}
		}()
	}

	plane, err := config.InitializeControlPlane(ctx, cfg, telemetry.Lifecycle, version)
	if err != nil {
		return fmt.Errorf("initialize control plane: %w", err)
	}
	defer func() {
		if err := plane.Close(); err != nil {
			logger.Error("Control plane close: %v", err)
		}
	}()

	adapters, err := config.CreateAdapters(cfg, plane.Users, telemetry.HTTP, version)
	if err != nil {
		return err
	}

	srv := server.New(plane.Orchestrator)
	srv.SetStopTimeout(cfg.Server.ShutdownTimeout)
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return err
		}
	}

	// A SIGINT or SIGTERM cancels the context; that is the normal way to
	// stop a server, not a failure.
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("Shutdown complete")

	return nil
}
