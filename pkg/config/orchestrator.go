package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/marmos91/lodestone/internal/logger"
	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/backup"
	"github.com/marmos91/lodestone/pkg/events"
	"github.com/marmos91/lodestone/pkg/lifecycle"
	"github.com/marmos91/lodestone/pkg/metrics"
	"github.com/marmos91/lodestone/pkg/ports"
	"github.com/marmos91/lodestone/pkg/registry"
)

// ControlPlane bundles the core components built from configuration:
// the orchestrator, the authentication manager and the event broadcaster.
type ControlPlane struct {
	Orchestrator *lifecycle.Orchestrator
	Users        *auth.Manager
	Broadcaster  *events.Broadcaster

	userStore auth.UserStore
	pruner    *backup.Pruner
}

// Close releases resources held by the control plane: the background backup
// pruner and the user store's backing database.
func (p *ControlPlane) Close() error {
	if p.pruner != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := p.pruner.Stop(ctx); err != nil {
			logger.Warn("Backup pruner did not stop cleanly: %v", err)
		}
	}
	return p.userStore.Close()
}

// InitializeControlPlane creates a fully configured control plane from the
// provided configuration.
//
// This function orchestrates the complete initialization process:
//  1. Creates the user store from cfg.Auth.Store and wraps it in the
//     authentication manager
//  2. Seeds the owner account when a password is configured and the store
//     is still empty
//  3. Creates the backup service from cfg.Backup (nil when disabled) and
//     starts the retention pruner when configured
//  4. Builds the orchestrator and restores instances found on disk
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Complete configuration loaded from config file
//   - lifecycleMetrics: Optional orchestrator metrics (nil = no metrics)
//   - version: Release version stamped into instance markers
//
// Returns:
//   - *ControlPlane: Fully initialized control plane
//   - error: If store creation, owner seeding or instance restore fails
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	plane, err := config.InitializeControlPlane(ctx, cfg, nil, version)
//	if err != nil {
//	    log.Fatalf("Failed to initialize control plane: %v", err)
//	}
//	defer plane.Close()
func InitializeControlPlane(ctx context.Context, cfg *Config, lifecycleMetrics metrics.LifecycleMetrics, version string) (*ControlPlane, error) {
	logger.Debug("Initializing control plane from configuration")

	// Step 1: User store and authentication manager
	userStore, err := CreateUserStore(ctx, &cfg.Auth.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create user store: %w", err)
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("No jwt_secret configured; generated a random one, sessions will not survive restarts")
	}

	users := auth.NewManager(userStore, []byte(secret), cfg.Auth.TokenTTL)

	// Step 2: Seed the owner account on an empty store
	if cfg.Auth.Owner.Password != "" {
		if err := users.SeedOwner(cfg.Auth.Owner.Username, cfg.Auth.Owner.Password); err != nil {
			_ = userStore.Close()
			return nil, fmt.Errorf("failed to seed owner account: %w", err)
		}
	}

	// Step 3: Backup service (nil when disabled) and retention pruner
	backups, err := CreateBackupService(ctx, &cfg.Backup)
	if err != nil {
		_ = userStore.Close()
		return nil, fmt.Errorf("failed to create backup service: %w", err)
	}

	var pruner *backup.Pruner
	if backups != nil && cfg.Backup.Retention.Enabled {
		pruner = backup.NewPruner(backups, backup.PrunerConfig{
			Keep:     cfg.Backup.Retention.Keep,
			Interval: cfg.Backup.Retention.Interval,
		})
		pruner.Start()
	}

	// Step 4: Orchestrator and instance restore
	broadcaster := events.NewBroadcaster(events.DefaultBuffer)

	orch := lifecycle.NewOrchestrator(lifecycle.Options{
		Registry:     registry.NewRegistry(),
		Ports:        ports.NewAllocator(),
		Users:        users,
		Broadcaster:  broadcaster,
		Metrics:      lifecycleMetrics,
		Backups:      backups,
		InstancesDir: cfg.Instances.Dir,
		Version:      version,
	})

	if err := orch.RestoreInstances(ctx); err != nil {
		if pruner != nil {
			_ = pruner.Stop(ctx)
		}
		_ = userStore.Close()
		return nil, fmt.Errorf("failed to restore instances: %w", err)
	}

	return &ControlPlane{
		Orchestrator: orch,
		Users:        users,
		Broadcaster:  broadcaster,
		userStore:    userStore,
		pruner:       pruner,
	}, nil
}

// randomSecret returns a freshly generated token signing secret.
func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
