package config

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestInitializeControlPlane_Success(t *testing.T) {
	ctx := context.Background()

	cfg := GetDefaultConfig()
	cfg.Instances.Dir = t.TempDir() + "/instances"
	cfg.Auth.Owner.Password = "correct horse battery staple"

	plane, err := InitializeControlPlane(ctx, cfg, nil, "0.3.0")
	if err != nil {
		t.Fatalf("InitializeControlPlane failed: %v", err)
	}
	defer func() { _ = plane.Close() }()

	if plane.Orchestrator == nil {
		t.Fatal("Expected non-nil orchestrator")
	}
	if plane.Users == nil {
		t.Fatal("Expected non-nil user manager")
	}
	if plane.Broadcaster == nil {
		t.Fatal("Expected non-nil broadcaster")
	}

	// The seeded owner can log in, even with the generated jwt secret
	token, user, err := plane.Users.Login("owner", "correct horse battery staple")
	if err != nil {
		t.Fatalf("Seeded owner failed to log in: %v", err)
	}
	if token == "" {
		t.Error("Expected non-empty token")
	}
	if !user.IsOwner {
		t.Error("Expected seeded account to be the owner")
	}

	// Restore created the instances directory
	if _, err := os.Stat(cfg.Instances.Dir); err != nil {
		t.Errorf("Expected instances directory to exist: %v", err)
	}
}

func TestInitializeControlPlane_NoOwnerPassword(t *testing.T) {
	ctx := context.Background()

	cfg := GetDefaultConfig()
	cfg.Instances.Dir = t.TempDir()

	plane, err := InitializeControlPlane(ctx, cfg, nil, "0.3.0")
	if err != nil {
		t.Fatalf("InitializeControlPlane failed: %v", err)
	}
	defer func() { _ = plane.Close() }()

	// No password configured means no account was seeded
	if _, _, err := plane.Users.Login("owner", ""); err == nil {
		t.Fatal("Expected login to fail with no seeded owner")
	}
}

func TestInitializeControlPlane_BadUserStore(t *testing.T) {
	ctx := context.Background()

	cfg := GetDefaultConfig()
	cfg.Instances.Dir = t.TempDir()
	cfg.Auth.Store.Type = "redis"

	_, err := InitializeControlPlane(ctx, cfg, nil, "0.3.0")
	if err == nil {
		t.Fatal("Expected error for unknown user store type")
	}
	if !strings.Contains(err.Error(), "user store") {
		t.Errorf("Expected user store error, got: %v", err)
	}
}

func TestInitializeControlPlane_WithRetention(t *testing.T) {
	ctx := context.Background()

	cfg := GetDefaultConfig()
	cfg.Instances.Dir = t.TempDir()
	cfg.Backup.Enabled = true
	cfg.Backup.Store.Filesystem["path"] = t.TempDir()
	cfg.Backup.Retention.Enabled = true

	plane, err := InitializeControlPlane(ctx, cfg, nil, "0.3.0")
	if err != nil {
		t.Fatalf("InitializeControlPlane failed: %v", err)
	}

	if plane.pruner == nil {
		t.Fatal("Expected retention pruner to be running")
	}

	// Close stops the pruner along with the stores
	if err := plane.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestInitializeControlPlane_BadBackupStore(t *testing.T) {
	ctx := context.Background()

	cfg := GetDefaultConfig()
	cfg.Instances.Dir = t.TempDir()
	cfg.Backup.Enabled = true
	cfg.Backup.Store.Type = "ftp"

	_, err := InitializeControlPlane(ctx, cfg, nil, "0.3.0")
	if err == nil {
		t.Fatal("Expected error for unknown backup store type")
	}
	if !strings.Contains(err.Error(), "backup") {
		t.Errorf("Expected backup error, got: %v", err)
	}
}
