package config

import (
	"context"
	"strings"
	"testing"
)

func TestCreateUserStore_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &UserStoreConfig{
		Type:   "memory",
		Memory: map[string]any{},
	}

	store, err := CreateUserStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create memory user store: %v", err)
	}

	if store == nil {
		t.Fatal("Expected non-nil store")
	}
}

func TestCreateUserStore_Badger(t *testing.T) {
	ctx := context.Background()
	cfg := &UserStoreConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path": t.TempDir(),
		},
	}

	store, err := CreateUserStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create badger user store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store == nil {
		t.Fatal("Expected non-nil store")
	}
}

func TestCreateUserStore_BadgerMissingPath(t *testing.T) {
	ctx := context.Background()
	cfg := &UserStoreConfig{
		Type:   "badger",
		Badger: map[string]any{},
	}

	_, err := CreateUserStore(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateUserStore_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &UserStoreConfig{Type: "redis"}

	_, err := CreateUserStore(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown user store type") {
		t.Errorf("Expected 'unknown user store type' error, got: %v", err)
	}
}

func TestCreateUserStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &UserStoreConfig{Type: "memory"}
	if _, err := CreateUserStore(ctx, cfg); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestCreateBackupService_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := &BackupConfig{Enabled: false}

	service, err := CreateBackupService(ctx, cfg)
	if err != nil {
		t.Fatalf("Expected no error for disabled backups, got: %v", err)
	}
	if service != nil {
		t.Fatal("Expected nil service when backups are disabled")
	}
}

func TestCreateBackupService_Filesystem(t *testing.T) {
	ctx := context.Background()
	cfg := &BackupConfig{
		Enabled: true,
		Store: BackupStoreConfig{
			Type: "filesystem",
			Filesystem: map[string]any{
				"path": t.TempDir(),
			},
		},
	}

	service, err := CreateBackupService(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create filesystem backup service: %v", err)
	}
	if service == nil {
		t.Fatal("Expected non-nil service")
	}
}

func TestCreateBackupService_FilesystemMissingPath(t *testing.T) {
	ctx := context.Background()
	cfg := &BackupConfig{
		Enabled: true,
		Store: BackupStoreConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{},
		},
	}

	_, err := CreateBackupService(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateBackupService_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &BackupConfig{
		Enabled: true,
		Store:   BackupStoreConfig{Type: "ftp"},
	}

	_, err := CreateBackupService(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown backup store type") {
		t.Errorf("Expected 'unknown backup store type' error, got: %v", err)
	}
}

func TestCreateBackupService_S3MissingBucket(t *testing.T) {
	ctx := context.Background()
	cfg := &BackupConfig{
		Enabled: true,
		Store: BackupStoreConfig{
			Type: "s3",
			S3: map[string]any{
				"region": "us-east-1",
			},
		},
	}

	_, err := CreateBackupService(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateBackupService_S3MissingRegion(t *testing.T) {
	ctx := context.Background()
	cfg := &BackupConfig{
		Enabled: true,
		Store: BackupStoreConfig{
			Type: "s3",
			S3: map[string]any{
				"bucket": "lodestone-backups",
			},
		},
	}

	_, err := CreateBackupService(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing region")
	}
	if !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}
