package config

import (
	"strings"
	"testing"
)

func TestValidate_DefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected default config to validate, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_LowercaseLogLevelAccepted(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "debug"

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected lowercase log level to validate, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for invalid log format")
	}
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for zero shutdown timeout")
	}
}

func TestValidate_InvalidUserStoreType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.Store.Type = "redis"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for unknown user store type")
	}
}

func TestValidate_InvalidBackupStoreType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Backup.Store.Type = "ftp"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for unknown backup store type")
	}
}

func TestValidate_JWTSecret(t *testing.T) {
	cfg := GetDefaultConfig()

	// Empty is allowed; a random secret is generated at boot
	cfg.Auth.JWTSecret = ""
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected empty jwt secret to validate, got: %v", err)
	}

	// Short secrets are rejected
	cfg.Auth.JWTSecret = "tooshort"
	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for short jwt secret")
	}

	// 32+ characters pass
	cfg.Auth.JWTSecret = strings.Repeat("s", 32)
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected 32-char jwt secret to validate, got: %v", err)
	}
}

func TestValidate_NoAdapterEnabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.REST.Enabled = false

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error when no adapter is enabled")
	}
	if !strings.Contains(err.Error(), "at least one adapter") {
		t.Errorf("Expected 'at least one adapter' error, got: %v", err)
	}
}

func TestValidate_MetricsPortCollision(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Metrics.Enabled = true
	cfg.Server.Metrics.Port = cfg.Adapters.REST.Port

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for metrics port collision")
	}
	if !strings.Contains(err.Error(), "collides") {
		t.Errorf("Expected collision error, got: %v", err)
	}
}

func TestValidate_RESTPortOutOfRange(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.REST.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for out of range REST port")
	}
}
