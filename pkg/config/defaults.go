package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/lodestone/pkg/api"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyInstancesDefaults(&cfg.Instances)
	applyAuthDefaults(&cfg.Auth)
	applyBackupDefaults(&cfg.Backup)
	applyAdaptersDefaults(&cfg.Adapters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	// Metrics default to disabled; the port default still applies so a
	// generated config file carries it.
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyInstancesDefaults sets instance storage defaults.
func applyInstancesDefaults(cfg *InstancesConfig) {
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(getDataDir(), "instances")
	}
}

// applyAuthDefaults sets user store and token defaults.
func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}

	// Initialize maps if nil
	if cfg.Store.Memory == nil {
		cfg.Store.Memory = make(map[string]any)
	}
	if cfg.Store.Badger == nil {
		cfg.Store.Badger = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Store.Badger["db_path"]; !ok {
		cfg.Store.Badger["db_path"] = filepath.Join(getDataDir(), "users")
	}

	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	if cfg.Owner.Username == "" {
		cfg.Owner.Username = "owner"
	}
	// Owner.Password has no default; seeding is skipped when it is empty.

	// JWTSecret has no default; an empty secret is generated at boot.
}

// applyBackupDefaults sets archive store defaults.
func applyBackupDefaults(cfg *BackupConfig) {
	if cfg.Store.Type == "" {
		cfg.Store.Type = "filesystem"
	}

	// Initialize maps if nil
	if cfg.Store.Filesystem == nil {
		cfg.Store.Filesystem = make(map[string]any)
	}
	if cfg.Store.S3 == nil {
		cfg.Store.S3 = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Store.Filesystem["path"]; !ok {
		cfg.Store.Filesystem["path"] = filepath.Join(getDataDir(), "backups")
	}

	// Retention stays disabled by default; only its knobs are filled in.
	if cfg.Retention.Keep == 0 {
		cfg.Retention.Keep = 10
	}
	if cfg.Retention.Interval == 0 {
		cfg.Retention.Interval = 24 * time.Hour
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// Enable the REST adapter by default if no adapters are configured.
	// This ensures that a freshly loaded config (with no config file) will
	// have at least one adapter enabled and pass validation. Users can
	// explicitly set enabled: false in their config to disable it.
	if !cfg.REST.Enabled {
		// Check if this looks like a default/unconfigured state
		// (Port is 0, meaning no explicit configuration was provided)
		if cfg.REST.Port == 0 {
			cfg.REST.Enabled = true
		}
	}

	applyRESTDefaults(&cfg.REST)
}

// applyRESTDefaults sets REST adapter defaults.
func applyRESTDefaults(cfg *api.RESTConfig) {
	if cfg.Port == 0 {
		cfg.Port = api.DefaultPort
	}

	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}

	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}

	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 8 << 20
	}

	if cfg.LoginRatePerMinute == 0 {
		cfg.LoginRatePerMinute = 10
	}

	if cfg.LoginBurst == 0 {
		cfg.LoginBurst = 5
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Auth: AuthConfig{
			Store: UserStoreConfig{
				Memory: make(map[string]any),
				Badger: make(map[string]any),
			},
		},
		Backup: BackupConfig{
			Store: BackupStoreConfig{
				Filesystem: make(map[string]any),
				S3:         make(map[string]any),
			},
		},
		Adapters: AdaptersConfig{
			REST: api.RESTConfig{
				Enabled: true, // REST adapter enabled by default
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
