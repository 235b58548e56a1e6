package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marmos91/lodestone/pkg/api"
)

// Config represents the complete Lodestone configuration.
//
// This structure captures all configurable aspects of the control plane
// including:
//   - Logging configuration
//   - Server-wide settings and the metrics endpoint
//   - Instance storage location
//   - User store selection and authentication settings
//   - Backup store selection and configuration (store-specific)
//   - Protocol adapter configurations
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (LODESTONE_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration shape. The Config
// struct contains type-specific sections (e.g. backup.store.filesystem,
// backup.store.s3) and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Instances controls where instance directories live on disk
	Instances InstancesConfig `mapstructure:"instances"`

	// Auth specifies the user store and token settings
	Auth AuthConfig `mapstructure:"auth"`

	// Backup specifies the archive store type and type-specific configuration
	Backup BackupConfig `mapstructure:"backup"`

	// Adapters contains protocol adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	// Enabled turns the metrics endpoint on
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port the metrics server listens on
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// InstancesConfig controls instance storage.
type InstancesConfig struct {
	// Dir is the directory that holds one subdirectory per instance.
	// Instances found here are restored on boot.
	Dir string `mapstructure:"dir" validate:"required"`
}

// AuthConfig specifies the user store and token settings.
type AuthConfig struct {
	// Store specifies which user store implementation to use
	Store UserStoreConfig `mapstructure:"store"`

	// JWTSecret signs session tokens. When empty a random secret is
	// generated at boot, which invalidates all sessions on restart.
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`

	// TokenTTL is how long issued tokens stay valid
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"required,gt=0"`

	// Owner seeds the first account on an empty user store
	Owner OwnerConfig `mapstructure:"owner"`
}

// UserStoreConfig specifies user store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type UserStoreConfig struct {
	// Type specifies which user store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// OwnerConfig seeds the owner account on first boot. It never overwrites
// accounts on a store that already has users.
type OwnerConfig struct {
	// Username is the owner account name
	Username string `mapstructure:"username" validate:"required"`

	// Password is the initial owner password. Ignored once any account
	// exists.
	Password string `mapstructure:"password"`
}

// BackupConfig specifies archive storage configuration.
type BackupConfig struct {
	// Enabled turns instance backups on. When false the backup endpoints
	// reject requests.
	Enabled bool `mapstructure:"enabled"`

	// Store specifies which archive store implementation to use
	Store BackupStoreConfig `mapstructure:"store"`

	// Retention trims old archives in the background
	Retention RetentionConfig `mapstructure:"retention"`
}

// RetentionConfig limits how many archives are kept per instance.
//
// Retention deletes data, so it is opt-in: with Enabled false archives
// accumulate until removed by hand.
type RetentionConfig struct {
	// Enabled turns background pruning on
	Enabled bool `mapstructure:"enabled"`

	// Keep is how many archives to retain per instance
	Keep int `mapstructure:"keep" validate:"min=0"`

	// Interval is how often to scan for prunable archives
	Interval time.Duration `mapstructure:"interval" validate:"min=0"`
}

// BackupStoreConfig specifies archive store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type BackupStoreConfig struct {
	// Type specifies which archive store implementation to use
	// Valid values: filesystem, s3
	Type string `mapstructure:"type" validate:"required,oneof=filesystem s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	// REST contains REST API configuration.
	// Uses the api.RESTConfig type directly to avoid duplication.
	REST api.RESTConfig `mapstructure:"rest"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (LODESTONE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use LODESTONE_ prefix and underscores
	// Example: LODESTONE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("LODESTONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/lodestone/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml") // Primary format
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		if os.IsNotExist(err) {
			// An explicit path pointing at a missing file also falls back
			// to defaults
			return nil
		}
		// Other errors are problems
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	// Check XDG_CONFIG_HOME
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "lodestone")
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", "lodestone")
}

// getDataDir returns the directory for mutable state (instances, backups).
//
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share, or falls back to
// current directory (.) if home directory cannot be determined.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "lodestone")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".local", "share", "lodestone")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
