package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// InitConfig writes a commented starter configuration file to the default
// location and returns its path.
//
// The generated file favors persistent stores (badger users, filesystem
// backups) over the in-memory defaults used when no config file exists,
// since a deployment that bothers to write a config file wants state to
// survive restarts.
//
// Parameters:
//   - force: overwrite an existing config file
//
// Returns:
//   - string: Path of the written config file
//   - error: If the file already exists (without force) or cannot be written
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(getConfigDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry credentials, keep it private.
	if err := os.WriteFile(path, []byte(defaultConfigFile()), 0o600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}

// defaultConfigFile renders the starter configuration with machine-local
// data paths filled in.
func defaultConfigFile() string {
	dataDir := getDataDir()

	return fmt.Sprintf(`# Lodestone Configuration File
#
# Every value shown here is optional; omitted keys fall back to built-in
# defaults. Any key can also be overridden with a LODESTONE_* environment
# variable, e.g. LODESTONE_LOGGING_LEVEL=DEBUG.

logging:
  # Minimum level to output: DEBUG, INFO, WARN, ERROR
  level: "INFO"
  # Output format: text or json
  format: "text"
  # Where logs are written: stdout, stderr, or a file path
  output: "stdout"

server:
  # Maximum time to wait for graceful shutdown
  shutdown_timeout: "30s"
  metrics:
    # Expose Prometheus metrics over HTTP
    enabled: false
    port: 9090

instances:
  # Directory holding one subdirectory per instance. Instances found here
  # are restored on boot.
  dir: %q

auth:
  store:
    # User store backend: memory or badger
    type: "badger"
    badger:
      db_path: %q
  # Secret used to sign session tokens (at least 32 characters). Leave
  # empty to generate a random secret on every boot, which logs everyone
  # out on restart.
  jwt_secret: ""
  # How long issued tokens stay valid
  token_ttl: "24h"
  owner:
    # Seeded on first boot while the user store is empty; ignored after
    username: "owner"
    password: ""

backup:
  # Enable instance backups
  enabled: false
  store:
    # Archive store backend: filesystem or s3
    type: "filesystem"
    filesystem:
      path: %q
    # s3:
    #   region: "us-east-1"
    #   bucket: "lodestone-backups"
    #   key_prefix: ""
    #   endpoint: ""           # set for MinIO or Localstack
    #   access_key_id: ""
    #   secret_access_key: ""
  # Background pruning of old archives; deletes data, so off by default.
  # retention:
  #   enabled: true
  #   keep: 10
  #   interval: "24h"

adapters:
  rest:
    enabled: true
    port: 16662
    # Login throttling per client address; set the rate negative to disable.
    # login_rate_per_minute: 10
    # login_burst: 5
`,
		filepath.Join(dataDir, "instances"),
		filepath.Join(dataDir, "users"),
		filepath.Join(dataDir, "backups"),
	)
}
