package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/lodestone/internal/logger"
	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/backup"
)

// CreateUserStore creates a user store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": in-memory storage, accounts vanish on restart
//   - "badger": BadgerDB storage, persistent
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: User store configuration
//
// Returns:
//   - auth.UserStore: Initialized user store
//   - error: Configuration or initialization error
func CreateUserStore(ctx context.Context, cfg *UserStoreConfig) (auth.UserStore, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryUserStore(ctx)
	case "badger":
		return createBadgerUserStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown user store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createMemoryUserStore creates an in-memory user store.
func createMemoryUserStore(ctx context.Context) (auth.UserStore, error) {
	// Check context before creating store
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return auth.NewMemoryUserStore(), nil
}

// createBadgerUserStore creates a BadgerDB-based persistent user store.
func createBadgerUserStore(ctx context.Context, options map[string]any) (auth.UserStore, error) {
	// Check context before creating store
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Decode store-specific options
	type BadgerUserStoreOptions struct {
		DBPath string `mapstructure:"db_path"`
	}

	var storeOpts BadgerUserStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode badger user store options: %w", err)
	}

	// Validate required fields
	if storeOpts.DBPath == "" {
		return nil, fmt.Errorf("badger user store: db_path is required")
	}

	store, err := auth.NewBadgerUserStore(storeOpts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger user store: %w", err)
	}

	return store, nil
}

// CreateBackupService creates the archive service based on configuration.
//
// Returns (nil, nil) when backups are disabled; the orchestrator treats a
// nil service as "backups not configured" and rejects backup requests.
//
// Supported store types:
//   - "filesystem": local directory of tar.gz archives
//   - "s3": Amazon S3 or compatible storage (MinIO, Localstack)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Backup configuration
//
// Returns:
//   - *backup.Service: Initialized archive service, nil when disabled
//   - error: Configuration or initialization error
func CreateBackupService(ctx context.Context, cfg *BackupConfig) (*backup.Service, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	store, err := createBackupStore(ctx, &cfg.Store)
	if err != nil {
		return nil, err
	}

	return backup.NewService(store), nil
}

// createBackupStore creates the archive store selected by configuration.
func createBackupStore(ctx context.Context, cfg *BackupStoreConfig) (backup.Store, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemBackupStore(ctx, cfg.Filesystem)
	case "s3":
		return createS3BackupStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown backup store type: %q (supported: filesystem, s3)", cfg.Type)
	}
}

// createFilesystemBackupStore creates a filesystem-based archive store.
func createFilesystemBackupStore(ctx context.Context, options map[string]any) (backup.Store, error) {
	// Check context before creating store
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Define the configuration struct for the filesystem archive store
	type FilesystemBackupStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	// Decode the options into the config struct
	var storeCfg FilesystemBackupStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem backup store config: %w", err)
	}

	// Validate required fields
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem backup store: path is required")
	}

	// Create the store
	store, err := backup.NewFSStore(storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem backup store: %w", err)
	}

	return store, nil
}

// createS3BackupStore creates an S3-based archive store.
func createS3BackupStore(ctx context.Context, options map[string]any) (backup.Store, error) {
	// Define the configuration struct for the S3 archive store
	type S3BackupStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	// Decode the options into the config struct
	var storeCfg S3BackupStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 backup store config: %w", err)
	}

	// Validate required fields
	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 backup store: bucket is required")
	}

	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 backup store: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	// Set region
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Set custom endpoint if provided (for MinIO, Localstack, etc.)
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Set credentials if provided, otherwise use default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Configure retries for better resilience against temporary S3 failures
	// Default to 10 retries if not specified (increased from AWS default of 3)
	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10 // Default: 10 attempts
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries // Retry for transient errors (502, 503, timeouts, etc.)
		})
	}))

	// Load AWS config
	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Force path-style addressing for compatibility with MinIO/Localstack
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Archive Store
	// ========================================================================

	store, err := backup.NewS3Store(ctx, backup.S3StoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 backup store: %w", err)
	}

	logger.Info("S3 backup store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}
