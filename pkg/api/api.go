// Package api implements the REST adapter: the HTTP surface through which
// clients drive the instance control plane.
//
// Every route except login and the version probe requires a bearer token.
// Handlers translate between HTTP and the orchestrator; domain errors map
// to a JSON envelope carrying a machine readable kind and a human readable
// detail string.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/lodestone/internal/logger"
	"github.com/marmos91/lodestone/internal/ratelimiter"
	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/lifecycle"
	"github.com/marmos91/lodestone/pkg/metrics"
)

// RESTConfig holds configuration parameters for the REST adapter.
//
// All timeout values are optional; zero values are replaced with defaults
// by New.
type RESTConfig struct {
	// Enabled controls whether the REST adapter is active.
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port to listen on. Defaults to 16662.
	// 0 is replaced by the default; tests use PortDynamic to bind an
	// ephemeral port.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// ReadTimeout bounds reading a complete request, body included.
	// Defaults to 30s.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing a response. Defaults to 30s. The event
	// stream clears it per connection, so long-lived subscriptions are
	// unaffected.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// IdleTimeout closes keep-alive connections that stay quiet.
	// Defaults to 2m.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown. Defaults to 30s.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// MaxBodyBytes caps request body size for manifest and file writes.
	// Defaults to 8 MiB.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"min=0"`

	// LoginRatePerMinute caps login attempts per client address to slow
	// credential stuffing. Defaults to 10; a negative value disables the
	// limit.
	LoginRatePerMinute int `mapstructure:"login_rate_per_minute"`

	// LoginBurst is how many login attempts a client may make back to back
	// before the sustained rate applies. Defaults to 5.
	LoginBurst int `mapstructure:"login_burst" validate:"min=0"`

	// Version is reported by the version probe. Set by the command layer,
	// not by configuration files.
	Version string `mapstructure:"-"`
}

// PortDynamic asks the adapter to bind an ephemeral port. Used by tests.
const PortDynamic = -1

// DefaultPort is the standard control plane API port.
const DefaultPort = 16662

// applyDefaults fills in zero values with sensible defaults.
func (c *RESTConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 8 << 20
	}
	if c.LoginRatePerMinute == 0 {
		c.LoginRatePerMinute = 10
	}
	if c.LoginBurst == 0 {
		c.LoginBurst = 5
	}
}

// validate checks that the configuration is usable.
func (c *RESTConfig) validate() error {
	if c.Port != PortDynamic && (c.Port < 0 || c.Port > 65535) {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// RESTAdapter implements adapter.Adapter for the HTTP REST surface.
//
// The adapter owns its listener and http.Server; the orchestrator is
// injected by the control plane server before Serve().
//
// Thread safety:
// All methods are safe for concurrent use. Stop() is idempotent.
type RESTAdapter struct {
	config RESTConfig

	// orch drives every instance operation. Injected once before Serve().
	orch *lifecycle.Orchestrator

	// users answers login and token authentication.
	users *auth.Manager

	// metrics records request counts and latencies. Never nil.
	metrics metrics.HTTPMetrics

	// loginLimiter throttles credential checks per client address.
	loginLimiter *ratelimiter.PerKey

	// server is built lazily by Serve() around the router.
	server *http.Server

	// boundPort is the actual listening port, set once the listener is
	// bound. Differs from config.Port when binding dynamically.
	boundPort atomic.Int32

	// closeStreams is closed when shutdown begins. Event stream handlers
	// select on it so long-lived subscriptions never hold up Shutdown.
	closeStreams chan struct{}

	shutdownOnce sync.Once
}

// New creates a REST adapter.
//
// The adapter is created in a stopped state; the control plane server
// injects the orchestrator via SetOrchestrator and then calls Serve.
//
// Parameters:
//   - config: Adapter configuration; zero values are defaulted
//   - users: User manager for login and token authentication (required)
//   - httpMetrics: Optional request metrics (nil for no-op)
//
// Panics if config validation fails or users is nil.
func New(config RESTConfig, users *auth.Manager, httpMetrics metrics.HTTPMetrics) *RESTAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid REST config: %v", err))
	}
	if users == nil {
		panic("api: user manager cannot be nil")
	}
	if httpMetrics == nil {
		httpMetrics = noopHTTPMetrics{}
	}

	return &RESTAdapter{
		config:       config,
		users:        users,
		metrics:      httpMetrics,
		loginLimiter: ratelimiter.NewPerKey(config.LoginRatePerMinute, config.LoginBurst),
		closeStreams: make(chan struct{}),
	}
}

// noopHTTPMetrics is a local no-op used when no collector is provided.
type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequest(route, method string, status int, duration time.Duration) {}
func (noopHTTPMetrics) RecordRequestStart()                                                    {}
func (noopHTTPMetrics) RecordRequestEnd()                                                      {}

// SetOrchestrator injects the shared orchestrator. Called exactly once by
// the control plane server before Serve().
func (a *RESTAdapter) SetOrchestrator(orch *lifecycle.Orchestrator) {
	a.orch = orch
	logger.Debug("REST orchestrator configured")
}

// Serve starts the REST server and blocks until the context is cancelled
// or the listener fails.
//
// When the context is cancelled, in-flight requests get ShutdownTimeout to
// complete before the server is closed.
func (a *RESTAdapter) Serve(ctx context.Context) error {
	if a.orch == nil {
		return fmt.Errorf("REST adapter has no orchestrator; SetOrchestrator must be called before Serve")
	}

	port := a.config.Port
	if port == PortDynamic {
		port = 0
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to create REST listener on port %d: %w", port, err)
	}
	a.boundPort.Store(int32(listener.Addr().(*net.TCPAddr).Port))

	a.server = &http.Server{
		Handler:      a.handler(),
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
		IdleTimeout:  a.config.IdleTimeout,
	}
	a.server.RegisterOnShutdown(func() { close(a.closeStreams) })

	logger.Info("REST API listening on port %d", a.Port())

	errChan := make(chan error, 1)
	go func() {
		if err := a.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("REST shutdown signal received: %v", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		if err := a.Stop(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()

	case err := <-errChan:
		return fmt.Errorf("REST server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Serve().
func (a *RESTAdapter) Stop(ctx context.Context) error {
	var shutdownErr error
	a.shutdownOnce.Do(func() {
		if a.server == nil {
			return
		}
		logger.Debug("REST shutdown initiated")

		if err := a.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("REST shutdown error: %w", err)
			logger.Error("REST shutdown error: %v", err)
		} else {
			logger.Info("REST API stopped gracefully")
		}
	})
	return shutdownErr
}

// Protocol returns "REST", implementing adapter.Adapter.
func (a *RESTAdapter) Protocol() string {
	return "REST"
}

// Port returns the listening port. Before the listener is bound it reports
// the configured port (0 for dynamic binding).
func (a *RESTAdapter) Port() int {
	if bound := a.boundPort.Load(); bound != 0 {
		return int(bound)
	}
	if a.config.Port == PortDynamic {
		return 0
	}
	return a.config.Port
}
