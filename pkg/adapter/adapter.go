package adapter

import (
	"context"

	"github.com/marmos91/lodestone/pkg/lifecycle"
)

// Adapter represents a protocol-specific API surface that can be managed by
// the control plane server.
//
// Each adapter exposes the instance lifecycle over one protocol (for
// example REST) and provides a unified interface for lifecycle management.
// All adapters drive the same orchestrator, so every surface observes the
// same instances, permissions and events.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Injection: SetOrchestrator() provides the shared orchestrator
//  3. Startup: Serve() starts the protocol server and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetOrchestrator() is
// called once before Serve(), but Stop() may be called concurrently with
// Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is
	// cancelled or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful
	// shutdown: stop accepting new connections, wait for active requests
	// to complete (with timeout), clean up resources, and return
	// context.Canceled or nil.
	//
	// If Serve returns before context cancellation, the control plane
	// server treats it as a fatal error and stops all other adapters.
	Serve(ctx context.Context) error

	// SetOrchestrator injects the shared instance orchestrator.
	//
	// Called exactly once by the control plane server before Serve().
	// Implementations keep the orchestrator for the lifetime of the
	// adapter and route every operation through it.
	SetOrchestrator(orch *lifecycle.Orchestrator)

	// Stop initiates graceful shutdown of the protocol server.
	//
	// May be called concurrently with Serve() during server shutdown.
	// Implementations must be idempotent, safe to call concurrently with
	// Serve(), and respect the context timeout.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and
	// metrics. The returned value is constant for the adapter's lifetime.
	//
	// Examples: "REST"
	Protocol() string

	// Port returns the TCP port the adapter is listening on, used for
	// logging and health checks. Returns 0 before Serve() binds the
	// listener.
	Port() int
}
