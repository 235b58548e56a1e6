package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/lodestone/internal/logger"
	"github.com/marmos91/lodestone/pkg/adapter"
	"github.com/marmos91/lodestone/pkg/lifecycle"
)

// defaultStopTimeout bounds the shared graceful shutdown of all adapters
// unless overridden via SetStopTimeout().
const defaultStopTimeout = 30 * time.Second

// LodestoneServer manages the lifecycle of the protocol adapters that expose
// the instance control plane.
//
// Architecture:
// Every adapter is an API surface (REST today, more can be added) over the
// same orchestrator, so all surfaces observe the same instances, permission
// grants and event stream.
//
// Lifecycle:
//  1. Creation: New() with the orchestrator
//  2. Registration: AddAdapter() for each protocol
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: Context cancellation triggers graceful shutdown of all adapters
//
// Thread safety:
// LodestoneServer is safe for concurrent use. AddAdapter() may be called
// concurrently with other methods. Serve() must only be called once.
//
// Example usage:
//
//	server := server.New(orch)
//	server.AddAdapter(api.New(apiConfig))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := server.Serve(ctx); err != nil && err != context.Canceled {
//	    log.Fatal(err)
//	}
type LodestoneServer struct {
	// orchestrator is the shared control plane injected into every adapter
	orchestrator *lifecycle.Orchestrator

	// adapters contains all registered protocol adapters
	adapters []adapter.Adapter

	// stopTimeout bounds the stop phase across all adapters
	stopTimeout time.Duration

	// mu protects the adapters slice and serving flag
	mu sync.RWMutex

	// serveOnce ensures Serve() is only called once
	serveOnce sync.Once

	// served indicates whether Serve() has been called
	served bool
}

// New creates a LodestoneServer around the given orchestrator.
//
// The orchestrator is shared across all adapters added to this server. Call
// AddAdapter() to register protocols, then Serve() to start the server.
//
// Panics if the orchestrator is nil (programmer error).
func New(orch *lifecycle.Orchestrator) *LodestoneServer {
	if orch == nil {
		panic("orchestrator cannot be nil")
	}

	return &LodestoneServer{
		orchestrator: orch,
		adapters:     make([]adapter.Adapter, 0, 2),
		stopTimeout:  defaultStopTimeout,
	}
}

// SetStopTimeout overrides the timeout applied when the server stops its
// adapters. Values <= 0 are ignored and the default is kept.
func (s *LodestoneServer) SetStopTimeout(d time.Duration) {
	if d <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimeout = d
}

// AddAdapter registers a protocol adapter, injecting the shared
// orchestrator into it.
//
// Each adapter must expose a different protocol and listen on a different
// port; duplicates return an error.
//
// Panics if the adapter is nil or Serve() has already been called.
//
// Thread safety:
// Safe to call concurrently from multiple goroutines before Serve().
func (s *LodestoneServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
	}
	for _, existing := range s.adapters {
		if existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter",
				port, existing.Protocol())
		}
	}

	a.SetOrchestrator(s.orchestrator)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)

	return nil
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// Shutdown behavior:
// When the context is cancelled or an adapter fails, every adapter receives
// a Stop() call in reverse registration order with a shared timeout (30
// seconds unless overridden via SetStopTimeout), and Serve() waits for all
// adapter goroutines to finish before returning.
//
// Returns:
//   - context.Canceled if shutdown was triggered by context cancellation
//   - the adapter's error if one failed during startup or operation
//
// Panics if Serve() is called more than once on the same server instance.
func (s *LodestoneServer) Serve(ctx context.Context) error {
	var (
		err error
		ran bool
	)
	s.serveOnce.Do(func() {
		s.mu.Lock()
		s.served = true
		s.mu.Unlock()

		ran = true
		err = s.serve(ctx)
	})

	if !ran {
		panic("Serve() has already been called on this server instance")
	}

	return err
}

// serve is the internal implementation of Serve(), separated to allow
// serveOnce protection.
func (s *LodestoneServer) serve(ctx context.Context) error {
	s.mu.RLock()
	if len(s.adapters) == 0 {
		s.mu.RUnlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.RUnlock()

	logger.Info("Starting Lodestone with %d adapter(s)", len(adapters))

	// Buffered so a failing adapter never blocks on report even when
	// several fail at once.
	errChan := make(chan adapterError, len(adapters))

	var wg sync.WaitGroup

	startTime := time.Now()
	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			port := a.Port()

			logger.Info("Starting %s adapter on port %d", protocol, port)

			if err := a.Serve(ctx); err != nil {
				// context.Canceled is the expected outcome of a
				// shutdown, not a failure.
				if err != context.Canceled && ctx.Err() == nil {
					logger.Error("%s adapter failed: %v", protocol, err)
					errChan <- adapterError{protocol: protocol, err: err}
				} else {
					logger.Debug("%s adapter stopped gracefully", protocol)
				}
			} else {
				logger.Info("%s adapter stopped", protocol)
			}
		}(adp)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		logger.Info("All adapters started successfully in %v", time.Since(startTime))
	}()

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAllAdapters(adapters)
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		s.stopAllAdapters(adapters)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("Lodestone stopped gracefully")

	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters initiates graceful shutdown of all adapters in reverse
// registration order under a shared timeout.
//
// Stop() only signals shutdown; each adapter's Serve() goroutine performs
// the actual cleanup, so the caller still waits on the WaitGroup.
func (s *LodestoneServer) stopAllAdapters(adapters []adapter.Adapter) {
	s.mu.RLock()
	stopTimeout := s.stopTimeout
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, adp.Port())

		if err := adp.Stop(ctx); err != nil && err != context.Canceled {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		} else {
			logger.Debug("%s adapter stop signal sent", protocol)
		}
	}
}

// Adapters returns a snapshot of currently registered adapters. The
// returned slice is a copy and safe to iterate without holding locks.
func (s *LodestoneServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
