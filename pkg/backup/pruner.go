package backup

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/lodestone/internal/logger"
)

// PrunerConfig configures backup retention.
type PrunerConfig struct {
	// Keep is how many archives to retain per instance (default: 10)
	Keep int

	// Interval is how often to scan for prunable archives (default: 24h)
	Interval time.Duration

	// DryRun logs what would be deleted without deleting (default: false)
	DryRun bool
}

// sweepTimeout bounds a single pruning pass, store round trips included.
const sweepTimeout = 10 * time.Minute

// Pruner enforces a per-instance retention limit on the backup store.
//
// Scheduled backups accumulate without bound; the pruner periodically trims
// every instance prefix down to the newest Keep archives. It runs in the
// background between Start() and Stop().
//
// Thread safety:
// All methods are safe for concurrent use. Stop() must not be called
// concurrently with the first Start().
type Pruner struct {
	service *Service
	config  PrunerConfig

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewPruner creates a pruner over the given service's store. The pruner is
// created stopped; call Start() to begin background pruning.
//
// Panics if service is nil (programmer error).
func NewPruner(service *Service, config PrunerConfig) *Pruner {
	if service == nil {
		panic("backup service cannot be nil")
	}

	if config.Keep <= 0 {
		config.Keep = 10
	}
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}

	return &Pruner{
		service: service,
		config:  config,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins background pruning. Subsequent calls are no-ops.
func (p *Pruner) Start() {
	p.startOnce.Do(func() {
		logger.Info("Starting backup pruner: keep=%d interval=%s dry_run=%v",
			p.config.Keep, p.config.Interval, p.config.DryRun)

		p.started.Store(true)
		go p.worker()
	})
}

// Stop halts background pruning and waits for an in-progress sweep to
// finish or the context to expire. Safe to call multiple times and without
// a prior Start().
func (p *Pruner) Stop(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		close(p.stopCh)

		if !p.started.Load() {
			return
		}

		select {
		case <-p.doneCh:
			logger.Debug("Backup pruner stopped")
		case <-ctx.Done():
			logger.Warn("Backup pruner shutdown timeout")
			err = ctx.Err()
		}
	})
	return err
}

// worker runs periodic sweeps until stopped.
func (p *Pruner) worker() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			deleted, err := p.Sweep(ctx)
			cancel()

			if err != nil {
				logger.Error("Backup pruning failed: %v", err)
			} else if deleted > 0 {
				logger.Info("Backup pruning completed: %d archive(s) removed", deleted)
			}

		case <-p.stopCh:
			return
		}
	}
}

// Sweep runs one pruning pass over every instance prefix in the store and
// returns how many archives were removed (or would be, in dry run mode).
//
// Archive keys embed their UTC creation time and sort chronologically, so
// the oldest archives of each instance are the ones trimmed.
func (p *Pruner) Sweep(ctx context.Context) (int, error) {
	entries, err := p.service.store.List(ctx, "")
	if err != nil {
		return 0, err
	}

	// List is sorted by key, so each group comes out oldest first.
	groups := make(map[string][]string)
	for _, entry := range entries {
		id, _, ok := strings.Cut(entry.Key, "/")
		if !ok {
			// Not an instance archive; leave it alone.
			continue
		}
		groups[id] = append(groups[id], entry.Key)
	}

	deleted := 0
	for _, keys := range groups {
		excess := len(keys) - p.config.Keep
		if excess <= 0 {
			continue
		}

		for _, key := range keys[:excess] {
			if p.config.DryRun {
				logger.Info("Backup pruning (dry run): would remove %s", key)
				deleted++
				continue
			}

			if err := p.service.store.Delete(ctx, key); err != nil {
				return deleted, err
			}
			logger.Debug("Pruned backup %s", key)
			deleted++
		}
	}

	return deleted, nil
}
