package lifecycle

import (
	"context"
	"os"
	"path/filepath"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/internal/logger"
	"github.com/marmos91/lodestone/pkg/instance"
)

// RestoreInstances scans the instances root and re-registers every
// directory carrying a valid marker, typically at boot.
//
// Restoration is forgiving: directories without a marker are ignored,
// and a directory whose marker is corrupt, whose game type has no
// registered factory, or whose port or identity prefix is already taken
// is logged and skipped, leaving its files untouched for the operator.
// Instances marked for automatic start are started best-effort.
func (o *Orchestrator) RestoreInstances(ctx context.Context) error {
	if err := os.MkdirAll(o.instancesDir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to create instances directory", err)
	}

	children, err := os.ReadDir(o.instancesDir)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to scan instances directory", err)
	}

	restored := 0
	for _, child := range children {
		if !child.IsDir() {
			continue
		}
		dir := filepath.Join(o.instancesDir, child.Name())

		marker, err := instance.ReadMarker(dir)
		if err != nil {
			// A directory without a marker is not ours; one with an
			// unreadable marker deserves a warning.
			if !apperrors.IsCode(err, apperrors.CodeNotFound) {
				logger.Warn("Skipping %s: %v", dir, err)
			}
			continue
		}

		if o.restoreOne(ctx, dir, marker) {
			restored++
		}
	}

	logger.Info("Restored %d instance(s) from %s", restored, o.instancesDir)
	o.updateGauges()
	return nil
}

// restoreOne rebuilds and registers a single instance directory. Returns
// false when the directory was skipped.
func (o *Orchestrator) restoreOne(ctx context.Context, dir string, marker instance.Marker) bool {
	factory, err := instance.FactoryFor(marker.GameType)
	if err != nil {
		logger.Warn("Skipping %s: %v", dir, err)
		return false
	}

	inst, err := factory.Restore(ctx, dir, marker)
	if err != nil {
		logger.Warn("Skipping %s: %v", dir, err)
		return false
	}

	info := inst.Info()
	if !o.ports.TryReserve(info.Port) {
		logger.Error("Skipping %s: port %d is already reserved by another instance", dir, info.Port)
		return false
	}
	if !o.claimIdentity(info.ID) {
		o.ports.Release(info.Port)
		logger.Error("Skipping %s: identity prefix %s is already claimed", dir, info.ID.ShortPrefix())
		return false
	}
	if err := o.registry.Insert(inst); err != nil {
		o.ports.Release(info.Port)
		o.releaseIdentity(info.ID)
		logger.Error("Skipping %s: %v", dir, err)
		return false
	}

	logger.Info("Restored instance %s (%s) on port %d", info.Name, info.ID.ShortPrefix(), info.Port)

	if info.AutoStart {
		if err := inst.Start(ctx); err != nil {
			logger.Warn("Failed to auto-start instance %s: %v", info.Name, err)
		}
	}
	return true
}
