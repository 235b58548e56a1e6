package lifecycle

import (
	"context"
	"fmt"
	"os"
	"time"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/internal/logger"
	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/events"
	"github.com/marmos91/lodestone/pkg/instance"
)

// Delete tears an instance down: marker first, then port, registration
// and permissions, and finally the directory tree.
//
// The instance must be stopped; deleting a running instance is rejected
// with BadRequest and nothing changes. Marker removal is the commit point:
// if it fails the deletion aborts with the instance fully intact, while
// everything after it proceeds even when the final file removal fails.
// A directory that cannot be removed only leaves orphaned files behind -
// the outcome is reported on the progression end event, and the caller
// still gets success because the instance is already unregistered.
func (o *Orchestrator) Delete(ctx context.Context, user *auth.User, id instance.ID) error {
	if err := auth.TryAction(user, auth.DeleteInstance()); err != nil {
		return err
	}

	inst, err := o.registry.Get(id)
	if err != nil {
		return err
	}

	// Snapshot what teardown needs so no lock is held across the I/O
	// below.
	info := inst.Info()
	if info.State != instance.StateStopped {
		return apperrors.Newf(apperrors.CodeBadRequest, "instance %s must be stopped before deletion (current state: %s)", info.Name, info.State)
	}

	start := time.Now()
	caused := causedBy(user)
	startEvent, operationID := events.NewProgressionStart(
		caused,
		fmt.Sprintf("Deleting instance %s", info.Name),
		0,
		&events.ProgressionStartValue{
			Kind:         events.StartInstanceDelete,
			InstanceID:   id.String(),
			InstanceName: info.Name,
		},
	)
	o.broadcaster.Broadcast(startEvent)

	// Removing the marker first makes a half-deleted directory
	// recognizable: a tree without its marker is never restored at boot.
	if err := instance.RemoveMarker(info.Path); err != nil {
		o.metrics.RecordDelete(time.Since(start), err)
		o.broadcaster.Broadcast(events.NewProgressionEnd(
			operationID, caused, false,
			fmt.Sprintf("Failed to delete instance %s: %s", info.Name, apperrors.MessageOf(err)),
			&events.ProgressionEndValue{Kind: events.EndInstanceDelete, InstanceID: id.String()},
		))
		return err
	}

	o.ports.Release(info.Port)
	if err := o.registry.Remove(id); err != nil {
		logger.Warn("Instance %s vanished from the registry mid-deletion: %v", id, err)
	}
	o.releaseIdentity(id)

	// Permission scrubbing is bookkeeping: failure is logged and the
	// deletion continues.
	if err := o.users.ForgetInstance(id); err != nil {
		logger.Warn("Failed to scrub permissions of deleted instance %s: %v", id, err)
	}

	if err := os.RemoveAll(info.Path); err != nil {
		logger.Error("Failed to remove directory %s of deleted instance %s: %v", info.Path, id, err)
		o.broadcaster.Broadcast(events.NewProgressionEnd(
			operationID, caused, false,
			fmt.Sprintf("Instance %s deleted, but its files could not be removed", info.Name),
			&events.ProgressionEndValue{Kind: events.EndInstanceDelete, InstanceID: id.String()},
		))
	} else {
		o.broadcaster.Broadcast(events.NewProgressionEnd(
			operationID, caused, true,
			fmt.Sprintf("Instance %s deleted", info.Name),
			&events.ProgressionEndValue{Kind: events.EndInstanceDelete, InstanceID: id.String()},
		))
	}

	o.metrics.RecordDelete(time.Since(start), nil)
	o.updateGauges()
	logger.Info("Instance %s (%s) deleted", info.Name, id.ShortPrefix())
	return nil
}
