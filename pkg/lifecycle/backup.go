package lifecycle

import (
	"context"
	"fmt"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/backup"
	"github.com/marmos91/lodestone/pkg/events"
	"github.com/marmos91/lodestone/pkg/instance"
)

// Backup archives the instance directory into the configured backup
// store and returns the entry describing the new archive. Unlike
// provisioning this runs synchronously: the caller receives the archive
// key, and the progression events bracket the upload for subscribers.
//
// Reports BadRequest when no backup store is configured.
func (o *Orchestrator) Backup(ctx context.Context, user *auth.User, id instance.ID) (backup.Entry, error) {
	if err := auth.TryAction(user, auth.ReadInstanceFile(id)); err != nil {
		return backup.Entry{}, err
	}

	inst, err := o.registry.Get(id)
	if err != nil {
		return backup.Entry{}, err
	}

	if o.backups == nil {
		return backup.Entry{}, apperrors.New(apperrors.CodeBadRequest, "backups are not configured")
	}

	info := inst.Info()
	caused := causedBy(user)
	startEvent, operationID := events.NewProgressionStart(
		caused,
		fmt.Sprintf("Backing up instance %s", info.Name),
		0,
		&events.ProgressionStartValue{
			Kind:         events.StartInstanceBackup,
			InstanceID:   id.String(),
			InstanceName: info.Name,
		},
	)
	o.broadcaster.Broadcast(startEvent)

	entry, err := o.backups.BackupInstance(ctx, id.String(), info.Path)
	if err != nil {
		o.broadcaster.Broadcast(events.NewProgressionEnd(
			operationID, caused, false,
			fmt.Sprintf("Failed to back up instance %s: %s", info.Name, apperrors.MessageOf(err)),
			&events.ProgressionEndValue{Kind: events.EndInstanceBackup, InstanceID: id.String()},
		))
		return backup.Entry{}, err
	}

	o.broadcaster.Broadcast(events.NewProgressionEnd(
		operationID, caused, true,
		fmt.Sprintf("Instance %s backed up to %s", info.Name, entry.Key),
		&events.ProgressionEndValue{Kind: events.EndInstanceBackup, InstanceID: id.String()},
	))
	return entry, nil
}

// Backups lists the archives stored for an instance, oldest first.
//
// Reports BadRequest when no backup store is configured.
func (o *Orchestrator) Backups(ctx context.Context, user *auth.User, id instance.ID) ([]backup.Entry, error) {
	if err := auth.TryAction(user, auth.ReadInstanceFile(id)); err != nil {
		return nil, err
	}

	if _, err := o.registry.Get(id); err != nil {
		return nil, err
	}

	if o.backups == nil {
		return nil, apperrors.New(apperrors.CodeBadRequest, "backups are not configured")
	}

	return o.backups.ListBackups(ctx, id.String())
}
