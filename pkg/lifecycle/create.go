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
	"github.com/marmos91/lodestone/pkg/safepath"
)

// creationTotal is the amount of work a creation progression counts
// towards; factories report their milestones against it.
const creationTotal = 10

// Create runs the synchronous half of instance creation and kicks off
// detached provisioning.
//
// The synchronous half authorizes the caller, validates the manifest,
// reserves the requested port and a fresh identity, creates the instance
// directory and writes its marker. Any failure up to that point is rolled
// back and returned to the caller. Once the marker is on disk the identity
// is returned and provisioning continues in the background, reporting
// through progression events; the instance appears in the registry only
// after provisioning succeeds.
//
// Parameters:
//   - ctx: Covers the synchronous half only; provisioning deliberately
//     outlives the request
//   - user: The authenticated requester; must hold create-instance
//   - gameType: Selects the registered game factory
//   - manifest: User-supplied creation settings, decoded per game type
//
// Returns the identity of the instance being created.
func (o *Orchestrator) Create(ctx context.Context, user *auth.User, gameType instance.GameType, manifest map[string]any) (instance.ID, error) {
	if err := auth.TryAction(user, auth.CreateInstance()); err != nil {
		return "", err
	}

	setup, err := instance.BuildSetupConfig(gameType, manifest)
	if err != nil {
		return "", err
	}
	factory, err := instance.FactoryFor(gameType)
	if err != nil {
		return "", err
	}

	// Claim the port before any disk work so two concurrent creates can
	// never be provisioned onto the same port.
	if !o.ports.TryReserve(setup.Port) {
		return "", apperrors.Newf(apperrors.CodeBadRequest, "port %d is already reserved by another instance", setup.Port)
	}

	id := o.claimNewIdentity()

	dirName := fmt.Sprintf("%s-%s", setup.Name, id.ShortPrefix())
	dir, err := safepath.Join(o.instancesDir, dirName)
	if err != nil {
		o.releaseIdentity(id)
		o.ports.Release(setup.Port)
		return "", apperrors.Newf(apperrors.CodeBadRequest, "instance name %q does not form a valid directory name", setup.Name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		o.releaseIdentity(id)
		o.ports.Release(setup.Port)
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "failed to create instance directory", err)
	}

	if err := instance.WriteMarker(dir, instance.NewMarker(id, gameType, o.version)); err != nil {
		// The directory was created by this call, so a failed marker
		// write rolls it back too.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.Error("Failed to roll back instance directory %s: %v", dir, rmErr)
		}
		o.releaseIdentity(id)
		o.ports.Release(setup.Port)
		return "", err
	}

	caused := causedBy(user)
	startEvent, operationID := events.NewProgressionStart(
		caused,
		fmt.Sprintf("Creating instance %s", setup.Name),
		creationTotal,
		&events.ProgressionStartValue{
			Kind:         events.StartInstanceCreation,
			InstanceID:   id.String(),
			InstanceName: setup.Name,
			Port:         setup.Port,
			Flavour:      string(setup.Flavour),
			GameType:     string(gameType),
		},
	)
	o.broadcaster.Broadcast(startEvent)

	logger.Info("Provisioning instance %s (%s, %s) in %s", setup.Name, id.ShortPrefix(), gameType, dir)

	// Provisioning outlives the request: a disconnecting caller must not
	// cancel it, so it runs under a fresh context.
	go o.provision(context.Background(), provisionJob{
		operationID: operationID,
		caused:      caused,
		creator:     user,
		factory:     factory,
		setup:       setup,
		id:          id,
		dir:         dir,
	})

	return id, nil
}

// provisionJob carries the state of one detached provisioning task.
type provisionJob struct {
	operationID int64
	caused      events.CausedBy
	creator     *auth.User
	factory     instance.Factory
	setup       instance.SetupConfig
	id          instance.ID
	dir         string
}

// provision builds the concrete server instance and, on success, makes it
// visible: end event, creator grants, registry insertion. On failure it
// reports through the progression end event and rolls everything back. The
// original caller already has its response, so errors here never propagate
// further than the event stream and the log.
func (o *Orchestrator) provision(ctx context.Context, job provisionJob) {
	start := time.Now()

	inst, err := job.factory.Create(ctx, instance.CreateParams{
		Setup: job.setup,
		ID:    job.id,
		Dir:   job.dir,
		Progress: func(message string, progress float64) {
			o.broadcaster.Broadcast(events.NewProgressionUpdate(job.operationID, job.caused, message, progress))
		},
	})
	if err != nil {
		o.metrics.RecordCreate(time.Since(start), err)
		logger.Error("Provisioning of instance %s failed: %v", job.id, err)

		o.broadcaster.Broadcast(events.NewProgressionEnd(
			job.operationID, job.caused, false,
			fmt.Sprintf("Failed to create instance %s: %s", job.setup.Name, apperrors.MessageOf(err)),
			&events.ProgressionEndValue{Kind: events.EndInstanceCreation, InstanceID: job.id.String()},
		))
		o.rollback(job.id, job.dir, job.setup.Port)
		return
	}

	o.metrics.RecordCreate(time.Since(start), nil)

	summary := summarize(inst)
	o.broadcaster.Broadcast(events.NewProgressionEnd(
		job.operationID, job.caused, true,
		fmt.Sprintf("Instance %s created", job.setup.Name),
		&events.ProgressionEndValue{Kind: events.EndInstanceCreation, Instance: &summary},
	))

	// A failed grant is logged, never propagated: the instance exists and
	// is not un-created over permission bookkeeping.
	if job.creator != nil {
		if err := o.users.GrantInstancePermissions(job.creator.ID, job.id, auth.InstanceActionKinds...); err != nil {
			logger.Warn("Failed to grant creator permissions on instance %s: %v", job.id, err)
		}
	}

	if err := o.registry.Insert(inst); err != nil {
		logger.Error("Failed to register instance %s: %v", job.id, err)
		o.rollback(job.id, job.dir, job.setup.Port)
		return
	}

	o.updateGauges()
	logger.Info("Instance %s (%s) created on port %d", job.setup.Name, job.id.ShortPrefix(), job.setup.Port)
}

// rollback removes every trace of a failed creation: the directory tree,
// the port reservation and the identity claim. A directory that cannot be
// removed is reported and abandoned; there is no retry.
func (o *Orchestrator) rollback(id instance.ID, dir string, port int) {
	o.metrics.RecordRollback()

	if err := os.RemoveAll(dir); err != nil {
		logger.Error("Failed to remove instance directory %s during rollback: %v", dir, err)
	}
	o.ports.Release(port)
	o.releaseIdentity(id)
	o.updateGauges()
}
