package lifecycle

import (
	"context"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/instance"
)

// List returns the instances the user may view, sorted by creation time
// ascending. Instances the user cannot view are silently omitted rather
// than failing the whole request. Ordering comes from the registry; the
// permission filter preserves it.
func (o *Orchestrator) List(ctx context.Context, user *auth.User) ([]instance.Info, error) {
	if user == nil {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "authentication required")
	}

	infos := []instance.Info{}
	for _, inst := range o.registry.List() {
		if user.CanPerform(auth.ViewInstance(inst.ID())) {
			infos = append(infos, inst.Info())
		}
	}
	return infos, nil
}

// Info returns the current snapshot of one instance. An absent identity
// reports NotFound before the permission check, matching the single-target
// lookup contract.
func (o *Orchestrator) Info(ctx context.Context, user *auth.User, id instance.ID) (instance.Info, error) {
	inst, err := o.registry.Get(id)
	if err != nil {
		return instance.Info{}, err
	}
	if err := auth.TryAction(user, auth.ViewInstance(id)); err != nil {
		return instance.Info{}, err
	}
	return inst.Info(), nil
}

// Start launches the instance's server process.
func (o *Orchestrator) Start(ctx context.Context, user *auth.User, id instance.ID) error {
	inst, err := o.registry.Get(id)
	if err != nil {
		return err
	}
	if err := auth.TryAction(user, auth.StartInstance(id)); err != nil {
		return err
	}
	return inst.Start(ctx)
}

// Stop terminates the instance's server process.
func (o *Orchestrator) Stop(ctx context.Context, user *auth.User, id instance.ID) error {
	inst, err := o.registry.Get(id)
	if err != nil {
		return err
	}
	if err := auth.TryAction(user, auth.StopInstance(id)); err != nil {
		return err
	}
	return inst.Stop(ctx)
}
