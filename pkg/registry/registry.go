// Package registry provides the concurrency-safe in-memory catalogue of
// live instances. The registry is the single source of truth for which
// instances exist: an instance is visible to the API exactly while it is
// registered here.
package registry

import (
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/pkg/instance"
)

// Registry manages the set of live instances, keyed by identity.
// All methods are safe for concurrent use.
//
// Example usage:
//
//	reg := registry.NewRegistry()
//	reg.Insert(server)
//
//	inst, _ := reg.Get(server.ID())
//	for _, inst := range reg.List() {
//		fmt.Println(inst.Name())
//	}
type Registry struct {
	mu        sync.RWMutex
	instances map[instance.ID]instance.Instance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[instance.ID]instance.Instance),
	}
}

// Insert registers an instance under its identity.
// Returns an error if the identity is already registered.
func (r *Registry) Insert(inst instance.Instance) error {
	if inst == nil {
		return fmt.Errorf("cannot register nil instance")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[inst.ID()]; exists {
		return fmt.Errorf("instance %s already registered", inst.ID())
	}

	r.instances[inst.ID()] = inst
	return nil
}

// Remove unregisters an instance. Returns NotFound if the identity is not
// registered.
func (r *Registry) Remove(id instance.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[id]; !exists {
		return apperrors.Newf(apperrors.CodeNotFound, "instance %s not found", id)
	}

	delete(r.instances, id)
	return nil
}

// Get retrieves an instance by identity. Returns NotFound if the identity
// is not registered.
func (r *Registry) Get(id instance.ID) (instance.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, exists := r.instances[id]
	if !exists {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "instance %s not found", id)
	}
	return inst, nil
}

// Exists checks whether an identity is currently registered.
func (r *Registry) Exists(id instance.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.instances[id]
	return exists
}

// List returns a snapshot of all registered instances, ordered by creation
// time (name breaks ties). The returned slice is a copy and safe to iterate
// without holding any registry lock.
func (r *Registry) List() []instance.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instances := make([]instance.Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		instances = append(instances, inst)
	}

	sort.Slice(instances, func(i, j int) bool {
		a, b := instances[i], instances[j]
		if !a.CreationTime().Equal(b.CreationTime()) {
			return a.CreationTime().Before(b.CreationTime())
		}
		return a.Name() < b.Name()
	})
	return instances
}

// Count returns the number of registered instances.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}
