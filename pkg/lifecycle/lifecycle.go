// Package lifecycle implements the instance orchestrator: the workflows
// that create, destroy, inspect and operate managed game server instances,
// coordinating the registry, port allocator, permission engine and event
// broadcaster.
//
// Creation runs in two phases. The synchronous phase validates the
// manifest, reserves the port and identity, creates the instance directory
// and writes its marker; the caller receives the new identity as soon as
// the marker is on disk. Provisioning then continues detached from the
// request: progress flows to subscribers as progression events, and a
// failed provisioning rolls the directory and every reservation back.
//
// Locking discipline:
// The orchestrator holds at most one lock at a time. Identity bookkeeping
// uses its own mutex; the registry, allocator and user store each guard
// themselves. No lock is held across filesystem I/O.
package lifecycle

import (
	"sync"

	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/backup"
	"github.com/marmos91/lodestone/pkg/events"
	"github.com/marmos91/lodestone/pkg/instance"
	"github.com/marmos91/lodestone/pkg/metrics"
	"github.com/marmos91/lodestone/pkg/ports"
	"github.com/marmos91/lodestone/pkg/registry"
)

// Options configures an Orchestrator.
//
// Registry, Ports, Users, Broadcaster and InstancesDir are required.
// Metrics defaults to the no-op implementation when nil. A nil Backups
// disables the backup operations; they report BadRequest.
type Options struct {
	Registry     *registry.Registry
	Ports        *ports.Allocator
	Users        *auth.Manager
	Broadcaster  *events.Broadcaster
	Metrics      metrics.LifecycleMetrics
	Backups      *backup.Service
	InstancesDir string

	// Version is stamped into every directory marker this orchestrator
	// writes.
	Version string
}

// Orchestrator composes the control plane's shared resources into the
// lifecycle workflows.
//
// Thread safety:
// Orchestrator is safe for concurrent use. Every operation takes the
// requesting user explicitly; authorization and validation failures are
// returned before any mutation happens.
//
// Example usage:
//
//	orch := lifecycle.NewOrchestrator(lifecycle.Options{
//	    Registry:     registry.NewRegistry(),
//	    Ports:        ports.NewAllocator(),
//	    Users:        users,
//	    Broadcaster:  events.NewBroadcaster(events.DefaultBuffer),
//	    InstancesDir: "/var/lib/lodestone/instances",
//	})
//
//	id, err := orch.Create(ctx, user, "minecraft-java-vanilla", manifest)
type Orchestrator struct {
	registry     *registry.Registry
	ports        *ports.Allocator
	users        *auth.Manager
	broadcaster  *events.Broadcaster
	metrics      metrics.LifecycleMetrics
	backups      *backup.Service
	instancesDir string
	version      string

	// mu guards claimedPrefixes: the short identity prefixes of every
	// registered or in-flight instance. Claiming the prefix at creation
	// keeps concurrent creates from racing to the same prefix; it is
	// released on rollback or deletion.
	mu              sync.Mutex
	claimedPrefixes map[string]struct{}
}

// NewOrchestrator builds an orchestrator from its collaborators.
//
// Panics if a required option is missing (programmer error).
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Registry == nil {
		panic("lifecycle: registry cannot be nil")
	}
	if opts.Ports == nil {
		panic("lifecycle: port allocator cannot be nil")
	}
	if opts.Users == nil {
		panic("lifecycle: user manager cannot be nil")
	}
	if opts.Broadcaster == nil {
		panic("lifecycle: event broadcaster cannot be nil")
	}
	if opts.InstancesDir == "" {
		panic("lifecycle: instances directory cannot be empty")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoopLifecycleMetrics()
	}

	return &Orchestrator{
		registry:        opts.Registry,
		ports:           opts.Ports,
		users:           opts.Users,
		broadcaster:     opts.Broadcaster,
		metrics:         opts.Metrics,
		backups:         opts.Backups,
		instancesDir:    opts.InstancesDir,
		version:         opts.Version,
		claimedPrefixes: make(map[string]struct{}),
	}
}

// claimNewIdentity generates an identity whose short prefix is unique
// among all registered and in-flight instances, and claims it. The
// identity space is large enough that the loop terminates immediately in
// practice.
func (o *Orchestrator) claimNewIdentity() instance.ID {
	o.mu.Lock()
	defer o.mu.Unlock()

	for {
		id := instance.NewID()
		prefix := id.ShortPrefix()
		if _, taken := o.claimedPrefixes[prefix]; !taken {
			o.claimedPrefixes[prefix] = struct{}{}
			return id
		}
	}
}

// Events returns the broadcaster carrying this orchestrator's progression
// events, for API surfaces that stream them to clients.
func (o *Orchestrator) Events() *events.Broadcaster {
	return o.broadcaster
}

// claimIdentity claims the prefix of an already-persisted identity, as
// found during boot-time restoration. Returns false if the prefix is
// already claimed.
func (o *Orchestrator) claimIdentity(id instance.ID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	prefix := id.ShortPrefix()
	if _, taken := o.claimedPrefixes[prefix]; taken {
		return false
	}
	o.claimedPrefixes[prefix] = struct{}{}
	return true
}

func (o *Orchestrator) releaseIdentity(id instance.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.claimedPrefixes, id.ShortPrefix())
}

func (o *Orchestrator) updateGauges() {
	o.metrics.SetRegisteredInstances(o.registry.Count())
	o.metrics.SetReservedPorts(o.ports.Count())
}

// causedBy attributes an event to the requesting user, or to the system
// when there is none (boot-time restoration).
func causedBy(user *auth.User) events.CausedBy {
	if user == nil {
		return events.BySystem()
	}
	return events.ByUser(user.ID, user.Username)
}

// summarize builds the event-stream view of an instance.
func summarize(inst instance.Instance) events.InstanceSummary {
	info := inst.Info()
	return events.InstanceSummary{
		ID:           info.ID.String(),
		Name:         info.Name,
		GameType:     string(info.GameType),
		Flavour:      string(info.Flavour),
		Port:         info.Port,
		State:        string(info.State),
		CreationTime: info.CreationTime,
	}
}
