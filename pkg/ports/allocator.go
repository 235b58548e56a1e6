// Package ports tracks which network ports have been claimed by running
// instances.
//
// Port numbers are chosen upstream (each instance's manifest names its own
// port); the allocator only records claims so collisions can be detected.
// One port belongs to at most one registered instance.
package ports

import "sync"

// Allocator is a mutex-guarded set of claimed ports.
//
// Thread safety:
// All methods are safe for concurrent use. The mutex is held only for the
// duration of the set access, never across I/O.
type Allocator struct {
	mu      sync.Mutex
	claimed map[int]struct{}
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{
		claimed: make(map[int]struct{}),
	}
}

// Reserve marks a port as claimed. Reserving an already-claimed port is a
// no-op; use TryReserve when concurrent callers may race for the same value.
func (a *Allocator) Reserve(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.claimed[port] = struct{}{}
}

// TryReserve claims a port only if it is currently free, reporting whether
// the claim succeeded. This is the atomic form used when two concurrent
// callers may race for the same port value.
func (a *Allocator) TryReserve(port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, taken := a.claimed[port]; taken {
		return false
	}
	a.claimed[port] = struct{}{}
	return true
}

// Release marks a port as free. Releasing an unclaimed port is a no-op.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.claimed, port)
}

// IsReserved reports whether a port is currently claimed.
func (a *Allocator) IsReserved(port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.claimed[port]
	return ok
}

// Count returns the number of claimed ports.
func (a *Allocator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.claimed)
}
