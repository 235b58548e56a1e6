// Package instance defines the domain model shared by every game server
// implementation: instance identity, lifecycle states, the on-disk marker
// that makes a directory an instance, and the factory registry game
// implementations register themselves with.
package instance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ShortPrefixLen is the number of identity characters embedded in an
// instance's directory name.
const ShortPrefixLen = 8

// ID is the opaque identity assigned to an instance at creation. It never
// changes for the lifetime of the instance.
type ID string

// NewID generates a fresh random instance identity.
func NewID() ID {
	return ID(uuid.NewString())
}

// String returns the full identity.
func (id ID) String() string {
	return string(id)
}

// ShortPrefix returns the leading characters of the identity used to
// disambiguate directory names.
func (id ID) ShortPrefix() string {
	if len(id) <= ShortPrefixLen {
		return string(id)
	}
	return string(id[:ShortPrefixLen])
}

// State is the lifecycle state of an instance process.
type State string

const (
	StateStopped  State = "Stopped"
	StateStarting State = "Starting"
	StateRunning  State = "Running"
	StateStopping State = "Stopping"
	StateError    State = "Error"
)

// Instance is a managed game server. Implementations live in game-specific
// subpackages and must be safe for concurrent use.
type Instance interface {
	// ID returns the immutable identity assigned at creation.
	ID() ID

	// Name returns the display name. Names are not unique.
	Name() string

	// Path returns the absolute path of the instance directory.
	Path() string

	// Port returns the network port reserved for this instance.
	Port() int

	// GameType returns the game type the instance was created as.
	GameType() GameType

	// Flavour returns the server flavour derived from the game type.
	Flavour() Flavour

	// State returns the current lifecycle state.
	State() State

	// CreationTime returns when the instance was created.
	CreationTime() time.Time

	// Info returns a point-in-time snapshot for API responses.
	Info() Info

	// Start launches the underlying server process.
	Start(ctx context.Context) error

	// Stop terminates the underlying server process.
	Stop(ctx context.Context) error
}

// Info is the wire representation of an instance.
type Info struct {
	ID           ID        `json:"uuid"`
	Name         string    `json:"name"`
	GameType     GameType  `json:"game_type"`
	Flavour      Flavour   `json:"flavour"`
	Description  string    `json:"description"`
	Port         int       `json:"port"`
	Path         string    `json:"path"`
	State        State     `json:"state"`
	CreationTime time.Time `json:"creation_time"`
	AutoStart    bool      `json:"auto_start"`
}
