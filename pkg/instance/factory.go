package instance

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// CreateParams carries everything a factory needs to provision a new
// instance inside an already-reserved directory.
type CreateParams struct {
	// Setup is the validated creation configuration.
	Setup SetupConfig

	// ID is the identity assigned to the new instance.
	ID ID

	// Dir is the reserved instance directory. It exists and already
	// contains the instance marker.
	Dir string

	// Progress, when non-nil, receives human-readable provisioning
	// milestones together with the amount of work completed so far.
	Progress func(message string, progress float64)
}

// Factory provisions and restores instances of one game type.
type Factory interface {
	// Create provisions a brand new instance into params.Dir. On error the
	// caller rolls the directory back; implementations do not need to
	// clean up after themselves.
	Create(ctx context.Context, params CreateParams) (Instance, error)

	// Restore rebuilds an instance from a directory that carries a valid
	// marker, typically during boot.
	Restore(ctx context.Context, dir string, marker Marker) (Instance, error)
}

var (
	factoriesMu sync.RWMutex
	factories   = make(map[GameType]Factory)
)

// RegisterFactory makes a factory available for a game type. It is meant to
// be called from game package init functions and panics if the factory is
// nil or the game type is already taken.
func RegisterFactory(gameType GameType, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if factory == nil {
		panic("instance: RegisterFactory called with nil factory")
	}
	if _, dup := factories[gameType]; dup {
		panic("instance: RegisterFactory called twice for game type " + string(gameType))
	}
	factories[gameType] = factory
}

// FactoryFor returns the factory registered for the game type.
func FactoryFor(gameType GameType) (Factory, error) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	factory, ok := factories[gameType]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeBadRequest, "no factory registered for game type %q", gameType)
	}
	return factory, nil
}

// RegisteredGameTypes lists the game types with a registered factory,
// sorted for stable output.
func RegisteredGameTypes() []GameType {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	types := make([]GameType, 0, len(factories))
	for gameType := range factories {
		types = append(types, gameType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
