package auth

import (
	"sync"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// UserStore persists user accounts. Implementations must be safe for
// concurrent use. Returned users are private snapshots: mutating one takes
// effect only through Put.
type UserStore interface {
	// Put creates or replaces a user.
	Put(user User) error

	// Get returns the user with the given ID, or NotFound.
	Get(id string) (User, error)

	// GetByUsername returns the user with the given username, or NotFound.
	GetByUsername(username string) (User, error)

	// Delete removes a user. Deleting an unknown ID reports NotFound.
	Delete(id string) error

	// List returns every stored user.
	List() ([]User, error)

	// Count returns the number of stored users.
	Count() (int, error)

	// Close releases the store's resources.
	Close() error
}

// MemoryUserStore is the in-memory UserStore used by tests and by
// deployments that do not need accounts to survive a restart.
type MemoryUserStore struct {
	mu     sync.RWMutex
	users  map[string]User
	byName map[string]string
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:  make(map[string]User),
		byName: make(map[string]string),
	}
}

// Put stores a detached copy, so the caller's permission maps and the
// stored ones never alias. The badger store gets the same isolation for
// free from serialization.
func (s *MemoryUserStore) Put(user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[user.ID]; ok && existing.Username != user.Username {
		delete(s.byName, existing.Username)
	}
	s.users[user.ID] = user.clone()
	s.byName[user.Username] = user.ID
	return nil
}

func (s *MemoryUserStore) Get(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, apperrors.Newf(apperrors.CodeNotFound, "user %s not found", id)
	}
	return user.clone(), nil
}

func (s *MemoryUserStore) GetByUsername(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[username]
	if !ok {
		return User{}, apperrors.Newf(apperrors.CodeNotFound, "user %q not found", username)
	}
	return s.users[id].clone(), nil
}

func (s *MemoryUserStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return apperrors.Newf(apperrors.CodeNotFound, "user %s not found", id)
	}
	delete(s.byName, user.Username)
	delete(s.users, id)
	return nil
}

func (s *MemoryUserStore) List() ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user.clone())
	}
	return users, nil
}

func (s *MemoryUserStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *MemoryUserStore) Close() error {
	return nil
}
