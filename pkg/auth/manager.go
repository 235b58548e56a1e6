package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/internal/logger"
	"github.com/marmos91/lodestone/pkg/instance"
)

// Manager owns user accounts and sessions. Reads go straight to the store;
// read-modify-write sequences (grants, revocations) are serialized by the
// manager's mutex so concurrent permission updates never lose writes.
type Manager struct {
	store    UserStore
	secret   []byte
	tokenTTL time.Duration

	mu sync.Mutex
}

// NewManager wires a manager on top of a user store. The secret signs
// session tokens; a non-positive ttl falls back to DefaultTokenTTL.
func NewManager(store UserStore, secret []byte, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Manager{
		store:    store,
		secret:   secret,
		tokenTTL: ttl,
	}
}

// SeedOwner creates the owner account on first boot. When any account
// already exists the call is a no-op, so a configured owner password never
// overwrites a live deployment.
func (m *Manager) SeedOwner(username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	count, err := m.store.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	owner := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		IsOwner:      true,
		Permissions:  NewPermissionSet(),
		CreationTime: time.Now().UTC(),
	}
	if err := m.store.Put(owner); err != nil {
		return err
	}

	logger.Info("Seeded owner account %q (%s)", username, owner.ID)
	return nil
}

// CreateUser registers a regular account with no permissions.
func (m *Manager) CreateUser(username, password string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if username == "" || password == "" {
		return User{}, apperrors.New(apperrors.CodeBadRequest, "username and password are required")
	}
	if _, err := m.store.GetByUsername(username); err == nil {
		return User{}, apperrors.Newf(apperrors.CodeBadRequest, "username %q is taken", username)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Permissions:  NewPermissionSet(),
		CreationTime: time.Now().UTC(),
	}
	if err := m.store.Put(user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login checks the credentials and returns a session token together with
// the authenticated user. Unknown usernames and wrong passwords are
// indistinguishable to the caller.
func (m *Manager) Login(username, password string) (string, User, error) {
	user, err := m.store.GetByUsername(username)
	if err != nil {
		return "", User{}, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return "", User{}, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := signToken(m.secret, &user, m.tokenTTL)
	if err != nil {
		return "", User{}, err
	}
	return token, user, nil
}

// Authenticate resolves a session token to its live user record. Revoked
// accounts fail even when the token itself is still valid.
func (m *Manager) Authenticate(token string) (User, error) {
	id, err := parseToken(m.secret, token)
	if err != nil {
		return User{}, err
	}

	user, err := m.store.Get(id)
	if err != nil {
		return User{}, apperrors.New(apperrors.CodeUnauthorized, "invalid session token")
	}
	return user, nil
}

// GetUser returns the user with the given ID.
func (m *Manager) GetUser(id string) (User, error) {
	return m.store.Get(id)
}

// ListUsers returns every account.
func (m *Manager) ListUsers() ([]User, error) {
	return m.store.List()
}

// GrantInstancePermissions adds instance-scoped capabilities to a user.
// Granting to an owner is a no-op: owners already hold every capability.
func (m *Manager) GrantInstancePermissions(userID string, instanceID instance.ID, kinds ...ActionKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.store.Get(userID)
	if err != nil {
		return err
	}
	if user.IsOwner {
		return nil
	}

	for _, kind := range kinds {
		user.Permissions.Grant(Action{Kind: kind, InstanceID: instanceID})
	}
	return m.store.Put(user)
}

// ForgetInstance strips every grant referencing the instance from every
// account, keeping permission sets from accumulating entries for instances
// that no longer exist.
func (m *Manager) ForgetInstance(instanceID instance.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	users, err := m.store.List()
	if err != nil {
		return err
	}

	for _, user := range users {
		user.Permissions.ForgetInstance(instanceID)
		if err := m.store.Put(user); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
