package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/pkg/instance"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager := NewManager(NewMemoryUserStore(), []byte("test-secret"), 0)
	require.NoError(t, manager.SeedOwner("admin", "sup3rsecret"))
	return manager
}

func TestSeedOwnerIsIdempotent(t *testing.T) {
	manager := newTestManager(t)

	// A second seed with a different password must not touch the account.
	require.NoError(t, manager.SeedOwner("admin", "different"))

	_, _, err := manager.Login("admin", "sup3rsecret")
	assert.NoError(t, err)

	_, _, err = manager.Login("admin", "different")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestLoginAndAuthenticate(t *testing.T) {
	manager := newTestManager(t)

	token, user, err := manager.Login("admin", "sup3rsecret")
	require.NoError(t, err)
	assert.True(t, user.IsOwner)
	require.NotEmpty(t, token)

	authenticated, err := manager.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authenticated.ID)
	assert.Equal(t, "admin", authenticated.Username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	manager := newTestManager(t)

	_, _, err := manager.Login("admin", "wrong")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	_, _, err = manager.Login("nobody", "sup3rsecret")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.Authenticate("garbage")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestCreateUser(t *testing.T) {
	manager := newTestManager(t)

	user, err := manager.CreateUser("alice", "password1")
	require.NoError(t, err)
	assert.False(t, user.IsOwner)

	_, err = manager.CreateUser("alice", "password2")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))

	_, err = manager.CreateUser("", "password")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestGrantInstancePermissions(t *testing.T) {
	manager := newTestManager(t)

	user, err := manager.CreateUser("alice", "password1")
	require.NoError(t, err)

	id := instance.NewID()
	require.NoError(t, manager.GrantInstancePermissions(user.ID, id, InstanceActionKinds...))

	reloaded, err := manager.GetUser(user.ID)
	require.NoError(t, err)
	for _, kind := range InstanceActionKinds {
		assert.True(t, reloaded.CanPerform(Action{Kind: kind, InstanceID: id}), "missing %s", kind)
	}
	assert.False(t, reloaded.CanPerform(CreateInstance()))
}

func TestGrantToUnknownUserFails(t *testing.T) {
	manager := newTestManager(t)

	err := manager.GrantInstancePermissions("missing", instance.NewID(), ActionViewInstance)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestForgetInstanceStripsGrants(t *testing.T) {
	manager := newTestManager(t)

	user, err := manager.CreateUser("alice", "password1")
	require.NoError(t, err)

	id := instance.NewID()
	kept := instance.NewID()
	require.NoError(t, manager.GrantInstancePermissions(user.ID, id, InstanceActionKinds...))
	require.NoError(t, manager.GrantInstancePermissions(user.ID, kept, ActionViewInstance))

	require.NoError(t, manager.ForgetInstance(id))

	reloaded, err := manager.GetUser(user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.CanPerform(ViewInstance(id)))
	assert.True(t, reloaded.CanPerform(ViewInstance(kept)))
}
