package auth

import (
	"maps"
	"time"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/pkg/instance"
)

// PermissionSet is the explicit capability grant of one user. Instance
// maps hold a true entry per granted instance; global capabilities are
// plain booleans.
type PermissionSet struct {
	CanViewInstance      map[instance.ID]bool `json:"can_view_instance"`
	CanStartInstance     map[instance.ID]bool `json:"can_start_instance"`
	CanStopInstance      map[instance.ID]bool `json:"can_stop_instance"`
	CanReadInstanceFile  map[instance.ID]bool `json:"can_read_instance_file"`
	CanWriteInstanceFile map[instance.ID]bool `json:"can_write_instance_file"`
	CanCreateInstance    bool                 `json:"can_create_instance"`
	CanDeleteInstance    bool                 `json:"can_delete_instance"`
}

// NewPermissionSet returns an empty set with all maps initialized.
func NewPermissionSet() PermissionSet {
	return PermissionSet{
		CanViewInstance:      make(map[instance.ID]bool),
		CanStartInstance:     make(map[instance.ID]bool),
		CanStopInstance:      make(map[instance.ID]bool),
		CanReadInstanceFile:  make(map[instance.ID]bool),
		CanWriteInstanceFile: make(map[instance.ID]bool),
	}
}

func (p *PermissionSet) instanceMap(kind ActionKind) map[instance.ID]bool {
	switch kind {
	case ActionViewInstance:
		if p.CanViewInstance == nil {
			p.CanViewInstance = make(map[instance.ID]bool)
		}
		return p.CanViewInstance
	case ActionStartInstance:
		if p.CanStartInstance == nil {
			p.CanStartInstance = make(map[instance.ID]bool)
		}
		return p.CanStartInstance
	case ActionStopInstance:
		if p.CanStopInstance == nil {
			p.CanStopInstance = make(map[instance.ID]bool)
		}
		return p.CanStopInstance
	case ActionReadInstanceFile:
		if p.CanReadInstanceFile == nil {
			p.CanReadInstanceFile = make(map[instance.ID]bool)
		}
		return p.CanReadInstanceFile
	case ActionWriteInstanceFile:
		if p.CanWriteInstanceFile == nil {
			p.CanWriteInstanceFile = make(map[instance.ID]bool)
		}
		return p.CanWriteInstanceFile
	default:
		return nil
	}
}

// Grant adds the capability the action describes.
func (p *PermissionSet) Grant(action Action) {
	switch action.Kind {
	case ActionCreateInstance:
		p.CanCreateInstance = true
	case ActionDeleteInstance:
		p.CanDeleteInstance = true
	default:
		if m := p.instanceMap(action.Kind); m != nil {
			m[action.InstanceID] = true
		}
	}
}

// Revoke removes the capability the action describes.
func (p *PermissionSet) Revoke(action Action) {
	switch action.Kind {
	case ActionCreateInstance:
		p.CanCreateInstance = false
	case ActionDeleteInstance:
		p.CanDeleteInstance = false
	default:
		if m := p.instanceMap(action.Kind); m != nil {
			delete(m, action.InstanceID)
		}
	}
}

// Allows reports whether the set explicitly grants the action.
func (p *PermissionSet) Allows(action Action) bool {
	switch action.Kind {
	case ActionCreateInstance:
		return p.CanCreateInstance
	case ActionDeleteInstance:
		return p.CanDeleteInstance
	default:
		m := p.instanceMap(action.Kind)
		return m != nil && m[action.InstanceID]
	}
}

// ForgetInstance drops every grant that references the instance, across all
// instance-scoped capabilities.
func (p *PermissionSet) ForgetInstance(id instance.ID) {
	for _, kind := range InstanceActionKinds {
		if m := p.instanceMap(kind); m != nil {
			delete(m, id)
		}
	}
}

// clone returns a copy whose grant maps are detached from the original, so
// mutating one set never leaks into the other.
func (p PermissionSet) clone() PermissionSet {
	out := p
	out.CanViewInstance = maps.Clone(p.CanViewInstance)
	out.CanStartInstance = maps.Clone(p.CanStartInstance)
	out.CanStopInstance = maps.Clone(p.CanStopInstance)
	out.CanReadInstanceFile = maps.Clone(p.CanReadInstanceFile)
	out.CanWriteInstanceFile = maps.Clone(p.CanWriteInstanceFile)
	return out
}

// User is an account known to the control plane. PasswordHash is the
// encoded argon2id digest, never the cleartext.
type User struct {
	ID           string        `json:"uid"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"password_hash"`
	IsOwner      bool          `json:"is_owner"`
	Permissions  PermissionSet `json:"permissions"`
	CreationTime time.Time     `json:"creation_time"`
}

// CanPerform reports whether the user may execute the action. Owners can
// perform everything.
func (u *User) CanPerform(action Action) bool {
	if u.IsOwner {
		return true
	}
	return u.Permissions.Allows(action)
}

// clone returns a copy of the user with detached permission maps.
func (u User) clone() User {
	out := u
	out.Permissions = u.Permissions.clone()
	return out
}

// PublicUser is the wire view of a user, with credentials stripped.
type PublicUser struct {
	ID           string        `json:"uid"`
	Username     string        `json:"username"`
	IsOwner      bool          `json:"is_owner"`
	Permissions  PermissionSet `json:"permissions"`
	CreationTime time.Time     `json:"creation_time"`
}

// Public returns the credential-free view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		IsOwner:      u.IsOwner,
		Permissions:  u.Permissions,
		CreationTime: u.CreationTime,
	}
}

// TryAction returns nil when the user may execute the action, Unauthorized
// when there is no user at all, and Forbidden otherwise.
func TryAction(user *User, action Action) error {
	if user == nil {
		return apperrors.New(apperrors.CodeUnauthorized, "authentication required")
	}
	if user.CanPerform(action) {
		return nil
	}
	return apperrors.Newf(apperrors.CodeForbidden, "user %s is not permitted to %s", user.Username, action)
}
