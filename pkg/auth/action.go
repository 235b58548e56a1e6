// Package auth implements users, credentials and the per-instance
// permission engine that guards every control plane operation.
//
// Permissions are modelled as actions: a global capability (creating or
// deleting instances) or an instance-scoped capability (viewing, starting,
// stopping, or touching files of one specific instance). Owners bypass all
// checks.
package auth

import (
	"fmt"

	"github.com/marmos91/lodestone/pkg/instance"
)

// ActionKind names a capability.
type ActionKind string

const (
	ActionViewInstance      ActionKind = "view_instance"
	ActionStartInstance     ActionKind = "start_instance"
	ActionStopInstance      ActionKind = "stop_instance"
	ActionReadInstanceFile  ActionKind = "read_instance_file"
	ActionWriteInstanceFile ActionKind = "write_instance_file"
	ActionCreateInstance    ActionKind = "create_instance"
	ActionDeleteInstance    ActionKind = "delete_instance"
)

// InstanceActionKinds lists every instance-scoped capability, in the order
// they are granted to a creator.
var InstanceActionKinds = []ActionKind{
	ActionViewInstance,
	ActionStartInstance,
	ActionStopInstance,
	ActionReadInstanceFile,
	ActionWriteInstanceFile,
}

// Action is a capability check target: a kind plus, for instance-scoped
// kinds, the instance it applies to.
type Action struct {
	Kind       ActionKind
	InstanceID instance.ID
}

// ViewInstance builds the action guarding visibility of an instance.
func ViewInstance(id instance.ID) Action {
	return Action{Kind: ActionViewInstance, InstanceID: id}
}

// StartInstance builds the action guarding starting an instance.
func StartInstance(id instance.ID) Action {
	return Action{Kind: ActionStartInstance, InstanceID: id}
}

// StopInstance builds the action guarding stopping an instance.
func StopInstance(id instance.ID) Action {
	return Action{Kind: ActionStopInstance, InstanceID: id}
}

// ReadInstanceFile builds the action guarding file reads under an instance.
func ReadInstanceFile(id instance.ID) Action {
	return Action{Kind: ActionReadInstanceFile, InstanceID: id}
}

// WriteInstanceFile builds the action guarding file mutations under an
// instance.
func WriteInstanceFile(id instance.ID) Action {
	return Action{Kind: ActionWriteInstanceFile, InstanceID: id}
}

// CreateInstance builds the global action guarding instance creation.
func CreateInstance() Action {
	return Action{Kind: ActionCreateInstance}
}

// DeleteInstance builds the global action guarding instance deletion.
func DeleteInstance() Action {
	return Action{Kind: ActionDeleteInstance}
}

// Global reports whether the action is not bound to a single instance.
func (a Action) Global() bool {
	return a.Kind == ActionCreateInstance || a.Kind == ActionDeleteInstance
}

func (a Action) String() string {
	if a.Global() {
		return string(a.Kind)
	}
	return fmt.Sprintf("%s on %s", a.Kind, a.InstanceID)
}
