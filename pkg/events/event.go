// Package events defines the control plane's event model and the in-process
// broadcaster that fans events out to subscribers.
//
// Long-running workflows (instance creation, deletion, backups) report their
// lifecycle as progression events: a start event announcing the total amount
// of work, optional updates, and exactly one end event carrying the outcome.
// Events are totally ordered by a process-wide monotonic ID.
package events

import (
	"sync/atomic"
	"time"
)

// sequence hands out process-wide monotonic event IDs.
var sequence atomic.Int64

func nextID() int64 {
	return sequence.Add(1)
}

// CauseKind discriminates who triggered an event.
type CauseKind string

const (
	// CauseUser marks events triggered by an authenticated user.
	CauseUser CauseKind = "user"

	// CauseSystem marks events triggered by the control plane itself,
	// for example during boot-time instance restoration.
	CauseSystem CauseKind = "system"
)

// CausedBy records the origin of an event.
type CausedBy struct {
	Kind     CauseKind `json:"kind"`
	UserID   string    `json:"user_id,omitempty"`
	UserName string    `json:"user_name,omitempty"`
}

// ByUser attributes an event to an authenticated user.
func ByUser(id, name string) CausedBy {
	return CausedBy{Kind: CauseUser, UserID: id, UserName: name}
}

// BySystem attributes an event to the control plane.
func BySystem() CausedBy {
	return CausedBy{Kind: CauseSystem}
}

// ProgressionKind discriminates the phases of a progression.
type ProgressionKind string

const (
	ProgressionStart  ProgressionKind = "start"
	ProgressionUpdate ProgressionKind = "update"
	ProgressionEnd    ProgressionKind = "end"
)

// StartValueKind names the operation a progression tracks.
type StartValueKind string

const (
	StartInstanceCreation StartValueKind = "instance_creation"
	StartInstanceDelete   StartValueKind = "instance_delete"
	StartInstanceBackup   StartValueKind = "instance_backup"
)

// ProgressionStartValue carries operation-specific detail on a start event.
type ProgressionStartValue struct {
	Kind         StartValueKind `json:"kind"`
	InstanceID   string         `json:"instance_uuid,omitempty"`
	InstanceName string         `json:"instance_name,omitempty"`
	Port         int            `json:"port,omitempty"`
	Flavour      string         `json:"flavour,omitempty"`
	GameType     string         `json:"game_type,omitempty"`
}

// EndValueKind names the operation a progression end concludes.
type EndValueKind string

const (
	EndInstanceCreation EndValueKind = "instance_creation"
	EndInstanceDelete   EndValueKind = "instance_delete"
	EndInstanceBackup   EndValueKind = "instance_backup"
)

// InstanceSummary is the compact instance view attached to successful
// creation end events.
type InstanceSummary struct {
	ID           string    `json:"uuid"`
	Name         string    `json:"name"`
	GameType     string    `json:"game_type"`
	Flavour      string    `json:"flavour"`
	Port         int       `json:"port"`
	State        string    `json:"state"`
	CreationTime time.Time `json:"creation_time"`
}

// ProgressionEndValue carries operation-specific detail on an end event.
type ProgressionEndValue struct {
	Kind       EndValueKind     `json:"kind"`
	Instance   *InstanceSummary `json:"instance,omitempty"`
	InstanceID string           `json:"instance_uuid,omitempty"`
}

// Progression is the payload shared by the three progression phases.
// OperationID groups the start, updates and end of one workflow; it is the
// ID of the start event, so operation IDs are monotonic too.
type Progression struct {
	OperationID int64                  `json:"operation_id"`
	Kind        ProgressionKind        `json:"kind"`
	Message     string                 `json:"message,omitempty"`
	Total       float64                `json:"total,omitempty"`
	Progress    float64                `json:"progress,omitempty"`
	Success     *bool                  `json:"success,omitempty"`
	StartValue  *ProgressionStartValue `json:"start_value,omitempty"`
	EndValue    *ProgressionEndValue   `json:"end_value,omitempty"`
}

// Event is a single entry on the event stream. IDs are monotonically
// increasing for the lifetime of the process, so subscribers can rely on
// ordering: a progression's start always carries a lower ID than its end.
type Event struct {
	ID          int64        `json:"id"`
	Timestamp   time.Time    `json:"timestamp"`
	CausedBy    CausedBy     `json:"caused_by"`
	Progression *Progression `json:"progression,omitempty"`
}

// NewProgressionStart builds the event opening a tracked workflow and
// returns the operation ID the caller must close it with. Total is the
// amount of work the updates count towards.
func NewProgressionStart(caused CausedBy, message string, total float64, value *ProgressionStartValue) (Event, int64) {
	id := nextID()
	return Event{
		ID:        id,
		Timestamp: time.Now().UTC(),
		CausedBy:  caused,
		Progression: &Progression{
			OperationID: id,
			Kind:        ProgressionStart,
			Message:     message,
			Total:       total,
			StartValue:  value,
		},
	}, id
}

// NewProgressionUpdate builds an intermediate progress report.
func NewProgressionUpdate(operationID int64, caused CausedBy, message string, progress float64) Event {
	return Event{
		ID:        nextID(),
		Timestamp: time.Now().UTC(),
		CausedBy:  caused,
		Progression: &Progression{
			OperationID: operationID,
			Kind:        ProgressionUpdate,
			Message:     message,
			Progress:    progress,
		},
	}
}

// NewProgressionEnd builds the event closing a tracked workflow, reporting
// whether it succeeded.
func NewProgressionEnd(operationID int64, caused CausedBy, success bool, message string, value *ProgressionEndValue) Event {
	return Event{
		ID:        nextID(),
		Timestamp: time.Now().UTC(),
		CausedBy:  caused,
		Progression: &Progression{
			OperationID: operationID,
			Kind:        ProgressionEnd,
			Message:     message,
			Success:     &success,
			EndValue:    value,
		},
	}
}
