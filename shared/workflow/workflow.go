package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyScheduled  = errors.New("instance already scheduled")
	ErrInstanceNotFound  = errors.New("instance not found")
	ErrEventTimeout      = errors.New("timed out waiting for event")
	ErrInstanceCompleted = errors.New("instance already completed")
)

// Workflow is a durable function executed once per instance. It receives its
// input as raw JSON and terminates with a definite boolean outcome.
type Workflow func(ctx Context, input json.RawMessage) (bool, error)

// Context is the engine surface a running workflow sees. Waits and sleeps are
// suspension points owned by the engine, not busy-waits inside the workflow.
type Context interface {
	// InstanceID returns the identity of this workflow instance.
	InstanceID() string

	// Context returns the cancellation context for outbound calls.
	Context() context.Context

	// WaitForEvent blocks until a named event is delivered to this instance
	// or the timeout elapses, in which case ErrEventTimeout is returned.
	// Each delivered event is consumed by at most one wait.
	WaitForEvent(name string, timeout time.Duration) (json.RawMessage, error)

	// Sleep suspends the instance for the given duration.
	Sleep(d time.Duration) error

	// SetStatus records a human-readable progress message observable through
	// the client. It never affects control flow.
	SetStatus(status string)
}

// Client is the external surface for scheduling instances, correlating
// inbound events to them, and observing their progress.
type Client interface {
	// Schedule starts a new instance keyed by instanceID. At most one
	// instance may exist per identity; scheduling an existing identity
	// returns ErrAlreadyScheduled.
	Schedule(ctx context.Context, instanceID string, input interface{}) error

	// RaiseEvent delivers a named event payload to a running instance.
	RaiseEvent(ctx context.Context, instanceID, eventName string, payload interface{}) error

	// Status reports the instance's current state.
	Status(ctx context.Context, instanceID string) (*InstanceStatus, error)
}

// RuntimeState describes where an instance is in its lifecycle.
type RuntimeState string

const (
	StateRunning   RuntimeState = "running"
	StateCompleted RuntimeState = "completed"
)

// InstanceStatus is the externally observable view of one instance.
type InstanceStatus struct {
	InstanceID string       `json:"instance_id"`
	Runtime    RuntimeState `json:"runtime"`
	StatusText string       `json:"status_text"`
	Result     *bool        `json:"result,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Snapshot is the persistable projection of an instance: status trail,
// lifecycle position, and terminal result. The runtime checkpoints it on
// every status transition so progress survives process restarts.
type Snapshot struct {
	InstanceID string       `db:"instance_id"`
	Runtime    RuntimeState `db:"runtime"`
	StatusText string       `db:"status_text"`
	Result     *bool        `db:"result"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

// SnapshotStore persists instance snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, instanceID string) (*Snapshot, error)
}
