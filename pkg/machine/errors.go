package machine

import (
	"errors"
	"fmt"

	"github.com/pipecraft/campd/pkg/models"
)

var (
	// ErrSnapshotSchema indicates a persisted snapshot carries an unknown
	// schema version.
	ErrSnapshotSchema = errors.New("unsupported machine snapshot schema version")

	// ErrKindMismatch indicates a snapshot was produced by a different node
	// kind than the one rehydrating it.
	ErrKindMismatch = errors.New("machine snapshot kind mismatch")
)

// TriggerNotAllowedError reports a trigger fired from a state the table does
// not allow it from.
type TriggerNotAllowedError struct {
	Trigger Trigger
	State   models.Status
}

func (e *TriggerNotAllowedError) Error() string {
	return fmt.Sprintf("trigger %s not allowed from state %s", e.Trigger, e.State)
}

// TransitionError reports that a kind-specific action or guard failed during
// a transition. The error handler records it and, for the prepare, start and
// finish triggers, drives the node to failed.
type TransitionError struct {
	Trigger Trigger
	NodeID  string
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s failed for node %s: %v", e.Trigger, e.NodeID, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
