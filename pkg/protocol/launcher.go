// Package protocol defines the interfaces and contracts between the state
// machines and their external collaborators.
package protocol

import (
	"context"
	"time"
)

// LaunchState classifies the status an external executor reports for a handle.
type LaunchState string

const (
	LaunchStateRunning LaunchState = "running"
	LaunchStateDone    LaunchState = "done"
	LaunchStateHeld    LaunchState = "held"
	LaunchStateFailed  LaunchState = "failed"
)

// CheckResult is the outcome of polling an external executor.
type CheckResult struct {
	State     LaunchState    `json:"state"`
	JobID     string         `json:"job_id"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Launcher submits work to an external executor (batch system, workflow
// manager) and polls its status. The state machines treat it purely as an
// injected dependency.
type Launcher interface {
	// Launch submits the given launch configuration and returns an opaque
	// handle for later checks.
	Launch(ctx context.Context, config map[string]any) (string, error)

	// Check reports the current state of a previously launched handle.
	Check(ctx context.Context, handle string) (*CheckResult, error)
}
