// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrCampaignNotFound indicates a campaign was not found by the given identifier.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrNodeNotFound indicates a node was not found by the given identifier.
	ErrNodeNotFound = errors.New("node not found")

	// ErrMachineNotFound indicates no machine snapshot exists for the given identifier.
	ErrMachineNotFound = errors.New("machine not found")

	// ErrManifestNotFound indicates no manifest exists for the given scope.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrTaskNotFound indicates a task was not found by the given identifier.
	ErrTaskNotFound = errors.New("task not found")

	// ErrCampaignAlreadyExists indicates a campaign with the same identifier already exists.
	ErrCampaignAlreadyExists = errors.New("campaign already exists")

	// ErrNodeVersionExists indicates a node row with the same id (name+version+namespace) already exists.
	ErrNodeVersionExists = errors.New("node version already exists")
)

// CampaignError wraps campaign-related errors with additional context.
type CampaignError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save")
	CampaignID string
	Err        error
}

func (e *CampaignError) Error() string {
	return fmt.Sprintf("%s operation failed for campaign %s: %v", e.Op, e.CampaignID, e.Err)
}

func (e *CampaignError) Unwrap() error {
	return e.Err
}

func (e *CampaignError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCampaignError creates a new campaign error with context.
func NewCampaignError(op, campaignID string, err error) *CampaignError {
	return &CampaignError{Op: op, CampaignID: campaignID, Err: err}
}

// NodeError wraps node-related errors with additional context.
type NodeError struct {
	Op        string
	Namespace string
	NodeID    string
	Err       error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s operation failed for node %s in namespace %s: %v", e.Op, e.NodeID, e.Namespace, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func (e *NodeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewNodeError creates a new node error with context.
func NewNodeError(op, namespace, nodeID string, err error) *NodeError {
	return &NodeError{Op: op, Namespace: namespace, NodeID: nodeID, Err: err}
}

// TaskError wraps task-related errors with additional context.
type TaskError struct {
	Op     string
	TaskID string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s operation failed for task %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func (e *TaskError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsCampaignNotFound checks if an error indicates a campaign was not found.
func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

// IsNodeNotFound checks if an error indicates a node was not found.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsMachineNotFound checks if an error indicates a machine snapshot was not found.
func IsMachineNotFound(err error) bool {
	return errors.Is(err, ErrMachineNotFound)
}

// IsManifestNotFound checks if an error indicates a manifest was not found.
func IsManifestNotFound(err error) bool {
	return errors.Is(err, ErrManifestNotFound)
}
