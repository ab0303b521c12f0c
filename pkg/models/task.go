package models

import "time"

// Task is an ephemeral queue entry recording that a node should move from
// PreviousStatus to DesiredStatus. The deterministic id guarantees at most
// one unsubmitted task per (node, desired-status) pair.
//
// Priority and Site are persisted and surfaced in selection order but carry
// placeholder semantics: there is no preemption or affinity enforcement.
type Task struct {
	ID             string     `json:"id"`
	Namespace      string     `json:"namespace"`
	NodeID         string     `json:"node_id"`
	DesiredStatus  Status     `json:"desired_status"`
	PreviousStatus Status     `json:"previous_status"`
	Priority       int        `json:"priority"`
	Site           string     `json:"site,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// NewTask builds a task with a deterministic (node, desired-status) id.
func NewTask(namespace string, node *Node, desired Status) *Task {
	return &Task{
		ID:             NewTaskID(node.ID, desired),
		Namespace:      namespace,
		NodeID:         node.ID,
		DesiredStatus:  desired,
		PreviousStatus: node.Status,
		CreatedAt:      time.Now().UTC(),
	}
}
