package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLog is an immutable audit record of one transition attempt. Entries
// are only persisted when a transition produced meaningful detail (a failure
// or other annotation); clean transitions stay out of the log to bound volume.
type ActivityLog struct {
	ID         string         `json:"id"`
	Namespace  string         `json:"namespace"`
	NodeID     string         `json:"node_id"`
	Operator   string         `json:"operator"`
	FromStatus Status         `json:"from_status"`
	ToStatus   Status         `json:"to_status"`
	Detail     map[string]any `json:"detail,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// NewActivityLog opens a draft entry for a transition attempt.
func NewActivityLog(namespace, nodeID, operator string, from, to Status) *ActivityLog {
	return &ActivityLog{
		ID:         uuid.New().String(),
		Namespace:  namespace,
		NodeID:     nodeID,
		Operator:   operator,
		FromStatus: from,
		ToStatus:   to,
		Detail:     map[string]any{},
		Metadata:   map[string]any{},
		CreatedAt:  time.Now().UTC(),
	}
}

// HasDetail reports whether the entry carries anything worth persisting.
func (a *ActivityLog) HasDetail() bool {
	return len(a.Detail) > 0
}
