package models

import "time"

// Edge is a directed dependency between two nodes of one campaign namespace.
// Edges are authored once and only ever read for graph traversal.
type Edge struct {
	ID        string         `json:"id"`
	Namespace string         `json:"namespace" validate:"required"`
	SourceID  string         `json:"source_id" validate:"required"`
	TargetID  string         `json:"target_id" validate:"required"`
	Name      string         `json:"name"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEdge builds an edge with a deterministic id.
func NewEdge(namespace, sourceID, targetID, name string) *Edge {
	return &Edge{
		ID:        NewEdgeID(namespace, sourceID, targetID),
		Namespace: namespace,
		SourceID:  sourceID,
		TargetID:  targetID,
		Name:      name,
		Config:    map[string]any{},
		CreatedAt: time.Now().UTC(),
	}
}
