package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// NodeKind selects which state-machine specialization drives a node.
type NodeKind string

const (
	NodeKindStart   NodeKind = "start"
	NodeKindEnd     NodeKind = "end"
	NodeKindGroup   NodeKind = "group"
	NodeKindCollect NodeKind = "collect"
	NodeKindGeneric NodeKind = "generic"
)

// NodeKinds lists every built-in kind.
var NodeKinds = []NodeKind{
	NodeKindStart,
	NodeKindEnd,
	NodeKindGroup,
	NodeKindCollect,
	NodeKindGeneric,
}

// Valid reports whether the kind is a member of the enumeration.
func (k NodeKind) Valid() bool {
	for _, known := range NodeKinds {
		if k == known {
			return true
		}
	}

	return false
}

// Node is one versioned unit of work inside a campaign namespace. Structural
// updates never mutate a row: they produce a new row with an incremented
// version and a freshly derived id, keeping old versions for history.
type Node struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"      validate:"required,min=1"`
	Version   int            `json:"version"   validate:"gte=0"`
	Namespace string         `json:"namespace" validate:"required"`
	Kind      NodeKind       `json:"kind"      validate:"required"`
	Status    Status         `json:"status"`
	Config    map[string]any `json:"config"`
	MachineID *string        `json:"machine_id,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewNode builds a version-0 node with a deterministic id and waiting status.
func NewNode(name, namespace string, kind NodeKind) *Node {
	now := time.Now().UTC()

	return &Node{
		ID:        NewNodeID(name, 0, namespace),
		Name:      name,
		Version:   0,
		Namespace: namespace,
		Kind:      kind,
		Status:    StatusWaiting,
		Config:    map[string]any{},
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Document renders the node's patchable fields as a generic JSON document,
// the representation RFC6902 patches are applied against.
func (n *Node) Document() (map[string]any, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal node document: %w", err)
	}

	var doc map[string]any

	err = json.Unmarshal(raw, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal node document: %w", err)
	}

	// Identity and bookkeeping fields are derived, never patched directly.
	delete(doc, "id")
	delete(doc, "version")
	delete(doc, "created_at")
	delete(doc, "updated_at")

	// Empty maps are elided by omitempty; patches addressing /config/... or
	// /metadata/... on a fresh node still need the containers present.
	if _, ok := doc["config"]; !ok {
		doc["config"] = map[string]any{}
	}

	if _, ok := doc["metadata"]; !ok {
		doc["metadata"] = map[string]any{}
	}

	return doc, nil
}

// NextVersion materializes a patched document as the successor node row:
// version incremented, id re-derived, timestamps reset.
func (n *Node) NextVersion(doc map[string]any) (*Node, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patched document: %w", err)
	}

	next := &Node{}

	err = json.Unmarshal(raw, next)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal patched document: %w", err)
	}

	if next.Name == "" {
		next.Name = n.Name
	}

	if next.Namespace == "" {
		next.Namespace = n.Namespace
	}

	if next.Kind == "" {
		next.Kind = n.Kind
	}

	if next.Status == "" {
		next.Status = n.Status
	}

	now := time.Now().UTC()
	next.Version = n.Version + 1
	next.ID = NewNodeID(next.Name, next.Version, next.Namespace)
	next.CreatedAt = now
	next.UpdatedAt = now

	return next, nil
}
