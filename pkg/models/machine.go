package models

import "time"

// SnapshotSchemaVersion versions the persisted machine snapshot layout so the
// blob never couples to any particular runtime's object layout.
const SnapshotSchemaVersion = 1

// MachineSnapshot is the durable form of a node's state machine: the current
// state name plus any kind-specific scalar fields. Live storage handles and
// the node record itself are re-attached on rehydration, never serialized.
type MachineSnapshot struct {
	SchemaVersion int            `json:"schema_version"`
	Kind          NodeKind       `json:"kind"`
	State         Status         `json:"state"`
	Data          map[string]any `json:"data,omitempty"`
}

// Machine is the persisted snapshot row, keyed by an id referenced from the
// owning node. It is overwritten at the end of every transition when machine
// persistence is enabled.
type Machine struct {
	ID        string          `json:"id"`
	Snapshot  MachineSnapshot `json:"snapshot"`
	UpdatedAt time.Time       `json:"updated_at"`
}
