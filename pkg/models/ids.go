package models

import (
	"strconv"

	"github.com/google/uuid"
)

// idSeed namespaces every deterministic identifier the engine derives. Using
// name-based UUIDs keeps creation idempotent: re-deriving the same logical
// entity always yields the same primary key, so inserts can rely on
// ON CONFLICT semantics instead of existence checks.
var idSeed = uuid.NewSHA1(uuid.NameSpaceURL, []byte("campd.pipecraft.io"))

// NewCampaignID derives a campaign identifier from its name and namespace.
func NewCampaignID(name, namespace string) string {
	return uuid.NewSHA1(idSeed, []byte("campaign:"+namespace+":"+name)).String()
}

// NewNodeID derives a node identifier from its name, version and namespace.
// Every structural update bumps the version and therefore the id.
func NewNodeID(name string, version int, namespace string) string {
	return uuid.NewSHA1(idSeed, []byte("node:"+namespace+":"+name+":"+strconv.Itoa(version))).String()
}

// NewEdgeID derives an edge identifier from its endpoints.
func NewEdgeID(namespace, sourceID, targetID string) string {
	return uuid.NewSHA1(idSeed, []byte("edge:"+namespace+":"+sourceID+"->"+targetID)).String()
}

// NewTaskID derives a task identifier from the node and the desired status,
// which is what makes task enqueueing idempotent: at most one live task can
// exist per (node, desired-status) pair.
func NewTaskID(nodeID string, desired Status) string {
	return uuid.NewSHA1(idSeed, []byte("task:"+nodeID+":"+string(desired))).String()
}

// NewMachineID derives a machine identifier from the owning node.
func NewMachineID(nodeID string) string {
	return uuid.NewSHA1(idSeed, []byte("machine:"+nodeID)).String()
}

// NewManifestID derives a manifest identifier from namespace, kind and version.
func NewManifestID(namespace string, kind ManifestKind, version int) string {
	return uuid.NewSHA1(idSeed, []byte("manifest:"+namespace+":"+string(kind)+":"+strconv.Itoa(version))).String()
}
