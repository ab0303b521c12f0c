package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeDocumentStripsDerivedFields(t *testing.T) {
	node := NewNode("g1", "ns", NodeKindGroup)
	node.Config = map[string]any{"launch": map[string]any{"queue": "short"}}

	doc, err := node.Document()
	require.NoError(t, err)

	assert.NotContains(t, doc, "id")
	assert.NotContains(t, doc, "version")
	assert.NotContains(t, doc, "created_at")
	assert.NotContains(t, doc, "updated_at")
	assert.Equal(t, "g1", doc["name"])
	assert.Equal(t, "group", doc["kind"])
}

func TestNodeDocumentKeepsEmptyContainers(t *testing.T) {
	node := NewNode("g1", "ns", NodeKindGroup)

	doc, err := node.Document()
	require.NoError(t, err)

	// A fresh node has empty config and metadata; patches addressing paths
	// under them must still find the containers.
	assert.Equal(t, map[string]any{}, doc["config"])
	assert.Equal(t, map[string]any{}, doc["metadata"])
}

func TestNodeNextVersion(t *testing.T) {
	node := NewNode("g1", "ns", NodeKindGroup)
	node.Status = StatusReady

	doc, err := node.Document()
	require.NoError(t, err)

	doc["config"] = map[string]any{"retries": float64(3)}

	next, err := node.NextVersion(doc)
	require.NoError(t, err)

	assert.Equal(t, node.Version+1, next.Version)
	assert.Equal(t, NewNodeID("g1", 1, "ns"), next.ID)
	assert.NotEqual(t, node.ID, next.ID)
	assert.Equal(t, node.Name, next.Name)
	assert.Equal(t, node.Namespace, next.Namespace)
	assert.Equal(t, node.Kind, next.Kind)
	assert.Equal(t, StatusReady, next.Status)
	assert.Equal(t, float64(3), next.Config["retries"])
}

func TestNodeNextVersionFillsMissingFields(t *testing.T) {
	node := NewNode("g1", "ns", NodeKindCollect)

	next, err := node.NextVersion(map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, "g1", next.Name)
	assert.Equal(t, "ns", next.Namespace)
	assert.Equal(t, NodeKindCollect, next.Kind)
	assert.Equal(t, StatusWaiting, next.Status)
	assert.Equal(t, 1, next.Version)
}
