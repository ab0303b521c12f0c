package patch

import (
	"testing"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyProducesNextVersion(t *testing.T) {
	node := models.NewNode("g1", "ns", models.NodeKindGroup)
	node.Config = map[string]any{"retries": float64(1)}

	operations := []byte(`[
		{"op": "replace", "path": "/config/retries", "value": 3},
		{"op": "add", "path": "/metadata/owner", "value": "alice"}
	]`)

	next, err := Apply(node, operations)
	require.NoError(t, err)

	assert.Equal(t, 1, next.Version)
	assert.Equal(t, models.NewNodeID("g1", 1, "ns"), next.ID)
	assert.Equal(t, float64(3), next.Config["retries"])
	assert.Equal(t, "alice", next.Metadata["owner"])

	// The input node is untouched.
	assert.Equal(t, 0, node.Version)
	assert.Equal(t, float64(1), node.Config["retries"])
}

func TestApplyIsDeterministic(t *testing.T) {
	node := models.NewNode("g1", "ns", models.NodeKindGroup)
	operations := []byte(`[{"op": "add", "path": "/config/queue", "value": "short"}]`)

	first, err := Apply(node, operations)
	require.NoError(t, err)

	second, err := Apply(node, operations)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Config, second.Config)
}

func TestApplyFailedTestOpErrs(t *testing.T) {
	node := models.NewNode("g1", "ns", models.NodeKindGroup)
	node.Config = map[string]any{"queue": "short"}

	operations := []byte(`[
		{"op": "test", "path": "/config/queue", "value": "long"},
		{"op": "replace", "path": "/config/queue", "value": "gpu"}
	]`)

	_, err := Apply(node, operations)
	assert.Error(t, err)
}

func TestApplyRejectsMalformedPatch(t *testing.T) {
	node := models.NewNode("g1", "ns", models.NodeKindGroup)

	_, err := Apply(node, []byte(`{"op": "not-an-array"}`))
	assert.Error(t, err)
}

func TestApplyCannotTouchIdentityFields(t *testing.T) {
	node := models.NewNode("g1", "ns", models.NodeKindGroup)

	// id is stripped from the patchable document, so addressing it fails.
	_, err := Apply(node, []byte(`[{"op": "replace", "path": "/id", "value": "hijacked"}]`))
	assert.Error(t, err)
}
