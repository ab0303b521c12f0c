package graph

import (
	"testing"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/stretchr/testify/assert"
)

func linearGraph(statuses ...models.Status) *Graph {
	g := New()
	ids := []string{"start", "g1", "end"}

	for i, id := range ids {
		g.AddVertex(id, statuses[i])
	}

	g.AddEdge("start", "g1")
	g.AddEdge("g1", "end")

	return g
}

func TestProcessableNodesSourceAlwaysActionable(t *testing.T) {
	g := linearGraph(models.StatusWaiting, models.StatusWaiting, models.StatusWaiting)

	assert.ElementsMatch(t, []string{"start"}, g.ProcessableNodes())
}

func TestProcessableNodesAdvancesWithPredecessors(t *testing.T) {
	g := linearGraph(models.StatusAccepted, models.StatusWaiting, models.StatusWaiting)

	assert.ElementsMatch(t, []string{"g1"}, g.ProcessableNodes())

	g = linearGraph(models.StatusAccepted, models.StatusRescued, models.StatusWaiting)

	assert.ElementsMatch(t, []string{"end"}, g.ProcessableNodes())
}

func TestProcessableNodesExcludesTerminalAndBlockedPaths(t *testing.T) {
	// A terminal node is never actionable.
	g := linearGraph(models.StatusAccepted, models.StatusFailed, models.StatusWaiting)
	assert.Empty(t, g.ProcessableNodes())

	// A node behind a non-good predecessor is never actionable.
	g = linearGraph(models.StatusRunning, models.StatusWaiting, models.StatusWaiting)
	assert.ElementsMatch(t, []string{"start"}, g.ProcessableNodes())
}

func TestProcessableNodesFanIn(t *testing.T) {
	g := New()
	g.AddVertex("start", models.StatusAccepted)
	g.AddVertex("g1", models.StatusAccepted)
	g.AddVertex("g2", models.StatusRunning)
	g.AddVertex("collect", models.StatusWaiting)
	g.AddEdge("start", "g1")
	g.AddEdge("start", "g2")
	g.AddEdge("g1", "collect")
	g.AddEdge("g2", "collect")

	// collect waits for g2; only g2 itself is actionable.
	assert.ElementsMatch(t, []string{"g2"}, g.ProcessableNodes())
}

func TestValidateLinear(t *testing.T) {
	g := linearGraph(models.StatusWaiting, models.StatusWaiting, models.StatusWaiting)

	assert.True(t, g.Validate("start", "end"))
	assert.Equal(t, []string{"start"}, g.Sources())
	assert.Equal(t, []string{"end"}, g.Sinks())
}

func TestValidateRejectsCycle(t *testing.T) {
	g := linearGraph(models.StatusWaiting, models.StatusWaiting, models.StatusWaiting)
	g.AddVertex("loop", models.StatusWaiting)
	g.AddEdge("g1", "loop")
	g.AddEdge("loop", "g1")

	assert.False(t, g.Validate("start", "end"))
}

func TestValidateRejectsDisconnectedVertex(t *testing.T) {
	g := linearGraph(models.StatusWaiting, models.StatusWaiting, models.StatusWaiting)
	g.AddVertex("orphan", models.StatusWaiting)

	assert.False(t, g.Validate("start", "end"))
}

func TestValidateRejectsWrongEndpoints(t *testing.T) {
	g := linearGraph(models.StatusWaiting, models.StatusWaiting, models.StatusWaiting)

	// Source with incoming edges or sink with outgoing edges is invalid.
	assert.False(t, g.Validate("g1", "end"))
	assert.False(t, g.Validate("start", "g1"))
	assert.False(t, g.Validate("missing", "end"))
}
