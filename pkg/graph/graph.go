// Package graph models a campaign's dependency graph and decides which nodes
// are currently actionable.
package graph

import (
	"github.com/pipecraft/campd/pkg/models"
)

// Vertex is a node identifier annotated with its current status.
type Vertex struct {
	ID     string
	Status models.Status
}

// Graph is the in-memory directed graph of one campaign namespace.
type Graph struct {
	vertices map[string]*Vertex
	// adjacency by node id
	successors   map[string][]string
	predecessors map[string][]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		vertices:     make(map[string]*Vertex),
		successors:   make(map[string][]string),
		predecessors: make(map[string][]string),
	}
}

// AddVertex registers a vertex, overwriting the status annotation if the id
// is already present.
func (g *Graph) AddVertex(id string, status models.Status) {
	if v, ok := g.vertices[id]; ok {
		v.Status = status

		return
	}

	g.vertices[id] = &Vertex{ID: id, Status: status}
}

// AddEdge records a directed dependency. Endpoints must already be vertices.
func (g *Graph) AddEdge(sourceID, targetID string) {
	g.successors[sourceID] = append(g.successors[sourceID], targetID)
	g.predecessors[targetID] = append(g.predecessors[targetID], sourceID)
}

// Vertex returns the vertex for id, if present.
func (g *Graph) Vertex(id string) (*Vertex, bool) {
	v, ok := g.vertices[id]

	return v, ok
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	return len(g.vertices)
}

// Predecessors returns the direct predecessors of id.
func (g *Graph) Predecessors(id string) []string {
	return g.predecessors[id]
}

// Successors returns the direct successors of id.
func (g *Graph) Successors(id string) []string {
	return g.successors[id]
}

// ProcessableNodes returns the ids of every actionable vertex: its own status
// is not terminal and every direct predecessor is terminal-good. A source
// vertex has no predecessors and is therefore actionable while non-terminal.
// Single pass over vertices with a predecessor check, O(V+E).
func (g *Graph) ProcessableNodes() []string {
	var actionable []string

	for id, v := range g.vertices {
		if v.Status.IsTerminal() {
			continue
		}

		ready := true

		for _, pred := range g.predecessors[id] {
			if !g.vertices[pred].Status.IsGood() {
				ready = false

				break
			}
		}

		if ready {
			actionable = append(actionable, id)
		}
	}

	return actionable
}

// Sources returns the vertices with no incoming edges.
func (g *Graph) Sources() []string {
	var sources []string

	for id := range g.vertices {
		if len(g.predecessors[id]) == 0 {
			sources = append(sources, id)
		}
	}

	return sources
}

// Sinks returns the vertices with no outgoing edges.
func (g *Graph) Sinks() []string {
	var sinks []string

	for id := range g.vertices {
		if len(g.successors[id]) == 0 {
			sinks = append(sinks, id)
		}
	}

	return sinks
}

// Validate asserts the graph is a DAG in which source has no incoming edges,
// sink has no outgoing edges, and every vertex lies on some source-to-sink
// path. Callers must refuse to advance a campaign with an invalid graph.
func (g *Graph) Validate(sourceID, sinkID string) bool {
	if _, ok := g.vertices[sourceID]; !ok {
		return false
	}

	if _, ok := g.vertices[sinkID]; !ok {
		return false
	}

	if len(g.predecessors[sourceID]) != 0 || len(g.successors[sinkID]) != 0 {
		return false
	}

	if g.hasCycle() {
		return false
	}

	fromSource := g.reachable(sourceID, g.successors)
	toSink := g.reachable(sinkID, g.predecessors)

	for id := range g.vertices {
		if !fromSource[id] || !toSink[id] {
			return false
		}
	}

	return true
}

func (g *Graph) reachable(start string, next map[string][]string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, n := range next[id] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}

	return seen
}

// hasCycle runs a depth-first search with the usual white/grey/black coloring.
func (g *Graph) hasCycle() bool {
	const (
		white = 0
		grey  = 1
		black = 2
	)

	color := make(map[string]int, len(g.vertices))

	var visit func(id string) bool

	visit = func(id string) bool {
		color[id] = grey

		for _, n := range g.successors[id] {
			switch color[n] {
			case grey:
				return true
			case white:
				if visit(n) {
					return true
				}
			}
		}

		color[id] = black

		return false
	}

	for id := range g.vertices {
		if color[id] == white && visit(id) {
			return true
		}
	}

	return false
}
