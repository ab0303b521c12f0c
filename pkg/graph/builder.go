package graph

import (
	"context"
	"fmt"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
)

// IncompleteError reports that an edge references a node id that could not be
// loaded from storage.
type IncompleteError struct {
	Namespace string
	NodeID    string
	Err       error
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("graph for namespace %s is incomplete: node %s: %v", e.Namespace, e.NodeID, e.Err)
}

func (e *IncompleteError) Unwrap() error {
	return e.Err
}

// Builder constructs graphs from persisted edges, hydrating each vertex's
// status from the node store.
type Builder struct {
	nodes persistence.NodeRepository
}

// NewBuilder returns a builder backed by the given node repository.
func NewBuilder(nodes persistence.NodeRepository) *Builder {
	return &Builder{nodes: nodes}
}

// Build adds one vertex per distinct id referenced by any edge and annotates
// it with the node's current status. Fails with an IncompleteError when an
// edge references a node that cannot be loaded.
func (b *Builder) Build(ctx context.Context, edges []*models.Edge) (*Graph, error) {
	g := New()

	for _, edge := range edges {
		for _, id := range []string{edge.SourceID, edge.TargetID} {
			if _, ok := g.Vertex(id); ok {
				continue
			}

			node, err := b.nodes.GetByID(ctx, id)
			if err != nil {
				return nil, &IncompleteError{Namespace: edge.Namespace, NodeID: id, Err: err}
			}

			g.AddVertex(id, node.Status)
		}

		g.AddEdge(edge.SourceID, edge.TargetID)
	}

	return g, nil
}
