// Package collect provides the action set for step-collect nodes, which
// gather the outputs of their ancestors into one artifact.
package collect

import (
	"context"
	"fmt"

	"github.com/pipecraft/campd/pkg/machines/base"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Actions guards a collect node on its ancestors' artifacts: start requires
// every direct ancestor's output to exist; finish additionally requires the
// ancestors' outputs to be chained into this node's own output.
type Actions struct {
	base.Actions
}

// NewActions builds a collect action set.
func NewActions(deps protocol.Dependencies) *Actions {
	return &Actions{Actions: base.NewActions(deps)}
}

// Kind returns the node kind.
func (a *Actions) Kind() models.NodeKind {
	return models.NodeKindCollect
}

// OnPrepare creates the collect node's artifact directory.
func (a *Actions) OnPrepare(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	dir := a.NodeDir(node)

	err := a.Deps.Workspace.EnsureDir(dir)
	if err != nil {
		return fmt.Errorf("failed to create collect artifact directory %s: %w", dir, err)
	}

	return nil
}

// IsStartable requires every ancestor's output artifact to exist.
func (a *Actions) IsStartable(ctx context.Context, node *models.Node, t *protocol.Transition) (bool, error) {
	missing, err := a.missingAncestorOutputs(ctx, node)
	if err != nil {
		return false, err
	}

	return len(missing) == 0, nil
}

// IsDoneRunning requires the ancestors' outputs and this node's own output
// to all be present before the finish transition may commit.
func (a *Actions) IsDoneRunning(ctx context.Context, node *models.Node, t *protocol.Transition) (bool, error) {
	missing, err := a.missingAncestorOutputs(ctx, node)
	if err != nil {
		return false, err
	}

	if len(missing) > 0 {
		return false, fmt.Errorf("collect node %s is running but ancestor outputs disappeared: %v", node.Name, missing)
	}

	return a.Deps.Workspace.Exists(a.OutputPath(node)), nil
}

func (a *Actions) missingAncestorOutputs(ctx context.Context, node *models.Node) ([]string, error) {
	edges, err := a.Deps.Store.Edges().ListByTarget(ctx, node.Namespace, node.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ancestors of %s: %w", node.Name, err)
	}

	var missing []string

	for _, edge := range edges {
		ancestor, err := a.Deps.Store.Nodes().GetByID(ctx, edge.SourceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ancestor %s: %w", edge.SourceID, err)
		}

		if !a.Deps.Workspace.Exists(a.OutputPath(ancestor)) {
			missing = append(missing, ancestor.Name)
		}
	}

	return missing, nil
}
