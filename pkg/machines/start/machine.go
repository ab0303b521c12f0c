// Package start provides the action set for a campaign's START node.
package start

import (
	"context"
	"fmt"

	"github.com/pipecraft/campd/pkg/machines/base"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Actions anchors the campaign graph: prepare materializes the campaign's
// artifact root directory, unprepare removes it, start is a no-op marker.
type Actions struct {
	base.Actions
}

// NewActions builds a start-node action set.
func NewActions(deps protocol.Dependencies) *Actions {
	return &Actions{Actions: base.NewActions(deps)}
}

// Kind returns the node kind.
func (a *Actions) Kind() models.NodeKind {
	return models.NodeKindStart
}

// OnPrepare creates the campaign's artifact root directory.
func (a *Actions) OnPrepare(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	dir := a.CampaignDir(node.Namespace)

	err := a.Deps.Workspace.EnsureDir(dir)
	if err != nil {
		return fmt.Errorf("failed to create campaign artifact root %s: %w", dir, err)
	}

	return nil
}

// OnUnprepare removes the campaign's artifact root directory.
func (a *Actions) OnUnprepare(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	dir := a.CampaignDir(node.Namespace)

	err := a.Deps.Workspace.RemoveDir(dir)
	if err != nil {
		return fmt.Errorf("failed to remove campaign artifact root %s: %w", dir, err)
	}

	return nil
}
