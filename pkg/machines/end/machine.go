// Package end provides the action set for a campaign's END node.
package end

import (
	"context"
	"fmt"

	"github.com/pipecraft/campd/pkg/machines/base"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Actions closes a campaign: its finish action advances the owning
// campaign's status to accepted. This is the only path by which a campaign's
// own status moves.
type Actions struct {
	base.Actions
}

// NewActions builds an end-node action set.
func NewActions(deps protocol.Dependencies) *Actions {
	return &Actions{Actions: base.NewActions(deps)}
}

// Kind returns the node kind.
func (a *Actions) Kind() models.NodeKind {
	return models.NodeKindEnd
}

// OnFinish loads the owning campaign and marks it accepted.
func (a *Actions) OnFinish(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	campaign, err := a.Deps.Store.Campaigns().GetByID(ctx, node.Namespace)
	if err != nil {
		return fmt.Errorf("failed to load owning campaign %s: %w", node.Namespace, err)
	}

	err = a.Deps.Store.Campaigns().UpdateStatus(ctx, campaign.ID, models.StatusAccepted)
	if err != nil {
		return fmt.Errorf("failed to accept campaign %s: %w", campaign.ID, err)
	}

	return nil
}
