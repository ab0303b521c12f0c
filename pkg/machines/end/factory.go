package end

import (
	"context"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Factory creates end-node action sets.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.ActionsFactory {
	return &Factory{}
}

// Create builds actions bound to the given node and dependencies.
func (f *Factory) Create(ctx context.Context, node *models.Node, deps protocol.Dependencies) (protocol.Actions, error) {
	return NewActions(deps), nil
}

// Kind returns the node kind this factory serves.
func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindEnd
}

// Name returns the human-readable kind name.
func (f *Factory) Name() string {
	return "End"
}

// Description returns the kind description.
func (f *Factory) Description() string {
	return "Campaign sink node; finishing it accepts the owning campaign"
}

// Schema returns the JSON schema for end node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
	}
}
