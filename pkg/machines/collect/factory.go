package collect

import (
	"context"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Factory creates collect action sets.
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
	return models.NodeKindCollect
}

// Name returns the human-readable kind name.
func (f *Factory) Name() string {
	return "Collect"
}

// Description returns the kind description.
func (f *Factory) Description() string {
	return "Step-collect node; gates on ancestor output artifacts and chains them into its own output"
}

// Schema returns the JSON schema for collect node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"collect": map[string]any{
				"type":        "object",
				"description": "Inline overrides for the collect configuration chain",
			},
		},
		"additionalProperties": true,
	}
}
