package group

import (
	"context"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Factory creates group action sets.
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
	return models.NodeKindGroup
}

// Name returns the human-readable kind name.
func (f *Factory) Name() string {
	return "Group"
}

// Description returns the kind description.
func (f *Factory) Description() string {
	return "Work group; renders launch artifacts, submits them to the external launcher and tracks the job to completion"
}

// Schema returns the JSON schema for group node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"launch": map[string]any{
				"type":        "object",
				"description": "Inline overrides for the launch configuration chain",
				"properties": map[string]any{
					"script_template": map[string]any{
						"type":        "string",
						"description": "Go template rendered into the group's launch script",
					},
				},
			},
			"payload": map[string]any{
				"type":        "object",
				"description": "Inline overrides for the payload configuration chain",
			},
			"site": map[string]any{
				"type":        "object",
				"description": "Inline overrides for the site configuration chain",
			},
		},
		"additionalProperties": true,
	}
}
