package generic

import (
	"context"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Factory creates generic action sets.
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
	return models.NodeKindGeneric
}

// Name returns the human-readable kind name.
func (f *Factory) Name() string {
	return "Generic"
}

// Description returns the kind description.
func (f *Factory) Description() string {
	return "Plain node with no side effects; progresses through the normal prepare/start/finish path"
}

// Schema returns the JSON schema for generic node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
	}
}
