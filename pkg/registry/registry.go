// Package registry maps node kinds to their action-set factories. The
// registry is resolved once per process and shared; there is no runtime
// reflection in kind dispatch.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Registry holds one actions factory per node kind.
type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeKind]protocol.ActionsFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.NodeKind]protocol.ActionsFactory),
	}
}

// Register adds a factory, replacing any previous one for the same kind.
func (r *Registry) Register(factory protocol.ActionsFactory) {
	r.factories[factory.Kind()] = factory
}

// Factory returns the factory for a kind.
func (r *Registry) Factory(kind models.NodeKind) (protocol.ActionsFactory, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("node kind '%s' not registered", kind)
	}

	return factory, nil
}

// CreateActions builds the action set for a node via its kind's factory.
func (r *Registry) CreateActions(ctx context.Context, node *models.Node, deps protocol.Dependencies) (protocol.Actions, error) {
	factory, err := r.Factory(node.Kind)
	if err != nil {
		return nil, err
	}

	return factory.Create(ctx, node, deps)
}

// Kinds returns every registered kind.
func (r *Registry) Kinds() []models.NodeKind {
	kinds := make([]models.NodeKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}
