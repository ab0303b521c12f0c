// Package base provides the default action set node kinds embed and override.
package base

import (
	"context"
	"path/filepath"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Actions implements every capability of the action set as a no-op or an
// always-true guard. Kind-specific action sets embed it and override what
// they specialize. Kind() is deliberately not provided: every concrete kind
// must declare its own.
type Actions struct {
	Deps protocol.Dependencies
}

// NewActions binds the default action set to its dependencies.
func NewActions(deps protocol.Dependencies) Actions {
	return Actions{Deps: deps}
}

func (a *Actions) OnPrepare(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	return nil
}

func (a *Actions) OnUnprepare(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	return nil
}

func (a *Actions) OnStart(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	return nil
}

func (a *Actions) OnFinish(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	return nil
}

func (a *Actions) IsStartable(ctx context.Context, node *models.Node, t *protocol.Transition) (bool, error) {
	return true, nil
}

func (a *Actions) IsDoneRunning(ctx context.Context, node *models.Node, t *protocol.Transition) (bool, error) {
	return true, nil
}

func (a *Actions) Snapshot() map[string]any {
	return map[string]any{}
}

func (a *Actions) Restore(data map[string]any) error {
	return nil
}

// CampaignDir returns the artifact root directory of a campaign namespace.
func (a *Actions) CampaignDir(namespace string) string {
	return filepath.Join(a.Deps.ArtifactRoot, namespace)
}

// NodeDir returns the artifact directory of one node.
func (a *Actions) NodeDir(node *models.Node) string {
	return filepath.Join(a.Deps.ArtifactRoot, node.Namespace, node.Name)
}

// OutputPath returns the output artifact a node is expected to produce.
func (a *Actions) OutputPath(node *models.Node) string {
	return filepath.Join(a.NodeDir(node), "output")
}
