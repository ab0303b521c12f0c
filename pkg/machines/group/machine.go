// Package group provides the action set for group nodes, the units that
// submit real work to an external launcher.
package group

import (
	"context"
	"fmt"

	"github.com/pipecraft/campd/pkg/machines/base"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

const scriptTemplateKey = "script_template"

// Actions drives one group of work: prepare materializes the group's
// artifact directory and renders its launch script from the resolved
// configuration chain; start submits the launch configuration to the
// external launcher; the finish guard polls the launcher and maps its
// answer to done or still-running, erroring on held and failed jobs so the
// machine's error handler drives the node to failed.
type Actions struct {
	base.Actions

	// handle is the opaque launcher reference for the submitted job. It is
	// the kind-specific scalar state carried through machine snapshots.
	handle string
}

// NewActions builds a group action set.
func NewActions(deps protocol.Dependencies) *Actions {
	return &Actions{Actions: base.NewActions(deps)}
}

// Kind returns the node kind.
func (a *Actions) Kind() models.NodeKind {
	return models.NodeKindGroup
}

// Handle returns the launcher handle of the submitted job, if any.
func (a *Actions) Handle() string {
	return a.handle
}

// OnPrepare creates the group's artifact directory, assembles its
// configuration chain and renders the launch artifacts.
func (a *Actions) OnPrepare(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	dir := a.NodeDir(node)

	err := a.Deps.Workspace.EnsureDir(dir)
	if err != nil {
		return fmt.Errorf("failed to create group artifact directory %s: %w", dir, err)
	}

	chains, err := a.Deps.Resolver.Assemble(ctx, node, nil)
	if err != nil {
		return fmt.Errorf("failed to assemble configuration chain: %w", err)
	}

	launch := chains[models.ManifestKindLaunch].Flatten()

	source, ok := launch[scriptTemplateKey].(string)
	if !ok || source == "" {
		// Nothing to render; the launcher works from the bare chain.
		return nil
	}

	data := map[string]any{
		"node":    node.Name,
		"dir":     dir,
		"payload": chains[models.ManifestKindPayload].Flatten(),
		"site":    chains[models.ManifestKindSite].Flatten(),
		"launch":  launch,
	}

	err = a.Deps.Workspace.RenderFile(dir+"/launch.sh", source, data)
	if err != nil {
		return fmt.Errorf("failed to render launch script: %w", err)
	}

	return nil
}

// OnStart submits the group's launch configuration to the external launcher
// and keeps the returned handle for status checks.
func (a *Actions) OnStart(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	chains, err := a.Deps.Resolver.Assemble(ctx, node, nil)
	if err != nil {
		return fmt.Errorf("failed to assemble configuration chain: %w", err)
	}

	config := chains[models.ManifestKindLaunch].Flatten()
	config["node"] = node.Name
	config["namespace"] = node.Namespace
	config["dir"] = a.NodeDir(node)

	handle, err := a.Deps.Launcher.Launch(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to launch group %s: %w", node.Name, err)
	}

	a.handle = handle

	return nil
}

// IsDoneRunning polls the launcher for the submitted handle. Done means the
// finish transition commits; running leaves the node running for a later
// pass; held and failed are unexpected terminal states and error out so the
// error handler routes the node to failed.
func (a *Actions) IsDoneRunning(ctx context.Context, node *models.Node, t *protocol.Transition) (bool, error) {
	if a.handle == "" {
		return false, fmt.Errorf("group %s has no launch handle", node.Name)
	}

	result, err := a.Deps.Launcher.Check(ctx, a.handle)
	if err != nil {
		return false, fmt.Errorf("failed to check launch handle %s: %w", a.handle, err)
	}

	switch result.State {
	case protocol.LaunchStateDone:
		return true, nil
	case protocol.LaunchStateRunning:
		return false, nil
	default:
		return false, fmt.Errorf("launch handle %s reported unexpected state %s (job %s)",
			a.handle, result.State, result.JobID)
	}
}

// Snapshot carries the launch handle through the persisted machine blob.
func (a *Actions) Snapshot() map[string]any {
	data := map[string]any{}
	if a.handle != "" {
		data["handle"] = a.handle
	}

	return data
}

// Restore re-attaches the launch handle from a persisted snapshot.
func (a *Actions) Restore(data map[string]any) error {
	if handle, ok := data["handle"].(string); ok {
		a.handle = handle
	}

	return nil
}
