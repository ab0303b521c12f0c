package protocol

import (
	"context"
	"log/slog"

	"github.com/pipecraft/campd/pkg/chain"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
)

// Dependencies carries the collaborators a state machine's actions may need.
// Injected at machine construction, never serialized.
type Dependencies struct {
	Logger    *slog.Logger
	Store     persistence.Persistence
	Resolver  *chain.Resolver
	Launcher  Launcher
	Workspace Workspace

	// ArtifactRoot is the base directory under which campaign artifact
	// trees are materialized.
	ArtifactRoot string
}

// Transition describes the state change an action is being invoked for.
type Transition struct {
	Trigger string
	From    models.Status
	To      models.Status

	// Entry is the activity-log draft for this attempt. Actions may attach
	// detail to it; entries with detail are persisted on finalize.
	Entry *models.ActivityLog
}

// Actions is the kind-specific capability set of a node state machine:
// before-transition actions for the prepare/unprepare/start/finish triggers
// plus the guards the transition table consults. Implementations hold only
// scalar state; Snapshot and Restore round-trip it through the persisted
// machine blob.
type Actions interface {
	Kind() models.NodeKind

	OnPrepare(ctx context.Context, node *models.Node, t *Transition) error
	OnUnprepare(ctx context.Context, node *models.Node, t *Transition) error
	OnStart(ctx context.Context, node *models.Node, t *Transition) error
	OnFinish(ctx context.Context, node *models.Node, t *Transition) error

	// IsStartable guards the start trigger.
	IsStartable(ctx context.Context, node *models.Node, t *Transition) (bool, error)

	// IsDoneRunning guards the finish trigger.
	IsDoneRunning(ctx context.Context, node *models.Node, t *Transition) (bool, error)

	Snapshot() map[string]any
	Restore(data map[string]any) error
}

// ActionsFactory creates the actions for one node kind and describes its
// configuration surface.
type ActionsFactory interface {
	// Create builds actions bound to the given node and dependencies.
	Create(ctx context.Context, node *models.Node, deps Dependencies) (Actions, error)

	// Kind returns the node kind this factory serves.
	Kind() models.NodeKind

	// Name returns the human-readable name for this kind.
	Name() string

	// Description returns a description of what this kind does.
	Description() string

	// Schema returns the JSON schema for the kind's node configuration.
	Schema() map[string]any
}
