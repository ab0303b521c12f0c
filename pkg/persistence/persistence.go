// Package persistence provides the storage abstraction layer for campaigns,
// nodes, tasks and the other engine entities.
package persistence

import (
	"context"

	"github.com/pipecraft/campd/pkg/models"
)

// CampaignRepository stores campaigns and hands them to the scheduler under
// row-level locks.
type CampaignRepository interface {
	Save(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	List(ctx context.Context) ([]*models.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) error

	// ClaimProcessable selects campaigns in any of the given statuses with
	// FOR UPDATE SKIP LOCKED and invokes fn for each while the row lock is
	// held, so concurrent daemons partition campaigns without contention.
	// A non-nil error from fn skips that campaign only.
	ClaimProcessable(ctx context.Context, statuses []models.Status, fn func(ctx context.Context, campaign *models.Campaign) error) (int, error)
}

// NodeRepository stores versioned node rows.
type NodeRepository interface {
	Save(ctx context.Context, node *models.Node) error
	GetByID(ctx context.Context, id string) (*models.Node, error)
	GetLatestByName(ctx context.Context, namespace, name string) (*models.Node, error)
	ListByNamespace(ctx context.Context, namespace string) ([]*models.Node, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) error
	SetMachineID(ctx context.Context, id, machineID string) error
}

// EdgeRepository stores the directed dependencies of a campaign graph.
type EdgeRepository interface {
	Save(ctx context.Context, edge *models.Edge) error
	ListByNamespace(ctx context.Context, namespace string) ([]*models.Edge, error)
	ListByTarget(ctx context.Context, namespace, targetID string) ([]*models.Edge, error)
}

// TaskRepository stores the ephemeral transition queue.
type TaskRepository interface {
	// Enqueue inserts a task, relying on its deterministic id for
	// idempotence. With allowReset (test-only replay mode) a previously
	// finished task has its timestamps cleared instead of being ignored.
	// Reports whether a live task exists after the call was applied.
	Enqueue(ctx context.Context, task *models.Task, allowReset bool) (bool, error)

	// ClaimUnsubmitted selects up to limit unsubmitted tasks with
	// FOR UPDATE SKIP LOCKED and stamps them submitted in the same
	// transaction, so racing claimers never share a task.
	ClaimUnsubmitted(ctx context.Context, limit int) ([]*models.Task, error)

	MarkFinished(ctx context.Context, id string) error

	// Release clears a claimed task's submitted stamp so a later pass can
	// claim it again. Used when a finish poll finds the work still running:
	// the transition did not commit, so the task is not finished.
	Release(ctx context.Context, id string) error

	ListByNamespace(ctx context.Context, namespace string) ([]*models.Task, error)
	CountUnsubmitted(ctx context.Context, namespace string) (int, error)
}

// MachineRepository stores serialized state-machine snapshots.
type MachineRepository interface {
	Save(ctx context.Context, machine *models.Machine) error
	GetByID(ctx context.Context, id string) (*models.Machine, error)
}

// ActivityRepository stores the immutable transition audit log.
type ActivityRepository interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
	ListByNode(ctx context.Context, nodeID string) ([]*models.ActivityLog, error)
	ListByNamespace(ctx context.Context, namespace string) ([]*models.ActivityLog, error)
}

// ManifestRepository stores versioned configuration documents.
type ManifestRepository interface {
	Save(ctx context.Context, manifest *models.Manifest) error
	Latest(ctx context.Context, namespace string, kind models.ManifestKind) (*models.Manifest, error)
	Get(ctx context.Context, namespace string, kind models.ManifestKind, version int) (*models.Manifest, error)
}

// Persistence aggregates the entity repositories behind one storage handle.
type Persistence interface {
	Campaigns() CampaignRepository
	Nodes() NodeRepository
	Edges() EdgeRepository
	Tasks() TaskRepository
	Machines() MachineRepository
	Activity() ActivityRepository
	Manifests() ManifestRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
