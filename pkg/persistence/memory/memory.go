// Package memory provides an in-memory persistence implementation used by
// tests and single-process development runs. It honors the same claim and
// idempotence semantics as the PostgreSQL backend, with a mutex standing in
// for row-level locks.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
)

// Persistence implements the persistence layer in process memory.
type Persistence struct {
	mu sync.Mutex

	campaigns map[string]*models.Campaign
	nodes     map[string]*models.Node
	edges     map[string]*models.Edge
	tasks     map[string]*models.Task
	machines  map[string]*models.Machine
	activity  []*models.ActivityLog
	manifests map[string]*models.Manifest
}

// NewPersistence returns an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		campaigns: make(map[string]*models.Campaign),
		nodes:     make(map[string]*models.Node),
		edges:     make(map[string]*models.Edge),
		tasks:     make(map[string]*models.Task),
		machines:  make(map[string]*models.Machine),
		manifests: make(map[string]*models.Manifest),
	}
}

func (p *Persistence) Campaigns() persistence.CampaignRepository { return &campaignRepo{p} }
func (p *Persistence) Nodes() persistence.NodeRepository         { return &nodeRepo{p} }
func (p *Persistence) Edges() persistence.EdgeRepository         { return &edgeRepo{p} }
func (p *Persistence) Tasks() persistence.TaskRepository         { return &taskRepo{p} }
func (p *Persistence) Machines() persistence.MachineRepository   { return &machineRepo{p} }
func (p *Persistence) Activity() persistence.ActivityRepository  { return &activityRepo{p} }
func (p *Persistence) Manifests() persistence.ManifestRepository { return &manifestRepo{p} }

func (p *Persistence) HealthCheck(ctx context.Context) error { return nil }
func (p *Persistence) Close(ctx context.Context) error       { return nil }

type campaignRepo struct{ p *Persistence }

func (r *campaignRepo) Save(ctx context.Context, campaign *models.Campaign) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.campaigns[campaign.ID]; ok {
		return persistence.NewCampaignError("Save", campaign.ID, persistence.ErrCampaignAlreadyExists)
	}

	clone := *campaign
	r.p.campaigns[campaign.ID] = &clone

	return nil
}

func (r *campaignRepo) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	campaign, ok := r.p.campaigns[id]
	if !ok {
		return nil, persistence.NewCampaignError("GetByID", id, persistence.ErrCampaignNotFound)
	}

	clone := *campaign

	return &clone, nil
}

func (r *campaignRepo) List(ctx context.Context) ([]*models.Campaign, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	campaigns := make([]*models.Campaign, 0, len(r.p.campaigns))

	for _, campaign := range r.p.campaigns {
		clone := *campaign
		campaigns = append(campaigns, &clone)
	}

	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.Before(campaigns[j].CreatedAt)
	})

	return campaigns, nil
}

func (r *campaignRepo) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	campaign, ok := r.p.campaigns[id]
	if !ok {
		return persistence.NewCampaignError("UpdateStatus", id, persistence.ErrCampaignNotFound)
	}

	campaign.Status = status
	campaign.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *campaignRepo) ClaimProcessable(ctx context.Context, statuses []models.Status, fn func(ctx context.Context, campaign *models.Campaign) error) (int, error) {
	claimed, err := r.List(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0

	for _, campaign := range claimed {
		match := false

		for _, s := range statuses {
			if campaign.Status == s {
				match = true

				break
			}
		}

		if !match {
			continue
		}

		if err := fn(ctx, campaign); err != nil {
			continue
		}

		processed++
	}

	return processed, nil
}

type nodeRepo struct{ p *Persistence }

func (r *nodeRepo) Save(ctx context.Context, node *models.Node) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.nodes[node.ID]; ok {
		return persistence.NewNodeError("Save", node.Namespace, node.ID, persistence.ErrNodeVersionExists)
	}

	clone := *node
	r.p.nodes[node.ID] = &clone

	return nil
}

func (r *nodeRepo) GetByID(ctx context.Context, id string) (*models.Node, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	node, ok := r.p.nodes[id]
	if !ok {
		return nil, persistence.NewNodeError("GetByID", "", id, persistence.ErrNodeNotFound)
	}

	clone := *node

	return &clone, nil
}

func (r *nodeRepo) GetLatestByName(ctx context.Context, namespace, name string) (*models.Node, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var latest *models.Node

	for _, node := range r.p.nodes {
		if node.Namespace != namespace || node.Name != name {
			continue
		}

		if latest == nil || node.Version > latest.Version {
			latest = node
		}
	}

	if latest == nil {
		return nil, persistence.NewNodeError("GetLatestByName", namespace, name, persistence.ErrNodeNotFound)
	}

	clone := *latest

	return &clone, nil
}

func (r *nodeRepo) ListByNamespace(ctx context.Context, namespace string) ([]*models.Node, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var nodes []*models.Node

	for _, node := range r.p.nodes {
		if node.Namespace != namespace {
			continue
		}

		clone := *node
		nodes = append(nodes, &clone)
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}

		return nodes[i].Version < nodes[j].Version
	})

	return nodes, nil
}

func (r *nodeRepo) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	node, ok := r.p.nodes[id]
	if !ok {
		return persistence.NewNodeError("UpdateStatus", "", id, persistence.ErrNodeNotFound)
	}

	node.Status = status
	node.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *nodeRepo) SetMachineID(ctx context.Context, id, machineID string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	node, ok := r.p.nodes[id]
	if !ok {
		return persistence.NewNodeError("SetMachineID", "", id, persistence.ErrNodeNotFound)
	}

	node.MachineID = &machineID
	node.UpdatedAt = time.Now().UTC()

	return nil
}

type edgeRepo struct{ p *Persistence }

func (r *edgeRepo) Save(ctx context.Context, edge *models.Edge) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.edges[edge.ID]; ok {
		return nil
	}

	clone := *edge
	r.p.edges[edge.ID] = &clone

	return nil
}

func (r *edgeRepo) ListByNamespace(ctx context.Context, namespace string) ([]*models.Edge, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var edges []*models.Edge

	for _, edge := range r.p.edges {
		if edge.Namespace != namespace {
			continue
		}

		clone := *edge
		edges = append(edges, &clone)
	}

	sort.Slice(edges, func(i, j int) bool {
		return edges[i].CreatedAt.Before(edges[j].CreatedAt)
	})

	return edges, nil
}

func (r *edgeRepo) ListByTarget(ctx context.Context, namespace, targetID string) ([]*models.Edge, error) {
	edges, err := r.ListByNamespace(ctx, namespace)
	if err != nil {
		return nil, err
	}

	var matches []*models.Edge

	for _, edge := range edges {
		if edge.TargetID == targetID {
			matches = append(matches, edge)
		}
	}

	return matches, nil
}

type taskRepo struct{ p *Persistence }

func (r *taskRepo) Enqueue(ctx context.Context, task *models.Task, allowReset bool) (bool, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	existing, ok := r.p.tasks[task.ID]
	if !ok {
		clone := *task
		r.p.tasks[task.ID] = &clone

		return true, nil
	}

	// A finished row is reopened: the node became actionable again, so the
	// old attempt's timestamps are cleared. With allowReset even a live
	// (claimed) task is reset.
	if allowReset || existing.FinishedAt != nil {
		clone := *task
		clone.SubmittedAt = nil
		clone.FinishedAt = nil
		r.p.tasks[task.ID] = &clone

		return true, nil
	}

	return true, nil
}

func (r *taskRepo) ClaimUnsubmitted(ctx context.Context, limit int) ([]*models.Task, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var all []*models.Task

	for _, task := range r.p.tasks {
		if task.SubmittedAt == nil {
			all = append(all, task)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Priority != all[j].Priority {
			return all[i].Priority > all[j].Priority
		}

		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if len(all) > limit {
		all = all[:limit]
	}

	now := time.Now().UTC()
	claimed := make([]*models.Task, 0, len(all))

	for _, task := range all {
		stamp := now
		task.SubmittedAt = &stamp
		clone := *task
		claimed = append(claimed, &clone)
	}

	return claimed, nil
}

func (r *taskRepo) MarkFinished(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	task, ok := r.p.tasks[id]
	if !ok {
		return &persistence.TaskError{Op: "MarkFinished", TaskID: id, Err: persistence.ErrTaskNotFound}
	}

	now := time.Now().UTC()
	task.FinishedAt = &now

	return nil
}

func (r *taskRepo) Release(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	task, ok := r.p.tasks[id]
	if !ok || task.FinishedAt != nil {
		return &persistence.TaskError{Op: "Release", TaskID: id, Err: persistence.ErrTaskNotFound}
	}

	task.SubmittedAt = nil

	return nil
}

func (r *taskRepo) ListByNamespace(ctx context.Context, namespace string) ([]*models.Task, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var tasks []*models.Task

	for _, task := range r.p.tasks {
		if task.Namespace != namespace {
			continue
		}

		clone := *task
		tasks = append(tasks, &clone)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	return tasks, nil
}

func (r *taskRepo) CountUnsubmitted(ctx context.Context, namespace string) (int, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	count := 0

	for _, task := range r.p.tasks {
		if task.Namespace == namespace && task.SubmittedAt == nil {
			count++
		}
	}

	return count, nil
}

type machineRepo struct{ p *Persistence }

func (r *machineRepo) Save(ctx context.Context, machine *models.Machine) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *machine
	r.p.machines[machine.ID] = &clone

	return nil
}

func (r *machineRepo) GetByID(ctx context.Context, id string) (*models.Machine, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	machine, ok := r.p.machines[id]
	if !ok {
		return nil, persistence.ErrMachineNotFound
	}

	clone := *machine

	return &clone, nil
}

type activityRepo struct{ p *Persistence }

func (r *activityRepo) Append(ctx context.Context, entry *models.ActivityLog) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *entry
	r.p.activity = append(r.p.activity, &clone)

	return nil
}

func (r *activityRepo) ListByNode(ctx context.Context, nodeID string) ([]*models.ActivityLog, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var entries []*models.ActivityLog

	for _, entry := range r.p.activity {
		if entry.NodeID == nodeID {
			clone := *entry
			entries = append(entries, &clone)
		}
	}

	return entries, nil
}

func (r *activityRepo) ListByNamespace(ctx context.Context, namespace string) ([]*models.ActivityLog, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var entries []*models.ActivityLog

	for _, entry := range r.p.activity {
		if entry.Namespace == namespace {
			clone := *entry
			entries = append(entries, &clone)
		}
	}

	return entries, nil
}

type manifestRepo struct{ p *Persistence }

func (r *manifestRepo) Save(ctx context.Context, manifest *models.Manifest) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.manifests[manifest.ID]; ok {
		return nil
	}

	clone := *manifest
	r.p.manifests[manifest.ID] = &clone

	return nil
}

func (r *manifestRepo) Latest(ctx context.Context, namespace string, kind models.ManifestKind) (*models.Manifest, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var latest *models.Manifest

	for _, manifest := range r.p.manifests {
		if manifest.Namespace != namespace || manifest.Kind != kind {
			continue
		}

		if latest == nil || manifest.Version > latest.Version {
			latest = manifest
		}
	}

	if latest == nil {
		return nil, persistence.ErrManifestNotFound
	}

	clone := *latest

	return &clone, nil
}

func (r *manifestRepo) Get(ctx context.Context, namespace string, kind models.ManifestKind, version int) (*models.Manifest, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	manifest, ok := r.p.manifests[models.NewManifestID(namespace, kind, version)]
	if !ok {
		return nil, persistence.ErrManifestNotFound
	}

	clone := *manifest

	return &clone, nil
}
