package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/pipecraft/campd/pkg/machine"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
)

// ErrNotProcessable reports that a single-step process request found nothing
// to do for the given entity.
var ErrNotProcessable = errors.New("nothing to process")

// ProcessResult describes what one incremental step did.
type ProcessResult struct {
	Kind          string        `json:"kind"`
	ID            string        `json:"id"`
	TasksEnqueued int           `json:"tasks_enqueued,omitempty"`
	Trigger       string        `json:"trigger,omitempty"`
	From          models.Status `json:"from,omitempty"`
	To            models.Status `json:"to,omitempty"`
	Fired         bool          `json:"fired"`
}

// Process performs exactly one incremental step for a campaign or node id:
// for a campaign, one Phase-1 consideration (enqueue tasks for its actionable
// nodes); for a node, one transition toward its next status. It never drains;
// further progress is the background daemon's job. The caller's request id is
// correlated into any activity-log entries the step produces.
func (d *Daemon) Process(ctx context.Context, id, requestID string) (*ProcessResult, error) {
	campaign, err := d.store.Campaigns().GetByID(ctx, id)
	if err == nil {
		return d.processCampaign(ctx, campaign)
	}

	if !persistence.IsCampaignNotFound(err) {
		return nil, fmt.Errorf("failed to resolve id %s: %w", id, err)
	}

	node, err := d.store.Nodes().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve id %s: %w", id, err)
	}

	return d.processNode(ctx, node, requestID)
}

func (d *Daemon) processCampaign(ctx context.Context, campaign *models.Campaign) (*ProcessResult, error) {
	enqueued, err := d.considerCampaign(ctx, campaign)
	if err != nil {
		return nil, err
	}

	return &ProcessResult{
		Kind:          "campaign",
		ID:            campaign.ID,
		TasksEnqueued: enqueued,
		Fired:         enqueued > 0,
	}, nil
}

func (d *Daemon) processNode(ctx context.Context, node *models.Node, requestID string) (*ProcessResult, error) {
	desired, ok := models.NextStatus(node.Status)
	if !ok {
		return nil, fmt.Errorf("%w: node %s is %s", ErrNotProcessable, node.ID, node.Status)
	}

	trigger, ok := machine.TriggerFor(node.Status, desired)
	if !ok {
		return nil, fmt.Errorf("%w: no trigger from %s to %s", ErrNotProcessable, node.Status, desired)
	}

	return d.FireTrigger(ctx, node, trigger, machine.FireContext{Operator: "api", RequestID: requestID})
}

// FireTrigger fires one explicit trigger on a node, outside the task queue.
// This is the operator path: retry, force, pause and the other recovery
// triggers arrive here from the API.
func (d *Daemon) FireTrigger(ctx context.Context, node *models.Node, trigger machine.Trigger, fc machine.FireContext) (*ProcessResult, error) {
	from := node.Status

	m, err := d.buildMachine(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("failed to build machine: %w", err)
	}

	fired, err := d.fire(ctx, m, trigger, fc)
	if err != nil {
		return nil, err
	}

	return &ProcessResult{
		Kind:    "node",
		ID:      node.ID,
		Trigger: string(trigger),
		From:    from,
		To:      m.State(),
		Fired:   fired,
	}, nil
}
