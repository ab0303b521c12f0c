package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pipecraft/campd/pkg/events"
	"github.com/pipecraft/campd/pkg/machine"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/otelhelper"
	"github.com/pipecraft/campd/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// RunPhase2 claims a batch of unsubmitted tasks (the claim itself stamps them
// submitted under skip-locked selection) and fires each task's transition as
// one unit of a bounded fan-out. Unit failures are isolated: an erroring
// transition never cancels its siblings. Returns the number of transitions
// that committed.
func (d *Daemon) RunPhase2(ctx context.Context) (int, error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "scheduler.phase2",
		attribute.String(otelhelper.DaemonIDKey, d.id))
	defer span.End()

	tasks, err := d.store.Tasks().ClaimUnsubmitted(ctx, d.config.TaskBatchSize)
	if err != nil {
		otelhelper.SetError(span, err)

		return 0, fmt.Errorf("failed to claim tasks: %w", err)
	}

	if len(tasks) == 0 {
		return 0, nil
	}

	var (
		mu    sync.Mutex
		fired int
	)

	group := &errgroup.Group{}
	group.SetLimit(d.config.MaxConcurrentTransitions)

	for _, task := range tasks {
		group.Go(func() error {
			// A panicking unit must not take the phase (or the daemon
			// loop) down with it: recover, log, and finish the task so
			// Phase 1 can re-derive it if the node is still actionable.
			defer func() {
				if r := recover(); r != nil {
					d.logger.ErrorContext(ctx, "task transition panicked",
						"task_id", task.ID, "node_id", task.NodeID, "panic", r)

					if err := d.store.Tasks().MarkFinished(ctx, task.ID); err != nil {
						d.logger.ErrorContext(ctx, "failed to mark task finished",
							"task_id", task.ID, "error", err)
					}
				}
			}()

			// Unit errors are logged per task, never returned: one
			// failing transition must not cancel its siblings.
			outcome, err := d.executeTask(ctx, task, machine.FireContext{})
			if err != nil {
				d.logger.ErrorContext(ctx, "task transition failed",
					"task_id", task.ID, "node_id", task.NodeID, "error", err)
			}

			if outcome == taskFired {
				mu.Lock()
				fired++
				mu.Unlock()
			}

			if outcome == taskRetry {
				// The transition did not commit (work still running,
				// guard declined). Return the task to the pool so a
				// later pass polls again.
				if err := d.store.Tasks().Release(ctx, task.ID); err != nil {
					d.logger.ErrorContext(ctx, "failed to release task",
						"task_id", task.ID, "error", err)
				}

				return nil
			}

			if err := d.store.Tasks().MarkFinished(ctx, task.ID); err != nil {
				d.logger.ErrorContext(ctx, "failed to mark task finished",
					"task_id", task.ID, "error", err)
			}

			return nil
		})
	}

	_ = group.Wait()

	span.SetAttributes(
		attribute.Int("campd.tasks.claimed", len(tasks)),
		attribute.Int("campd.transitions.fired", fired),
	)

	return fired, nil
}

// taskOutcome classifies what one task unit did to decide the task's fate:
// fired and abandoned tasks finish, retries go back to the pool.
type taskOutcome int

const (
	taskAbandoned taskOutcome = iota
	taskFired
	taskRetry
)

// executeTask drives one task's node through one transition. Stale tasks
// (node status moved on) and tasks with no applicable trigger are logged and
// abandoned; Phase 1 re-derives fresh tasks while the node stays actionable.
// A guard that declines (work still running) yields a retry outcome.
func (d *Daemon) executeTask(ctx context.Context, task *models.Task, fc machine.FireContext) (taskOutcome, error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "scheduler.task",
		attribute.String(otelhelper.TaskIDKey, task.ID),
		attribute.String(otelhelper.NamespaceKey, task.Namespace))
	defer span.End()

	logger := d.logger.With("task_id", task.ID, "node_id", task.NodeID)

	node, err := d.store.Nodes().GetByID(ctx, task.NodeID)
	if err != nil {
		return taskAbandoned, fmt.Errorf("failed to load node: %w", err)
	}

	if node.Status != task.PreviousStatus {
		logger.InfoContext(ctx, "stale task, abandoning",
			"expected_status", task.PreviousStatus, "current_status", node.Status)

		return taskAbandoned, nil
	}

	trigger, ok := machine.TriggerFor(task.PreviousStatus, task.DesiredStatus)
	if !ok {
		logger.WarnContext(ctx, "no trigger realizes desired transition, abandoning",
			"from", task.PreviousStatus, "to", task.DesiredStatus)

		return taskAbandoned, nil
	}

	m, err := d.buildMachine(ctx, node)
	if err != nil {
		return taskAbandoned, fmt.Errorf("failed to build machine: %w", err)
	}

	fired, err := d.fire(ctx, m, trigger, fc)
	if err != nil {
		return taskAbandoned, err
	}

	if !fired {
		return taskRetry, nil
	}

	return taskFired, nil
}

// buildMachine rehydrates a node's machine from its persisted snapshot, or
// creates a fresh one when no snapshot exists yet. A snapshot that cannot be
// rehydrated (schema bump, kind change through a patch) falls back to a
// fresh machine seeded from the node's current status.
func (d *Daemon) buildMachine(ctx context.Context, node *models.Node) (*machine.Machine, error) {
	actions, err := d.registry.CreateActions(ctx, node, d.deps)
	if err != nil {
		return nil, err
	}

	opts := machine.Options{PersistSnapshot: d.config.Features.PersistMachines}

	if node.MachineID != nil {
		record, err := d.store.Machines().GetByID(ctx, *node.MachineID)
		switch {
		case err == nil:
			m, rerr := machine.Rehydrate(node, actions, d.deps, record.Snapshot, opts)
			if rerr == nil {
				return m, nil
			}

			d.logger.WarnContext(ctx, "snapshot rehydration failed, building fresh machine",
				"node_id", node.ID, "error", rerr)
		case errors.Is(err, persistence.ErrMachineNotFound):
			// Dangling reference; fall through to a fresh machine.
		default:
			return nil, err
		}
	}

	return machine.New(node, actions, d.deps, opts), nil
}

// fire commits one trigger and publishes the outcome on the event bus.
func (d *Daemon) fire(ctx context.Context, m *machine.Machine, trigger machine.Trigger, fc machine.FireContext) (bool, error) {
	node := m.Node()
	from := m.State()

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "machine.fire",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeKindKey, string(node.Kind)),
		attribute.String(otelhelper.TriggerKey, string(trigger)))
	defer span.End()

	if fc.RequestID != "" {
		span.SetAttributes(attribute.String(otelhelper.RequestIDKey, fc.RequestID))
	}

	fired, err := m.Fire(ctx, trigger, fc)
	if err != nil {
		otelhelper.SetError(span, err)
		d.publishTransitionFailed(ctx, node, trigger, from, err)

		return false, err
	}

	if !fired {
		return false, nil
	}

	d.publishTransitioned(ctx, node, trigger, from, m.State())

	if node.Kind == models.NodeKindEnd && trigger == machine.TriggerFinish {
		d.publishCampaignCompleted(ctx, node.Namespace)
	}

	return true, nil
}

func (d *Daemon) publishTransitioned(ctx context.Context, node *models.Node, trigger machine.Trigger, from, to models.Status) {
	if d.bus == nil {
		return
	}

	event := events.NodeTransitioned{
		BaseEvent: events.NewBaseEvent(events.NodeTransitionedEvent, node.Namespace),
		NodeID:    node.ID,
		Trigger:   string(trigger),
		From:      from,
		To:        to,
	}

	if err := d.bus.Publish(ctx, node.ID, event); err != nil {
		d.logger.ErrorContext(ctx, "failed to publish transition event", "error", err)
	}
}

func (d *Daemon) publishTransitionFailed(ctx context.Context, node *models.Node, trigger machine.Trigger, from models.Status, cause error) {
	if d.bus == nil {
		return
	}

	event := events.NodeTransitionFailed{
		BaseEvent: events.NewBaseEvent(events.NodeTransitionFailedEvent, node.Namespace),
		NodeID:    node.ID,
		Trigger:   string(trigger),
		From:      from,
		Error:     cause.Error(),
	}

	if err := d.bus.Publish(ctx, node.ID, event); err != nil {
		d.logger.ErrorContext(ctx, "failed to publish transition-failed event", "error", err)
	}
}

func (d *Daemon) publishCampaignCompleted(ctx context.Context, campaignID string) {
	if d.bus == nil {
		return
	}

	event := events.CampaignCompleted{
		BaseEvent:  events.NewBaseEvent(events.CampaignCompletedEvent, campaignID),
		CampaignID: campaignID,
	}

	if err := d.bus.Publish(ctx, campaignID, event); err != nil {
		d.logger.ErrorContext(ctx, "failed to publish campaign-completed event", "error", err)
	}
}
