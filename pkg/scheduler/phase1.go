package scheduler

import (
	"context"
	"fmt"

	"github.com/pipecraft/campd/pkg/graph"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// phase1Statuses are the campaign statuses Phase 1 considers.
var phase1Statuses = []models.Status{models.StatusReady, models.StatusRunning}

// RunPhase1 claims ready/running campaigns under skip-locked selection and,
// for each, enqueues one task per actionable node. Returns the number of
// tasks enqueued across all claimed campaigns. Per-campaign failures (invalid
// graph, storage hiccups) skip that campaign only; the next pass retries.
func (d *Daemon) RunPhase1(ctx context.Context) (int, error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "scheduler.phase1",
		attribute.String(otelhelper.DaemonIDKey, d.id))
	defer span.End()

	enqueued := 0

	_, err := d.store.Campaigns().ClaimProcessable(ctx, phase1Statuses, func(ctx context.Context, campaign *models.Campaign) error {
		n, err := d.considerCampaign(ctx, campaign)
		if err != nil {
			return err
		}

		enqueued += n

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return enqueued, fmt.Errorf("failed to claim campaigns: %w", err)
	}

	span.SetAttributes(attribute.Int("campd.tasks.enqueued", enqueued))

	return enqueued, nil
}

// considerCampaign builds and validates one campaign's graph, then enqueues a
// task per actionable node toward its next status.
func (d *Daemon) considerCampaign(ctx context.Context, campaign *models.Campaign) (int, error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "scheduler.campaign",
		attribute.String(otelhelper.CampaignIDKey, campaign.ID))
	defer span.End()

	logger := d.logger.With("campaign_id", campaign.ID)

	edges, err := d.store.Edges().ListByNamespace(ctx, campaign.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load edges: %w", err)
	}

	if len(edges) == 0 {
		logger.DebugContext(ctx, "campaign has no edges, skipping")

		return 0, nil
	}

	builder := graph.NewBuilder(d.store.Nodes())

	g, err := builder.Build(ctx, edges)
	if err != nil {
		return 0, fmt.Errorf("failed to build graph: %w", err)
	}

	sources := g.Sources()
	sinks := g.Sinks()

	if len(sources) != 1 || len(sinks) != 1 || !g.Validate(sources[0], sinks[0]) {
		return 0, fmt.Errorf("campaign graph is invalid: %d sources, %d sinks", len(sources), len(sinks))
	}

	enqueued := 0

	for _, nodeID := range g.ProcessableNodes() {
		vertex, _ := g.Vertex(nodeID)

		desired, ok := models.NextStatus(vertex.Status)
		if !ok {
			// Paused and blocked nodes wait for an operator.
			continue
		}

		node, err := d.store.Nodes().GetByID(ctx, nodeID)
		if err != nil {
			logger.WarnContext(ctx, "actionable node vanished, skipping", "node_id", nodeID, "error", err)

			continue
		}

		task := models.NewTask(campaign.ID, node, desired)

		live, err := d.store.Tasks().Enqueue(ctx, task, d.config.Features.AllowTaskReset)
		if err != nil {
			logger.ErrorContext(ctx, "failed to enqueue task", "node_id", nodeID, "error", err)

			continue
		}

		if live {
			enqueued++
		}
	}

	return enqueued, nil
}
