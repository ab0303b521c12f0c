// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"context"
	"testing"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
	"github.com/stretchr/testify/require"
)

// CreateTestCampaign creates a campaign with default values that can be
// overridden.
func CreateTestCampaign(overrides ...func(*models.Campaign)) *models.Campaign {
	campaign := models.NewCampaign("test-campaign", "test-ns", "tester")

	for _, override := range overrides {
		override(campaign)
	}

	return campaign
}

// WithCampaignStatus sets the campaign status.
func WithCampaignStatus(status models.Status) func(*models.Campaign) {
	return func(c *models.Campaign) {
		c.Status = status
	}
}

// CreateTestNode creates a node with default values that can be overridden.
func CreateTestNode(namespace string, overrides ...func(*models.Node)) *models.Node {
	node := models.NewNode("test-node", namespace, models.NodeKindGeneric)

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithName sets the node name and re-derives its id.
func WithName(name string) func(*models.Node) {
	return func(n *models.Node) {
		n.Name = name
		n.ID = models.NewNodeID(name, n.Version, n.Namespace)
	}
}

// WithKind sets the node kind.
func WithKind(kind models.NodeKind) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = kind
	}
}

// WithStatus sets the node status.
func WithStatus(status models.Status) func(*models.Node) {
	return func(n *models.Node) {
		n.Status = status
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// LinearCampaign is the seeded START -> GROUP -> END fixture most scheduler
// and machine tests run against.
type LinearCampaign struct {
	Campaign *models.Campaign
	Start    *models.Node
	Group    *models.Node
	End      *models.Node
}

// SeedLinearCampaign persists a ready campaign with a three-node linear
// graph into the store.
func SeedLinearCampaign(t *testing.T, store persistence.Persistence) *LinearCampaign {
	t.Helper()

	ctx := context.Background()

	campaign := CreateTestCampaign()
	require.NoError(t, store.Campaigns().Save(ctx, campaign))

	start := CreateTestNode(campaign.ID, WithName("start"), WithKind(models.NodeKindStart))
	group := CreateTestNode(campaign.ID, WithName("g1"), WithKind(models.NodeKindGroup))
	end := CreateTestNode(campaign.ID, WithName("end"), WithKind(models.NodeKindEnd))

	for _, node := range []*models.Node{start, group, end} {
		require.NoError(t, store.Nodes().Save(ctx, node))
	}

	edges := []*models.Edge{
		models.NewEdge(campaign.ID, start.ID, group.ID, "start->g1"),
		models.NewEdge(campaign.ID, group.ID, end.ID, "g1->end"),
	}

	for _, edge := range edges {
		require.NoError(t, store.Edges().Save(ctx, edge))
	}

	return &LinearCampaign{Campaign: campaign, Start: start, Group: group, End: end}
}
