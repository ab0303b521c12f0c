package memory

import (
	"context"
	"testing"
	"time"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
	"github.com/pipecraft/campd/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueIdempotence(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	node := testutil.CreateTestNode("ns")
	task := models.NewTask("ns", node, models.StatusReady)

	live, err := store.Tasks().Enqueue(ctx, task, false)
	require.NoError(t, err)
	assert.True(t, live)

	live, err = store.Tasks().Enqueue(ctx, models.NewTask("ns", node, models.StatusReady), false)
	require.NoError(t, err)
	assert.True(t, live)

	count, err := store.Tasks().CountUnsubmitted(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A claimed-but-live task is left alone in normal mode.
	claimed, err := store.Tasks().ClaimUnsubmitted(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	live, err = store.Tasks().Enqueue(ctx, models.NewTask("ns", node, models.StatusReady), false)
	require.NoError(t, err)
	assert.True(t, live)

	count, err = store.Tasks().CountUnsubmitted(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	live, err = store.Tasks().Enqueue(ctx, models.NewTask("ns", node, models.StatusReady), true)
	require.NoError(t, err)
	assert.True(t, live)

	count, err = store.Tasks().CountUnsubmitted(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEnqueueReopensFinishedTask(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	node := testutil.CreateTestNode("ns")
	task := models.NewTask("ns", node, models.StatusReady)

	_, err := store.Tasks().Enqueue(ctx, task, false)
	require.NoError(t, err)

	_, err = store.Tasks().ClaimUnsubmitted(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, store.Tasks().MarkFinished(ctx, task.ID))

	// The node became actionable again for the same transition: the old
	// finished row must not block a fresh attempt.
	live, err := store.Tasks().Enqueue(ctx, models.NewTask("ns", node, models.StatusReady), false)
	require.NoError(t, err)
	assert.True(t, live)

	count, err := store.Tasks().CountUnsubmitted(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClaimUnsubmittedOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	low := models.NewTask("ns", testutil.CreateTestNode("ns", testutil.WithName("low")), models.StatusReady)
	low.CreatedAt = time.Now().UTC().Add(-time.Minute)

	high := models.NewTask("ns", testutil.CreateTestNode("ns", testutil.WithName("high")), models.StatusReady)
	high.Priority = 10

	for _, task := range []*models.Task{low, high} {
		_, err := store.Tasks().Enqueue(ctx, task, false)
		require.NoError(t, err)
	}

	claimed, err := store.Tasks().ClaimUnsubmitted(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, high.ID, claimed[0].ID)
	assert.NotNil(t, claimed[0].SubmittedAt)

	// The claimed task is out of the pool until released.
	claimed, err = store.Tasks().ClaimUnsubmitted(ctx, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, low.ID, claimed[0].ID)

	require.NoError(t, store.Tasks().Release(ctx, high.ID))

	count, err := store.Tasks().CountUnsubmitted(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReleaseFinishedTaskErrs(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	task := models.NewTask("ns", testutil.CreateTestNode("ns"), models.StatusReady)

	_, err := store.Tasks().Enqueue(ctx, task, false)
	require.NoError(t, err)
	require.NoError(t, store.Tasks().MarkFinished(ctx, task.ID))

	assert.Error(t, store.Tasks().Release(ctx, task.ID))
}

func TestCampaignClaimFiltersStatuses(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	ready := testutil.CreateTestCampaign()
	require.NoError(t, store.Campaigns().Save(ctx, ready))

	done := models.NewCampaign("done", "test-ns", "tester")
	done.Status = models.StatusAccepted
	require.NoError(t, store.Campaigns().Save(ctx, done))

	var visited []string

	processed, err := store.Campaigns().ClaimProcessable(ctx,
		[]models.Status{models.StatusReady, models.StatusRunning},
		func(ctx context.Context, campaign *models.Campaign) error {
			visited = append(visited, campaign.ID)

			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{ready.ID}, visited)
}

func TestNodeVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	node := testutil.CreateTestNode("ns")
	require.NoError(t, store.Nodes().Save(ctx, node))

	err := store.Nodes().Save(ctx, node)
	assert.ErrorIs(t, err, persistence.ErrNodeVersionExists)
}
