package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pipecraft/campd/pkg/protocol"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLauncher(t *testing.T) (*Launcher, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	return NewLauncherWithClient(client, slog.Default()), server
}

func TestLaunchQueuesSubmissionAndSeedsStatus(t *testing.T) {
	ctx := context.Background()
	launcher, server := newTestLauncher(t)

	handle, err := launcher.Launch(ctx, map[string]any{"queue": "short", "node": "g1"})
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	// The submission landed on the bridge queue.
	raw, err := server.Lpop(DefaultQueueKey)
	require.NoError(t, err)

	var sub struct {
		Handle string         `json:"handle"`
		Config map[string]any `json:"config"`
	}

	require.NoError(t, json.Unmarshal([]byte(raw), &sub))
	assert.Equal(t, handle, sub.Handle)
	assert.Equal(t, "g1", sub.Config["node"])

	// The handle's status starts as running.
	result, err := launcher.Check(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, protocol.LaunchStateRunning, result.State)
}

func TestCheckReadsBridgeReportedStatus(t *testing.T) {
	ctx := context.Background()
	launcher, server := newTestLauncher(t)

	handle, err := launcher.Launch(ctx, map[string]any{})
	require.NoError(t, err)

	// The bridge reports completion.
	done, err := json.Marshal(protocol.CheckResult{
		State:     protocol.LaunchStateDone,
		JobID:     "batch-7",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	server.HSet(DefaultStatusKey, handle, string(done))

	result, err := launcher.Check(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, protocol.LaunchStateDone, result.State)
	assert.Equal(t, "batch-7", result.JobID)
}

func TestCheckUnknownHandleErrs(t *testing.T) {
	ctx := context.Background()
	launcher, _ := newTestLauncher(t)

	_, err := launcher.Check(ctx, "no-such-handle")
	assert.Error(t, err)
}

func TestLaunchesProduceDistinctHandles(t *testing.T) {
	ctx := context.Background()
	launcher, _ := newTestLauncher(t)

	first, err := launcher.Launch(ctx, map[string]any{})
	require.NoError(t, err)

	second, err := launcher.Launch(ctx, map[string]any{})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
