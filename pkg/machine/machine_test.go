package machine

import (
	"context"
	"errors"
	"testing"

	"github.com/pipecraft/campd/pkg/machines/generic"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence/memory"
	"github.com/pipecraft/campd/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingActions errs on a chosen trigger's action or guard.
type failingActions struct {
	*generic.Actions

	failOn  Trigger
	guardNo bool
}

func (f *failingActions) OnPrepare(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	if f.failOn == TriggerPrepare {
		return errors.New("artifact directory is read-only")
	}

	return nil
}

func (f *failingActions) OnStart(ctx context.Context, node *models.Node, t *protocol.Transition) error {
	if f.failOn == TriggerStart {
		return errors.New("launcher rejected submission")
	}

	return nil
}

func (f *failingActions) IsDoneRunning(ctx context.Context, node *models.Node, t *protocol.Transition) (bool, error) {
	if f.failOn == TriggerFinish {
		return false, errors.New("status check timed out")
	}

	return !f.guardNo, nil
}

func newTestDeps(store *memory.Persistence) protocol.Dependencies {
	return protocol.Dependencies{Store: store}
}

func seedNode(t *testing.T, store *memory.Persistence, status models.Status) *models.Node {
	t.Helper()

	node := models.NewNode("g1", "ns", models.NodeKindGeneric)
	node.Status = status
	require.NoError(t, store.Nodes().Save(context.Background(), node))

	return node
}

func TestFireNormalPath(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	deps := newTestDeps(store)
	node := seedNode(t, store, models.StatusWaiting)

	m := New(node, generic.NewActions(deps), deps, Options{})

	for _, step := range []struct {
		trigger Trigger
		want    models.Status
	}{
		{TriggerPrepare, models.StatusReady},
		{TriggerStart, models.StatusRunning},
		{TriggerFinish, models.StatusAccepted},
	} {
		fired, err := m.Fire(ctx, step.trigger, FireContext{})
		require.NoError(t, err)
		assert.True(t, fired)
		assert.Equal(t, step.want, m.State())

		// The committed status is persisted.
		stored, err := store.Nodes().GetByID(ctx, node.ID)
		require.NoError(t, err)
		assert.Equal(t, step.want, stored.Status)
	}

	// Clean transitions leave no audit entries.
	entries, err := store.Activity().ListByNode(ctx, node.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFireTotality(t *testing.T) {
	ctx := context.Background()

	// Every declared (trigger, source) pair must land on the declared
	// destination for a well-behaved action set.
	for _, tr := range Table {
		for _, src := range tr.Sources {
			store := memory.NewPersistence()
			deps := newTestDeps(store)
			node := seedNode(t, store, src)

			m := New(node, generic.NewActions(deps), deps, Options{})

			fired, err := m.Fire(ctx, tr.Trigger, FireContext{})
			require.NoError(t, err, "%s from %s", tr.Trigger, src)
			assert.True(t, fired)
			assert.Equal(t, tr.Dest, m.State(), "%s from %s", tr.Trigger, src)
		}
	}
}

func TestFireTriggerNotAllowed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	deps := newTestDeps(store)
	node := seedNode(t, store, models.StatusAccepted)

	m := New(node, generic.NewActions(deps), deps, Options{})

	fired, err := m.Fire(ctx, TriggerStart, FireContext{})

	var notAllowed *TriggerNotAllowedError

	require.ErrorAs(t, err, &notAllowed)
	assert.False(t, fired)
	assert.Equal(t, models.StatusAccepted, m.State())
}

func TestFireGuardRejectionIsNotAnError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	deps := newTestDeps(store)
	node := seedNode(t, store, models.StatusRunning)

	actions := &failingActions{Actions: generic.NewActions(deps), guardNo: true}
	m := New(node, actions, deps, Options{})

	fired, err := m.Fire(ctx, TriggerFinish, FireContext{})
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, models.StatusRunning, m.State())

	// No detail, no audit entry.
	entries, err := store.Activity().ListByNode(ctx, node.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFireActionErrorDrivesNodeToFailed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	deps := newTestDeps(store)
	node := seedNode(t, store, models.StatusReady)

	actions := &failingActions{Actions: generic.NewActions(deps), failOn: TriggerStart}
	m := New(node, actions, deps, Options{})

	fired, err := m.Fire(ctx, TriggerStart, FireContext{Operator: "alice"})

	var terr *TransitionError

	require.ErrorAs(t, err, &terr)
	assert.False(t, fired)
	assert.Equal(t, models.StatusFailed, m.State())

	stored, err := store.Nodes().GetByID(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)

	// The failure is recorded with the triggering event, the error's type
	// and its message.
	entries, err := store.Activity().ListByNode(ctx, node.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Operator)
	assert.Equal(t, "start", entries[0].Detail["event"])
	assert.Equal(t, "*errors.errorString", entries[0].Detail["error_type"])
	assert.Contains(t, entries[0].Detail["error"], "launcher rejected submission")
	assert.Equal(t, models.StatusFailed, entries[0].ToStatus)
	assert.NotNil(t, entries[0].FinishedAt)
}

func TestFireGuardErrorDrivesNodeToFailed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	deps := newTestDeps(store)
	node := seedNode(t, store, models.StatusRunning)

	actions := &failingActions{Actions: generic.NewActions(deps), failOn: TriggerFinish}
	m := New(node, actions, deps, Options{})

	_, err := m.Fire(ctx, TriggerFinish, FireContext{})
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, m.State())
}

func TestRetryAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	deps := newTestDeps(store)
	node := seedNode(t, store, models.StatusReady)

	actions := &failingActions{Actions: generic.NewActions(deps), failOn: TriggerStart}
	m := New(node, actions, deps, Options{})

	_, err := m.Fire(ctx, TriggerStart, FireContext{})
	require.Error(t, err)
	require.Equal(t, models.StatusFailed, m.State())

	fired, err := m.Fire(ctx, TriggerRetry, FireContext{Operator: "alice"})
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, models.StatusReady, m.State())
}

func TestFirePersistsSnapshotAndMachineReference(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	deps := newTestDeps(store)
	node := seedNode(t, store, models.StatusWaiting)

	m := New(node, generic.NewActions(deps), deps, Options{PersistSnapshot: true})

	_, err := m.Fire(ctx, TriggerPrepare, FireContext{})
	require.NoError(t, err)

	stored, err := store.Nodes().GetByID(ctx, node.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.MachineID)

	record, err := store.Machines().GetByID(ctx, *stored.MachineID)
	require.NoError(t, err)
	assert.Equal(t, models.SnapshotSchemaVersion, record.Snapshot.SchemaVersion)
	assert.Equal(t, models.NodeKindGeneric, record.Snapshot.Kind)
	assert.Equal(t, models.StatusReady, record.Snapshot.State)
}

func TestRehydrateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	deps := newTestDeps(store)
	node := seedNode(t, store, models.StatusWaiting)

	m := New(node, generic.NewActions(deps), deps, Options{})

	_, err := m.Fire(ctx, TriggerPrepare, FireContext{})
	require.NoError(t, err)

	snap := m.Snapshot()

	restored, err := Rehydrate(node, generic.NewActions(deps), deps, snap, Options{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, restored.State())
}

func TestRehydrateFollowsNodeStatusOnStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	deps := newTestDeps(store)
	node := seedNode(t, store, models.StatusWaiting)

	m := New(node, generic.NewActions(deps), deps, Options{})

	_, err := m.Fire(ctx, TriggerPrepare, FireContext{})
	require.NoError(t, err)

	snap := m.Snapshot()

	// A snapshot written before a crash can trail the committed status. The
	// rehydrated machine must follow the node row, or every later trigger
	// would be refused.
	require.NoError(t, store.Nodes().UpdateStatus(ctx, node.ID, models.StatusRunning))
	node.Status = models.StatusRunning

	restored, err := Rehydrate(node, generic.NewActions(deps), deps, snap, Options{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, restored.State())

	fired, err := restored.Fire(ctx, TriggerFinish, FireContext{})
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, models.StatusAccepted, restored.State())
}

func TestRehydrateRejectsWrongSchemaAndKind(t *testing.T) {
	store := memory.NewPersistence()
	deps := newTestDeps(store)
	node := seedNode(t, store, models.StatusWaiting)

	snap := models.MachineSnapshot{SchemaVersion: 99, Kind: models.NodeKindGeneric, State: models.StatusReady}
	_, err := Rehydrate(node, generic.NewActions(deps), deps, snap, Options{})
	assert.ErrorIs(t, err, ErrSnapshotSchema)

	snap = models.MachineSnapshot{SchemaVersion: models.SnapshotSchemaVersion, Kind: models.NodeKindGroup, State: models.StatusReady}
	_, err = Rehydrate(node, generic.NewActions(deps), deps, snap, Options{})
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestTriggerFor(t *testing.T) {
	trigger, ok := TriggerFor(models.StatusWaiting, models.StatusReady)
	require.True(t, ok)
	assert.Equal(t, TriggerPrepare, trigger)

	trigger, ok = TriggerFor(models.StatusReady, models.StatusRunning)
	require.True(t, ok)
	assert.Equal(t, TriggerStart, trigger)

	trigger, ok = TriggerFor(models.StatusRunning, models.StatusAccepted)
	require.True(t, ok)
	assert.Equal(t, TriggerFinish, trigger)

	_, ok = TriggerFor(models.StatusWaiting, models.StatusAccepted)
	assert.False(t, ok)
}
