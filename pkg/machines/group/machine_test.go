package group

import (
	"context"
	"testing"
	"time"

	"github.com/pipecraft/campd/pkg/chain"
	"github.com/pipecraft/campd/pkg/mocks"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence/memory"
	"github.com/pipecraft/campd/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newGroupDeps(store *memory.Persistence, launcher *mocks.MockLauncher, workspace *mocks.MockWorkspace) protocol.Dependencies {
	return protocol.Dependencies{
		Store:        store,
		Resolver:     chain.NewResolver(store.Manifests()),
		Launcher:     launcher,
		Workspace:    workspace,
		ArtifactRoot: "/tmp/artifacts",
	}
}

func TestOnPrepareRendersLaunchScript(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()

	require.NoError(t, store.Manifests().Save(ctx,
		models.NewManifest("ns", models.ManifestKindLaunch, 1,
			map[string]any{"script_template": "#!/bin/sh\nrun {{ .node }}\n"})))

	launcher := &mocks.MockLauncher{}
	workspace := &mocks.MockWorkspace{}
	workspace.On("EnsureDir", "/tmp/artifacts/ns/g1").Return(nil)
	workspace.On("RenderFile", "/tmp/artifacts/ns/g1/launch.sh", mock.Anything, mock.Anything).Return(nil)

	node := models.NewNode("g1", "ns", models.NodeKindGroup)
	actions := NewActions(newGroupDeps(store, launcher, workspace))

	err := actions.OnPrepare(ctx, node, &protocol.Transition{})
	require.NoError(t, err)

	workspace.AssertExpectations(t)
}

func TestOnPrepareSkipsRenderWithoutTemplate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()

	launcher := &mocks.MockLauncher{}
	workspace := &mocks.MockWorkspace{}
	workspace.On("EnsureDir", mock.Anything).Return(nil)

	node := models.NewNode("g1", "ns", models.NodeKindGroup)
	actions := NewActions(newGroupDeps(store, launcher, workspace))

	err := actions.OnPrepare(ctx, node, &protocol.Transition{})
	require.NoError(t, err)

	workspace.AssertNotCalled(t, "RenderFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestOnStartKeepsLaunchHandle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()

	launcher := &mocks.MockLauncher{}
	launcher.On("Launch", mock.Anything, mock.Anything).Return("handle-42", nil)

	node := models.NewNode("g1", "ns", models.NodeKindGroup)
	actions := NewActions(newGroupDeps(store, launcher, &mocks.MockWorkspace{}))

	err := actions.OnStart(ctx, node, &protocol.Transition{})
	require.NoError(t, err)
	assert.Equal(t, "handle-42", actions.Handle())

	// The submitted config carries the node identity.
	config := launcher.Calls[0].Arguments.Get(1).(map[string]any)
	assert.Equal(t, "g1", config["node"])
	assert.Equal(t, "ns", config["namespace"])
}

func TestIsDoneRunningStateMapping(t *testing.T) {
	ctx := context.Background()
	node := models.NewNode("g1", "ns", models.NodeKindGroup)

	cases := []struct {
		state   protocol.LaunchState
		done    bool
		wantErr bool
	}{
		{protocol.LaunchStateDone, true, false},
		{protocol.LaunchStateRunning, false, false},
		{protocol.LaunchStateHeld, false, true},
		{protocol.LaunchStateFailed, false, true},
	}

	for _, tc := range cases {
		launcher := &mocks.MockLauncher{}
		launcher.On("Check", mock.Anything, "handle-42").Return(&protocol.CheckResult{
			State:     tc.state,
			JobID:     "job-1",
			Timestamp: time.Now(),
		}, nil)

		actions := NewActions(newGroupDeps(memory.NewPersistence(), launcher, &mocks.MockWorkspace{}))
		actions.handle = "handle-42"

		done, err := actions.IsDoneRunning(ctx, node, &protocol.Transition{})

		if tc.wantErr {
			assert.Error(t, err, tc.state)
		} else {
			require.NoError(t, err, tc.state)
			assert.Equal(t, tc.done, done, tc.state)
		}
	}
}

func TestIsDoneRunningWithoutHandleErrs(t *testing.T) {
	ctx := context.Background()
	node := models.NewNode("g1", "ns", models.NodeKindGroup)

	actions := NewActions(newGroupDeps(memory.NewPersistence(), &mocks.MockLauncher{}, &mocks.MockWorkspace{}))

	_, err := actions.IsDoneRunning(ctx, node, &protocol.Transition{})
	assert.Error(t, err)
}

func TestSnapshotRoundTripsHandle(t *testing.T) {
	actions := NewActions(newGroupDeps(memory.NewPersistence(), &mocks.MockLauncher{}, &mocks.MockWorkspace{}))
	actions.handle = "handle-42"

	data := actions.Snapshot()

	restored := NewActions(newGroupDeps(memory.NewPersistence(), &mocks.MockLauncher{}, &mocks.MockWorkspace{}))
	require.NoError(t, restored.Restore(data))

	assert.Equal(t, "handle-42", restored.Handle())
}

func TestSnapshotOmitsEmptyHandle(t *testing.T) {
	actions := NewActions(newGroupDeps(memory.NewPersistence(), &mocks.MockLauncher{}, &mocks.MockWorkspace{}))

	assert.Empty(t, actions.Snapshot())
}
