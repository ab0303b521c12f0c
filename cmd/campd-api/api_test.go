package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pipecraft/campd/pkg/chain"
	"github.com/pipecraft/campd/pkg/mocks"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
	"github.com/pipecraft/campd/pkg/persistence/memory"
	"github.com/pipecraft/campd/pkg/protocol"
	"github.com/pipecraft/campd/pkg/registry"
	"github.com/pipecraft/campd/pkg/scheduler"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestApp() (*fiber.App, persistence.Persistence) {
	store := memory.NewPersistence()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultKinds()

	workspace := &mocks.MockWorkspace{}
	workspace.On("EnsureDir", mock.Anything).Return(nil)
	workspace.On("RemoveDir", mock.Anything).Return(nil)

	deps := protocol.Dependencies{
		Logger:       slog.Default(),
		Store:        store,
		Resolver:     chain.NewResolver(store.Manifests()),
		Launcher:     &mocks.MockLauncher{},
		Workspace:    workspace,
		ArtifactRoot: "/tmp/artifacts",
	}

	daemon := scheduler.NewDaemon(scheduler.Config{
		ID:       "api",
		Features: scheduler.Features{PersistMachines: true},
	}, store, reg, deps, nil, nil, slog.Default())

	api := NewAPI(slog.Default(), store, reg, daemon)

	return api.App(), store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	t.Cleanup(func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	})

	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func createCampaign(t *testing.T, app *fiber.App, name string) models.Campaign {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/campaigns", map[string]any{
		"name":      name,
		"namespace": "physics",
		"owner":     "alice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decodeJSON[models.Campaign](t, resp)
}

func createNode(t *testing.T, app *fiber.App, campaignID, name, kind string, config map[string]any) models.Node {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+campaignID+"/nodes", map[string]any{
		"name":   name,
		"kind":   kind,
		"config": config,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decodeJSON[models.Node](t, resp)
}

func TestAPI_RootEndpoint(t *testing.T) {
	app, _ := setupTestApp()

	resp := doJSON(t, app, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "campd API", string(body))
}

func TestAPI_CreateCampaign(t *testing.T) {
	app, _ := setupTestApp()

	campaign := createCampaign(t, app, "run-2026a")
	assert.Equal(t, models.NewCampaignID("run-2026a", "physics"), campaign.ID)
	assert.Equal(t, models.StatusReady, campaign.Status)

	// The deterministic id makes re-creation a conflict, not a duplicate.
	resp := doJSON(t, app, http.MethodPost, "/campaigns", map[string]any{
		"name":      "run-2026a",
		"namespace": "physics",
		"owner":     "alice",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_CreateCampaign_MissingFields(t *testing.T) {
	app, _ := setupTestApp()

	resp := doJSON(t, app, http.MethodPost, "/campaigns", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetCampaign_NotFound(t *testing.T) {
	app, _ := setupTestApp()

	resp := doJSON(t, app, http.MethodGet, "/campaigns/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CreateNode(t *testing.T) {
	app, _ := setupTestApp()
	campaign := createCampaign(t, app, "run-2026a")

	node := createNode(t, app, campaign.ID, "g1", "group", nil)
	assert.Equal(t, campaign.ID, node.Namespace)
	assert.Equal(t, models.NodeKindGroup, node.Kind)
	assert.Equal(t, models.StatusWaiting, node.Status)
	assert.Equal(t, 0, node.Version)

	resp := doJSON(t, app, http.MethodGet, "/campaigns/"+campaign.ID+"/nodes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	nodes := decodeJSON[[]models.Node](t, resp)
	assert.Len(t, nodes, 1)
}

func TestAPI_CreateNode_WithoutConfig(t *testing.T) {
	app, _ := setupTestApp()
	campaign := createCampaign(t, app, "run-2026a")

	// No config key at all: the kind schema validates against an empty
	// object, not JSON null.
	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/nodes", map[string]any{
		"name": "g1",
		"kind": "group",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	node := decodeJSON[models.Node](t, resp)
	assert.NotNil(t, node.Config)
	assert.Empty(t, node.Config)
}

func TestAPI_CreateNode_UnknownKind(t *testing.T) {
	app, _ := setupTestApp()
	campaign := createCampaign(t, app, "run-2026a")

	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/nodes", map[string]any{
		"name": "g1",
		"kind": "alien",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_CreateNode_InvalidConfig(t *testing.T) {
	app, _ := setupTestApp()
	campaign := createCampaign(t, app, "run-2026a")

	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/nodes", map[string]any{
		"name":   "g1",
		"kind":   "group",
		"config": map[string]any{"launch": "not-an-object"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_CreateNode_CampaignMustExist(t *testing.T) {
	app, _ := setupTestApp()

	resp := doJSON(t, app, http.MethodPost, "/campaigns/no-such-id/nodes", map[string]any{
		"name": "g1",
		"kind": "group",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_PatchNode_NewVersion(t *testing.T) {
	app, _ := setupTestApp()
	campaign := createCampaign(t, app, "run-2026a")
	node := createNode(t, app, campaign.ID, "g1", "group", map[string]any{
		"launch": map[string]any{"queue": "short"},
	})

	patch := []map[string]any{
		{"op": "replace", "path": "/config/launch/queue", "value": "long"},
	}

	resp := doJSON(t, app, http.MethodPatch, "/campaigns/"+campaign.ID+"/nodes/"+node.ID, patch)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	next := decodeJSON[models.Node](t, resp)
	assert.Equal(t, node.Version+1, next.Version)
	assert.NotEqual(t, node.ID, next.ID)
	assert.Equal(t, map[string]any{"queue": "long"}, next.Config["launch"])

	// The old version is retained for history.
	resp = doJSON(t, app, http.MethodGet, "/campaigns/"+campaign.ID+"/nodes/"+node.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_TriggerNode(t *testing.T) {
	app, store := setupTestApp()
	campaign := createCampaign(t, app, "run-2026a")
	node := createNode(t, app, campaign.ID, "start", "start", nil)

	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/nodes/"+node.ID+"/trigger", map[string]any{
		"trigger":    "prepare",
		"operator":   "ops",
		"request_id": "req-42",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeJSON[scheduler.ProcessResult](t, resp)
	assert.True(t, result.Fired)
	assert.Equal(t, models.StatusReady, result.To)

	stored, err := store.Nodes().GetByID(context.Background(), node.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, stored.Status)
}

func TestAPI_TriggerNode_NotAllowed(t *testing.T) {
	app, _ := setupTestApp()
	campaign := createCampaign(t, app, "run-2026a")
	node := createNode(t, app, campaign.ID, "start", "start", nil)

	// finish is not legal from waiting.
	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/nodes/"+node.ID+"/trigger", map[string]any{
		"trigger":  "finish",
		"operator": "ops",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_CreateEdge(t *testing.T) {
	app, _ := setupTestApp()
	campaign := createCampaign(t, app, "run-2026a")
	start := createNode(t, app, campaign.ID, "start", "start", nil)
	end := createNode(t, app, campaign.ID, "end", "end", nil)

	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/edges", map[string]any{
		"source_id": start.ID,
		"target_id": end.ID,
		"name":      "start->end",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/campaigns/"+campaign.ID+"/edges", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	edges := decodeJSON[[]models.Edge](t, resp)
	assert.Len(t, edges, 1)
}

func TestAPI_CreateEdge_ForeignNamespace(t *testing.T) {
	app, _ := setupTestApp()
	one := createCampaign(t, app, "run-2026a")
	two := createCampaign(t, app, "run-2026b")
	start := createNode(t, app, one.ID, "start", "start", nil)
	stray := createNode(t, app, two.ID, "end", "end", nil)

	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+one.ID+"/edges", map[string]any{
		"source_id": start.ID,
		"target_id": stray.ID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Process_Campaign(t *testing.T) {
	app, store := setupTestApp()
	campaign := createCampaign(t, app, "run-2026a")
	start := createNode(t, app, campaign.ID, "start", "start", nil)
	end := createNode(t, app, campaign.ID, "end", "end", nil)

	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/edges", map[string]any{
		"source_id": start.ID,
		"target_id": end.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/process", map[string]any{
		"id":         campaign.ID,
		"request_id": "req-7",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeJSON[scheduler.ProcessResult](t, resp)
	assert.Equal(t, "campaign", result.Kind)
	assert.Equal(t, 1, result.TasksEnqueued)

	count, err := store.Tasks().CountUnsubmitted(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAPI_Process_TerminalNode(t *testing.T) {
	app, store := setupTestApp()
	campaign := createCampaign(t, app, "run-2026a")
	node := createNode(t, app, campaign.ID, "g1", "group", nil)

	require.NoError(t, store.Nodes().UpdateStatus(context.Background(), node.ID, models.StatusAccepted))

	resp := doJSON(t, app, http.MethodPost, "/process", map[string]any{"id": node.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_Kinds(t *testing.T) {
	app, _ := setupTestApp()

	resp := doJSON(t, app, http.MethodGet, "/kinds", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	kinds := decodeJSON[[]map[string]any](t, resp)
	assert.Len(t, kinds, len(models.NodeKinds))
}

func TestAPI_Manifests(t *testing.T) {
	app, _ := setupTestApp()

	resp := doJSON(t, app, http.MethodPost, "/manifests/physics", map[string]any{
		"kind":    "launch",
		"version": 1,
		"data":    map[string]any{"queue": "short"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/manifests/physics/launch", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	manifest := decodeJSON[models.Manifest](t, resp)
	assert.Equal(t, 1, manifest.Version)
	assert.Equal(t, "short", manifest.Data["queue"])
}

func TestAPI_Manifests_LibraryVersionPinned(t *testing.T) {
	app, _ := setupTestApp()

	resp := doJSON(t, app, http.MethodPost, "/manifests/library", map[string]any{
		"kind":    "launch",
		"version": 3,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Manifests_UnknownKind(t *testing.T) {
	app, _ := setupTestApp()

	resp := doJSON(t, app, http.MethodGet, "/manifests/physics/launch", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/manifests/physics", map[string]any{
		"kind": "wardrobe",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_HealthCheck(t *testing.T) {
	app, _ := setupTestApp()

	resp := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
