// Package web provides the HTTP handlers of the campaign REST and RPC API.
package web

import (
	"net/http"
	"strings"

	"github.com/pipecraft/campd/pkg/machine"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/patch"
	"github.com/pipecraft/campd/pkg/persistence"
	"github.com/pipecraft/campd/pkg/registry"
	"github.com/pipecraft/campd/pkg/scheduler"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	store     persistence.Persistence
	registry  *registry.Registry
	daemon    *scheduler.Daemon
	validator *validator.Validate
}

func NewAPIHandlers(
	store persistence.Persistence,
	reg *registry.Registry,
	daemon *scheduler.Daemon,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		store:     store,
		registry:  reg,
		daemon:    daemon,
		validator: validate,
	}
}

// Campaigns

func (h *APIHandlers) CreateCampaign(c fiber.Ctx) error {
	req := &CreateCampaignRequest{}
	if err := c.Bind().Body(req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	campaign := models.NewCampaign(req.Name, req.Namespace, req.Owner)

	if req.Metadata != nil {
		campaign.Metadata = req.Metadata
	}

	if req.Config != nil {
		campaign.Config = req.Config
	}

	if err := h.store.Campaigns().Save(c.Context(), campaign); err != nil {
		return handleStorageError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (h *APIHandlers) GetCampaigns(c fiber.Ctx) error {
	campaigns, err := h.store.Campaigns().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(campaigns)
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	campaign, err := h.store.Campaigns().GetByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(campaign)
}

// Nodes

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	// Params returns a zero-copy view into the request buffer; clone before
	// the value escapes the request as Node.Namespace.
	namespace := strings.Clone(c.Params("id"))
	if namespace == "" {
		return badRequest(c, "Campaign ID is required")
	}

	if _, err := h.store.Campaigns().GetByID(c.Context(), namespace); err != nil {
		return handleStorageError(c, err)
	}

	req := &CreateNodeRequest{}
	if err := c.Bind().Body(req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	kind := models.NodeKind(req.Kind)
	if !kind.Valid() {
		return badRequest(c, "Unknown node kind: "+req.Kind)
	}

	if err := h.registry.ValidateConfig(kind, req.Config); err != nil {
		return badRequest(c, err.Error())
	}

	node := models.NewNode(req.Name, namespace, kind)
	if req.Config != nil {
		node.Config = req.Config
	}

	if req.Metadata != nil {
		node.Metadata = req.Metadata
	}

	if err := h.store.Nodes().Save(c.Context(), node); err != nil {
		return handleStorageError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) GetNodes(c fiber.Ctx) error {
	namespace := c.Params("id")
	if namespace == "" {
		return badRequest(c, "Campaign ID is required")
	}

	nodes, err := h.store.Nodes().ListByNamespace(c.Context(), namespace)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(nodes)
}

func (h *APIHandlers) GetNode(c fiber.Ctx) error {
	id := c.Params("nodeId")
	if id == "" {
		return badRequest(c, "Node ID is required")
	}

	node, err := h.store.Nodes().GetByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(node)
}

// PatchNode applies an RFC6902 patch document, producing a new node version.
// The body is the raw JSON array of patch operations.
func (h *APIHandlers) PatchNode(c fiber.Ctx) error {
	id := c.Params("nodeId")
	if id == "" {
		return badRequest(c, "Node ID is required")
	}

	node, err := h.store.Nodes().GetByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	next, err := patch.Apply(node, c.Body())
	if err != nil {
		return badRequest(c, "Failed to apply patch: "+err.Error())
	}

	if !next.Kind.Valid() {
		return badRequest(c, "Patch produced an unknown node kind")
	}

	if err := h.registry.ValidateConfig(next.Kind, next.Config); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.store.Nodes().Save(c.Context(), next); err != nil {
		return handleStorageError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(next)
}

// TriggerNode fires one explicit trigger on a node: the operator recovery
// path (retry, force, unblock, reset, pause, resume, stop).
func (h *APIHandlers) TriggerNode(c fiber.Ctx) error {
	id := c.Params("nodeId")
	if id == "" {
		return badRequest(c, "Node ID is required")
	}

	req := &TriggerRequest{}
	if err := c.Bind().Body(req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.store.Nodes().GetByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	result, err := h.daemon.FireTrigger(c.Context(), node, machine.Trigger(req.Trigger), machine.FireContext{
		Operator:  req.Operator,
		RequestID: req.RequestID,
	})
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(result)
}

// Edges

func (h *APIHandlers) CreateEdge(c fiber.Ctx) error {
	// Cloned because the value is persisted as Edge.Namespace.
	namespace := strings.Clone(c.Params("id"))
	if namespace == "" {
		return badRequest(c, "Campaign ID is required")
	}

	req := &CreateEdgeRequest{}
	if err := c.Bind().Body(req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	for _, nodeID := range []string{req.SourceID, req.TargetID} {
		node, err := h.store.Nodes().GetByID(c.Context(), nodeID)
		if err != nil {
			return handleStorageError(c, err)
		}

		if node.Namespace != namespace {
			return badRequest(c, "Edge endpoints must belong to the campaign namespace")
		}
	}

	edge := models.NewEdge(namespace, req.SourceID, req.TargetID, req.Name)
	if req.Config != nil {
		edge.Config = req.Config
	}

	if err := h.store.Edges().Save(c.Context(), edge); err != nil {
		return handleStorageError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(edge)
}

func (h *APIHandlers) GetEdges(c fiber.Ctx) error {
	namespace := c.Params("id")
	if namespace == "" {
		return badRequest(c, "Campaign ID is required")
	}

	edges, err := h.store.Edges().ListByNamespace(c.Context(), namespace)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(edges)
}

// Manifests

func (h *APIHandlers) CreateManifest(c fiber.Ctx) error {
	// Cloned because the value is persisted as the manifest namespace.
	namespace := strings.Clone(c.Params("namespace"))
	if namespace == "" {
		return badRequest(c, "Namespace is required")
	}

	req := &CreateManifestRequest{}
	if err := c.Bind().Body(req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	kind := models.ManifestKind(req.Kind)

	known := false

	for _, k := range models.ManifestKinds {
		if kind == k {
			known = true

			break
		}
	}

	if !known {
		return badRequest(c, "Unknown manifest kind: "+req.Kind)
	}

	if namespace == models.LibraryNamespace && req.Version != 0 {
		return badRequest(c, "Library manifests always carry version 0")
	}

	manifest := models.NewManifest(namespace, kind, req.Version, req.Data)

	if err := h.store.Manifests().Save(c.Context(), manifest); err != nil {
		return handleStorageError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(manifest)
}

func (h *APIHandlers) GetLatestManifest(c fiber.Ctx) error {
	namespace := c.Params("namespace")
	kind := models.ManifestKind(c.Params("kind"))

	manifest, err := h.store.Manifests().Latest(c.Context(), namespace, kind)
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(manifest)
}

// Activity

func (h *APIHandlers) GetCampaignActivity(c fiber.Ctx) error {
	namespace := c.Params("id")
	if namespace == "" {
		return badRequest(c, "Campaign ID is required")
	}

	entries, err := h.store.Activity().ListByNamespace(c.Context(), namespace)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(entries)
}

func (h *APIHandlers) GetNodeActivity(c fiber.Ctx) error {
	id := c.Params("nodeId")
	if id == "" {
		return badRequest(c, "Node ID is required")
	}

	entries, err := h.store.Activity().ListByNode(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(entries)
}

// Tasks

func (h *APIHandlers) GetTasks(c fiber.Ctx) error {
	namespace := c.Params("id")
	if namespace == "" {
		return badRequest(c, "Campaign ID is required")
	}

	tasks, err := h.store.Tasks().ListByNamespace(c.Context(), namespace)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(tasks)
}

// Process is the single-step RPC: given a campaign or node id, perform
// exactly one incremental scheduling step and return. Further progress is
// the background daemon's job.
func (h *APIHandlers) Process(c fiber.Ctx) error {
	req := &ProcessRequest{}
	if err := c.Bind().Body(req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.daemon.Process(c.Context(), req.ID, req.RequestID)
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(result)
}

// Kinds documents the registered node kinds and their config schemas.
func (h *APIHandlers) Kinds(c fiber.Ctx) error {
	kinds := h.registry.Kinds()
	descriptions := make([]KindDescription, 0, len(kinds))

	for _, kind := range kinds {
		factory, err := h.registry.Factory(kind)
		if err != nil {
			continue
		}

		descriptions = append(descriptions, KindDescription{
			Kind:        kind,
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return c.JSON(descriptions)
}

// HealthCheck reports storage health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.store.HealthCheck(c.Context()); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}
