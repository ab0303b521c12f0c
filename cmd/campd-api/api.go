// Package main provides the campd API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/pipecraft/campd/pkg/persistence"
	"github.com/pipecraft/campd/pkg/registry"
	"github.com/pipecraft/campd/pkg/scheduler"
	"github.com/pipecraft/campd/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	registry *registry.Registry
	daemon   *scheduler.Daemon
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	daemon *scheduler.Daemon,
) *API {
	return &API{
		logger:   logger,
		store:    store,
		registry: reg,
		daemon:   daemon,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.store, a.registry, a.daemon, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("campd API")
	})

	campaigns := app.Group("/campaigns")
	campaigns.Get("/", handlers.GetCampaigns)
	campaigns.Post("/", handlers.CreateCampaign)
	campaigns.Get("/:id", handlers.GetCampaign)
	campaigns.Get("/:id/activity", handlers.GetCampaignActivity)
	campaigns.Get("/:id/tasks", handlers.GetTasks)

	// Node endpoints:
	campaigns.Post("/:id/nodes", handlers.CreateNode)
	campaigns.Get("/:id/nodes", handlers.GetNodes)
	campaigns.Get("/:id/nodes/:nodeId", handlers.GetNode)
	campaigns.Patch("/:id/nodes/:nodeId", handlers.PatchNode)
	campaigns.Post("/:id/nodes/:nodeId/trigger", handlers.TriggerNode)
	campaigns.Get("/:id/nodes/:nodeId/activity", handlers.GetNodeActivity)

	// Edge endpoints:
	campaigns.Post("/:id/edges", handlers.CreateEdge)
	campaigns.Get("/:id/edges", handlers.GetEdges)

	manifests := app.Group("/manifests")
	manifests.Post("/:namespace", handlers.CreateManifest)
	manifests.Get("/:namespace/:kind", handlers.GetLatestManifest)

	app.Post("/process", handlers.Process)
	app.Get("/kinds", handlers.Kinds)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
