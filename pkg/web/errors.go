package web

import (
	"errors"

	"github.com/pipecraft/campd/pkg/machine"
	"github.com/pipecraft/campd/pkg/persistence"
	"github.com/pipecraft/campd/pkg/scheduler"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleStorageError maps persistence and machine errors onto problem
// responses.
func handleStorageError(c fiber.Ctx, err error) error {
	var triggerErr *machine.TriggerNotAllowedError

	switch {
	case persistence.IsCampaignNotFound(err):
		return notFound(c, "campaign not found")

	case persistence.IsNodeNotFound(err):
		return notFound(c, "node not found")

	case persistence.IsManifestNotFound(err):
		return notFound(c, "manifest not found")

	case errors.Is(err, persistence.ErrCampaignAlreadyExists):
		return conflict(c, "campaign already exists")

	case errors.Is(err, persistence.ErrNodeVersionExists):
		return conflict(c, "node version already exists")

	case errors.As(err, &triggerErr):
		return conflict(c, triggerErr.Error())

	case errors.Is(err, scheduler.ErrNotProcessable):
		return conflict(c, err.Error())

	default:
		return internalError(c, err)
	}
}
