// Package pipeline exposes pipeline runs over REST. These routes mutate the
// store and sit behind the API-key middleware.
package pipeline

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vulnmgt/riskboard-backend/internal/pipeline"
)

// PostRun triggers a full pipeline run and reports per-step results. A
// failed step returns 500 together with the steps that did complete.
func PostRun(runner *pipeline.Runner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		results, err := runner.Run(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
				"steps":   results,
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"steps":   results,
		})
	}
}

// PostStep triggers a single named pipeline step.
func PostStep(runner *pipeline.Runner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")
		if !pipeline.KnownStep(name) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "unknown step " + name,
				"known":   pipeline.Order,
			})
		}

		result, err := runner.RunStep(c.Context(), name)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
				"step":    result,
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"step":    result,
		})
	}
}
