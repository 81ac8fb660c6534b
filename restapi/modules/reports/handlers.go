// Package reports exposes the daily report tables over REST.
package reports

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/internal/alerting"
	"github.com/vulnmgt/riskboard-backend/internal/reports"
)

// queryDate resolves the ?date= parameter, defaulting to today.
func queryDate(c *fiber.Ctx) (string, error) {
	date := c.Query("date")
	if date == "" {
		return time.Now().Format(reports.DateLayout), nil
	}
	if _, err := time.Parse(reports.DateLayout, date); err != nil {
		return "", err
	}
	return date, nil
}

// GetCVEDaily serves one day's scored vulnerability snapshot.
func GetCVEDaily(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date, err := queryDate(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "date must be formatted YYYY-MM-DD",
			})
		}

		rows, err := reports.FetchDailySnapshot(c.Context(), db, date)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{
			"as_of_date": date,
			"count":      len(rows),
			"cves":       rows,
		})
	}
}

// GetProductDaily serves one day's per-product aggregates.
func GetProductDaily(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date, err := queryDate(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "date must be formatted YYYY-MM-DD",
			})
		}

		rows, err := reports.FetchProductDaily(c.Context(), db, date)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{
			"as_of_date": date,
			"count":      len(rows),
			"products":   rows,
		})
	}
}

// GetAlerts serves recent alerts, newest first. Optional ?date= narrows to
// one day, ?type= filters by alert kind and ?limit= bounds the result
// (default 100).
func GetAlerts(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)
		if limit < 1 || limit > 1000 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be between 1 and 1000",
			})
		}

		day := c.Query("date")
		if day != "" {
			if _, err := time.Parse(reports.DateLayout, day); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "date must be formatted YYYY-MM-DD",
				})
			}
		}

		alerts, err := alerting.FetchRecentAlerts(c.Context(), db, day, c.Query("type"), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{
			"count":  len(alerts),
			"alerts": alerts,
		})
	}
}
