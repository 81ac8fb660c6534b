// Package api assembles the Fiber application serving REST and GraphQL.
package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/vulnmgt/riskboard-backend/database"
	gqlschema "github.com/vulnmgt/riskboard-backend/graphql"
	"github.com/vulnmgt/riskboard-backend/internal/config"
	"github.com/vulnmgt/riskboard-backend/restapi"
)

// NewFiberApp creates and configures a Fiber app with REST and GraphQL routes
func NewFiberApp(db database.DBConnection, cfg config.Config) (*fiber.App, error) {
	schema, err := gqlschema.CreateSchema(db)
	if err != nil {
		return nil, fmt.Errorf("creating GraphQL schema: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:     "riskboard-backend API v1.0",
		BodyLimit:   10 * 1024 * 1024, // 10MB
		ReadTimeout: 60 * time.Second,
	})

	// Middleware
	app.Use(fiberrecover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000,http://127.0.0.1:3000",
		AllowHeaders: "Origin, Content-Type, Accept, X-API-Key",
		AllowMethods: "GET, POST, HEAD, OPTIONS",
	}))

	app.Use(logger.New())

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	restapi.SetupRoutes(app, db, cfg, schema)

	return app, nil
}
