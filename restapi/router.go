package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/internal/config"
	pipelinesvc "github.com/vulnmgt/riskboard-backend/internal/pipeline"
	"github.com/vulnmgt/riskboard-backend/restapi/modules/auth"
	"github.com/vulnmgt/riskboard-backend/restapi/modules/pipeline"
	"github.com/vulnmgt/riskboard-backend/restapi/modules/reports"
)

// SetupRoutes configures all REST API routes and the GraphQL endpoint.
func SetupRoutes(app *fiber.App, db database.DBConnection, cfg config.Config, schema graphql.Schema) {
	runner := pipelinesvc.NewRunner(db, cfg)

	// API Group /api/v1
	api := app.Group("/api/v1")

	// GraphQL Route - Mounted within the api group to inherit path prefixes
	api.Post("/graphql", GraphQLHandler(schema))

	// Read-only report routes
	reportsGroup := api.Group("/reports")
	reportsGroup.Get("/cve-daily", reports.GetCVEDaily(db))
	reportsGroup.Get("/product-daily", reports.GetProductDaily(db))

	api.Get("/alerts", reports.GetAlerts(db))

	// Mutating pipeline routes, key-guarded
	pipelineGroup := api.Group("/pipeline", auth.RequireAPIKey(cfg.Server.APIKey))
	pipelineGroup.Post("/run", pipeline.PostRun(runner))
	pipelineGroup.Post("/steps/:name", pipeline.PostStep(runner))
}
