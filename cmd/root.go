// Package cmd wires the riskboard CLI: a long-running API server plus
// one-shot pipeline commands meant for cron.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/internal/api"
	"github.com/vulnmgt/riskboard-backend/internal/config"
	"github.com/vulnmgt/riskboard-backend/internal/pipeline"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRootCommand creates the root cobra command with its subcommands.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "riskboard",
		Short:   "Vulnerability risk pipeline and dashboard API",
		Version: Version,
		Long: `riskboard ingests the NVD, CISA KEV and EPSS feeds, builds daily
risk snapshots and per-product aggregates, raises threshold alerts, and
serves the results over REST and GraphQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newStepCommand())

	return cmd
}

// connect loads configuration and opens the store.
func connect() (config.Config, database.DBConnection, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, database.DBConnection{}, fmt.Errorf("loading configuration: %w", err)
	}

	conn, err := database.InitializeDatabase(database.Options{
		URL:      cfg.Arango.URL,
		User:     cfg.Arango.User,
		Password: cfg.Arango.Password,
		Database: cfg.Arango.Database,
	})
	if err != nil {
		return cfg, conn, fmt.Errorf("connecting to database: %w", err)
	}
	return cfg, conn, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST and GraphQL API",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, conn, err := connect()
			if err != nil {
				return err
			}

			app, err := api.NewFiberApp(conn, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				_ = app.Shutdown()
			}()

			return app.Listen(":" + cfg.Server.Port)
		},
	}
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full daily pipeline once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, conn, err := connect()
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(conn, cfg)
			results, err := runner.Run(cmd.Context())
			for _, res := range results {
				fmt.Printf("%-16s %8d rows  %s\n", res.Step, res.Rows, res.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
}

func newStepCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "step <name>",
		Short:     "Run a single pipeline step",
		Long:      "Valid steps, in pipeline order:\n  " + stepList(),
		Args:      cobra.ExactArgs(1),
		ValidArgs: pipeline.Order,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := connect()
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(conn, cfg)
			res, err := runner.RunStep(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d rows in %s\n", res.Step, res.Rows, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func stepList() string {
	out := ""
	for i, s := range pipeline.Order {
		if i > 0 {
			out += "\n  "
		}
		out += s
	}
	return out
}
