// Package pipeline sequences the daily run: ingest the three feeds, build
// the snapshot, score it, aggregate per product, evaluate alerts. Steps run
// strictly in that order and the run stops at the first failure, leaving
// earlier steps' writes in place.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/internal/alerting"
	"github.com/vulnmgt/riskboard-backend/internal/config"
	"github.com/vulnmgt/riskboard-backend/internal/ingest"
	"github.com/vulnmgt/riskboard-backend/internal/reports"
)

var logger = database.GetLogger()

// Step names, in run order. These are the names the CLI and the REST API
// accept for single-step runs.
const (
	StepIngestKEV      = "ingest-kev"
	StepIngestEPSS     = "ingest-epss"
	StepIngestCVE      = "ingest-cve"
	StepBuildSnapshot  = "build-snapshot"
	StepComputeScores  = "compute-scores"
	StepBuildAggregate = "build-aggregate"
	StepRunAlerts      = "run-alerts"
)

// Order is the canonical full-run sequence.
var Order = []string{
	StepIngestKEV,
	StepIngestEPSS,
	StepIngestCVE,
	StepBuildSnapshot,
	StepComputeScores,
	StepBuildAggregate,
	StepRunAlerts,
}

// StepResult describes one executed step.
type StepResult struct {
	Step     string        `json:"step"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration"`
}

// Runner executes pipeline steps against one store with one feed config.
type Runner struct {
	Conn database.DBConnection
	Cfg  config.Config
}

// NewRunner returns a Runner bound to conn and cfg.
func NewRunner(conn database.DBConnection, cfg config.Config) *Runner {
	return &Runner{Conn: conn, Cfg: cfg}
}

// Run executes the full sequence for "now". It aborts on the first failing
// step and returns the results of the steps that completed.
func (r *Runner) Run(ctx context.Context) ([]StepResult, error) {
	var results []StepResult
	for _, step := range Order {
		res, err := r.RunStep(ctx, step)
		if err != nil {
			return results, fmt.Errorf("step %s: %w", step, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// RunStep executes a single named step. Unknown names are an error.
func (r *Runner) RunStep(ctx context.Context, step string) (StepResult, error) {
	started := time.Now()

	var rows int
	var err error
	switch step {
	case StepIngestKEV:
		var res ingest.Result
		res, err = ingest.RunKEVIngest(ctx, r.Conn, r.Cfg.Feeds)
		rows = res.Inserted + res.Updated
	case StepIngestEPSS:
		var res ingest.Result
		res, err = ingest.RunEPSSIngest(ctx, r.Conn, r.Cfg.Feeds)
		rows = res.Inserted + res.Updated
	case StepIngestCVE:
		var res ingest.Result
		res, err = ingest.RunCVEIngest(ctx, r.Conn, r.Cfg.Feeds)
		rows = res.Inserted + res.Updated
	case StepBuildSnapshot:
		rows, err = reports.BuildDailySnapshot(ctx, r.Conn, time.Now())
	case StepComputeScores:
		rows, err = reports.ScoreDailySnapshot(ctx, r.Conn, time.Now())
	case StepBuildAggregate:
		rows, err = reports.BuildProductDaily(ctx, r.Conn, time.Now())
	case StepRunAlerts:
		rows, err = alerting.RunAlerts(ctx, r.Conn, time.Now())
	default:
		return StepResult{}, fmt.Errorf("unknown pipeline step %q", step)
	}

	result := StepResult{Step: step, Rows: rows, Duration: time.Since(started)}
	if err != nil {
		return result, err
	}

	logger.Sugar().Infof("Pipeline step %s done: %d rows in %s", step, rows, result.Duration.Round(time.Millisecond))
	return result, nil
}

// KnownStep reports whether name is a valid step name.
func KnownStep(name string) bool {
	for _, s := range Order {
		if s == name {
			return true
		}
	}
	return false
}
