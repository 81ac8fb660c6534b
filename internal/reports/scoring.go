package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/vulnmgt/riskboard-backend/database"
)

// Scoring weights and constants. Fixed: not configurable at run time.
const (
	CVSSWeight      = 0.4
	KEVBonus        = 2.0
	EPSSWeight      = 5.0
	AgeWeightPerDay = 0.01
	MaxAgeDaysCap   = 365
)

// ComputeRiskScore combines severity, exploitation status, exploit
// likelihood and age into the composite risk score:
//
//	base_score*0.4 + (2.0 if exploited) + likelihood*5.0 + min(age, 365)*0.01
//
// Missing inputs contribute zero. Note the deliberate contrast with the
// aggregator: here "unknown" means "no contribution", there it means
// "excluded from the mean". No clamping is applied to the sum.
func ComputeRiskScore(baseScore *float64, isKEV bool, epssScore *float64, ageDays *int) float64 {
	var score float64

	if baseScore != nil {
		score += *baseScore * CVSSWeight
	}
	if isKEV {
		score += KEVBonus
	}
	if epssScore != nil {
		score += *epssScore * EPSSWeight
	}
	if ageDays != nil {
		age := *ageDays
		if age > MaxAgeDaysCap {
			age = MaxAgeDaysCap
		}
		score += float64(age) * AgeWeightPerDay
	}

	return score
}

type scoreUpdate struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

// ScoreDailySnapshot computes and persists a risk score for every
// report_cve_daily row of the given day that has none yet. Already-scored
// rows are never recomputed, which makes the step idempotent and safe to
// run incrementally as new vulnerabilities appear intraday. Returns the
// number of rows updated.
func ScoreDailySnapshot(ctx context.Context, conn database.DBConnection, asOf time.Time) (int, error) {
	asOfDate := asOf.Format(DateLayout)

	rows, err := FetchDailySnapshot(ctx, conn, asOfDate)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot rows for %s: %w", asOfDate, err)
	}

	var updates []scoreUpdate
	for _, row := range rows {
		if row.RiskScore != nil {
			continue
		}
		updates = append(updates, scoreUpdate{
			Key:   row.Key,
			Score: ComputeRiskScore(row.BaseScore, row.IsKEV, row.EPSSScore, row.AgeDays),
		})
	}

	if len(updates) == 0 {
		return 0, nil
	}

	// A single AQL statement executes atomically, so a failed run leaves
	// every row either scored or still null, never half-written.
	query := `
		FOR u IN @updates
			UPDATE { _key: u.key } WITH { risk_score: u.score } IN ` + database.CollectionCVEDaily
	if err := database.RunQuery(ctx, conn.Database, query, map[string]interface{}{"updates": updates}); err != nil {
		return 0, fmt.Errorf("writing risk scores for %s: %w", asOfDate, err)
	}

	return len(updates), nil
}
