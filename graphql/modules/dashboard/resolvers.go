// Package dashboard implements the resolvers for the risk dashboard.
package dashboard

import (
	"context"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/internal/alerting"
)

const dateLayout = "2006-01-02"

func resolveDate(date string) string {
	if date == "" {
		return time.Now().Format(dateLayout)
	}
	return date
}

// ResolveRiskOverview returns the high-level counters for one day.
func ResolveRiskOverview(db database.DBConnection, date string) (interface{}, error) {
	ctx := context.Background()
	asOf := resolveDate(date)

	// AVERAGE and MAX skip null risk scores, matching the aggregation policy
	query := `
		FOR d IN report_cve_daily
			FILTER d.as_of_date == @asOf
			COLLECT AGGREGATE
				total = SUM(1),
				kev = SUM(d.is_kev ? 1 : 0),
				avgRisk = AVERAGE(d.risk_score),
				maxRisk = MAX(d.risk_score)
			RETURN {
				as_of_date: @asOf,
				total_cves: total,
				kev_count: kev,
				avg_risk_score: avgRisk,
				max_risk_score: maxRisk
			}
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"asOf": asOf},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	result := map[string]interface{}{
		"as_of_date": asOf,
		"total_cves": 0,
		"kev_count":  0,
	}
	if cursor.HasMore() {
		if _, err := cursor.ReadDocument(ctx, &result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ResolveSeverityDistribution returns the day's counts per severity bucket.
// Rows with no severity land in "unknown".
func ResolveSeverityDistribution(db database.DBConnection, date string) (interface{}, error) {
	ctx := context.Background()
	asOf := resolveDate(date)

	query := `
		FOR d IN report_cve_daily
			FILTER d.as_of_date == @asOf
			COLLECT severity = UPPER(d.severity) WITH COUNT INTO count
			RETURN { severity: severity, count: count }
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"asOf": asOf},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	dist := map[string]interface{}{
		"critical": 0, "high": 0, "medium": 0, "low": 0, "unknown": 0,
	}
	for cursor.HasMore() {
		var row struct {
			Severity string `json:"severity"`
			Count    int    `json:"count"`
		}
		if _, err := cursor.ReadDocument(ctx, &row); err != nil {
			return nil, err
		}
		switch row.Severity {
		case "CRITICAL":
			dist["critical"] = row.Count
		case "HIGH":
			dist["high"] = row.Count
		case "MEDIUM":
			dist["medium"] = row.Count
		case "LOW":
			dist["low"] = row.Count
		default:
			dist["unknown"] = dist["unknown"].(int) + row.Count
		}
	}
	return dist, nil
}

// ResolveTopRiskCves returns the day's highest-risk vulnerabilities. SORT
// DESC puts null risk scores last because null sorts below every number.
func ResolveTopRiskCves(db database.DBConnection, date string, limit int) (interface{}, error) {
	ctx := context.Background()
	asOf := resolveDate(date)

	query := `
		FOR d IN report_cve_daily
			FILTER d.as_of_date == @asOf
			SORT d.risk_score DESC, d.cve_id ASC
			LIMIT @limit
			RETURN {
				cve_id: d.cve_id,
				severity: d.severity,
				base_score: d.base_score,
				is_kev: d.is_kev,
				epss_score: d.epss_score,
				risk_score: d.risk_score
			}
	`
	return collectMaps(ctx, db, query, map[string]interface{}{"asOf": asOf, "limit": limit})
}

// ResolveProductSummary returns the day's product aggregates, riskiest first.
func ResolveProductSummary(db database.DBConnection, date string, limit int) (interface{}, error) {
	ctx := context.Background()
	asOf := resolveDate(date)

	query := `
		FOR p IN report_product_daily
			FILTER p.as_of_date == @asOf
			SORT p.avg_risk_score DESC, p.open_vulns DESC
			LIMIT @limit
			RETURN {
				vendor: p.vendor,
				product: p.product,
				open_vulns: p.open_vulns,
				high_crit_count: p.high_crit_count,
				kev_count: p.kev_count,
				avg_epss: p.avg_epss,
				avg_risk_score: p.avg_risk_score
			}
	`
	return collectMaps(ctx, db, query, map[string]interface{}{"asOf": asOf, "limit": limit})
}

// ResolveRiskTrend returns one point per stored day within the window.
// Days the pipeline never ran for are simply absent.
func ResolveRiskTrend(db database.DBConnection, days int) (interface{}, error) {
	ctx := context.Background()
	since := time.Now().AddDate(0, 0, -days).Format(dateLayout)

	query := `
		FOR d IN report_cve_daily
			FILTER d.as_of_date >= @since
			COLLECT date = d.as_of_date AGGREGATE
				total = SUM(1),
				kev = SUM(d.is_kev ? 1 : 0),
				avgRisk = AVERAGE(d.risk_score)
			SORT date ASC
			RETURN {
				date: date,
				total_cves: total,
				kev_count: kev,
				avg_risk_score: avgRisk
			}
	`
	return collectMaps(ctx, db, query, map[string]interface{}{"since": since})
}

// ResolveRecentAlerts returns the newest alerts, optionally filtered by kind.
func ResolveRecentAlerts(db database.DBConnection, alertType string, limit int) (interface{}, error) {
	ctx := context.Background()
	return alerting.FetchRecentAlerts(ctx, db, "", alertType, limit)
}

func collectMaps(ctx context.Context, db database.DBConnection, query string, bindVars map[string]interface{}) ([]map[string]interface{}, error) {
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	results := []map[string]interface{}{}
	for cursor.HasMore() {
		var row map[string]interface{}
		if _, err := cursor.ReadDocument(ctx, &row); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, nil
}
