package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/internal/reports"
	"github.com/vulnmgt/riskboard-backend/model"
)

var logger = database.GetLogger()

// RunAlerts evaluates all rules against the given day's report rows and
// replaces that day's alerts with the result. Alerts carry a full
// timestamp, so "that day's alerts" means rows whose created_at falls on
// the same calendar date; re-running within a day never duplicates.
// Returns the number of alerts written.
func RunAlerts(ctx context.Context, conn database.DBConnection, now time.Time) (int, error) {
	today := now.Format(reports.DateLayout)

	cves, err := reports.FetchDailySnapshot(ctx, conn, today)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot rows for %s: %w", today, err)
	}
	products, err := reports.FetchProductDaily(ctx, conn, today)
	if err != nil {
		return 0, fmt.Errorf("reading product rows for %s: %w", today, err)
	}

	alerts := EvaluateRules(now, cves, products)

	err = database.WithTransaction(ctx, conn.Database, []string{database.CollectionAlerts}, func(tx arangodb.Transaction) error {
		removeQuery := `
			FOR a IN ` + database.CollectionAlerts + `
				FILTER LEFT(a.created_at, 10) == @today
				REMOVE a IN ` + database.CollectionAlerts
		if err := database.RunQuery(ctx, tx, removeQuery, map[string]interface{}{"today": today}); err != nil {
			return fmt.Errorf("removing alerts for %s: %w", today, err)
		}

		if len(alerts) == 0 {
			return nil
		}
		insertQuery := `
			FOR doc IN @docs
				INSERT doc INTO ` + database.CollectionAlerts
		return database.RunQuery(ctx, tx, insertQuery, map[string]interface{}{"docs": alerts})
	})
	if err != nil {
		return 0, err
	}

	logger.Sugar().Infof("Alert run for %s wrote %d alerts (%d CVE rows, %d products)", today, len(alerts), len(cves), len(products))
	return len(alerts), nil
}

// FetchRecentAlerts returns the newest alerts, newest first. day narrows
// to one calendar date and alertType to one kind; either may be empty.
func FetchRecentAlerts(ctx context.Context, conn database.DBConnection, day, alertType string, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		FOR a IN ` + database.CollectionAlerts + `
			FILTER @day == null OR LEFT(a.created_at, 10) == @day
			FILTER @type == null OR a.alert_type == @type
			SORT a.created_at DESC, a.metric_value DESC
			LIMIT @limit
			RETURN a
	`
	bindVars := map[string]interface{}{
		"day":   nil,
		"type":  nil,
		"limit": limit,
	}
	if day != "" {
		bindVars["day"] = day
	}
	if alertType != "" {
		bindVars["type"] = alertType
	}

	cursor, err := conn.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var alerts []model.Alert
	for cursor.HasMore() {
		var a model.Alert
		if _, err := cursor.ReadDocument(ctx, &a); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}
