package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/model"
)

// UnknownProduct is the sentinel vendor/product for vulnerabilities with no
// exploited-catalog attribution. It participates in aggregation like any
// other product key.
const UnknownProduct = "Unknown"

type productKey struct {
	Vendor  string
	Product string
}

// AggregateProducts rolls one day's snapshot rows up into one row per
// (vendor, product). Unset vendor/product normalize to the sentinel here,
// at aggregation time. The means exclude rows whose input is null instead
// of counting them as zero; this differs from the scorer's
// zero-substitution policy and is preserved deliberately.
func AggregateProducts(asOfDate string, rows []model.CVEDailySnapshot) []model.ProductDailySnapshot {
	type accum struct {
		open     int
		highCrit int
		kev      int
		epssSum  float64
		epssN    int
		riskSum  float64
		riskN    int
	}

	groups := make(map[productKey]*accum)
	for _, row := range rows {
		key := productKey{Vendor: row.Vendor, Product: row.Product}
		if key.Vendor == "" {
			key.Vendor = UnknownProduct
		}
		if key.Product == "" {
			key.Product = UnknownProduct
		}

		acc, ok := groups[key]
		if !ok {
			acc = &accum{}
			groups[key] = acc
		}

		acc.open++
		if strings.EqualFold(row.Severity, "HIGH") || strings.EqualFold(row.Severity, "CRITICAL") {
			acc.highCrit++
		}
		if row.IsKEV {
			acc.kev++
		}
		if row.EPSSScore != nil {
			acc.epssSum += *row.EPSSScore
			acc.epssN++
		}
		if row.RiskScore != nil {
			acc.riskSum += *row.RiskScore
			acc.riskN++
		}
	}

	out := make([]model.ProductDailySnapshot, 0, len(groups))
	for key, acc := range groups {
		snap := model.ProductDailySnapshot{
			AsOfDate:      asOfDate,
			Vendor:        key.Vendor,
			Product:       key.Product,
			OpenVulns:     acc.open,
			HighCritCount: acc.highCrit,
			KEVCount:      acc.kev,
		}
		if acc.epssN > 0 {
			mean := acc.epssSum / float64(acc.epssN)
			snap.AvgEPSS = &mean
		}
		if acc.riskN > 0 {
			mean := acc.riskSum / float64(acc.riskN)
			snap.AvgRiskScore = &mean
		}
		out = append(out, snap)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Vendor != out[j].Vendor {
			return out[i].Vendor < out[j].Vendor
		}
		return out[i].Product < out[j].Product
	})
	return out
}

// BuildProductDaily rebuilds report_product_daily for the given day from
// that day's (fully scored) snapshot rows. Same rebuild pattern as the
// snapshot builder: delete the day's rows and insert fresh ones in one
// transaction. Returns the number of rows written.
func BuildProductDaily(ctx context.Context, conn database.DBConnection, asOf time.Time) (int, error) {
	asOfDate := asOf.Format(DateLayout)

	rows, err := FetchDailySnapshot(ctx, conn, asOfDate)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot rows for %s: %w", asOfDate, err)
	}

	aggregates := AggregateProducts(asOfDate, rows)

	err = database.WithTransaction(ctx, conn.Database, []string{database.CollectionProductDaily}, func(tx arangodb.Transaction) error {
		removeQuery := `
			FOR p IN ` + database.CollectionProductDaily + `
				FILTER p.as_of_date == @asOf
				REMOVE p IN ` + database.CollectionProductDaily
		if err := database.RunQuery(ctx, tx, removeQuery, map[string]interface{}{"asOf": asOfDate}); err != nil {
			return fmt.Errorf("removing product rows for %s: %w", asOfDate, err)
		}

		if len(aggregates) == 0 {
			return nil
		}
		insertQuery := `
			FOR doc IN @docs
				INSERT doc INTO ` + database.CollectionProductDaily
		return database.RunQuery(ctx, tx, insertQuery, map[string]interface{}{"docs": aggregates})
	})
	if err != nil {
		return 0, err
	}

	return len(aggregates), nil
}

// FetchProductDaily returns all report_product_daily rows for one day.
func FetchProductDaily(ctx context.Context, conn database.DBConnection, asOfDate string) ([]model.ProductDailySnapshot, error) {
	query := `
		FOR p IN ` + database.CollectionProductDaily + `
			FILTER p.as_of_date == @asOf
			SORT p.vendor ASC, p.product ASC
			RETURN p
	`
	cursor, err := conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"asOf": asOfDate},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var rows []model.ProductDailySnapshot
	for cursor.HasMore() {
		var row model.ProductDailySnapshot
		if _, err := cursor.ReadDocument(ctx, &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
