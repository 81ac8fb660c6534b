// Package reports builds the daily report tables from the raw feed stores.
// Every step rebuilds "today's" partition as a whole (delete-then-insert
// inside one transaction), so each step is safe to re-run any number of
// times per day and never touches other days.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/model"
)

// DateLayout is the storage format for day-valued columns.
const DateLayout = "2006-01-02"

const insertChunkSize = 1000

// LatestEPSS selects, per vulnerability id, the most recent sample whose
// date is <= asOfDate. One sample per (id, date) is guaranteed by the
// raw_epss unique index, so the max-date winner is unique per id and the
// result does not depend on insertion order.
func LatestEPSS(samples []model.EPSSScore, asOfDate string) map[string]model.EPSSScore {
	latest := make(map[string]model.EPSSScore)
	for _, s := range samples {
		if s.EPSSDate > asOfDate {
			continue
		}
		cur, ok := latest[s.CveID]
		if !ok || s.EPSSDate > cur.EPSSDate {
			latest[s.CveID] = s
		}
	}
	return latest
}

// AgeDays derives the snapshot age from the publication date. A missing or
// unparseable publication date yields nil: ambiguous input must not
// silently become "brand new". Clock skew in feeds can put publication
// after the snapshot date; age is clamped to zero rather than negative.
func AgeDays(publishedDate string, asOf time.Time) *int {
	if publishedDate == "" {
		return nil
	}
	pub, err := time.Parse(DateLayout, publishedDate)
	if err != nil {
		return nil
	}
	day, err := time.Parse(DateLayout, asOf.Format(DateLayout))
	if err != nil {
		return nil
	}
	days := int(day.Sub(pub).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}

// BuildSnapshotRows joins the three feeds into exactly one row per
// vulnerability known to the severity feed. The exploited catalog is
// left-joined: membership sets the flag and supplies vendor/product,
// absence leaves both unset (the aggregator resolves the sentinel).
// risk_score is always null here; scoring is a separate step.
func BuildSnapshotRows(cves []model.CVERecord, kev []model.KEVRecord, epss []model.EPSSScore, asOf time.Time) []model.CVEDailySnapshot {
	asOfDate := asOf.Format(DateLayout)

	kevByID := make(map[string]model.KEVRecord, len(kev))
	for _, k := range kev {
		kevByID[k.CveID] = k
	}
	epssByID := LatestEPSS(epss, asOfDate)

	rows := make([]model.CVEDailySnapshot, 0, len(cves))
	for _, cve := range cves {
		row := model.CVEDailySnapshot{
			AsOfDate:  asOfDate,
			CveID:     cve.CveID,
			Severity:  cve.Severity,
			BaseScore: cve.BaseScore,
			AgeDays:   AgeDays(cve.PublishedDate, asOf),
			RiskScore: nil,
		}

		if k, ok := kevByID[cve.CveID]; ok {
			row.IsKEV = true
			row.Vendor = k.Vendor
			row.Product = k.Product
		}

		if e, ok := epssByID[cve.CveID]; ok {
			score := e.EPSSScore
			row.EPSSScore = &score
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].CveID < rows[j].CveID })
	return rows
}

// BuildDailySnapshot rebuilds report_cve_daily for the given day. Existing
// rows for that day are removed and the fresh join is inserted inside one
// transaction. Returns the number of rows written.
func BuildDailySnapshot(ctx context.Context, conn database.DBConnection, asOf time.Time) (int, error) {
	cves, err := fetchRawCVEs(ctx, conn)
	if err != nil {
		return 0, fmt.Errorf("reading raw_cve: %w", err)
	}
	kev, err := fetchRawKEV(ctx, conn)
	if err != nil {
		return 0, fmt.Errorf("reading raw_kev: %w", err)
	}
	asOfDate := asOf.Format(DateLayout)
	epss, err := fetchRawEPSS(ctx, conn, asOfDate)
	if err != nil {
		return 0, fmt.Errorf("reading raw_epss: %w", err)
	}

	rows := BuildSnapshotRows(cves, kev, epss, asOf)

	err = database.WithTransaction(ctx, conn.Database, []string{database.CollectionCVEDaily}, func(tx arangodb.Transaction) error {
		removeQuery := `
			FOR d IN ` + database.CollectionCVEDaily + `
				FILTER d.as_of_date == @asOf
				REMOVE d IN ` + database.CollectionCVEDaily
		if err := database.RunQuery(ctx, tx, removeQuery, map[string]interface{}{"asOf": asOfDate}); err != nil {
			return fmt.Errorf("removing snapshot rows for %s: %w", asOfDate, err)
		}

		insertQuery := `
			FOR doc IN @docs
				INSERT doc INTO ` + database.CollectionCVEDaily
		for start := 0; start < len(rows); start += insertChunkSize {
			end := start + insertChunkSize
			if end > len(rows) {
				end = len(rows)
			}
			if err := database.RunQuery(ctx, tx, insertQuery, map[string]interface{}{"docs": rows[start:end]}); err != nil {
				return fmt.Errorf("inserting snapshot rows for %s: %w", asOfDate, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(rows), nil
}

// FetchDailySnapshot returns all report_cve_daily rows for one day, in
// cve_id order. Shared by the scorer, the aggregator and the alert engine.
func FetchDailySnapshot(ctx context.Context, conn database.DBConnection, asOfDate string) ([]model.CVEDailySnapshot, error) {
	query := `
		FOR d IN ` + database.CollectionCVEDaily + `
			FILTER d.as_of_date == @asOf
			SORT d.cve_id ASC
			RETURN d
	`
	cursor, err := conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"asOf": asOfDate},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var rows []model.CVEDailySnapshot
	for cursor.HasMore() {
		var row model.CVEDailySnapshot
		if _, err := cursor.ReadDocument(ctx, &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func fetchRawCVEs(ctx context.Context, conn database.DBConnection) ([]model.CVERecord, error) {
	query := `
		FOR c IN ` + database.CollectionRawCVE + `
			SORT c.cve_id ASC
			RETURN c
	`
	cursor, err := conn.Database.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var records []model.CVERecord
	for cursor.HasMore() {
		var rec model.CVERecord
		if _, err := cursor.ReadDocument(ctx, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func fetchRawKEV(ctx context.Context, conn database.DBConnection) ([]model.KEVRecord, error) {
	query := `
		FOR k IN ` + database.CollectionRawKEV + `
			RETURN k
	`
	cursor, err := conn.Database.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var records []model.KEVRecord
	for cursor.HasMore() {
		var rec model.KEVRecord
		if _, err := cursor.ReadDocument(ctx, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// fetchRawEPSS narrows to samples dated <= asOfDate; the latest-sample
// selection itself happens in LatestEPSS.
func fetchRawEPSS(ctx context.Context, conn database.DBConnection, asOfDate string) ([]model.EPSSScore, error) {
	query := `
		FOR e IN ` + database.CollectionRawEPSS + `
			FILTER e.epss_date <= @asOf
			RETURN { cve_id: e.cve_id, epss_date: e.epss_date, epss_score: e.epss_score, ingested_at: e.ingested_at }
	`
	cursor, err := conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"asOf": asOfDate},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var samples []model.EPSSScore
	for cursor.HasMore() {
		var s model.EPSSScore
		if _, err := cursor.ReadDocument(ctx, &s); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}
