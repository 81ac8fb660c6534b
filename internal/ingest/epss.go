package ingest

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/internal/config"
	"github.com/vulnmgt/riskboard-backend/model"
	"github.com/vulnmgt/riskboard-backend/util"
)

const (
	epssCurrentPath     = "/epss_scores-current.csv.gz"
	maxEPSSCompressed   = 64 * 1024 * 1024  // 64 MB
	maxEPSSUncompressed = 512 * 1024 * 1024 // 512 MB
)

// RunEPSSIngest downloads the current exploit-likelihood scores and upserts
// them into raw_epss keyed on (cve_id, epss_date). The feed publishes one
// file per day; the date comes from the file's own score_date comment so a
// late run still lands on the right day. Days accumulate append-only.
func RunEPSSIngest(ctx context.Context, conn database.DBConnection, cfg config.Feeds) (Result, error) {
	url := strings.TrimSuffix(cfg.EPSSBaseURL, "/") + epssCurrentPath

	compressed, err := fetchURL(ctx, url, maxEPSSCompressed)
	if err != nil {
		return Result{}, fmt.Errorf("downloading EPSS scores (%s): %w", url, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return Result{}, fmt.Errorf("decompressing EPSS scores: %w", err)
	}
	defer gz.Close()

	records, err := ParseEPSSCSV(io.LimitReader(gz, maxEPSSUncompressed), time.Now())
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return Result{}, fmt.Errorf("EPSS feed contained no scores")
	}

	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = r
	}

	res, err := upsertBatch(ctx, conn, database.CollectionRawEPSS, []string{"cve_id", "epss_date"}, docs)
	if err != nil {
		return res, err
	}

	if err := database.SaveLastRun(ctx, conn, "epss", time.Now()); err != nil {
		return res, fmt.Errorf("recording EPSS run: %w", err)
	}

	logger.Sugar().Infof("EPSS ingest for %s: %d inserted, %d updated", records[0].EPSSDate, res.Inserted, res.Updated)
	return res, nil
}

// ParseEPSSCSV reads the published CSV: an optional "#model_version:...,
// score_date:..." comment line, a header row, then cve,epss,percentile
// rows. Rows with an unparseable score are skipped; a missing percentile
// stays null.
func ParseEPSSCSV(r io.Reader, now time.Time) ([]model.EPSSScore, error) {
	br := bufio.NewReader(r)

	scoreDate := now.Format("2006-01-02")
	if peek, err := br.Peek(1); err == nil && peek[0] == '#' {
		comment, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading EPSS header comment: %w", err)
		}
		if d := parseScoreDate(comment); d != "" {
			scoreDate = d
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading EPSS CSV header: %w", err)
	}
	cveCol, epssCol, pctCol := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "cve":
			cveCol = i
		case "epss":
			epssCol = i
		case "percentile":
			pctCol = i
		}
	}
	if cveCol < 0 || epssCol < 0 {
		return nil, fmt.Errorf("EPSS CSV header missing cve/epss columns: %v", header)
	}

	ingestedAt := now.Format(time.RFC3339)
	var records []model.EPSSScore
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading EPSS CSV row: %w", err)
		}
		if cveCol >= len(row) || epssCol >= len(row) {
			continue
		}

		cveID := strings.TrimSpace(row[cveCol])
		if cveID == "" {
			continue
		}
		score := util.ToFloat64(strings.TrimSpace(row[epssCol]))
		if score == nil {
			continue
		}

		rec := model.EPSSScore{
			CveID:      cveID,
			EPSSDate:   scoreDate,
			EPSSScore:  *score,
			IngestedAt: ingestedAt,
		}
		if pctCol >= 0 && pctCol < len(row) {
			rec.Percentile = util.ToFloat64(strings.TrimSpace(row[pctCol]))
		}
		source, _ := json.Marshal(map[string]interface{}{
			"cve": cveID, "epss": row[epssCol], "percentile": percentileField(row, pctCol),
		})
		rec.SourceJSON = string(source)

		records = append(records, rec)
	}
	return records, nil
}

func percentileField(row []string, pctCol int) string {
	if pctCol >= 0 && pctCol < len(row) {
		return row[pctCol]
	}
	return ""
}

// parseScoreDate extracts the day out of a header comment like
// "#model_version:v2025.03.14,score_date:2026-08-28T00:00:00+0000".
func parseScoreDate(comment string) string {
	idx := strings.Index(comment, "score_date:")
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(comment[idx+len("score_date:"):])
	if end := strings.IndexAny(rest, ",\r\n"); end >= 0 {
		rest = rest[:end]
	}
	if len(rest) >= 10 {
		day := rest[:10]
		if _, err := time.Parse("2006-01-02", day); err == nil {
			return day
		}
	}
	return ""
}
