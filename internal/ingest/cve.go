package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/internal/config"
	"github.com/vulnmgt/riskboard-backend/model"
	"github.com/vulnmgt/riskboard-backend/util"
)

// NVD caps publication-date queries at 120 days and pages at 2000 results.
const (
	nvdMaxWindowDays  = 120
	nvdResultsPerPage = 2000
)

// Without an API key NVD allows 5 requests per rolling 30 seconds; with one,
// 50. The delays keep a sequential fetch inside those limits.
const (
	nvdDelayNoKey   = 6500 * time.Millisecond
	nvdDelayWithKey = 700 * time.Millisecond
)

type nvdResponse struct {
	ResultsPerPage  int       `json:"resultsPerPage"`
	StartIndex      int       `json:"startIndex"`
	TotalResults    int       `json:"totalResults"`
	Vulnerabilities []nvdVuln `json:"vulnerabilities"`
}

type nvdVuln struct {
	CVE nvdCVE `json:"cve"`
}

type nvdCVE struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics nvdMetrics `json:"metrics"`
}

type nvdMetrics struct {
	CVSSMetricV31 []nvdMetric `json:"cvssMetricV31"`
	CVSSMetricV30 []nvdMetric `json:"cvssMetricV30"`
	CVSSMetricV2  []nvdMetric `json:"cvssMetricV2"`
}

type nvdMetric struct {
	CVSSData struct {
		VectorString string   `json:"vectorString"`
		BaseScore    *float64 `json:"baseScore"`
		BaseSeverity string   `json:"baseSeverity"`
	} `json:"cvssData"`
}

// RunCVEIngest pulls vulnerabilities published since the last successful
// run (the full cfg.NVDDaysBack lookback on first run) from the NVD API and
// upserts them into raw_cve keyed on cve_id. The window ends at yesterday
// because today's publications are still settling upstream. Queries are
// split into 120-day chunks and paged within each.
func RunCVEIngest(ctx context.Context, conn database.DBConnection, cfg config.Feeds) (Result, error) {
	now := time.Now()

	lastRun, err := database.GetLastRun(ctx, conn, "cve")
	if err != nil {
		lastRun = time.Time{}
	}
	startDate, endDate := cveWindow(lastRun, now, cfg.NVDDaysBack)

	var vulns []nvdVuln
	currentEnd := endDate
	for currentEnd.After(startDate) {
		chunkStart := currentEnd.AddDate(0, 0, -nvdMaxWindowDays)
		if chunkStart.Before(startDate) {
			chunkStart = startDate
		}

		chunk, err := fetchNVDWindow(ctx, cfg, chunkStart, currentEnd)
		if err != nil {
			return Result{}, err
		}
		vulns = append(vulns, chunk...)

		// overlap windows by one day so boundary publications are not lost
		currentEnd = chunkStart.AddDate(0, 0, -1)
		if currentEnd.After(startDate) {
			if err := rateLimitSleep(ctx, cfg); err != nil {
				return Result{}, err
			}
		}
	}

	records := NormalizeCVEs(vulns, now)
	if len(records) == 0 {
		logger.Sugar().Infof("CVE ingest: no vulnerabilities in window %s..%s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
		return Result{}, nil
	}

	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = r
	}

	res, err := upsertBatch(ctx, conn, database.CollectionRawCVE, []string{"cve_id"}, docs)
	if err != nil {
		return res, err
	}

	if err := database.SaveLastRun(ctx, conn, "cve", now); err != nil {
		return res, fmt.Errorf("recording CVE run: %w", err)
	}

	logger.Sugar().Infof("CVE ingest: %d inserted, %d updated (%d fetched)", res.Inserted, res.Updated, len(records))
	return res, nil
}

// cveWindow bounds the publication-date query. First run: the full daysBack
// lookback ending yesterday. Later runs: from one day before the last
// successful run (the overlap absorbs late upstream publications), never
// wider than the lookback.
func cveWindow(lastRun, now time.Time, daysBack int) (time.Time, time.Time) {
	if daysBack <= 0 {
		daysBack = 365
	}

	end := now.AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -daysBack)
	if !lastRun.IsZero() {
		if since := lastRun.AddDate(0, 0, -1); since.After(start) {
			start = since
		}
	}
	return start, end
}

// fetchNVDWindow pages through one publication-date window.
func fetchNVDWindow(ctx context.Context, cfg config.Feeds, start, end time.Time) ([]nvdVuln, error) {
	var vulns []nvdVuln
	startIndex := 0

	for {
		if startIndex > 0 {
			if err := rateLimitSleep(ctx, cfg); err != nil {
				return nil, err
			}
		}

		page, err := fetchNVDPage(ctx, cfg, start, end, startIndex)
		if err != nil {
			return nil, err
		}
		vulns = append(vulns, page.Vulnerabilities...)

		if len(page.Vulnerabilities) == 0 || startIndex+len(page.Vulnerabilities) >= page.TotalResults {
			return vulns, nil
		}
		startIndex += nvdResultsPerPage
	}
}

func fetchNVDPage(ctx context.Context, cfg config.Feeds, start, end time.Time, startIndex int) (*nvdResponse, error) {
	params := url.Values{}
	params.Set("pubStartDate", start.Format("2006-01-02")+"T00:00:00.000Z")
	params.Set("pubEndDate", end.Format("2006-01-02")+"T23:59:59.999Z")
	params.Set("resultsPerPage", strconv.Itoa(nvdResultsPerPage))
	params.Set("startIndex", strconv.Itoa(startIndex))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.NVDAPIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if cfg.NVDAPIKey != "" {
		req.Header.Set("apiKey", cfg.NVDAPIKey)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NVD request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NVD API returned HTTP %d for %s..%s (startIndex %d)",
			resp.StatusCode, start.Format("2006-01-02"), end.Format("2006-01-02"), startIndex)
	}

	var page nvdResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding NVD response: %w", err)
	}
	return &page, nil
}

func rateLimitSleep(ctx context.Context, cfg config.Feeds) error {
	delay := nvdDelayNoKey
	if cfg.NVDAPIKey != "" {
		delay = nvdDelayWithKey
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// NormalizeCVEs flattens NVD items into raw_cve rows. Metric preference is
// v3.1, then v3.0, then v2; v2 metrics carry no severity string, so it is
// derived from the score. A metric with a vector but no score is scored
// from the vector.
func NormalizeCVEs(vulns []nvdVuln, now time.Time) []model.CVERecord {
	ingestedAt := now.Format(time.RFC3339)

	records := make([]model.CVERecord, 0, len(vulns))
	for _, v := range vulns {
		cve := v.CVE
		if cve.ID == "" {
			continue
		}

		rec := model.CVERecord{
			CveID:      cve.ID,
			IngestedAt: ingestedAt,
		}

		if cve.Published != "" {
			if ts, err := time.Parse("2006-01-02T15:04:05.000", cve.Published); err == nil {
				rec.PublishedDate = ts.Format("2006-01-02")
			} else if ts, err := time.Parse(time.RFC3339, cve.Published); err == nil {
				rec.PublishedDate = ts.Format("2006-01-02")
			}
		}

		if m, fromV2 := pickMetric(cve.Metrics); m != nil {
			score := m.CVSSData.BaseScore
			if score == nil && m.CVSSData.VectorString != "" {
				if s := util.CalculateCVSSScore(m.CVSSData.VectorString); s > 0 {
					score = &s
				}
			}
			rec.BaseScore = score

			if fromV2 {
				if score != nil {
					rec.Severity = util.SeverityFromScore(*score)
				}
			} else {
				rec.Severity = util.NormalizeSeverity(m.CVSSData.BaseSeverity)
			}
		}

		for _, desc := range cve.Descriptions {
			if desc.Lang == "en" {
				rec.Description = desc.Value
				break
			}
		}

		source, _ := json.Marshal(cve)
		rec.SourceJSON = string(source)

		records = append(records, rec)
	}
	return records
}

// pickMetric returns the preferred metric and whether it is a v2 metric.
func pickMetric(m nvdMetrics) (*nvdMetric, bool) {
	switch {
	case len(m.CVSSMetricV31) > 0:
		return &m.CVSSMetricV31[0], false
	case len(m.CVSSMetricV30) > 0:
		return &m.CVSSMetricV30[0], false
	case len(m.CVSSMetricV2) > 0:
		return &m.CVSSMetricV2[0], true
	default:
		return nil, false
	}
}
