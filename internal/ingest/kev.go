package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/internal/config"
	"github.com/vulnmgt/riskboard-backend/model"
)

const maxKEVResponseSize = 50 * 1024 * 1024 // 50 MB

// kevCatalog matches the CISA catalog JSON envelope.
type kevCatalog struct {
	CatalogVersion  string     `json:"catalogVersion"`
	Count           int        `json:"count"`
	Vulnerabilities []kevEntry `json:"vulnerabilities"`
}

type kevEntry struct {
	CVEID         string `json:"cveID"`
	VendorProject string `json:"vendorProject"`
	Product       string `json:"product"`
	DateAdded     string `json:"dateAdded"`
	DueDate       string `json:"dueDate"`
}

// RunKEVIngest downloads the exploited-vulnerabilities catalog and upserts
// it into raw_kev keyed on cve_id. Catalog entries replace prior rows for
// the same vulnerability wholesale; removed catalog entries are kept.
func RunKEVIngest(ctx context.Context, conn database.DBConnection, cfg config.Feeds) (Result, error) {
	data, err := downloadKEV(ctx, cfg)
	if err != nil {
		return Result{}, err
	}

	records, err := ParseKEVCatalog(data, time.Now())
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return Result{}, fmt.Errorf("KEV catalog contained no vulnerabilities")
	}

	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = r
	}

	res, err := upsertBatch(ctx, conn, database.CollectionRawKEV, []string{"cve_id"}, docs)
	if err != nil {
		return res, err
	}

	if err := database.SaveLastRun(ctx, conn, "kev", time.Now()); err != nil {
		return res, fmt.Errorf("recording KEV run: %w", err)
	}

	logger.Sugar().Infof("KEV ingest: %d inserted, %d updated (%d catalog entries)", res.Inserted, res.Updated, len(records))
	return res, nil
}

// ParseKEVCatalog normalizes the catalog JSON into raw_kev rows. Entries
// without a CVE id are skipped.
func ParseKEVCatalog(data []byte, now time.Time) ([]model.KEVRecord, error) {
	var catalog kevCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("unmarshaling KEV catalog: %w", err)
	}

	ingestedAt := now.Format(time.RFC3339)
	records := make([]model.KEVRecord, 0, len(catalog.Vulnerabilities))
	for _, vuln := range catalog.Vulnerabilities {
		if vuln.CVEID == "" {
			continue
		}
		source, _ := json.Marshal(vuln)
		records = append(records, model.KEVRecord{
			CveID:      vuln.CVEID,
			Vendor:     vuln.VendorProject,
			Product:    vuln.Product,
			DateAdded:  vuln.DateAdded,
			DueDate:    vuln.DueDate,
			SourceJSON: string(source),
			IngestedAt: ingestedAt,
		})
	}
	return records, nil
}

// downloadKEV tries the primary catalog URL and falls back to the GitHub
// mirror when the primary is unreachable.
func downloadKEV(ctx context.Context, cfg config.Feeds) ([]byte, error) {
	data, err := fetchURL(ctx, cfg.KEVURL, maxKEVResponseSize)
	if err == nil {
		return data, nil
	}

	if cfg.KEVFallbackURL == "" {
		return nil, fmt.Errorf("downloading KEV catalog (%s): %w", cfg.KEVURL, err)
	}

	logger.Sugar().Warnf("KEV primary URL failed (%v), trying fallback", err)
	data, err2 := fetchURL(ctx, cfg.KEVFallbackURL, maxKEVResponseSize)
	if err2 == nil {
		return data, nil
	}

	return nil, fmt.Errorf("primary (%s): %w; fallback (%s): %v", cfg.KEVURL, err, cfg.KEVFallbackURL, err2)
}

func fetchURL(ctx context.Context, url string, maxSize int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}
