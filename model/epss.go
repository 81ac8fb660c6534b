package model

// EPSSScore is one dated exploit-likelihood sample (raw_epss). Samples
// accumulate append-only over time; the natural key is (cve_id, epss_date).
type EPSSScore struct {
	Key        string   `json:"_key,omitempty"`
	CveID      string   `json:"cve_id"`
	EPSSDate   string   `json:"epss_date"`  // YYYY-MM-DD
	EPSSScore  float64  `json:"epss_score"` // probability 0-1
	Percentile *float64 `json:"percentile"`
	SourceJSON string   `json:"source_json,omitempty"`
	IngestedAt string   `json:"ingested_at"`
}
