// Package model defines the persisted document types for the risk pipeline.
package model

// CVERecord is one disclosed vulnerability from the severity feed (raw_cve)
type CVERecord struct {
	Key           string   `json:"_key,omitempty"`
	CveID         string   `json:"cve_id"`         // e.g., "CVE-2024-1234"
	Severity      string   `json:"severity"`       // e.g., "CRITICAL", empty when the feed has none
	BaseScore     *float64 `json:"base_score"`     // CVSS base score 0-10, null when unknown
	PublishedDate string   `json:"published_date"` // YYYY-MM-DD, empty when unknown
	Description   string   `json:"description,omitempty"`
	SourceJSON    string   `json:"source_json,omitempty"`
	IngestedAt    string   `json:"ingested_at"`
}
