package model

// KEVRecord is one entry of the actively-exploited catalog (raw_kev).
// Presence of a row means the vulnerability is confirmed exploited in the
// wild; the row also carries the vendor/product attribution used by the
// product aggregation.
type KEVRecord struct {
	Key        string `json:"_key,omitempty"`
	CveID      string `json:"cve_id"`
	Vendor     string `json:"vendor"`
	Product    string `json:"product"`
	DateAdded  string `json:"date_added,omitempty"` // YYYY-MM-DD
	DueDate    string `json:"due_date,omitempty"`   // YYYY-MM-DD
	SourceJSON string `json:"source_json,omitempty"`
	IngestedAt string `json:"ingested_at"`
}
