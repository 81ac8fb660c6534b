package model

// CVEDailySnapshot is one scored vulnerability as of a day (report_cve_daily).
// Keyed (as_of_date, cve_id); the day's partition is rebuilt as a whole.
type CVEDailySnapshot struct {
	Key       string   `json:"_key,omitempty"`
	AsOfDate  string   `json:"as_of_date"` // YYYY-MM-DD
	CveID     string   `json:"cve_id"`
	Severity  string   `json:"severity"`
	BaseScore *float64 `json:"base_score"`
	IsKEV     bool     `json:"is_kev"`
	EPSSScore *float64 `json:"epss_score"`
	AgeDays   *int     `json:"age_days"`   // null when the publication date is unknown
	RiskScore *float64 `json:"risk_score"` // null until the scoring step runs
	Vendor    string   `json:"vendor"`     // empty unless supplied by the exploited catalog
	Product   string   `json:"product"`
}

// ProductDailySnapshot is the aggregated risk posture of one vendor/product
// as of a day (report_product_daily). Keyed (as_of_date, vendor, product);
// a pure function of the day's CVEDailySnapshot rows.
type ProductDailySnapshot struct {
	Key           string   `json:"_key,omitempty"`
	AsOfDate      string   `json:"as_of_date"`
	Vendor        string   `json:"vendor"`
	Product       string   `json:"product"`
	OpenVulns     int      `json:"open_vulns"`
	HighCritCount int      `json:"high_crit_count"`
	KEVCount      int      `json:"kev_count"`
	AvgEPSS       *float64 `json:"avg_epss"`       // mean over non-null likelihoods, null when none
	AvgRiskScore  *float64 `json:"avg_risk_score"` // mean over non-null risk scores, null when none
}
