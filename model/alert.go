package model

// Alert kinds emitted by the rule evaluator.
const (
	AlertHighRiskCVE   = "high_risk_cve"
	AlertKEV           = "kev_vulnerability"
	AlertHighEPSS      = "high_epss"
	AlertHighVulnCount = "high_vuln_count"
	AlertHighAvgRisk   = "high_avg_risk"
)

// Alert severity tiers.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is one emitted notice (alerts). No natural key: the same scope and
// kind may fire on different days. Same-day reruns delete by the date part
// of created_at before inserting.
type Alert struct {
	Key         string  `json:"_key,omitempty"`
	CreatedAt   string  `json:"created_at"` // RFC3339
	AlertType   string  `json:"alert_type"`
	Scope       string  `json:"scope"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"`
	MetricValue float64 `json:"metric_value"` // raw triggering metric for programmatic consumers
}
