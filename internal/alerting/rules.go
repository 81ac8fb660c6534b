// Package alerting scans one day's report rows against fixed threshold
// rules and rebuilds that day's alert set. The rule logic lives in a single
// pure evaluator so it can be tested without a store; persisting the result
// is a thin transactional step around it.
package alerting

import (
	"fmt"
	"sort"
	"time"

	"github.com/vulnmgt/riskboard-backend/model"
)

// Alert thresholds. Strict >= comparisons: a risk score of exactly 8.0
// qualifies, 7.999999 does not.
const (
	HighRiskScoreThreshold = 8.0
	HighEPSSThreshold      = 0.75
	HighVulnCountThreshold = 50
	HighAvgRiskThreshold   = 7.0
)

// Per-rule result caps. The KEV rule is uncapped.
const (
	maxHighRiskAlerts = 100
	maxHighEPSSAlerts = 50
	maxProductAlerts  = 20
)

// EvaluateRules applies the five alert rules to one day's snapshot and
// aggregate rows and returns the alerts to persist, in rule order. The
// inputs are read-only; callers own storage.
func EvaluateRules(now time.Time, cves []model.CVEDailySnapshot, products []model.ProductDailySnapshot) []model.Alert {
	createdAt := now.Format(time.RFC3339)
	var alerts []model.Alert

	alerts = append(alerts, highRiskAlerts(createdAt, cves)...)
	alerts = append(alerts, kevAlerts(createdAt, cves)...)
	alerts = append(alerts, highEPSSAlerts(createdAt, cves)...)
	alerts = append(alerts, highVulnCountAlerts(createdAt, products)...)
	alerts = append(alerts, highAvgRiskAlerts(createdAt, products)...)

	return alerts
}

// Rule 1: snapshot rows with risk_score >= 8.0, highest first, capped.
func highRiskAlerts(createdAt string, cves []model.CVEDailySnapshot) []model.Alert {
	var matched []model.CVEDailySnapshot
	for _, c := range cves {
		if c.RiskScore != nil && *c.RiskScore >= HighRiskScoreThreshold {
			matched = append(matched, c)
		}
	}
	sortByRiskDesc(matched)

	var alerts []model.Alert
	for _, c := range matched {
		if len(alerts) >= maxHighRiskAlerts {
			break
		}
		alerts = append(alerts, model.Alert{
			CreatedAt: createdAt,
			AlertType: model.AlertHighRiskCVE,
			Scope:     c.CveID,
			Message: fmt.Sprintf("High risk vulnerability detected: %s (Risk Score: %.2f, Severity: %s, KEV: %t)",
				c.CveID, *c.RiskScore, c.Severity, c.IsKEV),
			Severity:    model.SeverityHigh,
			MetricValue: *c.RiskScore,
		})
	}
	return alerts
}

// Rule 2: every exploited-catalog member, highest risk first, unscored rows
// last, uncapped.
func kevAlerts(createdAt string, cves []model.CVEDailySnapshot) []model.Alert {
	var matched []model.CVEDailySnapshot
	for _, c := range cves {
		if c.IsKEV {
			matched = append(matched, c)
		}
	}
	sortByRiskDesc(matched)

	var alerts []model.Alert
	for _, c := range matched {
		scope := c.CveID
		if c.Vendor != "" && c.Product != "" {
			scope = fmt.Sprintf("%s/%s - %s", c.Vendor, c.Product, c.CveID)
		}

		risk := 0.0
		if c.RiskScore != nil {
			risk = *c.RiskScore
		}

		alerts = append(alerts, model.Alert{
			CreatedAt: createdAt,
			AlertType: model.AlertKEV,
			Scope:     scope,
			Message: fmt.Sprintf("Known Exploited Vulnerability: %s (Risk Score: %.2f, Severity: %s)",
				c.CveID, risk, c.Severity),
			Severity:    model.SeverityCritical,
			MetricValue: risk,
		})
	}
	return alerts
}

// Rule 3: snapshot rows with exploit likelihood >= 0.75, highest first, capped.
func highEPSSAlerts(createdAt string, cves []model.CVEDailySnapshot) []model.Alert {
	var matched []model.CVEDailySnapshot
	for _, c := range cves {
		if c.EPSSScore != nil && *c.EPSSScore >= HighEPSSThreshold {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if *matched[i].EPSSScore != *matched[j].EPSSScore {
			return *matched[i].EPSSScore > *matched[j].EPSSScore
		}
		return matched[i].CveID < matched[j].CveID
	})

	var alerts []model.Alert
	for _, c := range matched {
		if len(alerts) >= maxHighEPSSAlerts {
			break
		}
		risk := 0.0
		if c.RiskScore != nil {
			risk = *c.RiskScore
		}
		alerts = append(alerts, model.Alert{
			CreatedAt: createdAt,
			AlertType: model.AlertHighEPSS,
			Scope:     c.CveID,
			Message: fmt.Sprintf("High EPSS score: %s (EPSS: %.4f, Risk Score: %.2f)",
				c.CveID, *c.EPSSScore, risk),
			Severity:    model.SeverityMedium,
			MetricValue: *c.EPSSScore,
		})
	}
	return alerts
}

// Rule 4: products with open_vulns >= 50, largest first, capped.
func highVulnCountAlerts(createdAt string, products []model.ProductDailySnapshot) []model.Alert {
	var matched []model.ProductDailySnapshot
	for _, p := range products {
		if p.OpenVulns >= HighVulnCountThreshold {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OpenVulns != matched[j].OpenVulns {
			return matched[i].OpenVulns > matched[j].OpenVulns
		}
		return productScope(matched[i]) < productScope(matched[j])
	})

	var alerts []model.Alert
	for _, p := range matched {
		if len(alerts) >= maxProductAlerts {
			break
		}
		avgRisk := 0.0
		if p.AvgRiskScore != nil {
			avgRisk = *p.AvgRiskScore
		}
		alerts = append(alerts, model.Alert{
			CreatedAt: createdAt,
			AlertType: model.AlertHighVulnCount,
			Scope:     productScope(p),
			Message: fmt.Sprintf("High vulnerability count: %s/%s has %d vulnerabilities (KEV: %d, Avg Risk: %.2f)",
				p.Vendor, p.Product, p.OpenVulns, p.KEVCount, avgRisk),
			Severity:    model.SeverityMedium,
			MetricValue: float64(p.OpenVulns),
		})
	}
	return alerts
}

// Rule 5: products with avg_risk_score >= 7.0 and at least one open
// vulnerability, highest average first, capped.
func highAvgRiskAlerts(createdAt string, products []model.ProductDailySnapshot) []model.Alert {
	var matched []model.ProductDailySnapshot
	for _, p := range products {
		if p.AvgRiskScore != nil && *p.AvgRiskScore >= HighAvgRiskThreshold && p.OpenVulns > 0 {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if *matched[i].AvgRiskScore != *matched[j].AvgRiskScore {
			return *matched[i].AvgRiskScore > *matched[j].AvgRiskScore
		}
		return productScope(matched[i]) < productScope(matched[j])
	})

	var alerts []model.Alert
	for _, p := range matched {
		if len(alerts) >= maxProductAlerts {
			break
		}
		alerts = append(alerts, model.Alert{
			CreatedAt: createdAt,
			AlertType: model.AlertHighAvgRisk,
			Scope:     productScope(p),
			Message: fmt.Sprintf("High average risk score: %s/%s has avg risk %.2f (%d vulns, %d KEV)",
				p.Vendor, p.Product, *p.AvgRiskScore, p.OpenVulns, p.KEVCount),
			Severity:    model.SeverityHigh,
			MetricValue: *p.AvgRiskScore,
		})
	}
	return alerts
}

func productScope(p model.ProductDailySnapshot) string {
	return p.Vendor + "/" + p.Product
}

// sortByRiskDesc orders rows by risk score descending with unscored rows
// last; ties break on cve_id for a deterministic alert order.
func sortByRiskDesc(rows []model.CVEDailySnapshot) {
	sort.Slice(rows, func(i, j int) bool {
		ri, rj := rows[i].RiskScore, rows[j].RiskScore
		switch {
		case ri != nil && rj != nil:
			if *ri != *rj {
				return *ri > *rj
			}
		case ri != nil:
			return true
		case rj != nil:
			return false
		}
		return rows[i].CveID < rows[j].CveID
	})
}
