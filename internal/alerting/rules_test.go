package alerting

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnmgt/riskboard-backend/model"
	"github.com/vulnmgt/riskboard-backend/util"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func alertsOfType(alerts []model.Alert, alertType string) []model.Alert {
	var out []model.Alert
	for _, a := range alerts {
		if a.AlertType == alertType {
			out = append(out, a)
		}
	}
	return out
}

func TestEvaluateRules_HighRiskThresholdIsInclusive(t *testing.T) {
	cves := []model.CVEDailySnapshot{
		{CveID: "CVE-1", Severity: "HIGH", RiskScore: util.Float64Ptr(8.0)},
		{CveID: "CVE-2", Severity: "HIGH", RiskScore: util.Float64Ptr(7.999999)},
		{CveID: "CVE-3", Severity: "CRITICAL", RiskScore: util.Float64Ptr(9.5)},
		{CveID: "CVE-4", Severity: "HIGH"},
	}

	got := alertsOfType(EvaluateRules(testNow, cves, nil), model.AlertHighRiskCVE)
	require.Len(t, got, 2)

	// ordered by risk score descending
	assert.Equal(t, "CVE-3", got[0].Scope)
	assert.Equal(t, "CVE-1", got[1].Scope)
	assert.Equal(t, model.SeverityHigh, got[0].Severity)
	assert.InDelta(t, 9.5, got[0].MetricValue, 1e-9)
	assert.Equal(t, "High risk vulnerability detected: CVE-3 (Risk Score: 9.50, Severity: CRITICAL, KEV: false)", got[0].Message)
}

func TestEvaluateRules_HighRiskCapped(t *testing.T) {
	var cves []model.CVEDailySnapshot
	for i := 0; i < 120; i++ {
		cves = append(cves, model.CVEDailySnapshot{
			CveID:     fmt.Sprintf("CVE-2024-%04d", i),
			RiskScore: util.Float64Ptr(8.0 + float64(i)*0.01),
		})
	}

	got := alertsOfType(EvaluateRules(testNow, cves, nil), model.AlertHighRiskCVE)
	require.Len(t, got, 100)

	// the cap keeps the highest scores
	assert.Equal(t, "CVE-2024-0119", got[0].Scope)
	assert.Equal(t, "CVE-2024-0020", got[99].Scope)
}

func TestEvaluateRules_KEVUncappedAndNullRiskLast(t *testing.T) {
	var cves []model.CVEDailySnapshot
	for i := 0; i < 150; i++ {
		cves = append(cves, model.CVEDailySnapshot{
			CveID:     fmt.Sprintf("CVE-2024-%04d", i),
			Severity:  "HIGH",
			IsKEV:     true,
			RiskScore: util.Float64Ptr(5.0 + float64(i)*0.01),
		})
	}
	cves = append(cves, model.CVEDailySnapshot{CveID: "CVE-2024-9999", Severity: "HIGH", IsKEV: true})

	got := alertsOfType(EvaluateRules(testNow, cves, nil), model.AlertKEV)
	require.Len(t, got, 151)

	last := got[150]
	assert.Equal(t, "CVE-2024-9999", last.Scope)
	assert.Zero(t, last.MetricValue)
	assert.Equal(t, "Known Exploited Vulnerability: CVE-2024-9999 (Risk Score: 0.00, Severity: HIGH)", last.Message)

	for _, a := range got {
		assert.Equal(t, model.SeverityCritical, a.Severity)
	}
}

func TestEvaluateRules_KEVScopeCarriesProductWhenKnown(t *testing.T) {
	cves := []model.CVEDailySnapshot{
		{CveID: "CVE-1", Severity: "HIGH", IsKEV: true, Vendor: "Acme", Product: "Widget", RiskScore: util.Float64Ptr(9.0)},
		{CveID: "CVE-2", Severity: "HIGH", IsKEV: true, RiskScore: util.Float64Ptr(8.0)},
	}

	got := alertsOfType(EvaluateRules(testNow, cves, nil), model.AlertKEV)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme/Widget - CVE-1", got[0].Scope)
	assert.Equal(t, "CVE-2", got[1].Scope)
}

func TestEvaluateRules_HighEPSS(t *testing.T) {
	cves := []model.CVEDailySnapshot{
		{CveID: "CVE-1", EPSSScore: util.Float64Ptr(0.75), RiskScore: util.Float64Ptr(6.0)},
		{CveID: "CVE-2", EPSSScore: util.Float64Ptr(0.7499)},
		{CveID: "CVE-3", EPSSScore: util.Float64Ptr(0.9532)},
		{CveID: "CVE-4"},
	}

	got := alertsOfType(EvaluateRules(testNow, cves, nil), model.AlertHighEPSS)
	require.Len(t, got, 2)

	assert.Equal(t, "CVE-3", got[0].Scope)
	assert.Equal(t, "High EPSS score: CVE-3 (EPSS: 0.9532, Risk Score: 0.00)", got[0].Message)
	assert.InDelta(t, 0.9532, got[0].MetricValue, 1e-9)

	assert.Equal(t, "CVE-1", got[1].Scope)
	assert.Equal(t, "High EPSS score: CVE-1 (EPSS: 0.7500, Risk Score: 6.00)", got[1].Message)
	assert.Equal(t, model.SeverityMedium, got[1].Severity)
}

func TestEvaluateRules_HighVulnCount(t *testing.T) {
	products := []model.ProductDailySnapshot{
		{Vendor: "Acme", Product: "Widget", OpenVulns: 50, KEVCount: 3, AvgRiskScore: util.Float64Ptr(4.2)},
		{Vendor: "Acme", Product: "Gadget", OpenVulns: 49},
		{Vendor: "Big", Product: "Platform", OpenVulns: 200, KEVCount: 12, AvgRiskScore: util.Float64Ptr(6.5)},
	}

	got := alertsOfType(EvaluateRules(testNow, nil, products), model.AlertHighVulnCount)
	require.Len(t, got, 2)

	assert.Equal(t, "Big/Platform", got[0].Scope)
	assert.Equal(t, "High vulnerability count: Big/Platform has 200 vulnerabilities (KEV: 12, Avg Risk: 6.50)", got[0].Message)
	assert.Equal(t, float64(200), got[0].MetricValue)

	assert.Equal(t, "Acme/Widget", got[1].Scope)
	assert.Equal(t, model.SeverityMedium, got[1].Severity)
}

func TestEvaluateRules_HighAvgRisk(t *testing.T) {
	products := []model.ProductDailySnapshot{
		{Vendor: "Acme", Product: "Widget", OpenVulns: 3, KEVCount: 1, AvgRiskScore: util.Float64Ptr(7.0)},
		{Vendor: "Acme", Product: "Gadget", OpenVulns: 5, AvgRiskScore: util.Float64Ptr(6.99)},
		{Vendor: "Acme", Product: "Empty", OpenVulns: 0, AvgRiskScore: util.Float64Ptr(9.0)},
		{Vendor: "Acme", Product: "Unscored", OpenVulns: 4},
	}

	got := alertsOfType(EvaluateRules(testNow, nil, products), model.AlertHighAvgRisk)
	require.Len(t, got, 1)

	assert.Equal(t, "Acme/Widget", got[0].Scope)
	assert.Equal(t, "High average risk score: Acme/Widget has avg risk 7.00 (3 vulns, 1 KEV)", got[0].Message)
	assert.Equal(t, model.SeverityHigh, got[0].Severity)
	assert.InDelta(t, 7.0, got[0].MetricValue, 1e-9)
}

func TestEvaluateRules_ProductRulesCapped(t *testing.T) {
	var products []model.ProductDailySnapshot
	for i := 0; i < 30; i++ {
		products = append(products, model.ProductDailySnapshot{
			Vendor:       "Acme",
			Product:      fmt.Sprintf("app-%02d", i),
			OpenVulns:    60 + i,
			AvgRiskScore: util.Float64Ptr(7.5),
		})
	}

	alerts := EvaluateRules(testNow, nil, products)
	assert.Len(t, alertsOfType(alerts, model.AlertHighVulnCount), 20)
	assert.Len(t, alertsOfType(alerts, model.AlertHighAvgRisk), 20)
}

func TestEvaluateRules_TimestampAndEmptyInput(t *testing.T) {
	assert.Empty(t, EvaluateRules(testNow, nil, nil))

	cves := []model.CVEDailySnapshot{{CveID: "CVE-1", RiskScore: util.Float64Ptr(9.0)}}
	got := EvaluateRules(testNow, cves, nil)
	require.NotEmpty(t, got)
	assert.Equal(t, testNow.Format(time.RFC3339), got[0].CreatedAt)
}

func TestEvaluateRules_OneRowCanFireMultipleRules(t *testing.T) {
	cves := []model.CVEDailySnapshot{
		{CveID: "CVE-1", Severity: "CRITICAL", IsKEV: true,
			EPSSScore: util.Float64Ptr(0.9), RiskScore: util.Float64Ptr(9.9)},
	}

	alerts := EvaluateRules(testNow, cves, nil)
	assert.Len(t, alerts, 3)
	assert.Len(t, alertsOfType(alerts, model.AlertHighRiskCVE), 1)
	assert.Len(t, alertsOfType(alerts, model.AlertKEV), 1)
	assert.Len(t, alertsOfType(alerts, model.AlertHighEPSS), 1)
}
