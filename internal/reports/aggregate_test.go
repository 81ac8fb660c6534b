package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnmgt/riskboard-backend/model"
	"github.com/vulnmgt/riskboard-backend/util"
)

func TestAggregateProducts_Grouping(t *testing.T) {
	rows := []model.CVEDailySnapshot{
		{CveID: "CVE-1", Severity: "CRITICAL", IsKEV: true, Vendor: "Acme", Product: "Widget",
			EPSSScore: util.Float64Ptr(0.8), RiskScore: util.Float64Ptr(9.0)},
		{CveID: "CVE-2", Severity: "high", Vendor: "Acme", Product: "Widget",
			EPSSScore: util.Float64Ptr(0.2), RiskScore: util.Float64Ptr(5.0)},
		{CveID: "CVE-3", Severity: "LOW", Vendor: "Acme", Product: "Gadget"},
	}

	out := AggregateProducts("2026-08-28", rows)
	require.Len(t, out, 2)

	// sorted vendor then product
	gadget, widget := out[0], out[1]
	assert.Equal(t, "Gadget", gadget.Product)
	assert.Equal(t, "Widget", widget.Product)

	assert.Equal(t, 2, widget.OpenVulns)
	// severity matching is case-insensitive
	assert.Equal(t, 2, widget.HighCritCount)
	assert.Equal(t, 1, widget.KEVCount)
	require.NotNil(t, widget.AvgEPSS)
	assert.InDelta(t, 0.5, *widget.AvgEPSS, 1e-9)
	require.NotNil(t, widget.AvgRiskScore)
	assert.InDelta(t, 7.0, *widget.AvgRiskScore, 1e-9)

	assert.Equal(t, 1, gadget.OpenVulns)
	assert.Equal(t, 0, gadget.HighCritCount)
	assert.Equal(t, 0, gadget.KEVCount)
	assert.Nil(t, gadget.AvgEPSS)
	assert.Nil(t, gadget.AvgRiskScore)
}

func TestAggregateProducts_NullsExcludedFromMeans(t *testing.T) {
	// the mean divides by the number of known values, not the row count
	rows := []model.CVEDailySnapshot{
		{CveID: "CVE-1", Vendor: "Acme", Product: "Widget", RiskScore: util.Float64Ptr(8.0)},
		{CveID: "CVE-2", Vendor: "Acme", Product: "Widget"},
		{CveID: "CVE-3", Vendor: "Acme", Product: "Widget"},
	}

	out := AggregateProducts("2026-08-28", rows)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].AvgRiskScore)
	assert.InDelta(t, 8.0, *out[0].AvgRiskScore, 1e-9)
	assert.Equal(t, 3, out[0].OpenVulns)
}

func TestAggregateProducts_UnknownSentinel(t *testing.T) {
	rows := []model.CVEDailySnapshot{
		{CveID: "CVE-1"},
		{CveID: "CVE-2", Vendor: "Acme"},
		{CveID: "CVE-3"},
	}

	out := AggregateProducts("2026-08-28", rows)
	require.Len(t, out, 2)

	assert.Equal(t, "Acme", out[0].Vendor)
	assert.Equal(t, UnknownProduct, out[0].Product)
	assert.Equal(t, 1, out[0].OpenVulns)

	assert.Equal(t, UnknownProduct, out[1].Vendor)
	assert.Equal(t, UnknownProduct, out[1].Product)
	assert.Equal(t, 2, out[1].OpenVulns)
}

func TestAggregateProducts_Empty(t *testing.T) {
	assert.Empty(t, AggregateProducts("2026-08-28", nil))
}
