package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnmgt/riskboard-backend/model"
	"github.com/vulnmgt/riskboard-backend/util"
)

func mustDay(t *testing.T, day string) time.Time {
	t.Helper()
	ts, err := time.Parse(DateLayout, day)
	require.NoError(t, err)
	return ts
}

func TestLatestEPSS_PicksMostRecentSample(t *testing.T) {
	samples := []model.EPSSScore{
		{CveID: "CVE-2024-0001", EPSSDate: "2026-08-01", EPSSScore: 0.10},
		{CveID: "CVE-2024-0001", EPSSDate: "2026-08-20", EPSSScore: 0.40},
		{CveID: "CVE-2024-0001", EPSSDate: "2026-08-10", EPSSScore: 0.25},
	}

	latest := LatestEPSS(samples, "2026-08-28")
	require.Contains(t, latest, "CVE-2024-0001")
	assert.Equal(t, "2026-08-20", latest["CVE-2024-0001"].EPSSDate)
	assert.InDelta(t, 0.40, latest["CVE-2024-0001"].EPSSScore, 1e-9)
}

func TestLatestEPSS_OrderIndependent(t *testing.T) {
	forward := []model.EPSSScore{
		{CveID: "CVE-2024-0001", EPSSDate: "2026-08-01", EPSSScore: 0.10},
		{CveID: "CVE-2024-0001", EPSSDate: "2026-08-20", EPSSScore: 0.40},
	}
	reversed := []model.EPSSScore{forward[1], forward[0]}

	assert.Equal(t, LatestEPSS(forward, "2026-08-28"), LatestEPSS(reversed, "2026-08-28"))
}

func TestLatestEPSS_ExcludesFutureSamples(t *testing.T) {
	samples := []model.EPSSScore{
		{CveID: "CVE-2024-0001", EPSSDate: "2026-08-10", EPSSScore: 0.10},
		{CveID: "CVE-2024-0001", EPSSDate: "2026-09-01", EPSSScore: 0.99},
		{CveID: "CVE-2024-0002", EPSSDate: "2026-09-01", EPSSScore: 0.50},
	}

	latest := LatestEPSS(samples, "2026-08-28")
	require.Contains(t, latest, "CVE-2024-0001")
	assert.Equal(t, "2026-08-10", latest["CVE-2024-0001"].EPSSDate)
	assert.NotContains(t, latest, "CVE-2024-0002")
}

func TestAgeDays(t *testing.T) {
	asOf := mustDay(t, "2026-08-28")

	age := AgeDays("2026-08-18", asOf)
	require.NotNil(t, age)
	assert.Equal(t, 10, *age)

	// same day
	age = AgeDays("2026-08-28", asOf)
	require.NotNil(t, age)
	assert.Equal(t, 0, *age)

	// published "in the future" clamps to zero instead of going negative
	age = AgeDays("2026-09-05", asOf)
	require.NotNil(t, age)
	assert.Equal(t, 0, *age)

	// unknown stays unknown
	assert.Nil(t, AgeDays("", asOf))
	assert.Nil(t, AgeDays("not-a-date", asOf))
}

func TestBuildSnapshotRows_JoinSemantics(t *testing.T) {
	asOf := mustDay(t, "2026-08-28")

	cves := []model.CVERecord{
		{CveID: "CVE-2024-0002", Severity: "HIGH", BaseScore: util.Float64Ptr(8.1), PublishedDate: "2026-08-01"},
		{CveID: "CVE-2024-0001", Severity: "CRITICAL", BaseScore: util.Float64Ptr(9.8), PublishedDate: "2026-07-01"},
		{CveID: "CVE-2024-0003", Severity: ""},
	}
	kev := []model.KEVRecord{
		{CveID: "CVE-2024-0001", Vendor: "ExampleVendor", Product: "ExampleProduct"},
		// catalog entry without a matching severity row must not create a snapshot row
		{CveID: "CVE-2020-9999", Vendor: "Other", Product: "Thing"},
	}
	epss := []model.EPSSScore{
		{CveID: "CVE-2024-0001", EPSSDate: "2026-08-27", EPSSScore: 0.93},
	}

	rows := BuildSnapshotRows(cves, kev, epss, asOf)
	require.Len(t, rows, 3)

	// sorted by cve_id
	assert.Equal(t, "CVE-2024-0001", rows[0].CveID)
	assert.Equal(t, "CVE-2024-0002", rows[1].CveID)
	assert.Equal(t, "CVE-2024-0003", rows[2].CveID)

	first := rows[0]
	assert.Equal(t, "2026-08-28", first.AsOfDate)
	assert.True(t, first.IsKEV)
	assert.Equal(t, "ExampleVendor", first.Vendor)
	assert.Equal(t, "ExampleProduct", first.Product)
	require.NotNil(t, first.EPSSScore)
	assert.InDelta(t, 0.93, *first.EPSSScore, 1e-9)
	require.NotNil(t, first.AgeDays)
	assert.Equal(t, 58, *first.AgeDays)
	assert.Nil(t, first.RiskScore)

	second := rows[1]
	assert.False(t, second.IsKEV)
	assert.Empty(t, second.Vendor)
	assert.Empty(t, second.Product)
	assert.Nil(t, second.EPSSScore)
	assert.Nil(t, second.RiskScore)

	// missing publication date stays null, not zero
	assert.Nil(t, rows[2].AgeDays)
	assert.Nil(t, rows[2].BaseScore)
}

func TestBuildSnapshotRows_Empty(t *testing.T) {
	rows := BuildSnapshotRows(nil, nil, nil, mustDay(t, "2026-08-28"))
	assert.Empty(t, rows)
}
