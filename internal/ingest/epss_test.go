package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEPSSCSV = `#model_version:v2025.03.14,score_date:2026-08-27T00:00:00+0000
cve,epss,percentile
CVE-2024-0001,0.97231,0.99954
CVE-2024-0002,0.00042,0.05120
CVE-2024-0003,not-a-number,0.5
,0.5,0.5
`

func TestParseEPSSCSV(t *testing.T) {
	now := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	records, err := ParseEPSSCSV(strings.NewReader(sampleEPSSCSV), now)
	require.NoError(t, err)
	// the unparseable-score row and the empty-id row are skipped
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "CVE-2024-0001", first.CveID)
	// the day comes from the score_date comment, not the run time
	assert.Equal(t, "2026-08-27", first.EPSSDate)
	assert.InDelta(t, 0.97231, first.EPSSScore, 1e-9)
	require.NotNil(t, first.Percentile)
	assert.InDelta(t, 0.99954, *first.Percentile, 1e-9)
	assert.Equal(t, now.Format(time.RFC3339), first.IngestedAt)
}

func TestParseEPSSCSV_NoCommentHeader(t *testing.T) {
	now := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	csv := "cve,epss,percentile\nCVE-2024-0001,0.5,0.8\n"

	records, err := ParseEPSSCSV(strings.NewReader(csv), now)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2026-08-28", records[0].EPSSDate)
}

func TestParseEPSSCSV_MissingPercentileColumn(t *testing.T) {
	csv := "cve,epss\nCVE-2024-0001,0.5\n"

	records, err := ParseEPSSCSV(strings.NewReader(csv), time.Now())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Percentile)
}

func TestParseEPSSCSV_BadHeader(t *testing.T) {
	_, err := ParseEPSSCSV(strings.NewReader("foo,bar\n1,2\n"), time.Now())
	assert.Error(t, err)
}

func TestParseScoreDate(t *testing.T) {
	assert.Equal(t, "2026-08-27", parseScoreDate("#model_version:v2025.03.14,score_date:2026-08-27T00:00:00+0000"))
	assert.Equal(t, "", parseScoreDate("#model_version:v2025.03.14"))
	assert.Equal(t, "", parseScoreDate("#score_date:garbage"))
}
