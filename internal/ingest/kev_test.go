package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKEVJSON = `{
  "catalogVersion": "2026.08.27",
  "count": 2,
  "vulnerabilities": [
    {
      "cveID": "CVE-2024-1234",
      "vendorProject": "ExampleVendor",
      "product": "ExampleProduct",
      "vulnerabilityName": "Example Vulnerability",
      "dateAdded": "2024-01-15",
      "shortDescription": "An example vulnerability.",
      "requiredAction": "Apply updates per vendor instructions.",
      "dueDate": "2024-02-05"
    },
    {
      "cveID": "CVE-2023-5678",
      "vendorProject": "AnotherVendor",
      "product": "AnotherProduct",
      "dateAdded": "2023-06-01",
      "dueDate": "2023-06-22"
    },
    {
      "vendorProject": "NoID",
      "product": "Skipped"
    }
  ]
}`

func TestParseKEVCatalog(t *testing.T) {
	now := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	records, err := ParseKEVCatalog([]byte(sampleKEVJSON), now)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "CVE-2024-1234", first.CveID)
	assert.Equal(t, "ExampleVendor", first.Vendor)
	assert.Equal(t, "ExampleProduct", first.Product)
	assert.Equal(t, "2024-01-15", first.DateAdded)
	assert.Equal(t, "2024-02-05", first.DueDate)
	assert.Equal(t, now.Format(time.RFC3339), first.IngestedAt)
	assert.NotEmpty(t, first.SourceJSON)

	assert.Equal(t, "CVE-2023-5678", records[1].CveID)
}

func TestParseKEVCatalog_InvalidJSON(t *testing.T) {
	_, err := ParseKEVCatalog([]byte("{not json"), time.Now())
	assert.Error(t, err)
}
