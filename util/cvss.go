package util

import (
	"strings"

	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
)

// CalculateCVSSScore calculates the CVSS base score from a vector string.
// CVSS v2 vectors have no "CVSS:" prefix, which is how NVD serves them.
func CalculateCVSSScore(vectorStr string) float64 {
	if vectorStr == "" {
		return 0
	}
	if strings.HasPrefix(vectorStr, "CVSS:3.1") || strings.HasPrefix(vectorStr, "CVSS:3.0") {
		if cvss31, err := gocvss31.ParseVector(vectorStr); err == nil {
			return cvss31.BaseScore()
		}
		return 0
	}
	if strings.HasPrefix(vectorStr, "CVSS:4.0") {
		if cvss40, err := gocvss40.ParseVector(vectorStr); err == nil {
			return cvss40.Score()
		}
		return 0
	}
	if !strings.HasPrefix(vectorStr, "CVSS:") {
		if cvss20, err := gocvss20.ParseVector(vectorStr); err == nil {
			return cvss20.BaseScore()
		}
	}
	return 0
}

// SeverityFromScore maps a CVSS base score to the standard rating buckets.
// Used when a feed supplies a numeric score without a severity string
// (CVSS v2 metrics carry no baseSeverity).
func SeverityFromScore(score float64) string {
	switch {
	case score >= 9.0:
		return "CRITICAL"
	case score >= 7.0:
		return "HIGH"
	case score >= 4.0:
		return "MEDIUM"
	case score > 0:
		return "LOW"
	default:
		return ""
	}
}

// NormalizeSeverity upper-cases a feed severity string and collapses
// unknown values to empty
func NormalizeSeverity(severity string) string {
	s := strings.ToUpper(strings.TrimSpace(severity))
	switch s {
	case "CRITICAL", "HIGH", "MEDIUM", "LOW", "NONE":
		return s
	default:
		return ""
	}
}
