// Package dashboard defines the GraphQL types for the risk dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"
)

// RiskOverviewType represents the high-level metrics for the top cards
var RiskOverviewType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RiskOverview",
	Fields: graphql.Fields{
		"as_of_date":     &graphql.Field{Type: graphql.String},
		"total_cves":     &graphql.Field{Type: graphql.Int},
		"kev_count":      &graphql.Field{Type: graphql.Int},
		"avg_risk_score": &graphql.Field{Type: graphql.Float},
		"max_risk_score": &graphql.Field{Type: graphql.Float},
	},
})

// SeverityDistributionType represents the data for the pie/bar charts
var SeverityDistributionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SeverityDistribution",
	Fields: graphql.Fields{
		"critical": &graphql.Field{Type: graphql.Int},
		"high":     &graphql.Field{Type: graphql.Int},
		"medium":   &graphql.Field{Type: graphql.Int},
		"low":      &graphql.Field{Type: graphql.Int},
		"unknown":  &graphql.Field{Type: graphql.Int},
	},
})

// RiskyCVEType represents rows for the "Top Risk" table
var RiskyCVEType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RiskyCVE",
	Fields: graphql.Fields{
		"cve_id":     &graphql.Field{Type: graphql.String},
		"severity":   &graphql.Field{Type: graphql.String},
		"base_score": &graphql.Field{Type: graphql.Float},
		"is_kev":     &graphql.Field{Type: graphql.Boolean},
		"epss_score": &graphql.Field{Type: graphql.Float},
		"risk_score": &graphql.Field{Type: graphql.Float},
	},
})

// ProductSummaryType represents one product row of the posture table
var ProductSummaryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ProductSummary",
	Fields: graphql.Fields{
		"vendor":          &graphql.Field{Type: graphql.String},
		"product":         &graphql.Field{Type: graphql.String},
		"open_vulns":      &graphql.Field{Type: graphql.Int},
		"high_crit_count": &graphql.Field{Type: graphql.Int},
		"kev_count":       &graphql.Field{Type: graphql.Int},
		"avg_epss":        &graphql.Field{Type: graphql.Float},
		"avg_risk_score":  &graphql.Field{Type: graphql.Float},
	},
})

// RiskTrendPointType represents one day of the risk trend line
var RiskTrendPointType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RiskTrendPoint",
	Fields: graphql.Fields{
		"date":           &graphql.Field{Type: graphql.String},
		"total_cves":     &graphql.Field{Type: graphql.Int},
		"kev_count":      &graphql.Field{Type: graphql.Int},
		"avg_risk_score": &graphql.Field{Type: graphql.Float},
	},
})

// AlertType represents one emitted alert
var AlertType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Alert",
	Fields: graphql.Fields{
		"created_at":   &graphql.Field{Type: graphql.String},
		"alert_type":   &graphql.Field{Type: graphql.String},
		"scope":        &graphql.Field{Type: graphql.String},
		"message":      &graphql.Field{Type: graphql.String},
		"severity":     &graphql.Field{Type: graphql.String},
		"metric_value": &graphql.Field{Type: graphql.Float},
	},
})
