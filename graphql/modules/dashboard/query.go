// Package dashboard defines the GraphQL queries for the risk dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"
	"github.com/vulnmgt/riskboard-backend/database"
)

// GetQueryFields returns the dashboard queries to be mounted in the root schema
func GetQueryFields(db database.DBConnection) graphql.Fields {
	return graphql.Fields{
		// Section 1: Top Cards (Overview)
		"riskOverview": &graphql.Field{
			Type: RiskOverviewType,
			Args: graphql.FieldConfigArgument{
				"date": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				date := p.Args["date"].(string)
				return ResolveRiskOverview(db, date)
			},
		},
		// Section 2: Charts (Severity)
		"severityDistribution": &graphql.Field{
			Type: SeverityDistributionType,
			Args: graphql.FieldConfigArgument{
				"date": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				date := p.Args["date"].(string)
				return ResolveSeverityDistribution(db, date)
			},
		},
		// Section 3: Tables (Top Risk CVEs)
		"topRiskCves": &graphql.Field{
			Type: graphql.NewList(RiskyCVEType),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				"date":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				limit := p.Args["limit"].(int)
				date := p.Args["date"].(string)
				return ResolveTopRiskCves(db, date, limit)
			},
		},
		// Section 4: Product posture table
		"productSummary": &graphql.Field{
			Type: graphql.NewList(ProductSummaryType),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				"date":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				limit := p.Args["limit"].(int)
				date := p.Args["date"].(string)
				return ResolveProductSummary(db, date, limit)
			},
		},
		// Section 5: Trend Line
		"riskTrend": &graphql.Field{
			Type: graphql.NewList(RiskTrendPointType),
			Args: graphql.FieldConfigArgument{
				"days": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 30},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				days := p.Args["days"].(int)
				return ResolveRiskTrend(db, days)
			},
		},
		// Section 6: Alert feed
		"recentAlerts": &graphql.Field{
			Type: graphql.NewList(AlertType),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				"type":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				limit := p.Args["limit"].(int)
				alertType := p.Args["type"].(string)
				return ResolveRecentAlerts(db, alertType, limit)
			},
		},
	}
}
