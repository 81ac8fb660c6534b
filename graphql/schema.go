// Package graphql assembles the root schema from the query modules.
package graphql

import (
	gql "github.com/graphql-go/graphql"
	"github.com/vulnmgt/riskboard-backend/database"
	"github.com/vulnmgt/riskboard-backend/graphql/modules/dashboard"
)

// CreateSchema builds the root query schema against the given connection.
func CreateSchema(db database.DBConnection) (gql.Schema, error) {
	fields := gql.Fields{}
	for name, field := range dashboard.GetQueryFields(db) {
		fields[name] = field
	}

	rootQuery := gql.NewObject(gql.ObjectConfig{
		Name:   "Query",
		Fields: fields,
	})

	return gql.NewSchema(gql.SchemaConfig{Query: rootQuery})
}
