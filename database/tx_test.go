package database

import (
	"github.com/arangodb/go-driver/v2/arangodb"
)

// RunQuery must accept both the plain database handle and an open
// transaction; Transaction does not implement the full Database interface,
// only the query and collection subsets.
var (
	_ arangodb.DatabaseQuery = arangodb.Database(nil)
	_ arangodb.DatabaseQuery = arangodb.Transaction(nil)
)
