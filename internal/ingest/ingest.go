// Package ingest pulls the three upstream feeds into the raw stores.
// Each connector fetches, normalizes into a model row, and upserts keyed on
// the feed's natural key, so re-running a connector refreshes rows instead
// of duplicating them. Snapshot and scoring never happen here.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/vulnmgt/riskboard-backend/database"
)

var logger = database.GetLogger()

var httpClient = &http.Client{Timeout: 60 * time.Second}

const upsertChunkSize = 1000

// Result reports how an ingest run changed a raw store.
type Result struct {
	Inserted int
	Updated  int
}

// upsertBatch writes docs through an AQL UPSERT keyed on keyAttrs, in
// chunks. The query returns one flag per document telling whether a prior
// row existed, which is how the insert/update split is counted.
func upsertBatch(ctx context.Context, conn database.DBConnection, collection string, keyAttrs []string, docs []interface{}) (Result, error) {
	var res Result

	match := ""
	for i, attr := range keyAttrs {
		if i > 0 {
			match += ", "
		}
		match += fmt.Sprintf("%s: doc.%s", attr, attr)
	}

	query := fmt.Sprintf(`
		FOR doc IN @docs
			UPSERT { %s }
			INSERT doc
			UPDATE doc
			IN %s
			RETURN OLD != null
	`, match, collection)

	for start := 0; start < len(docs); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(docs) {
			end = len(docs)
		}

		cursor, err := conn.Database.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]interface{}{"docs": docs[start:end]},
		})
		if err != nil {
			return res, fmt.Errorf("upserting into %s: %w", collection, err)
		}

		for cursor.HasMore() {
			var existed bool
			if _, err := cursor.ReadDocument(ctx, &existed); err != nil {
				cursor.Close()
				return res, fmt.Errorf("reading upsert result from %s: %w", collection, err)
			}
			if existed {
				res.Updated++
			} else {
				res.Inserted++
			}
		}
		cursor.Close()
	}

	return res, nil
}
