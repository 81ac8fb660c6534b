package database

import (
	"context"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"
)

// WithTransaction runs fn inside a single stream transaction holding
// exclusive locks on the given collections. The delete-then-insert rebuild
// steps depend on this: a crash between the delete and the insert must not
// leave a day's partition half-populated, so both commit together or the
// transaction is aborted.
func WithTransaction(ctx context.Context, db arangodb.Database, exclusive []string, fn func(tx arangodb.Transaction) error) error {
	tx, err := db.BeginTransaction(ctx, arangodb.TransactionCollections{Exclusive: exclusive}, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if abortErr := tx.Abort(ctx, nil); abortErr != nil {
			logger.Sugar().Errorf("Failed to abort transaction %s: %v", tx.ID(), abortErr)
		}
		return err
	}

	if err := tx.Commit(ctx, nil); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// RunQuery executes an AQL query with bind vars on any query-capable target
// and drains the cursor. DatabaseQuery is the narrowest interface both the
// database handle and an open transaction satisfy, so rebuild steps can run
// the same mutation inside or outside a transaction.
// Used for pure mutation queries where no result rows are expected.
func RunQuery(ctx context.Context, db arangodb.DatabaseQuery, query string, bindVars map[string]interface{}) error {
	cursor, err := db.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return err
	}
	return cursor.Close()
}
