package database

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/vulnmgt/riskboard-backend/util"
)

// FeedMetadata stores the high-water mark for feed ingestion runs
type FeedMetadata struct {
	Key     string `json:"_key"`     // e.g., "kev", "epss", "cve"
	LastRun string `json:"last_run"` // RFC3339 Timestamp
	Type    string `json:"type"`     // "feed_metadata"
}

// GetLastRun retrieves the timestamp of the last successful ingest for a feed
func GetLastRun(ctx context.Context, db DBConnection, feed string) (time.Time, error) {
	key := util.SanitizeKey(feed)
	if key == "" {
		return time.Time{}, nil
	}

	query := `RETURN DOCUMENT("` + CollectionFeedMetadata + `", @key)`
	bindVars := map[string]interface{}{"key": key}

	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return time.Time{}, nil
	}
	defer cursor.Close()

	var meta FeedMetadata
	if _, err := cursor.ReadDocument(ctx, &meta); err != nil {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339, meta.LastRun)
}

// SaveLastRun updates the timestamp after a successful ingest
func SaveLastRun(ctx context.Context, db DBConnection, feed string, lastRun time.Time) error {
	key := util.SanitizeKey(feed)

	// Final safety check to prevent empty keys
	if key == "" {
		return fmt.Errorf("cannot save last run for empty feed key (original: %s)", feed)
	}

	query := `
		UPSERT { _key: @key }
		INSERT { _key: @key, last_run: @time, type: "feed_metadata" }
		UPDATE { last_run: @time }
		IN ` + CollectionFeedMetadata

	bindVars := map[string]interface{}{
		"key":  key,
		"time": lastRun.Format(time.RFC3339),
	}

	return RunQuery(ctx, db.Database, query, bindVars)
}
