// Package database - Handles all interaction with ArangoDB
package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = InitLogger() // setup the logger

// Collection names for the raw feed stores, the daily report tables and alerts.
const (
	CollectionRawCVE       = "raw_cve"
	CollectionRawKEV       = "raw_kev"
	CollectionRawEPSS      = "raw_epss"
	CollectionCVEDaily     = "report_cve_daily"
	CollectionProductDaily = "report_product_daily"
	CollectionAlerts       = "alerts"
	CollectionFeedMetadata = "feed_metadata"
)

// DBConnection is the structure that defines the database engine and collections
type DBConnection struct {
	Collections map[string]arangodb.Collection
	Database    arangodb.Database
}

// Options holds the connection parameters. Values come from the config
// layer; the database package never reads the environment itself.
type Options struct {
	URL      string
	User     string
	Password string
	Database string
}

// Define a struct to hold the index definition
type indexConfig struct {
	Collection string
	IdxName    string
	IdxFields  []string
	Unique     bool
}

// InitLogger sets up the Zap Logger to log to the console in a human readable format
func InitLogger() *zap.Logger {
	prodConfig := zap.NewProductionConfig()
	prodConfig.Encoding = "console"
	prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	prodConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	logger, _ := prodConfig.Build()
	return logger
}

// GetLogger returns the shared zap logger.
func GetLogger() *zap.Logger {
	return logger
}

func dbConnectionConfig(endpoint connection.Endpoint, dbuser string, dbpass string) connection.HttpConfiguration {
	return connection.HttpConfiguration{
		Authentication: connection.NewBasicAuth(dbuser, dbpass),
		Endpoint:       endpoint,
		ContentType:    connection.ApplicationJSON,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402
			},
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 90 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// InitializeDatabase connects to the db engine, creates the database,
// collections and indexes, and returns an explicit connection value that
// callers pass into each pipeline step. There is no package-level handle.
func InitializeDatabase(opts Options) (DBConnection, error) {
	const initialInterval = 10 * time.Second
	const maxInterval = 2 * time.Minute

	var db arangodb.Database
	var collections map[string]arangodb.Collection

	ctx := context.Background()

	False := false
	True := true

	var client arangodb.Client

	//
	// Database connection with backoff retry
	//

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialInterval
	bo.MaxInterval = maxInterval
	bo.MaxElapsedTime = 10 * time.Minute

	err := backoff.RetryNotify(func() error {
		endpoint := connection.NewRoundRobinEndpoints([]string{opts.URL})
		conn := connection.NewHttpConnection(dbConnectionConfig(endpoint, opts.User, opts.Password))

		client = arangodb.NewClient(conn)

		// Ask the version of the server
		versionInfo, err := client.Version(context.Background())
		if err != nil {
			return err
		}

		logger.Sugar().Infof("Database has version '%s' and license '%s'", versionInfo.Version, versionInfo.License)
		return nil

	}, bo, func(err error, _ time.Duration) {
		logger.Sugar().Warnf("Retrying connection to ArangoDB: %v", err)
	})

	if err != nil {
		return DBConnection{}, fmt.Errorf("connecting to ArangoDB at %s: %w", opts.URL, err)
	}

	//
	// Database creation
	//

	exists := false
	dblist, _ := client.Databases(ctx)

	for _, dbinfo := range dblist {
		if dbinfo.Name() == opts.Database {
			exists = true
			break
		}
	}

	if exists {
		var options arangodb.GetDatabaseOptions
		if db, err = client.GetDatabase(ctx, opts.Database, &options); err != nil {
			return DBConnection{}, fmt.Errorf("getting database %s: %w", opts.Database, err)
		}
	} else {
		if db, err = client.CreateDatabase(ctx, opts.Database, nil); err != nil {
			return DBConnection{}, fmt.Errorf("creating database %s: %w", opts.Database, err)
		}
	}

	//
	// Collection creation
	//

	collections = make(map[string]arangodb.Collection)
	collectionNames := []string{
		CollectionRawCVE,
		CollectionRawKEV,
		CollectionRawEPSS,
		CollectionCVEDaily,
		CollectionProductDaily,
		CollectionAlerts,
		CollectionFeedMetadata,
	}

	for _, collectionName := range collectionNames {
		var col arangodb.Collection

		colExists, _ := db.CollectionExists(ctx, collectionName)
		if colExists {
			var options arangodb.GetCollectionOptions
			if col, err = db.GetCollection(ctx, collectionName, &options); err != nil {
				return DBConnection{}, fmt.Errorf("using collection %s: %w", collectionName, err)
			}
		} else {
			if col, err = db.CreateCollection(ctx, collectionName, nil); err != nil {
				return DBConnection{}, fmt.Errorf("creating collection %s: %w", collectionName, err)
			}
		}

		collections[collectionName] = col
	}

	//
	// Index creation
	//
	// Natural keys on the raw feeds are real constraints (unique). The
	// report tables get their per-day uniqueness from the rebuild pattern;
	// the unique indexes there are a backstop, safe because every writer
	// deletes the day's partition first.
	//

	idxList := []indexConfig{
		// Raw severity feed - one row per vulnerability id
		{Collection: CollectionRawCVE, IdxName: "raw_cve_id_unique", IdxFields: []string{"cve_id"}, Unique: true},
		{Collection: CollectionRawCVE, IdxName: "raw_cve_severity", IdxFields: []string{"severity"}},
		{Collection: CollectionRawCVE, IdxName: "raw_cve_published", IdxFields: []string{"published_date"}},

		// Exploited-catalog membership - one row per vulnerability id
		{Collection: CollectionRawKEV, IdxName: "raw_kev_id_unique", IdxFields: []string{"cve_id"}, Unique: true},
		{Collection: CollectionRawKEV, IdxName: "raw_kev_vendor_product", IdxFields: []string{"vendor", "product"}},

		// Exploit-likelihood samples - append-only, keyed (cve_id, epss_date)
		{Collection: CollectionRawEPSS, IdxName: "raw_epss_id_date_unique", IdxFields: []string{"cve_id", "epss_date"}, Unique: true},
		{Collection: CollectionRawEPSS, IdxName: "raw_epss_date", IdxFields: []string{"epss_date"}},

		// Daily CVE report - keyed (as_of_date, cve_id)
		{Collection: CollectionCVEDaily, IdxName: "cve_daily_date_id_unique", IdxFields: []string{"as_of_date", "cve_id"}, Unique: true},
		{Collection: CollectionCVEDaily, IdxName: "cve_daily_risk_score", IdxFields: []string{"as_of_date", "risk_score"}},

		// Daily product report - keyed (as_of_date, vendor, product)
		{Collection: CollectionProductDaily, IdxName: "product_daily_key_unique", IdxFields: []string{"as_of_date", "vendor", "product"}, Unique: true},

		// Alerts - scanned by creation date for the same-day rebuild
		{Collection: CollectionAlerts, IdxName: "alerts_created_at", IdxFields: []string{"created_at"}},
		{Collection: CollectionAlerts, IdxName: "alerts_type", IdxFields: []string{"alert_type"}},
	}

	for _, idx := range idxList {
		found := false

		if indexes, err := collections[idx.Collection].Indexes(ctx); err == nil {
			for _, index := range indexes {
				if idx.IdxName == index.Name {
					found = true
					break
				}
			}
		}

		if !found {
			unique := &False
			if idx.Unique {
				unique = &True
			}
			indexOptions := arangodb.CreatePersistentIndexOptions{
				Unique: unique,
				Sparse: &False,
				Name:   idx.IdxName,
			}

			_, _, err = collections[idx.Collection].EnsurePersistentIndex(ctx, idx.IdxFields, &indexOptions)
			if err != nil {
				return DBConnection{}, fmt.Errorf("creating index %s on %s: %w", idx.IdxName, idx.Collection, err)
			}
			logger.Sugar().Infof("Created index: %s on %s", idx.IdxName, idx.Collection)
		}
	}

	conn := DBConnection{
		Database:    db,
		Collections: collections,
	}

	logger.Sugar().Infof("Database initialization complete")

	return conn, nil
}
