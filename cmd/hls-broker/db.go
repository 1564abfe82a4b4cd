package main

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/lib/pq"

	"github.com/Vizzuality/HLS-data-project/sceneindex/db"
	"github.com/Vizzuality/HLS-data-project/util"
)

// newConnectionProvider returns a provider opening connections to the
// configured database
func newConnectionProvider(cfg *util.Config) db.ConnectionProvider {
	return func(ctx util.LogContext) (*sql.DB, error) {
		return getDbConnection(ctx, cfg.DatabaseURL)
	}
}

// getDbConnection opens a new database connection.
func getDbConnection(ctx util.LogContext, connStr string) (*sql.DB, error) {
	if connStr == "" {
		return nil, util.NewError(util.Configuration, "no database configured; set %s or database_url", util.DATABASE_URL)
	}

	dbURI, err := url.Parse(connStr)
	if err != nil {
		return nil, util.NewError(util.Configuration, "invalid database URL: %v", err)
	}
	// pq expects SSL to be enabled if not explicitly disabled
	params := dbURI.Query()
	if params.Get("sslmode") == "" {
		params.Set("sslmode", "disable")
	}
	dbURI.RawQuery = params.Encode()

	util.LogInfo(ctx, fmt.Sprintf("Creating database connection at: `%s`", dbURI.Redacted()))
	conn, err := sql.Open("postgres", dbURI.String())
	if err != nil {
		return nil, err
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, util.WrapError(util.DataAccess, err)
	}
	return conn, nil
}

var getConnectionProviderFunc = newConnectionProvider
