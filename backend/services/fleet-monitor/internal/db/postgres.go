package db

import (
	"database/sql"
	"strings"

	libdb "batteryfleet/backend/libs/db"
)

// NewPostgres opens the history pool. An empty DSN means history is not configured and yields a nil pool.
func NewPostgres(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil
	}
	return libdb.NewPostgresDB(dsn)
}
