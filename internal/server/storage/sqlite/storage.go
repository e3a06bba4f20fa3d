// Package sqlite implements the development backend content storage on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	"github.com/iudanet/sitekeeper/internal/sqlitedb"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage holds backend content fields
type Storage struct {
	db *sql.DB
}

// New opens the backend database at dbPath, ":memory:" for tests
func New(ctx context.Context, dbPath string) (*Storage, error) {
	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}

	db, err := sqlitedb.Open(ctx, dbPath, migrations)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Ping checks that the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
