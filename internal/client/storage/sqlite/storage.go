// Package sqlite implements the durable, structured primary tier on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	"github.com/iudanet/sitekeeper/internal/models"
	"github.com/iudanet/sitekeeper/internal/sqlitedb"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage keeps content snapshots in a SQLite table
type Storage struct {
	db   *sql.DB
	name models.Tier
}

// New opens the database at dbPath for the given tier role.
// ":memory:" gives a throwaway database for tests.
func New(ctx context.Context, name models.Tier, dbPath string) (*Storage, error) {
	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}

	db, err := sqlitedb.Open(ctx, dbPath, migrations)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db, name: name}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
