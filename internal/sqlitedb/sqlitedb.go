// Package sqlitedb opens SQLite databases with the connection settings and migration
// runner shared by the primary content tier and the development backend.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

// Pragmas applied to every connection
var Pragmas = []string{
	"PRAGMA journal_mode = WAL;",
	"PRAGMA synchronous = NORMAL;",
	"PRAGMA busy_timeout = 5000;",
}

// Open opens path and applies every goose migration found at the root of migrations.
// Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string, migrations fs.FS) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite допускает одного писателя; единственное соединение также
	// сохраняет :memory: базу между запросами
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := setup(ctx, db, migrations); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func setup(ctx context.Context, db *sql.DB, migrations fs.FS) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range Pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
