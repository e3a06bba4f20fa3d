// Package postgres implements a transactional record-store tier on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/models"
)

const (
	defaultTableName = "sitekeeper_snapshots"
	defaultSlot      = "current"
	operationTimeout = 5 * time.Second
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// Tier stores the snapshot in a single row guarded by SELECT ... FOR UPDATE.
// The connection and table are created lazily on first use and retried after a failure.
type Tier struct {
	name      models.Tier
	dsn       string
	tableName string
	slot      string
	openDB    sqlOpenFunc

	// mu защищает db; неудачная инициализация не запоминается
	mu sync.Mutex
	db *sql.DB
}

// New creates a PostgreSQL tier playing the given role. No connection is made until first use.
func New(name models.Tier, dsn string) (*Tier, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	return &Tier{
		name:      name,
		dsn:       dsn,
		tableName: defaultTableName,
		slot:      defaultSlot,
		openDB:    sql.Open,
	}, nil
}

// Name returns the tier role
func (t *Tier) Name() models.Tier {
	return t.name
}

// Write stores snap, rejecting versions older than the stored one
func (t *Tier) Write(ctx context.Context, snap *models.Snapshot) error {
	payload, err := storage.Encode(snap)
	if err != nil {
		return err
	}
	db, err := t.ensureReady()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", storage.ErrUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current string
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT payload FROM %s WHERE slot = $1 FOR UPDATE`, quoteIdentifier(t.tableName)),
		t.slot,
	).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: read current snapshot: %v", storage.ErrUnavailable, err)
	}

	if err := storage.CheckVersion([]byte(current), snap, false); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (slot, version, origin, payload, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (slot)
		DO UPDATE SET version = EXCLUDED.version, origin = EXCLUDED.origin,
		              payload = EXCLUDED.payload, updated_at = NOW()`, quoteIdentifier(t.tableName))
	if _, err := tx.ExecContext(ctx, query, t.slot, snap.Version, string(snap.Origin), string(payload)); err != nil {
		return fmt.Errorf("%w: upsert snapshot: %v", storage.ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// Read returns the stored snapshot
func (t *Tier) Read(ctx context.Context) (*models.Snapshot, error) {
	db, err := t.ensureReady()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	var payload string
	err = db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT payload FROM %s WHERE slot = $1`, quoteIdentifier(t.tableName)),
		t.slot,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	return storage.Decode([]byte(payload), false)
}

// Clear removes the stored snapshot
func (t *Tier) Clear(ctx context.Context) error {
	db, err := t.ensureReady()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	_, err = db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE slot = $1`, quoteIdentifier(t.tableName)),
		t.slot,
	)
	return err
}

// Close releases the connection pool
func (t *Tier) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db == nil {
		return nil
	}
	err := t.db.Close()
	t.db = nil
	return err
}

// ensureReady opens the pool and creates the table. A failed attempt leaves
// the tier uninitialised so the next operation tries again.
func (t *Tier) ensureReady() (*sql.DB, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db != nil {
		return t.db, nil
	}

	db, err := t.openDB("postgres", t.dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			slot TEXT PRIMARY KEY,
			version BIGINT NOT NULL,
			origin TEXT NOT NULL,
			payload TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, quoteIdentifier(t.tableName))
	if _, err := db.ExecContext(ctx, query); err != nil {
		_ = db.Close()
		return nil, err
	}

	t.db = db
	return db, nil
}

func quoteIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return `""`
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
