// Package boltdb implements the durable flat key-value tier on top of BoltDB.
// The same file also keeps the save journal.
package boltdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/sitekeeper/internal/models"
)

var (
	bucketContent = []byte("content")
	bucketJournal = []byte("journal")
)

// openTimeout bounds the wait for the file lock held by another editor process
const openTimeout = 2 * time.Second

// Storage is a BoltDB file holding one content snapshot and the save journal
type Storage struct {
	db   *bbolt.DB
	name models.Tier
	mu   sync.RWMutex
}

// New opens or creates the BoltDB file at dbPath for the given tier role
func New(ctx context.Context, name models.Tier, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketContent, bucketJournal} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{db: db, name: name}, nil
}

// Close releases the file lock. Repeated calls are no-ops.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// handle returns the open database or nil after Close
func (s *Storage) handle() *bbolt.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}
