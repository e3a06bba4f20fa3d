package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/models"
)

// snapshotKey holds the serialized snapshot inside the content bucket.
// Older clients stored a flat field->value object under the same key.
var snapshotKey = []byte("snapshot")

// Name returns the tier role
func (s *Storage) Name() models.Tier {
	return s.name
}

// Write stores snap in a single transaction, rejecting versions older than the stored one
func (s *Storage) Write(ctx context.Context, snap *models.Snapshot) error {
	db := s.handle()
	if db == nil {
		return storage.ErrStorageClosed
	}

	payload, err := storage.Encode(snap)
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketContent)
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}

		// Проверка монотонности версии внутри той же транзакции
		if err := storage.CheckVersion(bucket.Get(snapshotKey), snap, true); err != nil {
			return err
		}

		if err := bucket.Put(snapshotKey, payload); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("backup write failed: %w", err)
	}

	return nil
}

// Read returns the stored snapshot; legacy flat records are accepted
func (s *Storage) Read(ctx context.Context) (*models.Snapshot, error) {
	db := s.handle()
	if db == nil {
		return nil, storage.ErrStorageClosed
	}

	var payload []byte
	err := db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketContent)
		if bucket == nil {
			return nil
		}
		// Get возвращает срез, валидный только внутри транзакции
		if v := bucket.Get(snapshotKey); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	return storage.Decode(payload, true)
}

// Clear removes the stored snapshot
func (s *Storage) Clear(ctx context.Context) error {
	db := s.handle()
	if db == nil {
		return storage.ErrStorageClosed
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketContent)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(snapshotKey)
	})
	if err != nil {
		return fmt.Errorf("clear transaction failed: %w", err)
	}

	return nil
}

// PutRaw stores payload as-is, bypassing encoding and the version check.
// Used to import legacy flat records written by older clients.
func (s *Storage) PutRaw(ctx context.Context, payload []byte) error {
	db := s.handle()
	if db == nil {
		return storage.ErrStorageClosed
	}

	return db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketContent)
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return bucket.Put(snapshotKey, payload)
	})
}
