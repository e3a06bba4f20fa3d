package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/sitekeeper/internal/client/storage"
)

var lastSaveKey = []byte("last_save")

// RecordSave stores rec as the last acknowledged save
func (s *Storage) RecordSave(ctx context.Context, rec storage.SaveRecord) error {
	db := s.handle()
	if db == nil {
		return storage.ErrStorageClosed
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal save record: %w", err)
	}

	return db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketJournal)
		if err != nil {
			return fmt.Errorf("failed to create journal bucket: %w", err)
		}
		return bucket.Put(lastSaveKey, raw)
	})
}

// LastSave returns the last acknowledged save or the zero record
func (s *Storage) LastSave(ctx context.Context) (storage.SaveRecord, error) {
	var rec storage.SaveRecord

	db := s.handle()
	if db == nil {
		return rec, storage.ErrStorageClosed
	}

	err := db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketJournal)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(lastSaveKey)
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return storage.SaveRecord{}, fmt.Errorf("failed to read last save: %w", err)
	}

	return rec, nil
}
