package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleBlobStore is a pebble-backed BlobStore, adapted from FreyjaDB's
// DefaultStorage: the same single-db Set/Get/Delete shape, re-keyed from a
// generated ksuid to the caller-supplied content id so the same blob
// written twice is a no-op rather than a new row.
type PebbleBlobStore struct {
	db *pebble.DB
}

// NewPebbleBlobStore opens (creating if necessary) a pebble database at
// path to back a content-addressed store.
func NewPebbleBlobStore(path string) (*PebbleBlobStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open pebble at %s: %w", path, err)
	}
	return &PebbleBlobStore{db: db}, nil
}

func (s *PebbleBlobStore) Get(id string) ([]byte, bool, error) {
	data, closer, err := s.db.Get([]byte(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: get %s: %w", id, err)
	}
	defer closer.Close()
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (s *PebbleBlobStore) Put(id string, data []byte) error {
	if err := s.db.Set([]byte(id), data, pebble.NoSync); err != nil {
		return fmt.Errorf("storage: put %s: %w", id, err)
	}
	return nil
}

func (s *PebbleBlobStore) Contains(id string) (bool, error) {
	_, closer, err := s.db.Get([]byte(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: contains %s: %w", id, err)
	}
	defer closer.Close()
	return true, nil
}

// Close releases the underlying pebble database.
func (s *PebbleBlobStore) Close() error {
	return s.db.Close()
}
