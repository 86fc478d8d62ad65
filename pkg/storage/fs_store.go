package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// FSBlobStore stores each blob as a plain file under a three-level
// directory shard derived from its content id, so that no directory ever
// holds an unbounded number of entries. The first six hex characters of
// the id are read as a 24-bit integer and split into three mod-256
// components, used as dir1/dir2/dir3.
type FSBlobStore struct {
	root string
}

// NewFSBlobStore returns a store rooted at dir, creating it if necessary.
func NewFSBlobStore(dir string) (*FSBlobStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create fs store root: %w", err)
	}
	return &FSBlobStore{root: dir}, nil
}

func (s *FSBlobStore) shardPath(id string) (string, error) {
	if len(id) < 6 {
		return "", fmt.Errorf("storage: content id %q too short to shard", id)
	}
	v, err := strconv.ParseUint(id[:6], 16, 32)
	if err != nil {
		return "", fmt.Errorf("storage: content id %q is not hex: %w", id, err)
	}
	dir1 := (v >> 16) & 0xFF
	dir2 := (v >> 8) & 0xFF
	dir3 := v & 0xFF
	return filepath.Join(s.root, fmt.Sprintf("%02x", dir1), fmt.Sprintf("%02x", dir2), fmt.Sprintf("%02x", dir3), id+".json"), nil
}

func (s *FSBlobStore) Get(id string) ([]byte, bool, error) {
	path, err := s.shardPath(id)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, true, nil
}

func (s *FSBlobStore) Put(id string, data []byte) error {
	path, err := s.shardPath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("storage: mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

func (s *FSBlobStore) Contains(id string) (bool, error) {
	path, err := s.shardPath(id)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return true, nil
}
