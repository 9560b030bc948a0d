package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble/v2"
)

// PebbleStore persists values in a PebbleDB living directly at the profile
// directory. Every write is synced.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the store at dir.
func OpenPebble(dir string) (*PebbleStore, error) {
	if dir == "" {
		return nil, errors.New("empty data path")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return OpenPebbleWithOptions(filepath.Clean(dir), &pebble.Options{})
}

// OpenPebbleWithOptions opens the store with caller supplied options, e.g. an
// in-memory vfs.
func OpenPebbleWithOptions(dir string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Get(key string) (string, bool, error) {
	data, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	defer closer.Close()
	// data is only valid until closer is closed.
	return string(data), true, nil
}

func (s *PebbleStore) Set(key, value string) error {
	return s.db.Set([]byte(key), []byte(value), pebble.Sync)
}

func (s *PebbleStore) Delete(key string) error {
	return s.db.Delete([]byte(key), pebble.Sync)
}

func (s *PebbleStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
