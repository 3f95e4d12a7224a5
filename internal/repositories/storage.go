package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/reelx/internal/shared"
)

// Storage is the key-value persistence port used by the stores.
//
// Values are opaque bytes. Get returns [shared.ErrKeyNotFound] (wrapped) for absent keys.
// Set replaces the whole value; there are no partial writes.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// DeletePrefix removes every key starting with prefix and returns how many were removed.
func DeletePrefix(s Storage, prefix string) (int, error) {
	keys, err := s.Keys(prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list keys: %w", err)
	}

	removed := 0
	for _, key := range keys {
		if err := s.Delete(key); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

// NewStorage builds the [Storage] selected by cfg. db is only used by the sqlite backend.
func NewStorage(cfg shared.StorageConfig, db *sql.DB) (Storage, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", shared.StorageSQLite:
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite storage requires a database", shared.ErrInvalidConfig)
		}
		return NewSQLiteStorage(db), nil
	case shared.StorageFile:
		return NewOSFileStorage(cfg.Path)
	case shared.StorageMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}
