package repositories

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/desertthunder/reelx/internal/shared"
)

const fileExt = ".json"

// FileStorage implements [Storage] with one file per key under a root directory.
//
// Keys are path-escaped so "session:foo" and "watchlist_u1" map to flat file names.
// Writes go to a temp file that is renamed over the target.
type FileStorage struct {
	fs   afero.Fs
	root string
	mu   sync.Mutex
}

// NewFileStorage creates a [FileStorage] rooted at dir on fsys, creating dir if needed.
func NewFileStorage(fsys afero.Fs, dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: storage path is empty", shared.ErrInvalidConfig)
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{fs: fsys, root: dir}, nil
}

// NewOSFileStorage creates a [FileStorage] on the real filesystem.
func NewOSFileStorage(dir string) (*FileStorage, error) {
	return NewFileStorage(afero.NewOsFs(), dir)
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.root, url.PathEscape(key)+fileExt)
}

// Get returns the value stored under key.
func (s *FileStorage) Get(key string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrKeyNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return data, nil
}

// Set replaces the file for key.
func (s *FileStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key)
	tmp := target + ".tmp"

	if err := afero.WriteFile(s.fs, tmp, value, 0o600); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrStorageWrite, key, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("%w: %s: %v", shared.ErrStorageWrite, key, err)
	}
	return nil
}

// Delete removes the file for key. Absent keys are ignored.
func (s *FileStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %v", shared.ErrStorageWrite, key, err)
	}
	return nil
}

// Keys lists stored keys starting with prefix in lexical order.
func (s *FileStorage) Keys(prefix string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
