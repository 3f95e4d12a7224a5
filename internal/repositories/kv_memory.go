package repositories

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/desertthunder/reelx/internal/shared"
)

// MemoryStorage is an in-process [Storage]. Values are copied on the way in and out.
//
// FailWrites makes every Set and Delete fail, for exercising write-failure paths.
type MemoryStorage struct {
	mu         sync.RWMutex
	data       map[string][]byte
	writes     map[string]int
	FailWrites bool
}

// NewMemoryStorage creates an empty [MemoryStorage].
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte), writes: make(map[string]int)}
}

func (s *MemoryStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrKeyNotFound, key)
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return fmt.Errorf("%w: %s: write disabled", shared.ErrStorageWrite, key)
	}
	s.data[key] = append([]byte{}, value...)
	s.writes[key]++
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return fmt.Errorf("%w: delete %s: write disabled", shared.ErrStorageWrite, key)
	}
	delete(s.data, key)
	s.writes[key]++
	return nil
}

func (s *MemoryStorage) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Writes returns how many Set or Delete calls succeeded for key.
func (s *MemoryStorage) Writes(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes[key]
}

// WrittenKeys returns every key that has been written or deleted, sorted.
func (s *MemoryStorage) WrittenKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.writes))
	for k := range s.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
