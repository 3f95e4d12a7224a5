package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/repositories"
	"github.com/desertthunder/reelx/internal/shared"
)

// WatchlistChange is published after a watchlist is loaded or written.
type WatchlistChange struct {
	Scope  models.Scope
	Movies models.MovieList
}

// WatchlistStore keeps one movie list per scope. Guests share the global list;
// each signed-in user has a separate one.
type WatchlistStore struct {
	mu      sync.Mutex
	storage repositories.Storage
	lists   map[string]models.MovieList
	subs    broadcaster[WatchlistChange]
	logger  *log.Logger
}

func NewWatchlistStore(storage repositories.Storage, logger *log.Logger) *WatchlistStore {
	if logger == nil {
		logger = log.Default()
	}
	return &WatchlistStore{storage: storage, lists: make(map[string]models.MovieList), logger: logger}
}

// Subscribe returns a channel that receives every watchlist change.
func (w *WatchlistStore) Subscribe() (<-chan WatchlistChange, func()) {
	return w.subs.subscribe()
}

// Load reads the scope's list from storage. Absent or corrupt data yields an
// empty list; Load never fails.
func (w *WatchlistStore) Load(scope models.Scope) models.MovieList {
	w.mu.Lock()
	list, _ := w.read(scope)
	w.mu.Unlock()

	w.subs.publish(WatchlistChange{Scope: scope, Movies: list.Clone()})
	return list.Clone()
}

// Contains reports whether the scope's list holds a movie with id.
func (w *WatchlistStore) Contains(scope models.Scope, id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	list, _ := w.cached(scope)
	return list.Contains(id)
}

// Toggle adds movie when absent and removes it when present, matching on ID only.
func (w *WatchlistStore) Toggle(scope models.Scope, movie models.Movie) (models.MovieList, error) {
	return w.update(scope, func(l models.MovieList) models.MovieList { return l.Toggle(movie) })
}

// Remove drops the movie with id from the scope's list.
func (w *WatchlistStore) Remove(scope models.Scope, id int) (models.MovieList, error) {
	return w.update(scope, func(l models.MovieList) models.MovieList { return l.Remove(id) })
}

// update writes the full next list before adopting it. On failure the previous
// list is returned together with the error. A list that could not be read is
// never rewritten.
func (w *WatchlistStore) update(scope models.Scope, fn func(models.MovieList) models.MovieList) (models.MovieList, error) {
	w.mu.Lock()
	prev, err := w.cached(scope)
	if err != nil && !errors.Is(err, shared.ErrStorageParse) {
		w.mu.Unlock()
		w.logger.Error("failed to read watchlist", "scope", scope, "error", err)
		return models.MovieList{}, err
	}
	next := fn(prev)

	if err := w.write(scope, next); err != nil {
		w.mu.Unlock()
		w.logger.Error("failed to save watchlist", "scope", scope, "error", err)
		return prev.Clone(), err
	}
	w.lists[scope.WatchlistKey()] = next
	w.mu.Unlock()

	w.subs.publish(WatchlistChange{Scope: scope, Movies: next.Clone()})
	return next.Clone(), nil
}

func (w *WatchlistStore) cached(scope models.Scope) (models.MovieList, error) {
	if list, ok := w.lists[scope.WatchlistKey()]; ok {
		return list, nil
	}
	return w.read(scope)
}

// read loads the scope's list. Corrupt data is cached as empty; a failed read
// is not cached, so the next call tries storage again.
func (w *WatchlistStore) read(scope models.Scope) (models.MovieList, error) {
	key := scope.WatchlistKey()
	list, err := decodeMovies(w.storage, key)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrStorageParse):
		w.logger.Warn("resetting unreadable watchlist", "key", key, "error", err)
	default:
		w.logger.Warn("failed to read watchlist", "key", key, "error", err)
		delete(w.lists, key)
		return list, err
	}
	w.lists[key] = list
	return list, err
}

// Reset drops every cached user list. The global list is re-read on next use.
func (w *WatchlistStore) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lists = make(map[string]models.MovieList)
}

func (w *WatchlistStore) write(scope models.Scope, list models.MovieList) error {
	data, err := json.Marshal(list.Clone())
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageWrite, err)
	}
	if err := w.storage.Set(scope.WatchlistKey(), data); err != nil {
		if errors.Is(err, shared.ErrStorageWrite) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrStorageWrite, err)
	}
	return nil
}

// decodeMovies reads a JSON movie array from key. The returned list is always
// non-nil; a parse error ([shared.ErrStorageParse]) or read error
// ([shared.ErrStorageRead]) is reported alongside an empty list.
func decodeMovies(storage repositories.Storage, key string) (models.MovieList, error) {
	data, err := storage.Get(key)
	if err != nil {
		if errors.Is(err, shared.ErrKeyNotFound) {
			return models.MovieList{}, nil
		}
		return models.MovieList{}, fmt.Errorf("%w: %s: %v", shared.ErrStorageRead, key, err)
	}

	var list models.MovieList
	if err := json.Unmarshal(data, &list); err != nil {
		return models.MovieList{}, fmt.Errorf("%w: %s: %v", shared.ErrStorageParse, key, err)
	}
	return list.Dedupe(), nil
}
