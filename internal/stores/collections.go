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

// CollectionsChange is published after a user's collections are loaded or written.
type CollectionsChange struct {
	UserID      string
	Collections models.Collections
}

// CollectionsStore keeps the signed-in user's Favorites, To Watch and Watched lists
// under collections_{uid}. Every mutation rewrites the whole mapping.
//
// Guests have no collections: mutations are no-ops that return the default
// mapping and never touch storage, whoever was loaded before.
type CollectionsStore struct {
	mu      sync.Mutex
	storage repositories.Storage
	last    models.Collections
	userID  string
	loaded  bool
	subs    broadcaster[CollectionsChange]
	logger  *log.Logger
}

func NewCollectionsStore(storage repositories.Storage, logger *log.Logger) *CollectionsStore {
	if logger == nil {
		logger = log.Default()
	}
	return &CollectionsStore{storage: storage, last: models.DefaultCollections(), logger: logger}
}

// Subscribe returns a channel that receives every collections change.
func (c *CollectionsStore) Subscribe() (<-chan CollectionsChange, func()) {
	return c.subs.subscribe()
}

// Load returns the session's collections, or the defaults when none are stored,
// the data is unreadable, or the session is a guest.
func (c *CollectionsStore) Load(session models.Session) models.Collections {
	c.mu.Lock()
	cols, _ := c.read(session)
	c.mu.Unlock()

	c.subs.publish(CollectionsChange{UserID: session.UserID, Collections: cols.Clone()})
	return cols.Clone()
}

// AddTo appends movie to the named collection unless its id is already there.
func (c *CollectionsStore) AddTo(session models.Session, name models.CollectionName, movie models.Movie) (models.Collections, error) {
	return c.update(session, name, func(l models.MovieList) models.MovieList { return l.Add(movie) })
}

// RemoveFrom drops the movie with id from the named collection.
func (c *CollectionsStore) RemoveFrom(session models.Session, name models.CollectionName, id int) (models.Collections, error) {
	return c.update(session, name, func(l models.MovieList) models.MovieList { return l.Remove(id) })
}

func (c *CollectionsStore) update(session models.Session, name models.CollectionName, fn func(models.MovieList) models.MovieList) (models.Collections, error) {
	if !name.Valid() {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownCollection, name)
	}

	c.mu.Lock()
	key, ok := models.ScopeFor(session).CollectionsKey()
	if !ok {
		c.mu.Unlock()
		return models.DefaultCollections(), nil
	}

	prev := c.last
	if !c.loaded || c.userID != session.UserID {
		var err error
		prev, err = c.read(session)
		if err != nil && !errors.Is(err, shared.ErrStorageParse) {
			c.mu.Unlock()
			c.logger.Error("failed to read collections", "key", key, "error", err)
			return models.DefaultCollections(), err
		}
	}
	next := prev.With(name, fn(prev[name]))

	if err := c.write(key, next); err != nil {
		c.mu.Unlock()
		c.logger.Error("failed to save collections", "key", key, "error", err)
		return prev.Clone(), err
	}
	c.last = next
	c.mu.Unlock()

	c.subs.publish(CollectionsChange{UserID: session.UserID, Collections: next.Clone()})
	return next.Clone(), nil
}

// read loads the session's mapping into c.last. Corrupt data is adopted as the
// defaults; after a failed read nothing is cached. Callers hold c.mu.
func (c *CollectionsStore) read(session models.Session) (models.Collections, error) {
	c.userID = session.UserID
	key, ok := models.ScopeFor(session).CollectionsKey()
	if !ok {
		c.last = models.DefaultCollections()
		c.loaded = true
		return c.last, nil
	}

	cols, err := decodeCollections(c.storage, key)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrStorageParse):
		c.logger.Warn("resetting unreadable collections", "key", key, "error", err)
	default:
		c.logger.Warn("failed to read collections", "key", key, "error", err)
		c.last = models.DefaultCollections()
		c.loaded = false
		return cols, err
	}
	c.last = cols
	c.loaded = true
	return cols, err
}

// Reset forgets the loaded user's mapping and notifies subscribers that the
// guest defaults are current.
func (c *CollectionsStore) Reset() {
	c.mu.Lock()
	c.last = models.DefaultCollections()
	c.userID = ""
	c.loaded = false
	out := c.last.Clone()
	c.mu.Unlock()

	c.subs.publish(CollectionsChange{Collections: out})
}

func (c *CollectionsStore) write(key string, cols models.Collections) error {
	data, err := json.Marshal(cols)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageWrite, err)
	}
	if err := c.storage.Set(key, data); err != nil {
		if errors.Is(err, shared.ErrStorageWrite) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrStorageWrite, err)
	}
	return nil
}

func decodeCollections(storage repositories.Storage, key string) (models.Collections, error) {
	data, err := storage.Get(key)
	if err != nil {
		if errors.Is(err, shared.ErrKeyNotFound) {
			return models.DefaultCollections(), nil
		}
		return models.DefaultCollections(), fmt.Errorf("%w: %s: %v", shared.ErrStorageRead, key, err)
	}

	var cols models.Collections
	if err := json.Unmarshal(data, &cols); err != nil {
		return models.DefaultCollections(), fmt.Errorf("%w: %s: %v", shared.ErrStorageParse, key, err)
	}
	return cols.Normalize(), nil
}
