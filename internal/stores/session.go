package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/repositories"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/shared"
)

// SessionStore owns the current [models.Session].
//
// The session is persisted under [models.SessionKey] so that separate CLI
// invocations share one sign-in. Failed sign-in or sign-up attempts leave the
// current session untouched.
type SessionStore struct {
	mu      sync.RWMutex
	current models.Session
	backend services.Backend
	storage repositories.Storage
	subs    broadcaster[models.Session]
	logger  *log.Logger
	now     func() time.Time

	onSignOut []func()
}

// NewSessionStore creates a guest [SessionStore]. Call [SessionStore.Restore] to
// pick up a persisted session.
func NewSessionStore(backend services.Backend, storage repositories.Storage, logger *log.Logger) *SessionStore {
	if logger == nil {
		logger = log.Default()
	}
	return &SessionStore{backend: backend, storage: storage, logger: logger, now: time.Now}
}

// Current returns the active session; the zero value means guest.
func (s *SessionStore) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe returns a channel that receives the session after every change.
// The returned func unsubscribes and closes the channel.
func (s *SessionStore) Subscribe() (<-chan models.Session, func()) {
	return s.subs.subscribe()
}

// OnSignOut registers fns to run whenever the session is destroyed, by
// [SessionStore.SignOut] or a rejected [SessionStore.Restore]. They run before
// subscribers are told about the guest session, so stores can drop per-user state.
func (s *SessionStore) OnSignOut(fns ...func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignOut = append(s.onSignOut, fns...)
}

// SignIn authenticates with the backend and makes the result current.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	session, err := s.backend.SignIn(ctx, email, password)
	if err != nil {
		return models.Session{}, err
	}

	s.seedCollections(ctx, session)
	if err := s.establish(ctx, session); err != nil {
		return models.Session{}, err
	}
	s.logger.Info("signed in", "email", session.Email, "backend", s.backend.Name())
	return session, nil
}

// SignUp creates the account, makes it current and provisions the default user document.
//
// A provisioning failure does not undo the account; it is logged and the
// collections fall back to their defaults.
func (s *SessionStore) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	session, err := s.backend.SignUp(ctx, email, password)
	if err != nil {
		return models.Session{}, err
	}

	if err := s.establish(ctx, session); err != nil {
		return models.Session{}, err
	}

	doc := models.NewUserDocument(session.Email, s.now())
	if err := s.backend.CreateIfAbsent(ctx, session, doc); err != nil {
		s.logger.Warn("failed to provision user document", "email", session.Email, "error", err)
	}

	s.logger.Info("signed up", "email", session.Email, "backend", s.backend.Name())
	return session, nil
}

// SignOut ends the session at the backend and clears the session-scoped cache.
//
// Local state is cleared even when the backend call fails; that error is returned
// after subscribers have been notified.
func (s *SessionStore) SignOut(ctx context.Context) error {
	prev := s.Current()
	if prev.Guest() {
		return nil
	}

	backendErr := s.backend.SignOut(ctx, prev)
	if backendErr != nil {
		s.logger.Warn("backend sign-out failed", "error", backendErr)
	}

	clearErr := s.destroy()
	s.logger.Info("signed out", "email", prev.Email)
	return errors.Join(backendErr, clearErr)
}

// Restore loads the persisted session and verifies it with the backend.
//
// An absent or unreadable session yields a guest. A session the backend rejects
// is destroyed, subscribers are notified, and the rejection is returned. When the
// backend cannot be reached the persisted session is kept as is.
func (s *SessionStore) Restore(ctx context.Context) (models.Session, error) {
	data, err := s.storage.Get(models.SessionKey)
	if err != nil {
		if !errors.Is(err, shared.ErrKeyNotFound) {
			s.logger.Warn("failed to read session", "error", err)
		}
		return models.Session{}, nil
	}

	var stored models.Session
	if err := json.Unmarshal(data, &stored); err != nil || stored.Guest() {
		s.logger.Warn("discarding unreadable session", "error", err)
		if err := s.destroy(); err != nil {
			s.logger.Warn("failed to clear session", "error", err)
		}
		return models.Session{}, nil
	}

	verified, err := s.backend.Verify(ctx, stored)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrNetworkUnavailable):
		s.logger.Warn("could not verify session, continuing offline", "email", stored.Email, "error", err)
		s.set(stored)
		return stored, nil
	default:
		s.logger.Info("session rejected by backend", "email", stored.Email, "error", err)
		if derr := s.destroy(); derr != nil {
			s.logger.Warn("failed to clear session", "error", derr)
		}
		return models.Session{}, err
	}

	if verified.AccessToken() != stored.AccessToken() {
		if err := s.persist(verified); err != nil {
			s.logger.Warn("failed to persist refreshed session", "error", err)
		}
	}
	s.set(verified)
	return verified, nil
}

func (s *SessionStore) establish(ctx context.Context, session models.Session) error {
	if err := s.persist(session); err != nil {
		if serr := s.backend.SignOut(ctx, session); serr != nil {
			s.logger.Debug("failed to release unpersisted session", "error", serr)
		}
		return err
	}
	s.set(session)
	return nil
}

// seedCollections copies the user document's collections into collections_{uid}
// the first time the user signs in on this machine. Local data always wins.
func (s *SessionStore) seedCollections(ctx context.Context, session models.Session) {
	key, ok := models.ScopeFor(session).CollectionsKey()
	if !ok {
		return
	}
	if _, err := s.storage.Get(key); !errors.Is(err, shared.ErrKeyNotFound) {
		return
	}

	doc, err := s.backend.Get(ctx, session)
	if err != nil {
		if !errors.Is(err, shared.ErrKeyNotFound) {
			s.logger.Warn("failed to fetch user document", "email", session.Email, "error", err)
		}
		return
	}
	data, err := json.Marshal(doc.Collections.Normalize())
	if err != nil {
		return
	}
	if err := s.storage.Set(key, data); err != nil {
		s.logger.Warn("failed to seed collections", "key", key, "error", err)
		return
	}
	s.logger.Debug("seeded collections from user document", "key", key)
}

func (s *SessionStore) persist(session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageWrite, err)
	}
	return s.storage.Set(models.SessionKey, data)
}

func (s *SessionStore) set(session models.Session) {
	s.mu.Lock()
	s.current = session
	s.mu.Unlock()
	s.subs.publish(session)
}

// destroy removes the persisted session and every session-scoped key, runs the
// sign-out hooks, then resets to guest. The in-memory state is reset even if
// storage fails.
func (s *SessionStore) destroy() error {
	err := s.storage.Delete(models.SessionKey)
	if _, perr := repositories.DeletePrefix(s.storage, models.SessionPrefix); perr != nil {
		err = errors.Join(err, perr)
	}

	s.mu.RLock()
	hooks := append([]func(){}, s.onSignOut...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}

	s.set(models.Session{})
	return err
}
