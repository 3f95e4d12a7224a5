package stores

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/repositories"
	"github.com/desertthunder/reelx/internal/shared"
	tu "github.com/desertthunder/reelx/internal/testing"
)

func newTestSessionStore(t *testing.T) (*SessionStore, *tu.MockBackend, *repositories.MemoryStorage) {
	t.Helper()
	backend := tu.NewMockBackend(map[string]string{"a@example.com": "secret1"})
	storage := repositories.NewMemoryStorage()
	return NewSessionStore(backend, storage, nil), backend, storage
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	default:
		t.Fatal("expected a notification")
	}
	var zero T
	return zero
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Starts As Guest", func(t *testing.T) {
		store, _, _ := newTestSessionStore(t)
		if !store.Current().Guest() {
			t.Errorf("expected guest, got %v", store.Current())
		}
	})

	t.Run("SignIn", func(t *testing.T) {
		store, _, storage := newTestSessionStore(t)
		ch, cancel := store.Subscribe()
		defer cancel()

		s, err := store.SignIn(ctx, "a@example.com", "secret1")
		if err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		if store.Current().UserID != s.UserID {
			t.Errorf("Current() = %v, want %v", store.Current(), s)
		}
		if got := receive(t, ch); got.Email != "a@example.com" {
			t.Errorf("notification = %v", got)
		}
		if _, err := storage.Get(models.SessionKey); err != nil {
			t.Errorf("expected persisted session, got %v", err)
		}
	})

	t.Run("SignIn Seeds Collections From Document", func(t *testing.T) {
		store, backend, storage := newTestSessionStore(t)
		matrix := tu.SampleMovies()[0]
		doc := models.NewUserDocument("a@example.com", time.Now())
		doc.Collections = doc.Collections.With(models.Favorites, models.MovieList{matrix})
		backend.Documents["uid-a@example.com"] = doc

		s, err := store.SignIn(ctx, "a@example.com", "secret1")
		if err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		cols := NewCollectionsStore(storage, nil).Load(s)
		if !cols[models.Favorites].Contains(matrix.ID) {
			t.Errorf("expected seeded Favorites, got %v", cols[models.Favorites].IDs())
		}
	})

	t.Run("SignIn Keeps Local Collections", func(t *testing.T) {
		store, backend, storage := newTestSessionStore(t)
		doc := models.NewUserDocument("a@example.com", time.Now())
		doc.Collections = doc.Collections.With(models.Watched, models.MovieList(tu.SampleMovies()))
		backend.Documents["uid-a@example.com"] = doc
		storage.Set("collections_uid-a@example.com", []byte(`{"Favorites":[]}`))

		if _, err := store.SignIn(ctx, "a@example.com", "secret1"); err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		if n := storage.Writes("collections_uid-a@example.com"); n != 1 {
			t.Errorf("expected local collections untouched, got %d writes", n)
		}
	})

	t.Run("SignIn Without Document", func(t *testing.T) {
		store, _, storage := newTestSessionStore(t)
		if _, err := store.SignIn(ctx, "a@example.com", "secret1"); err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		if _, err := storage.Get("collections_uid-a@example.com"); !errors.Is(err, shared.ErrKeyNotFound) {
			t.Errorf("expected no collections key, got %v", err)
		}
	})

	t.Run("Failed SignIn Keeps Prior Session", func(t *testing.T) {
		store, _, _ := newTestSessionStore(t)
		prior, err := store.SignIn(ctx, "a@example.com", "secret1")
		if err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}

		if _, err := store.SignIn(ctx, "a@example.com", "wrong"); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if store.Current().UserID != prior.UserID {
			t.Errorf("session changed after failed sign-in: %v", store.Current())
		}
	})

	t.Run("SignIn Network Error", func(t *testing.T) {
		store, backend, _ := newTestSessionStore(t)
		backend.Err = fmt.Errorf("%w: dial tcp", shared.ErrNetworkUnavailable)

		if _, err := store.SignIn(ctx, "a@example.com", "secret1"); !errors.Is(err, shared.ErrNetworkUnavailable) {
			t.Errorf("expected ErrNetworkUnavailable, got %v", err)
		}
		if !store.Current().Guest() {
			t.Error("expected guest after failed sign-in")
		}
	})

	t.Run("SignIn Persist Failure", func(t *testing.T) {
		store, backend, storage := newTestSessionStore(t)
		storage.FailWrites = true

		if _, err := store.SignIn(ctx, "a@example.com", "secret1"); !errors.Is(err, shared.ErrStorageWrite) {
			t.Fatalf("expected ErrStorageWrite, got %v", err)
		}
		if !store.Current().Guest() {
			t.Error("expected guest when the session cannot be saved")
		}
		if backend.SignOuts != 1 {
			t.Errorf("expected the backend session to be released, got %d sign-outs", backend.SignOuts)
		}
	})

	t.Run("SignUp Provisions Document", func(t *testing.T) {
		store, backend, storage := newTestSessionStore(t)

		s, err := store.SignUp(ctx, "new@example.com", "secret2")
		if err != nil {
			t.Fatalf("SignUp() error = %v", err)
		}
		doc, ok := backend.Documents[s.UserID]
		if !ok {
			t.Fatal("expected user document to be provisioned")
		}
		if doc.Email != "new@example.com" || len(doc.Collections) != len(models.CollectionNames) {
			t.Errorf("unexpected document %+v", doc)
		}

		cols := NewCollectionsStore(storage, nil).Load(s)
		for _, name := range models.CollectionNames {
			if l, ok := cols[name]; !ok || len(l) != 0 {
				t.Errorf("expected empty %s, got %v", name, l)
			}
		}
	})

	t.Run("SignUp Provisioning Failure Is Not Fatal", func(t *testing.T) {
		store, backend, _ := newTestSessionStore(t)
		backend.DocErr = shared.ErrBackendRejected

		s, err := store.SignUp(ctx, "new@example.com", "secret2")
		if err != nil {
			t.Fatalf("SignUp() error = %v", err)
		}
		if store.Current().UserID != s.UserID {
			t.Error("expected session to be established")
		}
	})

	t.Run("SignUp Duplicate", func(t *testing.T) {
		store, _, _ := newTestSessionStore(t)
		if _, err := store.SignUp(ctx, "a@example.com", "secret1"); !errors.Is(err, shared.ErrBackendRejected) {
			t.Errorf("expected ErrBackendRejected, got %v", err)
		}
	})

	t.Run("SignOut Clears Session Cache", func(t *testing.T) {
		store, backend, storage := newTestSessionStore(t)
		if _, err := store.SignIn(ctx, "a@example.com", "secret1"); err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		settings := NewSettings(storage)
		if err := settings.SetFeedPage(3); err != nil {
			t.Fatalf("SetFeedPage() error = %v", err)
		}
		storage.Set("watchlist", []byte(`[]`))

		ch, cancel := store.Subscribe()
		defer cancel()

		if err := store.SignOut(ctx); err != nil {
			t.Fatalf("SignOut() error = %v", err)
		}
		if !store.Current().Guest() {
			t.Error("expected guest after sign-out")
		}
		if got := receive(t, ch); !got.Guest() {
			t.Errorf("expected guest notification, got %v", got)
		}
		if backend.SignOuts != 1 {
			t.Errorf("expected 1 backend sign-out, got %d", backend.SignOuts)
		}

		keys, _ := storage.Keys("session")
		if len(keys) != 0 {
			t.Errorf("expected session keys cleared, got %v", keys)
		}
		if _, err := storage.Get("watchlist"); err != nil {
			t.Errorf("expected watchlist to survive sign-out, got %v", err)
		}
		if settings.FeedPage() != 1 {
			t.Errorf("expected feed page reset, got %d", settings.FeedPage())
		}
	})

	t.Run("SignOut Hooks Run Before Notification", func(t *testing.T) {
		store, _, _ := newTestSessionStore(t)
		if _, err := store.SignIn(ctx, "a@example.com", "secret1"); err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		ch, cancel := store.Subscribe()
		defer cancel()

		var calls []string
		store.OnSignOut(func() {
			select {
			case <-ch:
				calls = append(calls, "notified")
			default:
			}
			calls = append(calls, "first")
		}, func() { calls = append(calls, "second") })

		if err := store.SignOut(ctx); err != nil {
			t.Fatalf("SignOut() error = %v", err)
		}
		if got := fmt.Sprint(calls); got != "[first second]" {
			t.Errorf("hook calls = %s", got)
		}
		if got := receive(t, ch); !got.Guest() {
			t.Errorf("expected guest notification, got %v", got)
		}
	})

	t.Run("SignOut Leaves Guest With Defaults", func(t *testing.T) {
		store, _, storage := newTestSessionStore(t)
		watchlist := NewWatchlistStore(storage, nil)
		collections := NewCollectionsStore(storage, nil)
		store.OnSignOut(watchlist.Reset, collections.Reset)

		s, err := store.SignIn(ctx, "a@example.com", "secret1")
		if err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		movie := tu.SampleMovies()[0]
		if _, err := collections.AddTo(s, models.Favorites, movie); err != nil {
			t.Fatalf("AddTo() error = %v", err)
		}
		if _, err := watchlist.Toggle(models.ScopeFor(s), movie); err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}

		if err := store.SignOut(ctx); err != nil {
			t.Fatalf("SignOut() error = %v", err)
		}
		guest := store.Current()
		cols, err := collections.AddTo(guest, models.Favorites, tu.SampleMovies()[1])
		if err != nil {
			t.Fatalf("AddTo() error = %v", err)
		}
		if len(cols[models.Favorites]) != 0 {
			t.Errorf("guest saw the signed-out user's Favorites: %v", cols[models.Favorites].IDs())
		}
		if len(watchlist.lists) != 0 {
			t.Errorf("expected user watchlists dropped, got %v", watchlist.lists)
		}
		if watchlist.Contains(models.ScopeFor(guest), movie.ID) {
			t.Error("guest watchlist picked up the user's movie")
		}
	})

	t.Run("SignOut Backend Failure Still Clears", func(t *testing.T) {
		store, backend, _ := newTestSessionStore(t)
		if _, err := store.SignIn(ctx, "a@example.com", "secret1"); err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		backend.Err = shared.ErrNetworkUnavailable

		if err := store.SignOut(ctx); !errors.Is(err, shared.ErrNetworkUnavailable) {
			t.Errorf("expected ErrNetworkUnavailable, got %v", err)
		}
		if !store.Current().Guest() {
			t.Error("expected guest after sign-out")
		}
	})

	t.Run("SignOut As Guest", func(t *testing.T) {
		store, backend, _ := newTestSessionStore(t)
		if err := store.SignOut(ctx); err != nil {
			t.Errorf("SignOut() error = %v", err)
		}
		if backend.SignOuts != 0 {
			t.Error("guest sign-out should not reach the backend")
		}
	})
}

func TestSessionStoreRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("Restores Persisted Session", func(t *testing.T) {
		first, backend, storage := newTestSessionStore(t)
		want, err := first.SignIn(ctx, "a@example.com", "secret1")
		if err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}

		second := NewSessionStore(backend, storage, nil)
		got, err := second.Restore(ctx)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if got.UserID != want.UserID || second.Current().UserID != want.UserID {
			t.Errorf("Restore() = %v, want %v", got, want)
		}
	})

	t.Run("Nothing Persisted", func(t *testing.T) {
		store, _, _ := newTestSessionStore(t)
		s, err := store.Restore(ctx)
		if err != nil || !s.Guest() {
			t.Errorf("Restore() = %v, %v; want guest", s, err)
		}
	})

	t.Run("Rejected Session Is Destroyed", func(t *testing.T) {
		first, backend, storage := newTestSessionStore(t)
		if _, err := first.SignIn(ctx, "a@example.com", "secret1"); err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		storage.Set(models.FeedPageKey, []byte(`2`))
		backend.Reject = true

		second := NewSessionStore(backend, storage, nil)
		hooked := 0
		second.OnSignOut(func() { hooked++ })
		ch, cancel := second.Subscribe()
		defer cancel()

		if _, err := second.Restore(ctx); !errors.Is(err, shared.ErrBackendRejected) {
			t.Fatalf("expected ErrBackendRejected, got %v", err)
		}
		if got := receive(t, ch); !got.Guest() {
			t.Errorf("expected guest notification, got %v", got)
		}
		if keys, _ := storage.Keys("session"); len(keys) != 0 {
			t.Errorf("expected session keys cleared, got %v", keys)
		}
		if hooked != 1 {
			t.Errorf("expected sign-out hook to run once, ran %d", hooked)
		}
	})

	t.Run("Offline Keeps Session", func(t *testing.T) {
		first, backend, storage := newTestSessionStore(t)
		if _, err := first.SignIn(ctx, "a@example.com", "secret1"); err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		backend.Err = fmt.Errorf("%w: timeout", shared.ErrNetworkUnavailable)

		second := NewSessionStore(backend, storage, nil)
		s, err := second.Restore(ctx)
		if err != nil || s.Guest() {
			t.Errorf("Restore() = %v, %v; want persisted session", s, err)
		}
	})

	t.Run("Corrupt Session", func(t *testing.T) {
		store, _, storage := newTestSessionStore(t)
		storage.Set(models.SessionKey, []byte(`{not json`))

		s, err := store.Restore(ctx)
		if err != nil || !s.Guest() {
			t.Errorf("Restore() = %v, %v; want guest", s, err)
		}
		if _, err := storage.Get(models.SessionKey); !errors.Is(err, shared.ErrKeyNotFound) {
			t.Errorf("expected corrupt session to be removed, got %v", err)
		}
	})
}

func TestBroadcaster(t *testing.T) {
	var b broadcaster[int]
	ch, cancel := b.subscribe()

	b.publish(1)
	b.publish(2)
	if got := receive(t, ch); got != 2 {
		t.Errorf("expected latest value 2, got %d", got)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after cancel")
	}
	b.publish(3)
}
