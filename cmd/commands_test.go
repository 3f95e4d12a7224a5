package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/repositories"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/shared"
	tu "github.com/desertthunder/reelx/internal/testing"
)

type testEnv struct {
	runner  *Runner
	output  *bytes.Buffer
	storage *repositories.MemoryStorage
	backend *tu.MockBackend
	catalog *tu.MockCatalog
	fs      afero.Fs
	opened  []string
}

func newTestEnv(t *testing.T, opts RunnerOpts) *testEnv {
	t.Helper()
	env := &testEnv{
		output:  &bytes.Buffer{},
		storage: repositories.NewMemoryStorage(),
		backend: tu.NewMockBackend(map[string]string{"a@example.com": "secret1"}),
		catalog: &tu.MockCatalog{Movies: tu.SampleMovies(), Trailers: map[int]string{603: "abc"}},
		fs:      afero.NewMemMapFs(),
	}

	opts.Output = env.output
	opts.Storage = env.storage
	opts.Backend = env.backend
	opts.Catalog = env.catalog
	opts.FS = env.fs
	opts.Logger = shared.NewLogger(io.Discard)
	opts.OpenURL = func(u string) error {
		env.opened = append(env.opened, u)
		return nil
	}
	env.runner = NewRunner(opts)
	return env
}

// run executes args against a fresh command tree.
func (e *testEnv) run(args ...string) error {
	app := &cli.Command{
		Name:     "reelx",
		Writer:   io.Discard,
		Commands: e.runner.register(),
	}
	return app.Run(context.Background(), append([]string{"reelx"}, args...))
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	if err := e.run("auth", "signin", "--email", "a@example.com", "--password", "secret1"); err != nil {
		t.Fatalf("signin error = %v", err)
	}
	e.output.Reset()
}

func TestAuthCommands(t *testing.T) {
	t.Run("SignIn With Flags", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("auth", "signin", "--email", "a@example.com", "--password", "secret1"); err != nil {
			t.Fatalf("signin error = %v", err)
		}
		if !strings.Contains(env.output.String(), "Signed in as a@example.com") {
			t.Errorf("unexpected output %q", env.output.String())
		}
		if _, err := env.storage.Get(models.SessionKey); err != nil {
			t.Errorf("expected persisted session, got %v", err)
		}
	})

	t.Run("SignIn Prompts For Missing Values", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{Input: strings.NewReader("a@example.com\nsecret1\n")})
		if err := env.run("auth", "signin"); err != nil {
			t.Fatalf("signin error = %v", err)
		}
		out := env.output.String()
		if !strings.Contains(out, "Email: ") || !strings.Contains(out, "Password: ") {
			t.Errorf("expected prompts, got %q", out)
		}
		if env.runner.sessions.Current().Email != "a@example.com" {
			t.Errorf("session = %v", env.runner.sessions.Current())
		}
	})

	t.Run("SignIn Wrong Password", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		err := env.run("auth", "signin", "-e", "a@example.com", "-p", "nope")
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if !env.runner.sessions.Current().Guest() {
			t.Error("expected guest after failed sign-in")
		}
	})

	t.Run("SignIn Without Backend", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(io.Discard)})
		app := &cli.Command{Name: "reelx", Writer: io.Discard, Commands: runner.register()}
		err := app.Run(context.Background(), []string{"reelx", "auth", "signin", "-e", "a@example.com", "-p", "x"})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("SignUp Provisions Document", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("auth", "signup", "-e", "new@example.com", "-p", "secret2"); err != nil {
			t.Fatalf("signup error = %v", err)
		}
		doc, ok := env.backend.Documents["uid-new@example.com"]
		if !ok {
			t.Fatal("expected user document to be provisioned")
		}
		if doc.Email != "new@example.com" {
			t.Errorf("document email = %q", doc.Email)
		}
		if !strings.Contains(env.output.String(), "Favorites, To Watch, Watched") {
			t.Errorf("unexpected output %q", env.output.String())
		}

		env.output.Reset()
		if err := env.run("collections", "list", "--json"); err != nil {
			t.Fatalf("collections list error = %v", err)
		}
		var got map[string][]models.Movie
		if err := json.Unmarshal(env.output.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected three default collections, got %v", got)
		}
		for name, list := range got {
			if len(list) != 0 {
				t.Errorf("collection %s should be empty", name)
			}
		}
	})

	t.Run("SignUp Existing Email", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		err := env.run("auth", "signup", "-e", "a@example.com", "-p", "secret1")
		if !errors.Is(err, shared.ErrBackendRejected) {
			t.Errorf("expected ErrBackendRejected, got %v", err)
		}
	})

	t.Run("SignOut Clears Session", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		env.signIn(t)

		if err := env.run("auth", "signout"); err != nil {
			t.Fatalf("signout error = %v", err)
		}
		if _, err := env.storage.Get(models.SessionKey); !errors.Is(err, shared.ErrKeyNotFound) {
			t.Errorf("expected session key removed, got %v", err)
		}
		if env.backend.SignOuts != 1 {
			t.Errorf("backend sign outs = %d, want 1", env.backend.SignOuts)
		}
	})

	t.Run("SignOut As Guest", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("auth", "signout"); err != nil {
			t.Fatalf("signout error = %v", err)
		}
		if env.backend.SignOuts != 0 {
			t.Error("guest sign out should not reach the backend")
		}
	})

	t.Run("Status JSON", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("auth", "status", "--json"); err != nil {
			t.Fatalf("status error = %v", err)
		}
		var status map[string]any
		if err := json.Unmarshal(env.output.Bytes(), &status); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if status["signed_in"] != false || status["watchlist_key"] != "watchlist" {
			t.Errorf("unexpected status %v", status)
		}

		env.signIn(t)
		if err := env.run("auth", "status"); err != nil {
			t.Fatalf("status error = %v", err)
		}
		if !strings.Contains(env.output.String(), "User ID: uid-a@example.com") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})
}

func TestMoviesCommands(t *testing.T) {
	t.Run("Popular", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("movies", "popular"); err != nil {
			t.Fatalf("popular error = %v", err)
		}
		out := env.output.String()
		for _, want := range []string{"page 1", "The Matrix", "Fight Club", "3 movies, 1 with trailers, 0 in your watchlist"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("Popular JSON", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("movies", "popular", "--json"); err != nil {
			t.Fatalf("popular error = %v", err)
		}
		var movies []models.Movie
		if err := json.Unmarshal(env.output.Bytes(), &movies); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(movies) != 3 || movies[0].TrailerKey != "abc" {
			t.Errorf("unexpected movies %+v", movies)
		}
	})

	t.Run("Popular Catalog Failure", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		env.catalog.PopularErr = shared.ErrNetworkUnavailable
		if err := env.run("movies", "popular"); !errors.Is(err, shared.ErrNetworkUnavailable) {
			t.Errorf("expected ErrNetworkUnavailable, got %v", err)
		}
	})

	t.Run("Trailer Open", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("movies", "trailer", "--open", "603"); err != nil {
			t.Fatalf("trailer error = %v", err)
		}
		if len(env.opened) != 1 || env.opened[0] != services.TrailerURL("abc") {
			t.Errorf("opened = %v", env.opened)
		}
	})

	t.Run("Trailer Missing", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("movies", "trailer", "--open", "680"); err != nil {
			t.Fatalf("trailer error = %v", err)
		}
		if len(env.opened) != 0 || !strings.Contains(env.output.String(), "No trailer available") {
			t.Errorf("opened = %v, output = %q", env.opened, env.output.String())
		}
	})

	t.Run("Invalid ID", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("movies", "trailer", "matrix"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("No Catalog", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(io.Discard)})
		app := &cli.Command{Name: "reelx", Writer: io.Discard, Commands: runner.register()}
		err := app.Run(context.Background(), []string{"reelx", "movies", "popular"})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestWatchlistCommands(t *testing.T) {
	t.Run("Toggle Twice As Guest", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("watchlist", "toggle", "603"); err != nil {
			t.Fatalf("toggle error = %v", err)
		}
		if !strings.Contains(env.output.String(), "Added The Matrix to watchlist (1 movies)") {
			t.Errorf("unexpected output %q", env.output.String())
		}
		if env.storage.Writes("watchlist") != 1 {
			t.Error("expected the global watchlist key to be written")
		}

		if err := env.run("watchlist", "toggle", "603"); err != nil {
			t.Fatalf("toggle error = %v", err)
		}
		if env.runner.watchlist.Contains(models.GlobalScope(), 603) {
			t.Error("second toggle should remove the movie")
		}
		if env.catalog.PopularCalls != 1 {
			t.Errorf("removing a saved movie should not hit the catalog, calls = %d", env.catalog.PopularCalls)
		}
	})

	t.Run("Toggle Uses User Scope", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		env.signIn(t)
		if err := env.run("watchlist", "toggle", "550"); err != nil {
			t.Fatalf("toggle error = %v", err)
		}
		if env.storage.Writes("watchlist_uid-a@example.com") != 1 {
			t.Errorf("expected user watchlist write, got keys %v", env.storage.WrittenKeys())
		}
		if env.storage.Writes("watchlist") != 0 {
			t.Error("guest watchlist must not be touched")
		}
	})

	t.Run("Toggle Unknown Movie", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("watchlist", "toggle", "999"); !errors.Is(err, shared.ErrMovieNotFound) {
			t.Errorf("expected ErrMovieNotFound, got %v", err)
		}
	})

	t.Run("Toggle Write Failure", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		env.storage.FailWrites = true
		if err := env.run("watchlist", "toggle", "603"); !errors.Is(err, shared.ErrStorageWrite) {
			t.Errorf("expected ErrStorageWrite, got %v", err)
		}
	})

	t.Run("List And Remove", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		for _, id := range []string{"603", "550"} {
			if err := env.run("watchlist", "toggle", id); err != nil {
				t.Fatalf("toggle error = %v", err)
			}
		}
		env.output.Reset()

		if err := env.run("watchlist", "remove", "603"); err != nil {
			t.Fatalf("remove error = %v", err)
		}
		env.output.Reset()
		if err := env.run("watchlist", "list", "--json"); err != nil {
			t.Fatalf("list error = %v", err)
		}
		var list []models.Movie
		if err := json.Unmarshal(env.output.Bytes(), &list); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(list) != 1 || list[0].ID != 550 {
			t.Errorf("watchlist = %+v", list)
		}

		env.output.Reset()
		if err := env.run("watchlist", "remove", "603"); err != nil {
			t.Fatalf("remove error = %v", err)
		}
		if !strings.Contains(env.output.String(), "not in the watchlist") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})
}

func TestCollectionsCommands(t *testing.T) {
	t.Run("Requires Sign In", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("collections", "add", "favorites", "603"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if keys := env.storage.WrittenKeys(); len(keys) != 0 {
			t.Errorf("guest must not write, got %v", keys)
		}
	})

	t.Run("Add And Remove", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		env.signIn(t)

		if err := env.run("collections", "add", "favorites", "603"); err != nil {
			t.Fatalf("add error = %v", err)
		}
		if err := env.run("collections", "add", "to-watch", "603"); err != nil {
			t.Fatalf("add error = %v", err)
		}
		if err := env.run("collections", "remove", "To Watch", "603"); err != nil {
			t.Fatalf("remove error = %v", err)
		}

		cols := env.runner.collections.Load(env.runner.sessions.Current())
		if !cols[models.Favorites].Contains(603) {
			t.Error("expected The Matrix in Favorites")
		}
		if cols[models.ToWatch].Contains(603) {
			t.Error("expected The Matrix removed from To Watch")
		}

		env.output.Reset()
		if err := env.run("collections", "list", "favorites"); err != nil {
			t.Fatalf("list error = %v", err)
		}
		if !strings.Contains(env.output.String(), "Favorites (1)") || strings.Contains(env.output.String(), "Watched") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Unknown Collection", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		env.signIn(t)
		if err := env.run("collections", "add", "later", "603"); !errors.Is(err, shared.ErrUnknownCollection) {
			t.Errorf("expected ErrUnknownCollection, got %v", err)
		}
	})
}

func TestExportCommands(t *testing.T) {
	t.Run("Watchlist CSV", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("watchlist", "toggle", "603"); err != nil {
			t.Fatalf("toggle error = %v", err)
		}

		if err := env.run("export", "watchlist", "--format", "csv", "--output", "out"); err != nil {
			t.Fatalf("export error = %v", err)
		}
		for _, path := range []string{filepath.Join("out", "watchlist.csv"), filepath.Join("out", "export_manifest.json")} {
			if ok, _ := afero.Exists(env.fs, path); !ok {
				t.Errorf("expected %s to exist", path)
			}
		}
		data, err := afero.ReadFile(env.fs, filepath.Join("out", "watchlist.csv"))
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.Contains(string(data), "The Matrix") {
			t.Errorf("unexpected CSV %q", string(data))
		}
		if !strings.Contains(env.output.String(), "Export Complete!") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Empty Watchlist", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("export", "watchlist", "--output", "out"); err != nil {
			t.Fatalf("export error = %v", err)
		}
		if ok, _ := afero.DirExists(env.fs, "out"); ok {
			t.Error("nothing should be written for an empty watchlist")
		}
	})

	t.Run("Collections", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		env.signIn(t)
		if err := env.run("collections", "add", "watched", "680"); err != nil {
			t.Fatalf("add error = %v", err)
		}

		if err := env.run("export", "collections", "--format", "txt", "--output", "out"); err != nil {
			t.Fatalf("export error = %v", err)
		}
		for _, name := range []string{"favorites.txt", "to-watch.txt", "watched.txt"} {
			if ok, _ := afero.Exists(env.fs, filepath.Join("out", name)); !ok {
				t.Errorf("expected %s to exist", name)
			}
		}
	})

	t.Run("Invalid Format", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{})
		if err := env.run("watchlist", "toggle", "603"); err != nil {
			t.Fatalf("toggle error = %v", err)
		}
		if err := env.run("export", "watchlist", "--format", "pdf"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSettingsCommand(t *testing.T) {
	env := newTestEnv(t, RunnerOpts{})

	if err := env.run("settings", "username"); err != nil {
		t.Fatalf("settings error = %v", err)
	}
	if !strings.Contains(env.output.String(), "(not set)") || !strings.Contains(env.output.String(), "Movie Recommendation App") {
		t.Errorf("unexpected output %q", env.output.String())
	}

	env.output.Reset()
	if err := env.run("settings", "username", "Ada"); err != nil {
		t.Fatalf("settings error = %v", err)
	}
	if !strings.Contains(env.output.String(), "Ada's Movie Recommendations") {
		t.Errorf("unexpected output %q", env.output.String())
	}

	if err := env.run("settings", "username", "--clear"); err != nil {
		t.Fatalf("settings error = %v", err)
	}
	if env.runner.settings.Username() != "" {
		t.Error("expected username cleared")
	}
}

func TestSetupDatabase(t *testing.T) {
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "reelx.db")
	env := newTestEnv(t, RunnerOpts{Config: config})

	if err := env.run("setup", "database"); err != nil {
		t.Fatalf("setup error = %v", err)
	}
	if !strings.Contains(env.output.String(), "Database ready") {
		t.Errorf("unexpected output %q", env.output.String())
	}
	tu.AssertFileExists(t, config.Database.Path)
}

func TestSetupConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	env := newTestEnv(t, RunnerOpts{ConfigPath: path})

	if err := env.run("setup", "config"); err != nil {
		t.Fatalf("setup config error = %v", err)
	}
	if !strings.Contains(tu.MustReadFile(t, path), "[catalog]") {
		t.Error("expected the default config to be written")
	}
	if err := env.run("setup", "config"); err == nil {
		t.Error("expected an error when the config already exists")
	}
}

func TestAPIGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/movie/603":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":603,"title":"The Matrix"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status_message":"not found"}`))
		}
	}))
	defer server.Close()

	api := services.NewAPIService(shared.CatalogConfig{BaseURL: server.URL, APIKey: "key"}, server.Client())

	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{API: api})
		if err := env.run("api", "get", "/movie/603"); err != nil {
			t.Fatalf("api get error = %v", err)
		}
		if !strings.Contains(env.output.String(), `"title": "The Matrix"`) {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Non 2xx", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{API: api})
		if err := env.run("api", "get", "/movie/0"); !errors.Is(err, shared.ErrBackendRejected) {
			t.Errorf("expected ErrBackendRejected, got %v", err)
		}
	})

	t.Run("Missing Path", func(t *testing.T) {
		env := newTestEnv(t, RunnerOpts{API: api})
		if err := env.run("api", "get"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
