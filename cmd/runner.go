package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/repositories"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/shared"
	"github.com/desertthunder/reelx/internal/stores"
	"github.com/desertthunder/reelx/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	backend     services.Backend
	catalog     services.CatalogService
	api         *services.APIService
	sessions    *stores.SessionStore
	watchlist   *stores.WatchlistStore
	collections *stores.CollectionsStore
	settings    *stores.Settings
	feed        *tasks.FeedEngine
	exports     *tasks.ExportEngine
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	input       *bufio.Reader
	openURL     func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Stores left nil are built over Storage (in-memory when nil). Auth commands
// fail with [shared.ErrServiceUnavailable] when Backend is nil.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Catalog     services.CatalogService
	API         *services.APIService
	Backend     services.Backend
	Storage     repositories.Storage
	Sessions    *stores.SessionStore
	Watchlist   *stores.WatchlistStore
	Collections *stores.CollectionsStore
	Settings    *stores.Settings
	FS          afero.Fs
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Input       io.Reader
	OpenURL     func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}
	if opts.Storage == nil {
		opts.Storage = repositories.NewMemoryStorage()
	}
	if opts.Sessions == nil {
		opts.Sessions = stores.NewSessionStore(opts.Backend, opts.Storage, opts.Logger)
	}
	if opts.Watchlist == nil {
		opts.Watchlist = stores.NewWatchlistStore(opts.Storage, opts.Logger)
	}
	if opts.Collections == nil {
		opts.Collections = stores.NewCollectionsStore(opts.Storage, opts.Logger)
	}
	if opts.Settings == nil {
		opts.Settings = stores.NewSettings(opts.Storage)
	}
	opts.Sessions.OnSignOut(opts.Watchlist.Reset, opts.Collections.Reset)

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		backend:     opts.Backend,
		catalog:     opts.Catalog,
		api:         opts.API,
		sessions:    opts.Sessions,
		watchlist:   opts.Watchlist,
		collections: opts.Collections,
		settings:    opts.Settings,
		feed:        tasks.NewFeedEngine(opts.Catalog, 0, opts.Logger),
		exports:     tasks.NewExportEngine(opts.FS, opts.HTTPClient, opts.Logger),
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		input:       bufio.NewReader(opts.Input),
		openURL:     opts.OpenURL,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, moviesCommand, watchlistCommand, collectionsCommand,
		exportCommand, settingsCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// scope returns the watchlist scope for the current session.
func (r *Runner) scope() models.Scope {
	return models.ScopeFor(r.sessions.Current())
}

// requireSession returns the current session or [shared.ErrNotAuthenticated] for guests.
func (r *Runner) requireSession() (models.Session, error) {
	s := r.sessions.Current()
	if s.Guest() {
		return s, fmt.Errorf("%w: run 'reelx auth signin' first", shared.ErrNotAuthenticated)
	}
	return s, nil
}

func (r *Runner) requireBackend() error {
	if r.backend == nil {
		return fmt.Errorf("%w: identity backend not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

func (r *Runner) requireCatalog() error {
	if r.catalog == nil {
		return fmt.Errorf("%w: catalog not configured (set catalog.api_key or %s)", shared.ErrServiceUnavailable, shared.EnvCatalogAPIKey)
	}
	return nil
}

// findMovie resolves id from the watchlist, then the collections, then the given popular page.
func (r *Runner) findMovie(ctx context.Context, id, page int) (models.Movie, error) {
	wl := r.watchlist.Load(r.scope())
	if i := wl.Index(id); i >= 0 {
		return wl[i], nil
	}

	if s := r.sessions.Current(); !s.Guest() {
		for _, list := range r.collections.Load(s) {
			if i := list.Index(id); i >= 0 {
				return list[i], nil
			}
		}
	}

	if err := r.requireCatalog(); err != nil {
		return models.Movie{}, err
	}
	result, err := r.feed.Load(ctx, page, nil)
	if err != nil {
		return models.Movie{}, fmt.Errorf("failed to fetch popular movies: %w", err)
	}
	for _, m := range result.Movies {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Movie{}, fmt.Errorf("%w: %d is not on popular page %d", shared.ErrMovieNotFound, id, page)
}

// readLine prompts on the output and reads one line from the input.
func (r *Runner) readLine(prompt string) (string, error) {
	r.writePlain("%s", prompt)
	line, err := r.input.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.TrimSuffix(strings.TrimSpace(prompt), ":"))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// writeMovies prints movies one per line with their rating and year.
func (r *Runner) writeMovies(movies []models.Movie) {
	if len(movies) == 0 {
		r.writePlain("  (empty)\n")
		return
	}
	for i, m := range movies {
		line := fmt.Sprintf("%3d. [%d] %s", i+1, m.ID, m.Title)
		if y := m.Year(); y != "" {
			line += fmt.Sprintf(" (%s)", y)
		}
		line += fmt.Sprintf(" ⭐ %s", shared.FormatRating(m.VoteAverage))
		if m.HasTrailer() {
			line += " ▶"
		}
		r.writePlain("%s\n", line)
	}
}
