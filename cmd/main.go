package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reelx/internal/repositories"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/shared"
	"github.com/desertthunder/reelx/internal/stores"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)
	ctx := context.Background()

	if err := shared.LoadEnv(".env"); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	config := loadConfig(logger, defaultConfigPath)
	if err := config.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	db, err := shared.OpenMigrated(config.Database)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	timeout := time.Duration(config.Catalog.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	runner := NewRunner(wire(ctx, config, db, httpClient, logger))

	app := &cli.Command{
		Name:     "reelx",
		Usage:    "Discover popular movies and keep a watchlist",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

// loadConfig reads path when present, falling back to defaults, then applies environment overrides.
func loadConfig(logger *log.Logger, path string) *shared.Config {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if loaded, err := shared.LoadConfig(path); err == nil {
			config = loaded
		} else {
			logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		}
	}
	config.ApplyEnv()

	if err := shared.SetLogLevel(logger, config.Log.Level); err != nil {
		logger.Warn("ignoring log level", "error", err)
	}
	return config
}

// wire builds the storage, backends and stores, and restores a persisted session.
func wire(ctx context.Context, config *shared.Config, db *sql.DB, client *http.Client, logger *log.Logger) RunnerOpts {
	storage, err := repositories.NewStorage(config.Storage, db)
	if err != nil {
		logger.Fatalf("failed to open storage: %v", err)
	}

	backend, err := services.NewBackend(config.Identity, db, client, shared.WithLogger(logger, "component", "identity"))
	if err != nil {
		logger.Fatalf("failed to configure identity backend: %v", err)
	}

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: defaultConfigPath,
		API:        services.NewAPIService(config.Catalog, client),
		Backend:    backend,
		Storage:    storage,
		HTTPClient: client,
		Logger:     logger,
	}

	// A nil *TMDBService must not end up in the interface.
	if tmdb, err := services.NewTMDBService(config.Catalog, client, shared.WithLogger(logger, "component", "catalog")); err == nil {
		opts.Catalog = tmdb
	} else {
		logger.Debug("catalog disabled", "error", err)
	}

	opts.Sessions = stores.NewSessionStore(backend, storage, shared.WithLogger(logger, "component", "session"))
	if s, err := opts.Sessions.Restore(ctx); err != nil {
		logger.Warn("stored session was rejected, continuing as guest", "error", err)
	} else if !s.Guest() {
		logger.Debug("restored session", "email", s.Email)
	}

	return opts
}
