package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/shared"
	"github.com/desertthunder/reelx/internal/tasks"
)

// movieID parses the "id" argument.
func movieID(cmd *cli.Command) (int, error) {
	raw := strings.TrimSpace(cmd.StringArg("id"))
	if raw == "" {
		return 0, fmt.Errorf("%w: movie id", shared.ErrMissingArgument)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: movie id %q", shared.ErrInvalidArgument, raw)
	}
	return id, nil
}

// MoviesPopular prints one page of popular movies with trailers resolved.
func (r *Runner) MoviesPopular(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCatalog(); err != nil {
		return err
	}
	page := int(cmd.Int("page"))
	engine := tasks.NewFeedEngine(r.catalog, int(cmd.Int("workers")), r.logger)

	r.logger.Info("fetching popular movies", "page", page)
	result, err := engine.Load(ctx, page, nil)
	if err != nil {
		return fmt.Errorf("failed to load popular movies: %w", err)
	}
	for _, f := range result.Failures {
		r.logger.Warn("trailer lookup failed", "movie", f.MovieID, "title", f.Title, "error", f.Err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Movies, true)
	}

	wl := r.watchlist.Load(r.scope())
	r.writePlainHeader(fmt.Sprintf("Popular movies • page %d", result.Page))
	r.writeMovies(result.Movies)
	saved := 0
	for _, m := range result.Movies {
		if wl.Contains(m.ID) {
			saved++
		}
	}
	return r.writePlainln("%d movies, %d with trailers, %d in your watchlist", len(result.Movies), result.Trailers, saved)
}

// MoviesTrailer prints the trailer link for a movie and optionally opens it.
func (r *Runner) MoviesTrailer(ctx context.Context, cmd *cli.Command) error {
	id, err := movieID(cmd)
	if err != nil {
		return err
	}
	if err := r.requireCatalog(); err != nil {
		return err
	}

	key, err := r.catalog.FetchTrailer(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch trailer: %w", err)
	}
	if key == "" {
		return r.writePlain("No trailer available for %d\n", id)
	}

	link := services.TrailerURL(key)
	r.writePlain("%s\n", link)
	if cmd.Bool("open") {
		if err := r.openURL(link); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}
	}
	return nil
}
