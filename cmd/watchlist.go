package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// WatchlistList prints the watchlist for the current scope.
func (r *Runner) WatchlistList(ctx context.Context, cmd *cli.Command) error {
	scope := r.scope()
	list := r.watchlist.Load(scope)

	if cmd.Bool("json") {
		return r.writeJSON(list, true)
	}

	r.writePlainHeader(fmt.Sprintf("Watchlist (%s)", scope))
	r.writeMovies(list)
	return nil
}

// WatchlistToggle adds the movie when absent and removes it when present.
func (r *Runner) WatchlistToggle(ctx context.Context, cmd *cli.Command) error {
	id, err := movieID(cmd)
	if err != nil {
		return err
	}

	scope := r.scope()
	movie, err := r.findMovie(ctx, id, int(cmd.Int("page")))
	if err != nil {
		return err
	}

	list, err := r.watchlist.Toggle(scope, movie)
	if err != nil {
		return fmt.Errorf("failed to update watchlist: %w", err)
	}

	if list.Contains(id) {
		return r.writePlain("✓ Added %s to watchlist (%d movies)\n", movie.Title, len(list))
	}
	return r.writePlain("✓ Removed %s from watchlist (%d movies)\n", movie.Title, len(list))
}

// WatchlistRemove removes a movie by id. Removing an absent id is not an error.
func (r *Runner) WatchlistRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := movieID(cmd)
	if err != nil {
		return err
	}

	scope := r.scope()
	if !r.watchlist.Load(scope).Contains(id) {
		return r.writePlain("%d is not in the watchlist\n", id)
	}

	list, err := r.watchlist.Remove(scope, id)
	if err != nil {
		return fmt.Errorf("failed to update watchlist: %w", err)
	}
	return r.writePlain("✓ Removed %d from watchlist (%d movies)\n", id, len(list))
}
