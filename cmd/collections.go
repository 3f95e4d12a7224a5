package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

// collectionName parses the "name" argument. Case and dashes are ignored, so
// "to-watch" selects "To Watch".
func collectionName(cmd *cli.Command) (models.CollectionName, error) {
	raw := cmd.StringArg("name")
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: collection name (%s)", shared.ErrMissingArgument, strings.Join(collectionNames(), ", "))
	}
	name, ok := models.ParseCollectionName(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q (expected one of %s)", shared.ErrUnknownCollection, raw, strings.Join(collectionNames(), ", "))
	}
	return name, nil
}

// CollectionsList prints every collection, or only the named one.
func (r *Runner) CollectionsList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.requireSession()
	if err != nil {
		return err
	}
	cols := r.collections.Load(s)

	names := models.CollectionNames
	if cmd.StringArg("name") != "" {
		name, err := collectionName(cmd)
		if err != nil {
			return err
		}
		names = []models.CollectionName{name}
	}

	if cmd.Bool("json") {
		out := make(map[models.CollectionName]models.MovieList, len(names))
		for _, n := range names {
			out[n] = cols[n]
		}
		return r.writeJSON(out, true)
	}

	for _, n := range names {
		r.writePlainHeader(fmt.Sprintf("%s (%d)", n, len(cols[n])))
		r.writeMovies(cols[n])
	}
	return nil
}

// CollectionsAdd adds a movie to a collection of the signed-in user.
func (r *Runner) CollectionsAdd(ctx context.Context, cmd *cli.Command) error {
	s, err := r.requireSession()
	if err != nil {
		return err
	}
	name, err := collectionName(cmd)
	if err != nil {
		return err
	}
	id, err := movieID(cmd)
	if err != nil {
		return err
	}

	movie, err := r.findMovie(ctx, id, int(cmd.Int("page")))
	if err != nil {
		return err
	}

	cols, err := r.collections.AddTo(s, name, movie)
	if err != nil {
		return fmt.Errorf("failed to update collections: %w", err)
	}
	return r.writePlain("✓ Added %s to %s (%d movies)\n", movie.Title, name, len(cols[name]))
}

// CollectionsRemove removes a movie from a collection of the signed-in user.
func (r *Runner) CollectionsRemove(ctx context.Context, cmd *cli.Command) error {
	s, err := r.requireSession()
	if err != nil {
		return err
	}
	name, err := collectionName(cmd)
	if err != nil {
		return err
	}
	id, err := movieID(cmd)
	if err != nil {
		return err
	}

	r.collections.Load(s)
	cols, err := r.collections.RemoveFrom(s, name, id)
	if err != nil {
		return fmt.Errorf("failed to update collections: %w", err)
	}
	return r.writePlain("✓ Removed %d from %s (%d movies)\n", id, name, len(cols[name]))
}
