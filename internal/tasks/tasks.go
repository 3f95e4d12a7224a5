// package tasks implements the multi-step operations behind the feed and exports.
package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/shared"
)

const (
	defaultTrailerWorkers = 4
	maxTrailerWorkers     = 10
)

// TrailerFailure records a movie whose trailer lookup failed.
type TrailerFailure struct {
	MovieID int
	Title   string
	Err     error
}

// FeedResult is one page of the popular feed with trailers resolved.
type FeedResult struct {
	Page     int
	Movies   []models.Movie // Provider order, never nil
	Trailers int            // Movies with a trailer key
	Failures []TrailerFailure
}

// FeedEngine loads the popular feed and resolves trailer keys.
type FeedEngine struct {
	catalog services.CatalogService
	workers int
	logger  *log.Logger
}

// NewFeedEngine creates a [FeedEngine]. workers bounds concurrent trailer lookups;
// values outside 1..10 fall back to the default of 4 or are capped at 10.
func NewFeedEngine(catalog services.CatalogService, workers int, logger *log.Logger) *FeedEngine {
	if workers <= 0 {
		workers = defaultTrailerWorkers
	}
	if workers > maxTrailerWorkers {
		workers = maxTrailerWorkers
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FeedEngine{catalog: catalog, workers: workers, logger: logger}
}

// Load fetches a popular page and resolves each movie's trailer concurrently.
//
// A failed page fetch returns an empty feed together with the error. A failed
// trailer lookup leaves that movie without a trailer and is recorded in Failures.
func (e *FeedEngine) Load(ctx context.Context, page int, progress chan<- ProgressUpdate) (*FeedResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if page < 1 {
		page = 1
	}

	result := &FeedResult{Page: page, Movies: []models.Movie{}}

	sendProgress(progress, fetchPopularUpdate(page))
	movies, err := e.catalog.FetchPopular(ctx, page)
	if err != nil {
		e.logger.Warn("failed to fetch popular movies", "page", page, "error", err)
		return result, err
	}
	sendProgress(progress, fetchedPopularUpdate(page, len(movies)))

	result.Movies = movies
	if len(movies) == 0 {
		return result, nil
	}

	var (
		mu   sync.Mutex
		done int
	)
	total := len(movies)
	p := pool.New().WithMaxGoroutines(e.workers)

	for i := range result.Movies {
		p.Go(func() {
			m := result.Movies[i]
			if ctx.Err() != nil {
				return
			}

			key, err := e.catalog.FetchTrailer(ctx, m.ID)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				result.Failures = append(result.Failures, TrailerFailure{MovieID: m.ID, Title: m.Title, Err: err})
				e.logger.Debug("trailer lookup failed", "movie", m.ID, "error", err)
			} else {
				result.Movies[i].TrailerKey = key
				m.TrailerKey = key
			}
			sendProgress(progress, trailerUpdate(done, total, m))
		})
	}
	p.Wait()

	for _, m := range result.Movies {
		if m.HasTrailer() {
			result.Trailers++
		}
	}
	return result, ctx.Err()
}
