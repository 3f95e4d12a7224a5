package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

var _ list.Item = movieItem{}

// movieItem wraps [models.Movie] to implement [list.Item].
type movieItem struct {
	movie       models.Movie
	inWatchlist bool
}

func (i movieItem) FilterValue() string { return i.movie.Title }

func (i movieItem) Title() string {
	if i.inWatchlist {
		return "★ " + i.movie.Title
	}
	return i.movie.Title
}

func (i movieItem) Description() string {
	parts := []string{fmt.Sprintf("⭐ %s", shared.FormatRating(i.movie.VoteAverage))}
	if y := i.movie.Year(); y != "" {
		parts = append(parts, y)
	}
	if i.movie.HasTrailer() {
		parts = append(parts, "▶ trailer")
	}
	return strings.Join(parts, " • ")
}

func movieItems(movies []models.Movie, watchlist models.MovieList) []list.Item {
	items := make([]list.Item, len(movies))
	for i, m := range movies {
		items[i] = movieItem{movie: m, inWatchlist: watchlist.Contains(m.ID)}
	}
	return items
}

func newMovieList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	return l
}
