package models

import (
	"slices"
	"time"
)

// ReleaseDateLayout is the format the catalog uses for release dates.
const ReleaseDateLayout = "2006-01-02"

// Movie is a catalog title. Values are copied into lists and never refreshed.
//
// JSON names follow the catalog's wire format so persisted lists stay readable by older clients.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path,omitempty"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	Overview    string  `json:"overview,omitempty"`
	TrailerKey  string  `json:"trailer_url,omitempty"`
}

// Released parses the release date. ok is false when the date is empty or invalid.
func (m Movie) Released() (t time.Time, ok bool) {
	if m.ReleaseDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(ReleaseDateLayout, m.ReleaseDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Year returns the release year or an empty string.
func (m Movie) Year() string {
	if t, ok := m.Released(); ok {
		return t.Format("2006")
	}
	return ""
}

// HasTrailer reports whether a trailer key was resolved.
func (m Movie) HasTrailer() bool { return m.TrailerKey != "" }

// MovieList is an ordered list of movies with set semantics on [Movie.ID].
//
// Methods never mutate the receiver; they return a new list so callers can
// keep the previous value until a write succeeds.
type MovieList []Movie

// Index returns the position of id or -1.
func (l MovieList) Index(id int) int {
	return slices.IndexFunc(l, func(m Movie) bool { return m.ID == id })
}

// Contains reports whether a movie with id is in the list.
func (l MovieList) Contains(id int) bool { return l.Index(id) >= 0 }

// Add appends m when its id is absent. An existing entry keeps its original snapshot.
func (l MovieList) Add(m Movie) MovieList {
	if l.Contains(m.ID) {
		return l.Clone()
	}
	out := make(MovieList, len(l), len(l)+1)
	copy(out, l)
	return append(out, m)
}

// Remove drops the entry with id. Absent ids yield an unchanged copy.
func (l MovieList) Remove(id int) MovieList {
	out := make(MovieList, 0, len(l))
	for _, m := range l {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// Toggle removes m when present and appends it otherwise.
func (l MovieList) Toggle(m Movie) MovieList {
	if l.Contains(m.ID) {
		return l.Remove(m.ID)
	}
	return l.Add(m)
}

// Clone returns a non-nil copy.
func (l MovieList) Clone() MovieList {
	out := make(MovieList, len(l))
	copy(out, l)
	return out
}

// Dedupe keeps the first occurrence of each id, used when reading lists written by other clients.
func (l MovieList) Dedupe() MovieList {
	seen := make(map[int]struct{}, len(l))
	out := make(MovieList, 0, len(l))
	for _, m := range l {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// IDs returns the movie ids in order.
func (l MovieList) IDs() []int {
	ids := make([]int, len(l))
	for i, m := range l {
		ids[i] = m.ID
	}
	return ids
}
