package models

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// CollectionName identifies one of the fixed per-user buckets.
type CollectionName string

const (
	Favorites CollectionName = "Favorites"
	ToWatch   CollectionName = "To Watch"
	Watched   CollectionName = "Watched"
)

// CollectionNames lists the buckets in display order.
var CollectionNames = []CollectionName{Favorites, ToWatch, Watched}

// ParseCollectionName matches s case-insensitively against the known names.
// Dashed or underscored forms such as "to-watch" are accepted.
func ParseCollectionName(s string) (CollectionName, bool) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s))
	for _, n := range CollectionNames {
		if strings.EqualFold(string(n), norm) {
			return n, true
		}
	}
	return "", false
}

// Valid reports whether n is exactly one of the known bucket names.
func (n CollectionName) Valid() bool {
	return slices.Contains(CollectionNames, n)
}

// Collections maps each bucket to its movies.
type Collections map[CollectionName]MovieList

// DefaultCollections returns the three buckets, each empty.
func DefaultCollections() Collections {
	c := make(Collections, len(CollectionNames))
	for _, n := range CollectionNames {
		c[n] = MovieList{}
	}
	return c
}

// Normalize fills missing buckets, drops unknown ones and dedupes each list.
func (c Collections) Normalize() Collections {
	out := DefaultCollections()
	for name, list := range c {
		if n, ok := ParseCollectionName(string(name)); ok {
			out[n] = list.Dedupe()
		}
	}
	return out
}

// Clone deep-copies every bucket.
func (c Collections) Clone() Collections {
	out := make(Collections, len(c))
	for n, l := range c {
		out[n] = l.Clone()
	}
	return out
}

// With returns a copy where name holds list.
func (c Collections) With(name CollectionName, list MovieList) Collections {
	out := c.Clone()
	out[name] = list
	return out
}

// Memberships returns the buckets containing id, in display order.
func (c Collections) Memberships(id int) []CollectionName {
	var names []CollectionName
	for _, n := range CollectionNames {
		if c[n].Contains(id) {
			names = append(names, n)
		}
	}
	return names
}

// MarshalJSON always writes all three buckets with non-null arrays.
func (c Collections) MarshalJSON() ([]byte, error) {
	norm := c.Normalize()
	raw := make(map[string]MovieList, len(norm))
	for n, l := range norm {
		raw[string(n)] = l.Clone()
	}
	return json.Marshal(raw)
}

// UserDocument is the per-user record in the document backend.
type UserDocument struct {
	Email       string      `json:"email"`
	CreatedAt   time.Time   `json:"createdAt"`
	Collections Collections `json:"collections"`
}

// NewUserDocument returns a document with default collections.
func NewUserDocument(email string, now time.Time) UserDocument {
	return UserDocument{Email: email, CreatedAt: now.UTC(), Collections: DefaultCollections()}
}
