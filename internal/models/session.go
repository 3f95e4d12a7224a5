package models

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Session is the signed-in identity. The zero value is a guest.
type Session struct {
	UserID string        `json:"user_id"`
	Email  string        `json:"email"`
	Token  *oauth2.Token `json:"token,omitempty"`
}

// Guest reports whether no user is signed in.
func (s Session) Guest() bool { return s.UserID == "" }

// Expired reports whether the token is present and past its expiry.
// Tokens without an expiry never expire locally; the backend decides.
func (s Session) Expired(now time.Time) bool {
	if s.Token == nil || s.Token.Expiry.IsZero() {
		return false
	}
	return now.After(s.Token.Expiry)
}

// AccessToken returns the bearer token or an empty string for guests.
func (s Session) AccessToken() string {
	if s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

// String renders the session for status output.
func (s Session) String() string {
	if s.Guest() {
		return "guest"
	}
	return s.Email
}

const (
	watchlistKey   = "watchlist"
	collectionsKey = "collections"

	// SessionKey holds the persisted [Session].
	SessionKey = "session"
	// SessionPrefix marks keys cleared on sign-out.
	SessionPrefix = "session:"
	// FeedPageKey holds the popular page the TUI was last showing.
	FeedPageKey = SessionPrefix + "feed_page"
	// UsernameKey holds the display name set from settings.
	UsernameKey = "username"
)

// Scope is the storage partition a list lives under.
type Scope struct {
	userID string
}

// GlobalScope is the shared partition used by guests.
func GlobalScope() Scope { return Scope{} }

// UserScope partitions storage by user id.
func UserScope(userID string) Scope { return Scope{userID: strings.TrimSpace(userID)} }

// ScopeFor picks the watchlist partition for s: global for guests, per user otherwise.
func ScopeFor(s Session) Scope {
	if s.Guest() {
		return GlobalScope()
	}
	return UserScope(s.UserID)
}

// Global reports whether the scope is the shared partition.
func (s Scope) Global() bool { return s.userID == "" }

// UserID returns the owning user or an empty string for the global scope.
func (s Scope) UserID() string { return s.userID }

// WatchlistKey returns "watchlist" or "watchlist_{uid}".
func (s Scope) WatchlistKey() string {
	if s.Global() {
		return watchlistKey
	}
	return watchlistKey + "_" + s.userID
}

// CollectionsKey returns "collections_{uid}". The global scope has no collections key.
func (s Scope) CollectionsKey() (string, bool) {
	if s.Global() {
		return "", false
	}
	return collectionsKey + "_" + s.userID, true
}

func (s Scope) String() string {
	if s.Global() {
		return "global"
	}
	return "user:" + s.userID
}
