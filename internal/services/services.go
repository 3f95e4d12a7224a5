// package services defines the interfaces for the external backends the client talks to
//
// TMDB (catalog), Firebase REST or local SQLite (identity and documents)
package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

// CatalogService fetches movie metadata from a catalog provider.
type CatalogService interface {
	// FetchPopular returns one page of popular movies in provider order.
	// On failure the slice is empty and non-nil so callers can render it directly.
	FetchPopular(ctx context.Context, page int) ([]models.Movie, error)

	// FetchTrailer returns the video key of the first trailer for movieID, or "" when there is none.
	FetchTrailer(ctx context.Context, movieID int) (string, error)
}

// IdentityProvider authenticates users against an identity backend.
type IdentityProvider interface {
	// SignIn exchanges credentials for a session.
	SignIn(ctx context.Context, email, password string) (models.Session, error)

	// SignUp creates an account and returns its session.
	SignUp(ctx context.Context, email, password string) (models.Session, error)

	// SignOut ends the session at the backend.
	SignOut(ctx context.Context, session models.Session) error

	// Verify checks that a restored session is still accepted and returns its refreshed form.
	Verify(ctx context.Context, session models.Session) (models.Session, error)

	// Name returns the backend name (e.g., "local", "firebase")
	Name() string
}

// DocumentStore reads and provisions per-user documents.
type DocumentStore interface {
	// CreateIfAbsent writes doc for the session's user unless one exists.
	CreateIfAbsent(ctx context.Context, session models.Session, doc models.UserDocument) error

	// Get loads the session user's document.
	Get(ctx context.Context, session models.Session) (models.UserDocument, error)
}

// Backend bundles the identity and document halves of one provider.
type Backend interface {
	IdentityProvider
	DocumentStore
}

// NewBackend builds the identity/document backend selected by cfg.Backend.
// db is required by the local backend only.
func NewBackend(cfg shared.IdentityConfig, db *sql.DB, client *http.Client, logger *log.Logger) (Backend, error) {
	switch cfg.Backend {
	case "", shared.IdentityLocal:
		if db == nil {
			return nil, fmt.Errorf("%w: local identity requires a database", shared.ErrInvalidConfig)
		}
		return NewLocalBackend(db, logger), nil
	case shared.IdentityFirebase:
		return NewFirebaseBackend(cfg, client, logger)
	default:
		return nil, fmt.Errorf("%w: unknown identity backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}
