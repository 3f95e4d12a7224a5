package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/repositories"
	"github.com/desertthunder/reelx/internal/shared"
)

const (
	minPasswordLength = 6
	localSessionTTL   = 30 * 24 * time.Hour
)

// LocalBackend implements [Backend] with accounts stored in SQLite.
//
// Passwords are bcrypt hashed. Sessions are opaque UUID tokens in the sessions table.
type LocalBackend struct {
	users     *repositories.UserRepository
	documents *repositories.DocumentRepository
	sessions  *repositories.SessionRepository
	cost      int
	ttl       time.Duration
	now       func() time.Time
	logger    *log.Logger
}

// NewLocalBackend creates a [LocalBackend] on a migrated database.
func NewLocalBackend(db *sql.DB, logger *log.Logger) *LocalBackend {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &LocalBackend{
		users:     repositories.NewUserRepository(db),
		documents: repositories.NewDocumentRepository(db),
		sessions:  repositories.NewSessionRepository(db),
		cost:      bcrypt.DefaultCost,
		ttl:       localSessionTTL,
		now:       time.Now,
		logger:    logger,
	}
}

// WithCost overrides the bcrypt cost. Tests use [bcrypt.MinCost].
func (b *LocalBackend) WithCost(cost int) *LocalBackend {
	b.cost = cost
	return b
}

func (b *LocalBackend) Name() string { return shared.IdentityLocal }

// SignUp implements [IdentityProvider].
func (b *LocalBackend) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	if err := ctx.Err(); err != nil {
		return models.Session{}, err
	}
	if err := validateCredentials(email, password); err != nil {
		return models.Session{}, err
	}
	if len(password) < minPasswordLength {
		return models.Session{}, fmt.Errorf("%w: password must be at least %d characters", shared.ErrBackendRejected, minPasswordLength)
	}

	if _, err := b.users.GetByEmail(email); err == nil {
		return models.Session{}, fmt.Errorf("%w: email already in use", shared.ErrBackendRejected)
	} else if !errors.Is(err, shared.ErrKeyNotFound) {
		return models.Session{}, fmt.Errorf("%w: %v", shared.ErrNetworkUnavailable, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", shared.ErrBackendRejected, err)
	}

	user := models.NewUser(0, email, string(hash))
	if err := b.users.Create(user); err != nil {
		if errors.Is(err, shared.ErrInvalidInput) {
			return models.Session{}, fmt.Errorf("%w: %v", shared.ErrBackendRejected, err)
		}
		return models.Session{}, fmt.Errorf("%w: %v", shared.ErrNetworkUnavailable, err)
	}

	b.logger.Info("created local account", "user_id", user.ID())
	return b.issue(user)
}

// SignIn implements [IdentityProvider]. Unknown emails and wrong passwords both yield [shared.ErrInvalidCredentials].
func (b *LocalBackend) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	if err := ctx.Err(); err != nil {
		return models.Session{}, err
	}
	if err := validateCredentials(email, password); err != nil {
		return models.Session{}, err
	}

	user, err := b.users.GetByEmail(email)
	if errors.Is(err, shared.ErrKeyNotFound) {
		return models.Session{}, shared.ErrInvalidCredentials
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", shared.ErrNetworkUnavailable, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(password)); err != nil {
		return models.Session{}, shared.ErrInvalidCredentials
	}

	return b.issue(user)
}

func (b *LocalBackend) issue(user *models.User) (models.Session, error) {
	token := shared.GenerateID()
	expiry := b.now().Add(b.ttl)

	if err := b.sessions.Create(token, user.ID(), expiry); err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", shared.ErrNetworkUnavailable, err)
	}

	return models.Session{
		UserID: user.ID(),
		Email:  user.Email(),
		Token:  &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: expiry},
	}, nil
}

// SignOut implements [IdentityProvider] by revoking the token.
func (b *LocalBackend) SignOut(ctx context.Context, session models.Session) error {
	if session.Guest() || session.AccessToken() == "" {
		return nil
	}
	if err := b.sessions.Delete(session.AccessToken()); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetworkUnavailable, err)
	}
	return nil
}

// Verify implements [IdentityProvider]. Unknown, expired or mismatched tokens are rejected.
func (b *LocalBackend) Verify(ctx context.Context, session models.Session) (models.Session, error) {
	if session.Guest() || session.AccessToken() == "" {
		return models.Session{}, shared.ErrNotAuthenticated
	}

	userID, err := b.sessions.Lookup(session.AccessToken(), b.now())
	switch {
	case errors.Is(err, shared.ErrTokenExpired), errors.Is(err, shared.ErrKeyNotFound):
		return models.Session{}, fmt.Errorf("%w: %v", shared.ErrBackendRejected, err)
	case err != nil:
		return models.Session{}, fmt.Errorf("%w: %v", shared.ErrNetworkUnavailable, err)
	}

	if userID != session.UserID {
		return models.Session{}, fmt.Errorf("%w: token belongs to another user", shared.ErrBackendRejected)
	}

	user, err := b.users.Get(userID)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", shared.ErrBackendRejected, err)
	}

	session.Email = user.Email()
	return session, nil
}

// CreateIfAbsent implements [DocumentStore].
func (b *LocalBackend) CreateIfAbsent(ctx context.Context, session models.Session, doc models.UserDocument) error {
	if session.Guest() {
		return shared.ErrNotAuthenticated
	}
	created, err := b.documents.CreateIfAbsent(session.UserID, doc)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetworkUnavailable, err)
	}
	if created {
		b.logger.Debug("provisioned user document", "user_id", session.UserID)
	}
	return nil
}

// Get implements [DocumentStore].
func (b *LocalBackend) Get(ctx context.Context, session models.Session) (models.UserDocument, error) {
	if session.Guest() {
		return models.UserDocument{}, shared.ErrNotAuthenticated
	}
	return b.documents.Get(session.UserID)
}

// PurgeExpired deletes expired session tokens.
func (b *LocalBackend) PurgeExpired() (int64, error) {
	return b.sessions.DeleteExpired(b.now())
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", shared.ErrInvalidCredentials)
	}
	return nil
}
