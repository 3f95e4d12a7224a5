package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/reelx/internal/shared"
)

// SessionRepository stores opaque bearer tokens issued by the local identity backend.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a [SessionRepository].
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create records token for userID until expiresAt.
func (r *SessionRepository) Create(token, userID string, expiresAt time.Time) error {
	query := `
		INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, token, userID, expiresAt.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Lookup returns the user owning token. Expired tokens are reported as [shared.ErrTokenExpired].
func (r *SessionRepository) Lookup(token string, now time.Time) (string, error) {
	var (
		userID    string
		expiresAt time.Time
	)

	err := r.db.QueryRow("SELECT user_id, expires_at FROM sessions WHERE token = ?", token).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: unknown session", shared.ErrKeyNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session: %w", err)
	}

	if !now.Before(expiresAt) {
		return "", shared.ErrTokenExpired
	}
	return userID, nil
}

// Delete revokes token. Unknown tokens are ignored.
func (r *SessionRepository) Delete(token string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session past its expiry and returns how many were removed.
func (r *SessionRepository) DeleteExpired(now time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
