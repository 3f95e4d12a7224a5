package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

// DocumentRepository persists [models.UserDocument] rows for the local identity backend.
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository creates a [DocumentRepository].
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateIfAbsent stores doc for userID unless a document already exists.
// created reports whether a row was inserted.
func (r *DocumentRepository) CreateIfAbsent(userID string, doc models.UserDocument) (created bool, err error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("failed to encode document: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO user_documents (user_id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`

	result, err := r.db.Exec(query, userID, string(data), now, now)
	if err != nil {
		return false, fmt.Errorf("failed to insert document: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// Get loads the document for userID.
func (r *DocumentRepository) Get(userID string) (models.UserDocument, error) {
	var data string
	err := r.db.QueryRow("SELECT data FROM user_documents WHERE user_id = ?", userID).Scan(&data)
	if err == sql.ErrNoRows {
		return models.UserDocument{}, fmt.Errorf("%w: document for %s", shared.ErrKeyNotFound, userID)
	}
	if err != nil {
		return models.UserDocument{}, fmt.Errorf("failed to query document: %w", err)
	}

	var doc models.UserDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return models.UserDocument{}, fmt.Errorf("%w: document for %s: %v", shared.ErrStorageParse, userID, err)
	}
	doc.Collections = doc.Collections.Normalize()
	return doc, nil
}
