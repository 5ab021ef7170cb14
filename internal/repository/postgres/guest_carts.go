package postgres

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

type guestCartRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewGuestCartRepository creates a repository of guest cart documents
func NewGuestCartRepository(db *sql.DB, logger *zap.Logger) *guestCartRepository {
	return &guestCartRepository{
		db:     db,
		logger: logger,
	}
}

func (r *guestCartRepository) GetDocument(ctx context.Context, sessionID string) ([]byte, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM guest_carts WHERE session_id = $1`, sessionID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get guest cart", zap.Error(err), zap.String("session_id", sessionID))
		return nil, err
	}
	return raw, nil
}

// SaveDocument replaces the whole document of sessionID.
// The column is text so that a corrupt document can be stored and later reset.
func (r *guestCartRepository) SaveDocument(ctx context.Context, sessionID string, raw []byte) error {
	query := `
		INSERT INTO guest_carts (session_id, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, sessionID, string(raw), time.Now()); err != nil {
		r.logger.Error("Failed to save guest cart", zap.Error(err), zap.String("session_id", sessionID))
		return err
	}
	return nil
}
