package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/pkg/errors"
)

type cartLineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCartLineRepository creates a new cart line repository
func NewCartLineRepository(db *sql.DB, logger *zap.Logger) *cartLineRepository {
	return &cartLineRepository{
		db:     db,
		logger: logger,
	}
}

func (r *cartLineRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error) {
	query := `
		SELECT id, product_id, sku, name, price, image, variant_count, quantity
		FROM cart_lines
		WHERE user_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list cart lines", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var l domain.CartLine
		var id uuid.UUID
		var image sql.NullString
		if err := rows.Scan(&id, &l.Product.ID, &l.SKU, &l.Product.Name, &l.Product.Price,
			&image, &l.Product.VariantCount, &l.Quantity); err != nil {
			r.logger.Error("Failed to scan cart line", zap.Error(err))
			return nil, err
		}
		l.ID = id.String()
		if image.Valid {
			l.Product.Image = image.String
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// AddQuantity inserts the line or, when (user, product, sku) exists, adds to its quantity and
// refreshes the product snapshot
func (r *cartLineRepository) AddQuantity(ctx context.Context, userID string, line domain.CartLine) error {
	query := `
		INSERT INTO cart_lines (id, user_id, product_id, sku, name, price, image, variant_count, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (user_id, product_id, sku) DO UPDATE SET
			quantity = cart_lines.quantity + EXCLUDED.quantity,
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			image = EXCLUDED.image,
			variant_count = EXCLUDED.variant_count,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		uuid.New(),
		userID,
		line.Product.ID,
		domain.NormalizeSKU(line.SKU),
		line.Product.Name,
		line.Product.Price,
		nullString(line.Product.Image),
		line.Product.VariantCount,
		line.Quantity,
		time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to add cart line",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("product_id", line.Product.ID),
			zap.String("sku", line.SKU))
		return err
	}
	return nil
}

func (r *cartLineRepository) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) error {
	id, err := uuid.Parse(lineID)
	if err != nil {
		return &errors.ErrNotFound{Resource: "cart line", ID: lineID}
	}
	query := `UPDATE cart_lines SET quantity = $3, updated_at = $4 WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, id, quantity, time.Now())
	if err != nil {
		r.logger.Error("Failed to update cart line", zap.Error(err), zap.String("line_id", lineID))
		return err
	}
	return requireAffected(res, "cart line", lineID)
}

func (r *cartLineRepository) Delete(ctx context.Context, userID, lineID string) error {
	id, err := uuid.Parse(lineID)
	if err != nil {
		return &errors.ErrNotFound{Resource: "cart line", ID: lineID}
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		r.logger.Error("Failed to delete cart line", zap.Error(err), zap.String("line_id", lineID))
		return err
	}
	return requireAffected(res, "cart line", lineID)
}

func (r *cartLineRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		r.logger.Error("Failed to clear cart", zap.Error(err), zap.String("user_id", userID))
		return err
	}
	return nil
}

func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &errors.ErrNotFound{Resource: resource, ID: id}
	}
	return nil
}
