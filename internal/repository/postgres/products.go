package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/variant"
	"github.com/jafarshop/variantcart/pkg/errors"
)

type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

const productColumns = `id, name, price, image_cover, images, variants, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var imageCover sql.NullString
	var images, variants []byte

	if err := row.Scan(&p.ID, &p.Name, &p.Price, &imageCover, &images, &variants, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if imageCover.Valid {
		p.ImageCover = imageCover.String
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("decode images of product %s: %w", p.ID, err)
		}
	}
	if len(variants) > 0 {
		if err := json.Unmarshal(variants, &p.Variants); err != nil {
			return nil, fmt.Errorf("decode variants of product %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func (r *productRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get product", zap.Error(err), zap.String("product_id", id))
		return nil, err
	}
	return p, nil
}

func (r *productRepository) List(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error("Failed to scan product", zap.Error(err))
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) Upsert(ctx context.Context, p *domain.Product) error {
	if err := variant.Validate(p.ID, p.Variants); err != nil {
		r.logger.Warn("Rejected product with ambiguous variants", zap.Error(err), zap.String("product_id", p.ID))
		return err
	}

	images, err := json.Marshal(nonNilStrings(p.Images))
	if err != nil {
		return err
	}
	if p.Variants == nil {
		p.Variants = []domain.Variant{}
	}
	variants, err := json.Marshal(p.Variants)
	if err != nil {
		return err
	}

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO products (id, name, price, image_cover, images, variants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			image_cover = EXCLUDED.image_cover,
			images = EXCLUDED.images,
			variants = EXCLUDED.variants,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Price, nullString(p.ImageCover), images, variants, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert product", zap.Error(err), zap.String("product_id", p.ID))
		return err
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
