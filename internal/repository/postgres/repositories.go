package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/repository"
)

// NewRepositories creates a new set of repositories
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Product:        NewProductRepository(db, logger),
		CartLine:       NewCartLineRepository(db, logger),
		GuestCart:      NewGuestCartRepository(db, logger),
		IdempotencyKey: NewIdempotencyKeyRepository(db, logger),
	}
}
