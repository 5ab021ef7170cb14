package repository

import (
	"context"

	"github.com/jafarshop/variantcart/internal/domain"
)

// ProductRepository defines catalog product data access methods
type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Product, error)
	// Upsert rejects variant lists that cannot be resolved unambiguously
	Upsert(ctx context.Context, product *domain.Product) error
}

// CartLineRepository defines authenticated cart line data access methods.
// Lines are unique by (user ID, product ID, normalized SKU).
type CartLineRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error)
	// AddQuantity creates the line or adds quantity to the existing one
	AddQuantity(ctx context.Context, userID string, line domain.CartLine) error
	UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) error
	Delete(ctx context.Context, userID, lineID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// GuestCartRepository defines guest cart document data access methods.
// GetDocument returns nil bytes and no error for an unknown session.
type GuestCartRepository interface {
	GetDocument(ctx context.Context, sessionID string) ([]byte, error)
	SaveDocument(ctx context.Context, sessionID string, raw []byte) error
}

// IdempotencyKeyRepository defines idempotency key data access methods
type IdempotencyKeyRepository interface {
	GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error)
	// Create reserves the key; it returns *errors.ErrConflict when the key already exists
	Create(ctx context.Context, key *domain.IdempotencyKey) error
	Complete(ctx context.Context, key string) error
	// Delete releases a reservation; deleting an unknown key is not an error
	Delete(ctx context.Context, key string) error
}

// Repositories aggregates all repositories
type Repositories struct {
	Product        ProductRepository
	CartLine       CartLineRepository
	GuestCart      GuestCartRepository
	IdempotencyKey IdempotencyKeyRepository
}
