// Package cart keeps cart lines consistent with the variant SKU model across guest and
// authenticated carts: SKU enforcement on add, self-healing of persisted guest carts, and the
// guest to customer merge.
package cart

import (
	"context"

	"github.com/jafarshop/variantcart/internal/domain"
)

// Catalog resolves products by ID. Implementations return *errors.ErrNotFound for unknown IDs.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// Transport is the cart server collaborator. AddLine is only called with a SKU that already
// passed normalization, or an empty SKU for a product without variants.
// Errors are returned to callers unchanged.
type Transport interface {
	AddLine(ctx context.Context, productID string, quantity int, sku string) (*domain.CartSnapshot, error)
	GetCart(ctx context.Context) (*domain.CartSnapshot, error)
	UpdateLineQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartSnapshot, error)
	RemoveLine(ctx context.Context, lineID string) (*domain.CartSnapshot, error)
	ClearCart(ctx context.Context) error
}

type idempotencyKeyCtxKey struct{}

// WithIdempotencyKey attaches a deduplication key to a cart mutation. Transports that can
// remember applied mutations apply a given key at most once.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtxKey{}, key)
}

// IdempotencyKeyFromContext returns the key attached by WithIdempotencyKey
func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyCtxKey{}).(string)
	return key, ok && key != ""
}
