package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/cart"
	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/repository"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// UserCart is the authenticated cart of one customer, backed by the cart_lines table.
// It implements cart.Transport.
type UserCart struct {
	repos  *repository.Repositories
	userID string
	logger *zap.Logger
}

// NewUserCart creates the cart of userID
func NewUserCart(repos *repository.Repositories, userID string, logger *zap.Logger) *UserCart {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserCart{
		repos:  repos,
		userID: userID,
		logger: logger.With(zap.String("user_id", userID)),
	}
}

var _ cart.Transport = (*UserCart)(nil)

// AddLine re-checks the SKU against the stored product before upserting, so the table never
// holds a line that violates the SKU rule even when a caller skipped the precondition.
// A key attached with cart.WithIdempotencyKey is applied at most once: repeating it with the
// same line returns the current cart, and with another line is a conflict.
func (c *UserCart) AddLine(ctx context.Context, productID string, quantity int, sku string) (*domain.CartSnapshot, error) {
	key, ok := cart.IdempotencyKeyFromContext(ctx)
	if !ok {
		return c.addLine(ctx, productID, quantity, sku)
	}

	reserved, existing, err := ReserveIdempotencyKey(ctx, c.repos.IdempotencyKey, &domain.IdempotencyKey{
		Key:         key,
		Subject:     "customer:" + c.userID,
		RequestHash: addLineHash(productID, quantity, sku),
	})
	if err != nil {
		return nil, err
	}
	if !reserved {
		switch {
		case existing.Subject != "customer:"+c.userID || existing.RequestHash != addLineHash(productID, quantity, sku):
			return nil, &errors.ErrConflict{Message: "idempotency key conflict: same key used with different payload"}
		case !existing.Completed:
			return nil, &errors.ErrConflict{Message: "a request with this idempotency key is still in progress"}
		}
		c.logger.Info("Replayed cart line add", zap.String("idempotency_key", key))
		return c.GetCart(ctx)
	}

	snap, err := c.addLine(ctx, productID, quantity, sku)
	done := context.WithoutCancel(ctx)
	if err != nil {
		if derr := c.repos.IdempotencyKey.Delete(done, key); derr != nil {
			c.logger.Error("Failed to release idempotency key", zap.Error(derr), zap.String("idempotency_key", key))
		}
		return nil, err
	}
	if err := c.repos.IdempotencyKey.Complete(done, key); err != nil {
		c.logger.Error("Failed to complete idempotency key", zap.Error(err), zap.String("idempotency_key", key))
	}
	return snap, nil
}

func addLineHash(productID string, quantity int, sku string) string {
	sum := sha256.Sum256([]byte("add-line\n" + productID + "\n" + domain.NormalizeSKU(sku) + "\n" + strconv.Itoa(quantity)))
	return hex.EncodeToString(sum[:])
}

func (c *UserCart) addLine(ctx context.Context, productID string, quantity int, sku string) (*domain.CartSnapshot, error) {
	product, err := c.repos.Product.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	line, err := cart.Normalize(domain.CartLine{
		Product:  domain.ProductSnapshot{ID: productID},
		SKU:      sku,
		Quantity: quantity,
	}, product)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, &errors.ErrValidation{
			Message: "quantity must be at least 1",
			Fields:  map[string]string{"quantity": "min=1"},
		}
	}

	if err := c.repos.CartLine.AddQuantity(ctx, c.userID, *line); err != nil {
		return nil, err
	}
	c.logger.Info("Added cart line",
		zap.String("product_id", productID),
		zap.String("sku", line.SKU),
		zap.Int("quantity", line.Quantity))
	return c.GetCart(ctx)
}

func (c *UserCart) GetCart(ctx context.Context) (*domain.CartSnapshot, error) {
	lines, err := c.repos.CartLine.ListByUser(ctx, c.userID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return &domain.CartSnapshot{Lines: lines}, nil
}

// UpdateLineQuantity sets a line's quantity; a quantity below one removes the line
func (c *UserCart) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartSnapshot, error) {
	if quantity < 1 {
		return c.RemoveLine(ctx, lineID)
	}
	if err := c.repos.CartLine.UpdateQuantity(ctx, c.userID, lineID, quantity); err != nil {
		return nil, err
	}
	return c.GetCart(ctx)
}

func (c *UserCart) RemoveLine(ctx context.Context, lineID string) (*domain.CartSnapshot, error) {
	if err := c.repos.CartLine.Delete(ctx, c.userID, lineID); err != nil {
		return nil, err
	}
	return c.GetCart(ctx)
}

func (c *UserCart) ClearCart(ctx context.Context) error {
	return c.repos.CartLine.DeleteByUser(ctx, c.userID)
}
