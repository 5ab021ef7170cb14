package cart

import (
	"context"

	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// Service runs the add-to-cart precondition checks before handing a line to a transport
type Service struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewService creates a cart service
func NewService(catalog Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, logger: logger}
}

// AddToCart normalizes the requested line against the current product and only then calls
// t.AddLine with the normalized SKU. SKU errors are returned without any transport call.
func (s *Service) AddToCart(ctx context.Context, t Transport, productID string, quantity int, sku string) (*domain.CartSnapshot, error) {
	if productID == "" {
		return nil, &errors.ErrValidation{
			Message: "product id is required",
			Fields:  map[string]string{"product_id": "required"},
		}
	}
	if quantity < 1 {
		return nil, &errors.ErrValidation{
			Message: "quantity must be at least 1",
			Fields:  map[string]string{"quantity": "min=1"},
		}
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	line, err := Normalize(domain.CartLine{
		Product:  domain.ProductSnapshot{ID: productID},
		SKU:      sku,
		Quantity: quantity,
	}, product)
	if err != nil {
		s.logger.Info("Rejected add to cart",
			zap.String("product_id", productID),
			zap.String("sku", sku),
			zap.Error(err))
		return nil, err
	}

	return t.AddLine(ctx, productID, line.Quantity, line.SKU)
}
