package cart

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/variant"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// Normalize enforces the SKU invariant of one line against its product:
//   - more than one variant: a present SKU must match exactly one variant, an absent SKU
//     resolves to the purchasable default or fails with ErrSkuRequired
//   - exactly one variant: an absent SKU takes the variant's SKU, a different SKU is invalid
//   - no variants: the SKU is stripped
//
// The SKU is always stored trimmed and upper-cased and the product snapshot is refreshed.
// A nil result with a nil error means the line must be dropped (nil product or quantity < 1).
func Normalize(line domain.CartLine, product *domain.Product) (*domain.CartLine, error) {
	if product == nil || line.Quantity < 1 {
		return nil, nil
	}

	sku := domain.NormalizeSKU(line.SKU)
	var picked *domain.Variant

	switch len(product.Variants) {
	case 0:
		sku = ""
	case 1:
		only := &product.Variants[0]
		onlySKU := domain.NormalizeSKU(only.SKU)
		if sku != "" && sku != onlySKU {
			return nil, &errors.ErrInvalidSku{ProductID: product.ID, SKU: sku}
		}
		sku, picked = onlySKU, only
	default:
		if sku == "" {
			def := variant.PickPurchasable(product.Variants)
			if def == nil || domain.NormalizeSKU(def.SKU) == "" {
				return nil, &errors.ErrSkuRequired{ProductID: product.ID}
			}
			sku, picked = domain.NormalizeSKU(def.SKU), def
			break
		}
		v, err := variantBySKU(product, sku)
		if err != nil {
			return nil, err
		}
		picked = v
	}

	out := line
	out.SKU = sku
	out.Product = product.Snapshot()
	if picked != nil && picked.Price.IsPositive() {
		out.Product.Price = picked.Price
	}
	if picked != nil && len(picked.Images) > 0 {
		out.Product.Image = picked.Images[0]
	}
	return &out, nil
}

// ResolveDefaultSKU returns the normalized SKU of the product's purchasable default variant,
// or "" when no variant qualifies. It never falls back to an inactive or out-of-stock variant.
func ResolveDefaultSKU(product *domain.Product) string {
	if product == nil {
		return ""
	}
	v := variant.PickPurchasable(product.Variants)
	if v == nil {
		return ""
	}
	return domain.NormalizeSKU(v.SKU)
}

func variantBySKU(product *domain.Product, sku string) (*domain.Variant, error) {
	var found *domain.Variant
	for i := range product.Variants {
		if domain.NormalizeSKU(product.Variants[i].SKU) != sku {
			continue
		}
		if found != nil {
			return nil, &errors.ErrAmbiguousVariantData{
				ProductID:  product.ID,
				VariantIDs: []string{found.ID, product.Variants[i].ID},
				Reason:     "duplicate sku " + sku,
			}
		}
		found = &product.Variants[i]
	}
	if found == nil {
		return nil, &errors.ErrInvalidSku{ProductID: product.ID, SKU: sku}
	}
	return found, nil
}

// Normalizer applies Normalize to persisted guest lines, looking products up in the catalog
type Normalizer struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewNormalizer creates a normalizer backed by catalog
func NewNormalizer(catalog Catalog, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{catalog: catalog, logger: logger}
}

// Catalog returns the catalog the normalizer reads products from
func (n *Normalizer) Catalog() Catalog {
	return n.catalog
}

// NormalizeStored heals one persisted line. Lines whose product is gone, whose quantity is
// below one, or whose SKU no longer resolves are dropped with a warning. A legacy variant
// reference that no longer exists on a multi-variant product drops the line rather than
// picking another variant for the shopper. Catalog errors other
// than not-found are returned.
func (n *Normalizer) NormalizeStored(ctx context.Context, stored StoredLine) (*domain.CartLine, error) {
	line := stored.CartLine()
	productID := line.Product.ID
	if productID == "" {
		n.logger.Warn("Dropping guest cart line without product id", zap.String("line_id", line.ID))
		return nil, nil
	}

	product, err := n.catalog.GetProduct(ctx, productID)
	if errors.IsNotFound(err) {
		n.logger.Warn("Dropping guest cart line for unknown product", zap.String("product_id", productID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if stored.HasLegacyReference() && domain.NormalizeSKU(line.SKU) == "" {
		ref := stored.LegacyVariantID()
		if v := variantByID(product, ref); v != nil {
			line.SKU = v.SKU
			n.logger.Info("Healed legacy variant reference",
				zap.String("product_id", productID),
				zap.String("variant_id", ref),
				zap.String("sku", domain.NormalizeSKU(v.SKU)))
		} else if len(product.Variants) > 1 {
			n.logger.Warn("Dropping guest cart line with stale variant reference",
				zap.String("product_id", productID),
				zap.String("variant_id", ref))
			return nil, nil
		}
	}

	out, err := Normalize(line, product)
	switch {
	case errors.IsSkuRequired(err), errors.IsInvalidSku(err), errors.IsAmbiguousVariantData(err):
		n.logger.Warn("Dropping guest cart line that no longer resolves to a sku",
			zap.String("product_id", productID),
			zap.String("sku", line.SKU),
			zap.Error(err))
		return nil, nil
	case err != nil:
		return nil, err
	}
	if out == nil {
		n.logger.Warn("Dropping guest cart line", zap.String("product_id", productID), zap.Int("quantity", line.Quantity))
	}
	return out, nil
}

// NormalizeDocument heals every line of doc, folds lines that collapse onto the same identity
// and assigns IDs to lines without one. changed reports whether the document must be rewritten.
func (n *Normalizer) NormalizeDocument(ctx context.Context, doc *Document) (lines []domain.CartLine, changed bool, err error) {
	if doc == nil {
		return []domain.CartLine{}, false, nil
	}

	healed := make([]domain.CartLine, 0, len(doc.Cart.Products))
	for _, stored := range doc.Cart.Products {
		line, err := n.NormalizeStored(ctx, stored)
		if err != nil {
			return nil, false, err
		}
		if line == nil {
			changed = true
			continue
		}
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		if stored.HasLegacyReference() || !sameLine(stored, *line) {
			changed = true
		}
		healed = append(healed, *line)
	}

	lines = MergeLines(nil, healed)
	if len(lines) != len(healed) {
		changed = true
	}
	return lines, changed, nil
}

func variantByID(product *domain.Product, id string) *domain.Variant {
	if id == "" {
		return nil
	}
	for i := range product.Variants {
		if product.Variants[i].ID == id {
			return &product.Variants[i]
		}
	}
	return nil
}

func sameLine(stored StoredLine, line domain.CartLine) bool {
	a, b := stored.Product, line.Product
	return stored.ID == line.ID &&
		stored.SKU == line.SKU &&
		stored.Quantity == line.Quantity &&
		a.ID == b.ID &&
		a.Name == b.Name &&
		a.Image == b.Image &&
		a.VariantCount == b.VariantCount &&
		a.Price.Equal(b.Price)
}
