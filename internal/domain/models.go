package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Attribute is one choice axis value of a variant (e.g. Color=Red)
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Variant is a concrete, purchasable configuration of a product
type Variant struct {
	ID            string           `json:"id"`
	SKU           string           `json:"sku"`
	Attributes    []Attribute      `json:"attributes"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Stock         int              `json:"stock"`
	Status        VariantStatus    `json:"status"`
	Images        []string         `json:"images,omitempty"`
	IsDefault     bool             `json:"defaultSku,omitempty"` // catalog-flagged default, rarely set
}

// Attribute returns the value for key and whether the variant carries it
func (v *Variant) Attribute(key string) (string, bool) {
	for _, a := range v.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// IsActive reports whether the variant status is active
func (v *Variant) IsActive() bool {
	return v.Status == VariantStatusActive
}

// InStock reports whether the variant is active and has stock
func (v *Variant) InStock() bool {
	return v.IsActive() && v.Stock > 0
}

// AttributeMap returns the variant attributes as key -> value
func (v *Variant) AttributeMap() map[string]string {
	out := make(map[string]string, len(v.Attributes))
	for _, a := range v.Attributes {
		if a.Key == "" || a.Value == "" {
			continue
		}
		out[a.Key] = a.Value
	}
	return out
}

// DiscountPercentage returns the rounded discount from OriginalPrice to Price (0-100)
func (v *Variant) DiscountPercentage() int {
	if v.OriginalPrice == nil || !v.OriginalPrice.IsPositive() || !v.Price.IsPositive() {
		return 0
	}
	if v.Price.GreaterThanOrEqual(*v.OriginalPrice) {
		return 0
	}
	pct := v.OriginalPrice.Sub(v.Price).Div(*v.OriginalPrice).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

// Product is a catalog product with its variant list
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ImageCover string          `json:"imageCover,omitempty"`
	Images     []string        `json:"images,omitempty"`
	Variants   []Variant       `json:"variants"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Snapshot captures the product fields a cart line keeps
func (p *Product) Snapshot() ProductSnapshot {
	image := p.ImageCover
	if image == "" && len(p.Images) > 0 {
		image = p.Images[0]
	}
	return ProductSnapshot{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Image:        image,
		VariantCount: len(p.Variants),
	}
}

// ProductSnapshot is the product data copied into a cart line at add time
type ProductSnapshot struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image,omitempty"`
	VariantCount int             `json:"variantCount"`
}

// CartLine is one cart entry. Identity is (product ID, normalized SKU).
type CartLine struct {
	ID       string          `json:"id,omitempty"`
	Product  ProductSnapshot `json:"product"`
	SKU      string          `json:"sku,omitempty"`
	Quantity int             `json:"quantity"`
}

// Key returns the line identity
func (l CartLine) Key() LineKey {
	return NewLineKey(l.Product.ID, l.SKU)
}

// LineKey identifies a cart line
type LineKey struct {
	ProductID string
	SKU       string
}

// NewLineKey builds a line identity with the SKU in its stored form
func NewLineKey(productID, sku string) LineKey {
	return LineKey{ProductID: strings.TrimSpace(productID), SKU: NormalizeSKU(sku)}
}

// NormalizeSKU trims and upper-cases a SKU so case never splits a line
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// CartSnapshot is the decoded cart returned by the cart transport
type CartSnapshot struct {
	Lines []CartLine `json:"lines"`
}

// Line returns the line with the given identity
func (s *CartSnapshot) Line(key LineKey) (CartLine, bool) {
	if s == nil {
		return CartLine{}, false
	}
	for _, l := range s.Lines {
		if l.Key() == key {
			return l, true
		}
	}
	return CartLine{}, false
}

// IdempotencyKey stores the request fingerprint of a cart mutation. A key is reserved
// (Completed false) before the mutation runs and completed once it succeeds.
type IdempotencyKey struct {
	Key         string
	Subject     string // customer ID or guest session ID
	RequestHash string
	Completed   bool
	CreatedAt   time.Time
}
