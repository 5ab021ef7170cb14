package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/pkg/errors"
)

type fakeCatalog struct {
	products map[string]*domain.Product
	err      error
}

func newFakeCatalog(products ...*domain.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]*domain.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id}
	}
	return p, nil
}

// fakeTransport is an authenticated cart that sums quantities by line identity
type fakeTransport struct {
	mu     sync.Mutex
	lines  []domain.CartLine
	failOn map[string]error // product ID -> error
	calls  int
}

func newFakeTransport(lines ...domain.CartLine) *fakeTransport {
	return &fakeTransport{lines: lines, failOn: make(map[string]error)}
}

func (t *fakeTransport) AddLine(_ context.Context, productID string, quantity int, sku string) (*domain.CartSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if err := t.failOn[productID]; err != nil {
		return nil, err
	}
	t.lines = MergeLines([]domain.CartLine{{
		ID:       uuid.NewString(),
		Product:  domain.ProductSnapshot{ID: productID},
		SKU:      sku,
		Quantity: quantity,
	}}, t.lines)
	return &domain.CartSnapshot{Lines: append([]domain.CartLine(nil), t.lines...)}, nil
}

func (t *fakeTransport) GetCart(context.Context) (*domain.CartSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &domain.CartSnapshot{Lines: append([]domain.CartLine(nil), t.lines...)}, nil
}

func (t *fakeTransport) UpdateLineQuantity(_ context.Context, lineID string, quantity int) (*domain.CartSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.lines {
		if t.lines[i].ID == lineID {
			t.lines[i].Quantity = quantity
			return &domain.CartSnapshot{Lines: append([]domain.CartLine(nil), t.lines...)}, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "cart line", ID: lineID}
}

func (t *fakeTransport) RemoveLine(_ context.Context, lineID string) (*domain.CartSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.lines {
		if t.lines[i].ID == lineID {
			t.lines = append(t.lines[:i], t.lines[i+1:]...)
			return &domain.CartSnapshot{Lines: append([]domain.CartLine(nil), t.lines...)}, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "cart line", ID: lineID}
}

func (t *fakeTransport) ClearCart(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
	return nil
}

func (t *fakeTransport) quantity(productID, sku string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := domain.CartSnapshot{Lines: t.lines}
	l, ok := snap.Line(domain.NewLineKey(productID, sku))
	if !ok {
		return 0
	}
	return l.Quantity
}

func variantOf(id, sku string, stock int, status domain.VariantStatus, attrs ...string) domain.Variant {
	v := domain.Variant{ID: id, SKU: sku, Stock: stock, Status: status, Price: decimal.NewFromInt(25)}
	for i := 0; i+1 < len(attrs); i += 2 {
		v.Attributes = append(v.Attributes, domain.Attribute{Key: attrs[i], Value: attrs[i+1]})
	}
	return v
}

// singleVariantProduct has one variant RED-S
func singleVariantProduct() *domain.Product {
	return &domain.Product{
		ID:    "P-single",
		Name:  "Scarf",
		Price: decimal.NewFromInt(20),
		Variants: []domain.Variant{
			variantOf("v1", "RED-S", 3, domain.VariantStatusActive, "Color", "Red", "Size", "S"),
		},
	}
}

// multiVariantProduct has variants A (Red) and B (Blue)
func multiVariantProduct() *domain.Product {
	return &domain.Product{
		ID:    "P1",
		Name:  "Shirt",
		Price: decimal.NewFromInt(30),
		Variants: []domain.Variant{
			variantOf("va", "A", 2, domain.VariantStatusActive, "Color", "Red"),
			variantOf("vb", "B", 4, domain.VariantStatusActive, "Color", "Blue"),
		},
	}
}

func plainProduct() *domain.Product {
	return &domain.Product{ID: "P-plain", Name: "Gift card", Price: decimal.NewFromInt(50)}
}
