// Package memory implements the repository interfaces in process memory.
// It backs tests and local runs without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jafarshop/variantcart/internal/cart"
	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/repository"
	"github.com/jafarshop/variantcart/internal/variant"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// NewRepositories creates an empty in-memory repository set
func NewRepositories() *repository.Repositories {
	return &repository.Repositories{
		Product:        NewProductRepository(),
		CartLine:       NewCartLineRepository(),
		GuestCart:      cart.NewMemoryDocuments(),
		IdempotencyKey: NewIdempotencyKeyRepository(),
	}
}

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]*domain.Product)}
}

func (r *ProductRepository) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id}
	}
	cp := *p
	cp.Variants = append([]domain.Variant(nil), p.Variants...)
	return &cp, nil
}

func (r *ProductRepository) List(_ context.Context, limit, offset int) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if offset > len(ids) {
		offset = len(ids)
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		cp := *r.products[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *ProductRepository) Upsert(_ context.Context, p *domain.Product) error {
	if err := variant.Validate(p.ID, p.Variants); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	cp := *p
	cp.Variants = append([]domain.Variant(nil), p.Variants...)
	r.products[p.ID] = &cp
	return nil
}

type CartLineRepository struct {
	mu    sync.Mutex
	lines map[string][]domain.CartLine // user ID -> lines in insertion order
}

func NewCartLineRepository() *CartLineRepository {
	return &CartLineRepository{lines: make(map[string][]domain.CartLine)}
}

func (r *CartLineRepository) ListByUser(_ context.Context, userID string) ([]domain.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CartLine{}, r.lines[userID]...), nil
}

func (r *CartLineRepository) AddQuantity(_ context.Context, userID string, line domain.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	line.SKU = domain.NormalizeSKU(line.SKU)
	lines := r.lines[userID]
	for i := range lines {
		if lines[i].Key() == line.Key() {
			lines[i].Quantity += line.Quantity
			lines[i].Product = line.Product
			return nil
		}
	}
	line.ID = uuid.NewString()
	r.lines[userID] = append(lines, line)
	return nil
}

func (r *CartLineRepository) UpdateQuantity(_ context.Context, userID, lineID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := r.lines[userID]
	for i := range lines {
		if lines[i].ID == lineID {
			lines[i].Quantity = quantity
			return nil
		}
	}
	return &errors.ErrNotFound{Resource: "cart line", ID: lineID}
}

func (r *CartLineRepository) Delete(_ context.Context, userID, lineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := r.lines[userID]
	for i := range lines {
		if lines[i].ID == lineID {
			r.lines[userID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return &errors.ErrNotFound{Resource: "cart line", ID: lineID}
}

func (r *CartLineRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lines, userID)
	return nil
}

type IdempotencyKeyRepository struct {
	mu   sync.Mutex
	keys map[string]domain.IdempotencyKey
}

func NewIdempotencyKeyRepository() *IdempotencyKeyRepository {
	return &IdempotencyKeyRepository{keys: make(map[string]domain.IdempotencyKey)}
}

func (r *IdempotencyKeyRepository) GetByKey(_ context.Context, key string) (*domain.IdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[key]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (r *IdempotencyKeyRepository) Create(_ context.Context, key *domain.IdempotencyKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key.Key]; ok {
		return &errors.ErrConflict{Message: "idempotency key already used"}
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	r.keys[key.Key] = *key
	return nil
}

func (r *IdempotencyKeyRepository) Complete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[key]
	if !ok {
		return &errors.ErrNotFound{Resource: "idempotency key", ID: key}
	}
	k.Completed = true
	r.keys[key] = k
	return nil
}

func (r *IdempotencyKeyRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, key)
	return nil
}
