package cart

import (
	"context"
	stderrors "errors"
	"hash/maphash"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// GuestCart is the cart of an unauthenticated session. Every operation runs
// load, normalize, mutate and save under one mutex, so concurrent mutations of the same
// handle never lose updates. GuestCart implements Transport.
type GuestCart struct {
	mu         *sync.Mutex
	store      Store
	normalizer *Normalizer
	logger     *zap.Logger
}

// NewGuestCart creates a guest cart over store
func NewGuestCart(store Store, normalizer *Normalizer, logger *zap.Logger) *GuestCart {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuestCart{
		mu:         new(sync.Mutex),
		store:      store,
		normalizer: normalizer,
		logger:     logger,
	}
}

// GetCart returns the normalized guest cart, rewriting the stored document if it healed
func (g *GuestCart) GetCart(ctx context.Context) (*domain.CartSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	lines, err := g.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot(lines), nil
}

// AddLine normalizes the line against the catalog and folds it into the cart
func (g *GuestCart) AddLine(ctx context.Context, productID string, quantity int, sku string) (*domain.CartSnapshot, error) {
	if quantity < 1 {
		return nil, &errors.ErrValidation{
			Message: "quantity must be at least 1",
			Fields:  map[string]string{"quantity": "min=1"},
		}
	}
	product, err := g.normalizer.Catalog().GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	line, err := Normalize(domain.CartLine{
		ID:       uuid.NewString(),
		Product:  domain.ProductSnapshot{ID: productID},
		SKU:      sku,
		Quantity: quantity,
	}, product)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	lines, err := g.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	lines = MergeLines([]domain.CartLine{*line}, lines)
	if err := g.saveLocked(ctx, lines); err != nil {
		return nil, err
	}
	return snapshot(lines), nil
}

// UpdateLineQuantity sets a line's quantity; a quantity below one removes the line
func (g *GuestCart) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	lines, err := g.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfLine(lines, lineID)
	if i < 0 {
		return nil, &errors.ErrNotFound{Resource: "cart line", ID: lineID}
	}
	if quantity < 1 {
		lines = append(lines[:i], lines[i+1:]...)
	} else {
		lines[i].Quantity = quantity
	}
	if err := g.saveLocked(ctx, lines); err != nil {
		return nil, err
	}
	return snapshot(lines), nil
}

// RemoveLine deletes a line by ID
func (g *GuestCart) RemoveLine(ctx context.Context, lineID string) (*domain.CartSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	lines, err := g.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfLine(lines, lineID)
	if i < 0 {
		return nil, &errors.ErrNotFound{Resource: "cart line", ID: lineID}
	}
	lines = append(lines[:i], lines[i+1:]...)
	if err := g.saveLocked(ctx, lines); err != nil {
		return nil, err
	}
	return snapshot(lines), nil
}

// ClearCart empties the guest cart
func (g *GuestCart) ClearCart(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saveLocked(ctx, nil)
}

// loadLocked reads and normalizes the stored document. A corrupt document is reset to an
// empty cart. Callers must hold g.mu.
func (g *GuestCart) loadLocked(ctx context.Context) ([]domain.CartLine, error) {
	doc, err := g.store.Load(ctx)
	if stderrors.Is(err, ErrCorruptDocument) {
		g.logger.Warn("Resetting corrupt guest cart", zap.Error(err))
		if err := g.store.Save(ctx, NewDocument()); err != nil {
			return nil, err
		}
		return []domain.CartLine{}, nil
	}
	if err != nil {
		return nil, err
	}

	lines, changed, err := g.normalizer.NormalizeDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := g.saveLocked(ctx, lines); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

// saveLocked writes lines as the whole document. Callers must hold g.mu.
func (g *GuestCart) saveLocked(ctx context.Context, lines []domain.CartLine) error {
	if err := g.store.Save(ctx, DocumentFromLines(lines)); err != nil {
		g.logger.Error("Failed to save guest cart", zap.Error(err))
		return err
	}
	return nil
}

func indexOfLine(lines []domain.CartLine, id string) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

func snapshot(lines []domain.CartLine) *domain.CartSnapshot {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return &domain.CartSnapshot{Lines: lines}
}

// guestLockStripes bounds the number of session mutexes regardless of how many sessions exist
const guestLockStripes = 256

// GuestCarts hands out guest carts whose mutex is shared by every handle of the same session.
// Sessions map onto a fixed set of lock stripes, so unrelated sessions may occasionally wait on
// each other but the registry never grows with the number of sessions.
type GuestCarts struct {
	locks      [guestLockStripes]sync.Mutex
	seed       maphash.Seed
	docs       Documents
	normalizer *Normalizer
	logger     *zap.Logger
}

// NewGuestCarts creates a registry over a document backend
func NewGuestCarts(docs Documents, normalizer *Normalizer, logger *zap.Logger) *GuestCarts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuestCarts{
		seed:       maphash.MakeSeed(),
		docs:       docs,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Get returns a handle on the guest cart of sessionID
func (r *GuestCarts) Get(sessionID string) *GuestCart {
	c := NewGuestCart(SessionStore(r.docs, sessionID), r.normalizer, r.logger.With(zap.String("guest_session", sessionID)))
	c.mu = r.lockFor(sessionID)
	return c
}

func (r *GuestCarts) lockFor(sessionID string) *sync.Mutex {
	return &r.locks[maphash.String(r.seed, sessionID)%guestLockStripes]
}
