package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/variantcart/pkg/errors"
)

func newTestGuestCart(t *testing.T) (*GuestCart, *MemoryDocuments) {
	t.Helper()
	docs := NewMemoryDocuments()
	catalog := newFakeCatalog(singleVariantProduct(), multiVariantProduct(), plainProduct())
	return NewGuestCart(SessionStore(docs, "guest-1"), NewNormalizer(catalog, nil), nil), docs
}

func TestGuestCart_AddFoldsByIdentity(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuestCart(t)

	_, err := g.AddLine(ctx, "P1", 1, "a")
	require.NoError(t, err)
	snap, err := g.AddLine(ctx, "P1", 2, " A ")
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "A", snap.Lines[0].SKU)
	assert.Equal(t, 3, snap.Lines[0].Quantity)

	snap, err = g.AddLine(ctx, "P1", 1, "B")
	require.NoError(t, err)
	assert.Len(t, snap.Lines, 2)
}

func TestGuestCart_ScenarioA(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuestCart(t)

	snap, err := g.AddLine(ctx, "P-single", 1, "")
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "RED-S", snap.Lines[0].SKU)
	assert.Equal(t, 1, snap.Lines[0].Quantity)
}

func TestGuestCart_AddRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuestCart(t)

	_, err := g.AddLine(ctx, "P1", 1, "nope")
	assert.True(t, errors.IsInvalidSku(err))

	_, err = g.AddLine(ctx, "P1", 0, "A")
	var verr *errors.ErrValidation
	assert.ErrorAs(t, err, &verr)

	_, err = g.AddLine(ctx, "unknown", 1, "")
	assert.True(t, errors.IsNotFound(err))

	snap, err := g.GetCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
}

func TestGuestCart_UpdateRemoveClear(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuestCart(t)

	_, err := g.AddLine(ctx, "P1", 1, "A")
	require.NoError(t, err)
	snap, err := g.AddLine(ctx, "P-plain", 1, "")
	require.NoError(t, err)
	require.Len(t, snap.Lines, 2)
	first, second := snap.Lines[0].ID, snap.Lines[1].ID

	snap, err = g.UpdateLineQuantity(ctx, first, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Lines[0].Quantity)

	snap, err = g.UpdateLineQuantity(ctx, first, 0)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, second, snap.Lines[0].ID)

	_, err = g.UpdateLineQuantity(ctx, "missing", 1)
	assert.True(t, errors.IsNotFound(err))

	snap, err = g.RemoveLine(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)

	_, err = g.RemoveLine(ctx, second)
	assert.True(t, errors.IsNotFound(err))

	_, err = g.AddLine(ctx, "P1", 1, "B")
	require.NoError(t, err)
	require.NoError(t, g.ClearCart(ctx))
	snap, err = g.GetCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
}

func TestGuestCart_ResetsCorruptDocument(t *testing.T) {
	ctx := context.Background()
	g, docs := newTestGuestCart(t)
	require.NoError(t, docs.SaveDocument(ctx, "guest-1", []byte("{not json")))

	snap, err := g.GetCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)

	raw, err := docs.GetDocument(ctx, "guest-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cart":{"products":[]}}`, string(raw))
}

func TestGuestCart_HealsOnRead(t *testing.T) {
	ctx := context.Background()
	g, docs := newTestGuestCart(t)
	legacy := `{"cart":{"products":[
		{"product":{"id":"P1"},"variantId":"vb","quantity":2},
		{"product":{"id":"P-single"},"sku":"red-s","quantity":1},
		{"product":{"id":"gone"},"sku":"X","quantity":1}
	]}}`
	require.NoError(t, docs.SaveDocument(ctx, "guest-1", []byte(legacy)))

	snap, err := g.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, "B", snap.Lines[0].SKU)
	assert.Equal(t, "RED-S", snap.Lines[1].SKU)

	raw, err := docs.GetDocument(ctx, "guest-1")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "variantId")
	assert.NotContains(t, string(raw), "gone")
}

func TestGuestCart_ConcurrentAddsAreNotLost(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuestCart(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.AddLine(ctx, "P1", 1, "A")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := g.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 20, snap.Lines[0].Quantity)
}

func TestGuestCarts_SharesLockPerSession(t *testing.T) {
	carts := NewGuestCarts(NewMemoryDocuments(), NewNormalizer(newFakeCatalog(), nil), nil)
	assert.Same(t, carts.Get("s1").mu, carts.Get("s1").mu)

	stripes := make(map[*sync.Mutex]struct{})
	for i := 0; i < 10000; i++ {
		stripes[carts.Get(fmt.Sprintf("one-off-%d", i)).mu] = struct{}{}
	}
	assert.LessOrEqual(t, len(stripes), guestLockStripes, "one-off sessions do not grow the registry")
}

func TestGuestCarts_ConcurrentHandlesDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	carts := NewGuestCarts(NewMemoryDocuments(), NewNormalizer(newFakeCatalog(multiVariantProduct()), nil), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := carts.Get("s1").AddLine(ctx, "P1", 1, "A")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := carts.Get("s1").GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 20, snap.Lines[0].Quantity)
}
