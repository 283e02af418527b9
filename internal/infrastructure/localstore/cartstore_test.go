package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmart/storefront/internal/domain/cart"
	"github.com/bookmart/storefront/internal/domain/catalog"
)

func testBook(id string, price float64) catalog.Book {
	return catalog.Book{
		ID:       id,
		Title:    "Title " + id,
		Author:   "Author " + id,
		Category: "fiction",
		Price:    decimal.NewFromFloat(price),
		ImageURL: "https://img.example.com/" + id + ".jpg",
	}
}

// failingStore simulates an unavailable backing store
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}

func (failingStore) Set(ctx context.Context, key, value string) error {
	return errors.New("storage unavailable")
}

func (failingStore) Remove(ctx context.Context, key string) error {
	return errors.New("storage unavailable")
}

func TestCartStore_LoadEmpty(t *testing.T) {
	store := NewCartStore(NewMemoryStore())
	assert.True(t, store.Load(context.Background()).IsEmpty())
}

func TestCartStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewCartStore(NewMemoryStore())

	lineA, err := cart.NewLine(testBook("bk-a", 12.99), 2)
	require.NoError(t, err)
	lineB, err := cart.NewLine(testBook("bk-b", 5.00), 1)
	require.NoError(t, err)
	original := cart.Empty().Add(lineA).Add(lineB)

	require.NoError(t, store.Save(ctx, original))
	loaded := store.Load(ctx)

	require.Len(t, loaded, 2)
	assert.Equal(t, "bk-a", loaded[0].BookID)
	assert.Equal(t, "Title bk-a", loaded[0].Title)
	assert.Equal(t, "Author bk-a", loaded[0].Author)
	assert.Equal(t, "fiction", loaded[0].Category)
	assert.Equal(t, 2, loaded[0].Quantity)
	assert.True(t, loaded[0].UnitPrice.Equal(decimal.NewFromFloat(12.99)))
	assert.Equal(t, original.TotalString(), loaded.TotalString())

	// save(load()) must be a no-op on the resulting cart shape
	require.NoError(t, store.Save(ctx, loaded))
	assert.Equal(t, loaded, store.Load(ctx))
}

func TestCartStore_PersistedShape(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryStore()
	store := NewCartStore(blobs)

	line, err := cart.NewLine(testBook("bk-a", 12.99), 2)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, cart.Empty().Add(line)))

	raw, ok, err := blobs.Get(ctx, "storefront:cart")
	require.NoError(t, err)
	require.True(t, ok)

	var stored []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 1)
	for _, field := range []string{"id", "title", "author", "price", "quantity", "image", "category"} {
		assert.Contains(t, stored[0], field)
	}
}

func TestCartStore_CorruptContentLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryStore()
	require.NoError(t, blobs.Set(ctx, "storefront:cart", "{not json"))

	store := NewCartStore(blobs)
	assert.True(t, store.Load(ctx).IsEmpty())
}

func TestCartStore_UnavailableStorageLoadsEmpty(t *testing.T) {
	store := NewCartStore(failingStore{})
	assert.True(t, store.Load(context.Background()).IsEmpty())
}

func TestCartStore_DropsInvalidPersistedLines(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryStore()
	raw := `[{"id":"bk-a","title":"A","price":"1.00","quantity":2},` +
		`{"id":"","title":"no id","price":"1.00","quantity":1},` +
		`{"id":"bk-b","title":"B","price":"1.00","quantity":0}]`
	require.NoError(t, blobs.Set(ctx, "storefront:cart", raw))

	loaded := NewCartStore(blobs).Load(ctx)

	require.Len(t, loaded, 1)
	assert.Equal(t, "bk-a", loaded[0].BookID)
	assert.NoError(t, loaded.Validate())
}

func TestCartStore_AddLine(t *testing.T) {
	ctx := context.Background()
	store := NewCartStore(NewMemoryStore())

	c, err := store.AddLine(ctx, testBook("bk-x", 10.00), 1)
	require.NoError(t, err)
	assert.Equal(t, "10.00", c.TotalString())

	// adding the same book again increments the existing line
	c, err = store.AddLine(ctx, testBook("bk-x", 10.00), 2)
	require.NoError(t, err)
	require.Len(t, c, 1)
	assert.Equal(t, 3, c[0].Quantity)
	assert.Equal(t, "30.00", c.TotalString())

	// result was persisted, not just returned
	assert.Equal(t, c, store.Load(ctx))
}

func TestCartStore_AddLine_RejectsNonPositiveQuantity(t *testing.T) {
	store := NewCartStore(NewMemoryStore())

	_, err := store.AddLine(context.Background(), testBook("bk-x", 10.00), 0)
	assert.Error(t, err)
}

func TestCartStore_SetLineQuantity(t *testing.T) {
	ctx := context.Background()
	store := NewCartStore(NewMemoryStore())

	_, err := store.AddLine(ctx, testBook("bk-x", 10.00), 3)
	require.NoError(t, err)

	c, err := store.SetLineQuantity(ctx, "bk-x", 5)
	require.NoError(t, err)
	require.Len(t, c, 1)
	assert.Equal(t, 5, c[0].Quantity, "set overwrites, it does not increment")

	c, err = store.SetLineQuantity(ctx, "bk-x", 0)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty(), "quantity 0 removes the line")
	assert.True(t, store.Load(ctx).IsEmpty())
}

func TestCartStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewCartStore(NewMemoryStore())

	_, err := store.AddLine(ctx, testBook("bk-x", 10.00), 1)
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx))
	assert.True(t, store.Load(ctx).IsEmpty())
}

// Two guest sessions backed by separate stores never observe each other's lines.
func TestCartStore_GuestIsolation(t *testing.T) {
	ctx := context.Background()
	first := NewCartStore(NewMemoryStore())
	second := NewCartStore(NewMemoryStore())

	_, err := first.AddLine(ctx, testBook("bk-a", 10.00), 1)
	require.NoError(t, err)

	assert.True(t, second.Load(ctx).IsEmpty())

	_, err = second.AddLine(ctx, testBook("bk-b", 5.00), 2)
	require.NoError(t, err)

	firstCart := first.Load(ctx)
	require.Len(t, firstCart, 1)
	assert.Equal(t, "bk-a", firstCart[0].BookID)
}

// Distinct keys isolate guests sharing one backing store (the kiosk case).
func TestCartStore_GuestIsolationSharedBackend(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryStore()
	first := NewCartStore(blobs, WithCartKey("storefront:cart:guest-1"))
	second := NewCartStore(blobs, WithCartKey("storefront:cart:guest-2"))

	_, err := first.AddLine(ctx, testBook("bk-a", 10.00), 1)
	require.NoError(t, err)

	assert.True(t, second.Load(ctx).IsEmpty())
}
