package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bookmart/storefront/internal/domain/cart"
	"github.com/bookmart/storefront/internal/domain/catalog"
)

// cartKey is the blob store key holding the guest cart
const cartKey = "storefront:cart"

// storedLine is the persisted JSON shape of a cart line
type storedLine struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image,omitempty"`
	Category string          `json:"category,omitempty"`
}

// CartStore persists the guest cart in a BlobStore.
// Every mutation helper is read-modify-write: it loads the current cart,
// applies the change, persists the full result and returns it, so no
// partial-write state is ever observable to callers.
type CartStore struct {
	blobs  BlobStore
	key    string
	logger *zap.Logger
}

// CartStoreOption is a functional option for configuring the cart store
type CartStoreOption func(*CartStore)

// WithCartKey overrides the blob store key. Distinct keys isolate distinct
// guest sessions sharing one backing store.
func WithCartKey(key string) CartStoreOption {
	return func(s *CartStore) {
		s.key = key
	}
}

// WithCartLogger sets the logger for the cart store
func WithCartLogger(logger *zap.Logger) CartStoreOption {
	return func(s *CartStore) {
		s.logger = logger
	}
}

// NewCartStore creates a cart store over the given blob store
func NewCartStore(blobs BlobStore, opts ...CartStoreOption) *CartStore {
	s := &CartStore{
		blobs:  blobs,
		key:    cartKey,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted guest cart. An unavailable store or content that
// fails to parse loads as an empty cart: losing a guest cart is always
// preferable to blocking the storefront on a storage fault.
func (s *CartStore) Load(ctx context.Context) cart.Cart {
	raw, ok, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("guest cart storage unavailable, treating as empty", zap.Error(err))
		return cart.Empty()
	}
	if !ok || raw == "" {
		return cart.Empty()
	}

	var stored []storedLine
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("guest cart content corrupted, treating as empty", zap.Error(err))
		return cart.Empty()
	}

	c := make(cart.Cart, 0, len(stored))
	for _, l := range stored {
		if l.ID == "" || l.Quantity < 1 {
			s.logger.Warn("dropping invalid persisted cart line",
				zap.String("book_id", l.ID),
				zap.Int("quantity", l.Quantity),
			)
			continue
		}
		c = c.Add(cart.Line{
			BookID:    l.ID,
			Title:     l.Title,
			Author:    l.Author,
			Category:  l.Category,
			UnitPrice: l.Price,
			Quantity:  l.Quantity,
			ImageURL:  l.Image,
		})
	}
	return c
}

// Save persists the full cart, replacing any previous content
func (s *CartStore) Save(ctx context.Context, c cart.Cart) error {
	stored := make([]storedLine, 0, len(c))
	for _, l := range c {
		stored = append(stored, storedLine{
			ID:       l.BookID,
			Title:    l.Title,
			Author:   l.Author,
			Price:    l.UnitPrice,
			Quantity: l.Quantity,
			Image:    l.ImageURL,
			Category: l.Category,
		})
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("localstore: failed to encode cart: %w", err)
	}
	if err := s.blobs.Set(ctx, s.key, string(raw)); err != nil {
		return fmt.Errorf("localstore: failed to persist cart: %w", err)
	}
	return nil
}

// Clear removes the persisted cart entirely
func (s *CartStore) Clear(ctx context.Context) error {
	if err := s.blobs.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("localstore: failed to clear cart: %w", err)
	}
	return nil
}

// AddLine merges quantity of the given book into the persisted cart and
// returns the resulting cart. An existing line for the book has its
// quantity incremented; otherwise a new line snapshots the book's display
// fields.
func (s *CartStore) AddLine(ctx context.Context, book catalog.Book, quantity int) (cart.Cart, error) {
	line, err := cart.NewLine(book, quantity)
	if err != nil {
		return nil, err
	}

	c := s.Load(ctx).Add(line)
	if err := s.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetLineQuantity overwrites the quantity of the line for bookID and returns
// the resulting cart. A quantity <= 0 removes the line entirely.
func (s *CartStore) SetLineQuantity(ctx context.Context, bookID string, quantity int) (cart.Cart, error) {
	c := s.Load(ctx).SetQuantity(bookID, quantity)
	if err := s.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
