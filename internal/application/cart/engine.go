// Package cart implements the cart engine: a single API over the two cart
// backing stores. Anonymous sessions work against the local store,
// authenticated sessions against the storefront API, and callers never see
// which one is active.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bookmart/storefront/internal/domain/cart"
	"github.com/bookmart/storefront/internal/domain/catalog"
	"github.com/bookmart/storefront/internal/domain/shared"
)

// Common errors
var (
	// ErrAddInProgress is returned when an add is requested while a
	// previous add has not completed yet
	ErrAddInProgress = errors.New("add to cart already in progress")
	// ErrMigrationFailed is returned when merging the guest cart into the
	// server cart aborts; the guest cart is left intact for retry
	ErrMigrationFailed = errors.New("cart merge failed")
)

// Store is the local (guest) cart backing store
type Store interface {
	Load(ctx context.Context) cart.Cart
	Save(ctx context.Context, c cart.Cart) error
	Clear(ctx context.Context) error
	AddLine(ctx context.Context, book catalog.Book, quantity int) (cart.Cart, error)
	SetLineQuantity(ctx context.Context, bookID string, quantity int) (cart.Cart, error)
}

// Service is the server (authenticated) cart backing store
type Service interface {
	Fetch(ctx context.Context, userID string) (cart.Cart, error)
	AddItem(ctx context.Context, userID, bookID string, quantity int) error
	SetItemQuantity(ctx context.Context, userID, bookID string, quantity int) error
	RemoveItem(ctx context.Context, userID, bookID string) error
	Clear(ctx context.Context, userID string) error
}

// Snapshot is an immutable view of the engine state handed to subscribers
// and returned by State
type Snapshot struct {
	Lines         cart.Cart
	Identity      cart.Identity
	Loading       bool
	AddInProgress bool
}

// Total returns the cart total of the snapshot
func (s Snapshot) Total() decimal.Decimal {
	return s.Lines.Total()
}

// Engine routes cart operations to the backing store selected by the
// current identity. After every successful write the authoritative cart is
// re-read from the backing store; the in-memory view is never patched
// optimistically. A failed write leaves the view unchanged.
type Engine struct {
	local  Store
	remote Service
	logger *zap.Logger

	mu            sync.Mutex
	identity      cart.Identity
	lines         cart.Cart
	loading       bool
	addInProgress bool
	// epoch increments on every identity change; results of operations
	// started under an older epoch are discarded
	epoch       uint64
	subscribers map[uuid.UUID]func(Snapshot)
}

// EngineOption is a functional option for configuring the engine
type EngineOption func(*Engine)

// WithLogger sets the logger for the engine
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a cart engine over the given backing stores. The engine
// starts as a guest with an empty view; call SetIdentity to load a cart.
func NewEngine(local Store, remote Service, opts ...EngineOption) *Engine {
	e := &Engine{
		local:       local,
		remote:      remote,
		logger:      zap.NewNop(),
		identity:    cart.Guest(),
		lines:       cart.Empty(),
		subscribers: make(map[uuid.UUID]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetIdentity switches the active backing store and reloads the cart view
// from it. The previous view is dropped entirely; carts from different
// identities are never blended. Results of operations still in flight for
// the previous identity are discarded when they land.
func (e *Engine) SetIdentity(ctx context.Context, identity cart.Identity) error {
	e.mu.Lock()
	e.identity = identity
	e.epoch++
	epoch := e.epoch
	e.lines = cart.Empty()
	e.loading = true
	e.mu.Unlock()
	e.publish()

	lines, err := e.read(ctx, identity)

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		return nil
	}
	e.loading = false
	if err == nil {
		e.lines = lines
	}
	e.mu.Unlock()
	e.publish()

	if err != nil {
		e.logger.Warn("cart load failed",
			zap.String("identity", identity.String()),
			zap.Error(err))
		return err
	}
	return nil
}

// AddToCart adds the book to the active cart, incrementing the quantity if
// a line for it already exists. Only one add may be in flight at a time;
// concurrent adds are rejected with ErrAddInProgress.
func (e *Engine) AddToCart(ctx context.Context, book catalog.Book, quantity int) error {
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}

	e.mu.Lock()
	if e.addInProgress {
		e.mu.Unlock()
		return ErrAddInProgress
	}
	e.addInProgress = true
	identity := e.identity
	epoch := e.epoch
	e.mu.Unlock()
	e.publish()

	lines, err := e.addTo(ctx, identity, book, quantity)
	e.settle(epoch, lines, err, func() { e.addInProgress = false })
	return err
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or less removes the line.
func (e *Engine) UpdateQuantity(ctx context.Context, bookID string, quantity int) error {
	e.mu.Lock()
	identity := e.identity
	epoch := e.epoch
	e.mu.Unlock()

	lines, err := e.setQuantityOn(ctx, identity, bookID, quantity)
	e.settle(epoch, lines, err, nil)
	return err
}

// RemoveFromCart removes the line for the given book
func (e *Engine) RemoveFromCart(ctx context.Context, bookID string) error {
	return e.UpdateQuantity(ctx, bookID, 0)
}

// ClearCart empties the active cart
func (e *Engine) ClearCart(ctx context.Context) error {
	e.mu.Lock()
	identity := e.identity
	epoch := e.epoch
	e.mu.Unlock()

	lines, err := e.clearOn(ctx, identity)
	e.settle(epoch, lines, err, nil)
	return err
}

// MigrateGuestCart replays the guest cart onto the server cart for the
// given user, line by line in cart order. Quantities merge by addition with
// whatever the server cart already holds. On the first failed line the
// migration aborts and the guest cart is left intact so a retry replays it
// in full; only after every line is accepted is the guest cart cleared and
// the merged server cart re-fetched as the new view. A later SetIdentity
// for the same user reloads the same cart and stays harmless.
func (e *Engine) MigrateGuestCart(ctx context.Context, userID string) error {
	e.mu.Lock()
	epoch := e.epoch
	e.mu.Unlock()

	lines := e.local.Load(ctx)
	if lines.IsEmpty() {
		return nil
	}

	for _, line := range lines {
		if err := e.remote.AddItem(ctx, userID, line.BookID, line.Quantity); err != nil {
			e.logger.Warn("guest cart migration aborted",
				zap.String("book_id", line.BookID),
				zap.Error(err))
			return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
		}
	}

	if err := e.local.Clear(ctx); err != nil {
		e.logger.Warn("guest cart not cleared after migration", zap.Error(err))
	}
	e.logger.Info("guest cart migrated",
		zap.String("user_id", userID),
		zap.Int("lines", len(lines)))

	merged, err := e.remote.Fetch(ctx, userID)
	if err != nil {
		// The merge itself succeeded; the view catches up on the next
		// reload instead of failing the migration over a read.
		e.logger.Warn("merged cart re-read failed", zap.Error(err))
		return nil
	}
	e.settle(epoch, merged, nil, nil)
	return nil
}

// State returns a snapshot of the current engine state
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Total returns the current cart total, rounded to cents
func (e *Engine) Total() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lines.Total()
}

// TotalString returns the current cart total formatted with two decimals
func (e *Engine) TotalString() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lines.TotalString()
}

// Subscribe registers a listener that receives a snapshot after every state
// change. It returns a handle for Unsubscribe.
func (e *Engine) Subscribe(fn func(Snapshot)) uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := uuid.New()
	e.subscribers[id] = fn
	return id
}

// Unsubscribe removes a previously registered listener
func (e *Engine) Unsubscribe(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subscribers, id)
}

// read loads the authoritative cart for the identity. A guest load never
// fails: an unreadable local cart reads as empty.
func (e *Engine) read(ctx context.Context, identity cart.Identity) (cart.Cart, error) {
	userID, ok := identity.UserID()
	if !ok {
		return e.local.Load(ctx), nil
	}
	return e.remote.Fetch(ctx, userID)
}

func (e *Engine) addTo(ctx context.Context, identity cart.Identity, book catalog.Book, quantity int) (cart.Cart, error) {
	userID, ok := identity.UserID()
	if !ok {
		return e.local.AddLine(ctx, book, quantity)
	}
	if err := e.remote.AddItem(ctx, userID, book.ID, quantity); err != nil {
		return nil, err
	}
	return e.remote.Fetch(ctx, userID)
}

func (e *Engine) setQuantityOn(ctx context.Context, identity cart.Identity, bookID string, quantity int) (cart.Cart, error) {
	userID, ok := identity.UserID()
	if !ok {
		return e.local.SetLineQuantity(ctx, bookID, quantity)
	}
	if quantity < 1 {
		if err := e.remote.RemoveItem(ctx, userID, bookID); err != nil {
			return nil, err
		}
	} else {
		if err := e.remote.SetItemQuantity(ctx, userID, bookID, quantity); err != nil {
			return nil, err
		}
	}
	return e.remote.Fetch(ctx, userID)
}

func (e *Engine) clearOn(ctx context.Context, identity cart.Identity) (cart.Cart, error) {
	userID, ok := identity.UserID()
	if !ok {
		if err := e.local.Clear(ctx); err != nil {
			return nil, err
		}
		return cart.Empty(), nil
	}
	if err := e.remote.Clear(ctx, userID); err != nil {
		e.logger.Warn("remote cart clear failed", zap.Error(err))
		return nil, err
	}
	lines, err := e.remote.Fetch(ctx, userID)
	if err != nil {
		// The clear itself succeeded; show the empty cart rather than
		// failing the operation over the follow-up read.
		e.logger.Warn("cart re-read after clear failed", zap.Error(err))
		return cart.Empty(), nil
	}
	return lines, nil
}

// settle applies the result of a write once it lands. Results from an epoch
// that has since been superseded by an identity change are discarded, and a
// failed write never touches the view.
func (e *Engine) settle(epoch uint64, lines cart.Cart, err error, always func()) {
	e.mu.Lock()
	if always != nil {
		always()
	}
	if e.epoch != epoch {
		e.mu.Unlock()
		return
	}
	if err == nil {
		e.lines = lines
	}
	e.mu.Unlock()
	e.publish()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Lines:         e.lines.Clone(),
		Identity:      e.identity,
		Loading:       e.loading,
		AddInProgress: e.addInProgress,
	}
}

// publish pushes the current snapshot to all subscribers. Subscribers run
// outside the engine lock so they may call back into the engine.
func (e *Engine) publish() {
	e.mu.Lock()
	snap := e.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
