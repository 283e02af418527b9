package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/bookmart/storefront/internal/domain/cart"
	"github.com/bookmart/storefront/internal/domain/shared"
)

// cartItemPayload is one cart line as returned by the cart service.
// Depending on the server version the book is referenced either by flat
// snapshot fields or by an embedded book object; both shapes are accepted.
type cartItemPayload struct {
	BookID   string          `json:"bookId"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image"`
	Book     *bookPayload    `json:"book,omitempty"`
}

// addItemRequest is the body for adding an item to the server cart
type addItemRequest struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

// setQuantityRequest is the body for overwriting an item quantity
type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartClient is the adapter for the remote cart service, the authoritative
// cart storage for authenticated identities
type CartClient struct {
	api *Client
}

// NewCartClient creates a cart service adapter over the shared API client
func NewCartClient(api *Client) *CartClient {
	return &CartClient{api: api}
}

// Fetch returns the authoritative server cart for the user
func (c *CartClient) Fetch(ctx context.Context, userID string) (cart.Cart, error) {
	var items []cartItemPayload
	if err := c.api.do(ctx, http.MethodGet, c.cartPath(userID), nil, &items); err != nil {
		return nil, err
	}

	result := make(cart.Cart, 0, len(items))
	for _, item := range items {
		line, err := item.toLine()
		if err != nil {
			return nil, err
		}
		result = result.Add(line)
	}
	return result, nil
}

// AddItem adds quantity of a book to the server cart. The server merges
// quantities itself; callers must re-Fetch for the resulting state.
func (c *CartClient) AddItem(ctx context.Context, userID, bookID string, quantity int) error {
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	body := addItemRequest{BookID: bookID, Quantity: quantity}
	return c.api.do(ctx, http.MethodPost, c.cartPath(userID)+"/items", body, nil)
}

// SetItemQuantity overwrites the quantity of an item on the server cart.
// A quantity <= 0 is not valid here; the cart service models removal as a
// distinct operation, so callers route those to RemoveItem.
func (c *CartClient) SetItemQuantity(ctx context.Context, userID, bookID string, quantity int) error {
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1; use RemoveItem to delete")
	}
	body := setQuantityRequest{Quantity: quantity}
	return c.api.do(ctx, http.MethodPut, c.itemPath(userID, bookID), body, nil)
}

// RemoveItem deletes an item from the server cart
func (c *CartClient) RemoveItem(ctx context.Context, userID, bookID string) error {
	return c.api.do(ctx, http.MethodDelete, c.itemPath(userID, bookID), nil, nil)
}

// Clear deletes the entire server cart for the user
func (c *CartClient) Clear(ctx context.Context, userID string) error {
	return c.api.do(ctx, http.MethodDelete, c.cartPath(userID), nil, nil)
}

func (c *CartClient) cartPath(userID string) string {
	return "/users/" + url.PathEscape(userID) + "/cart"
}

func (c *CartClient) itemPath(userID, bookID string) string {
	return c.cartPath(userID) + "/items/" + url.PathEscape(bookID)
}

// toLine maps a wire cart item to the canonical line shape, tolerating both
// the flat and the embedded-book representations
func (p cartItemPayload) toLine() (cart.Line, error) {
	line := cart.Line{
		BookID:    p.BookID,
		Title:     p.Title,
		Author:    p.Author,
		Category:  p.Category,
		UnitPrice: p.Price,
		Quantity:  p.Quantity,
		ImageURL:  p.Image,
	}

	if p.Book != nil {
		if line.BookID == "" {
			line.BookID = p.Book.ID
		}
		if line.Title == "" {
			line.Title = p.Book.Title
		}
		if line.Author == "" {
			line.Author = p.Book.Author
		}
		if line.Category == "" {
			line.Category = p.Book.Category
		}
		if line.UnitPrice.IsZero() {
			line.UnitPrice = p.Book.Price
		}
		if line.ImageURL == "" {
			line.ImageURL = p.Book.ImageURL
		}
	}

	if line.BookID == "" {
		return cart.Line{}, fmt.Errorf("remote: cart item has no book reference")
	}
	if line.Quantity < 1 {
		return cart.Line{}, fmt.Errorf("remote: cart item %s has invalid quantity %d", line.BookID, line.Quantity)
	}
	return line, nil
}
