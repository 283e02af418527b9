package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/bookmart/storefront/internal/domain/catalog"
)

// bookPayload is a book as served by the catalog endpoints
type bookPayload struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl"`
}

// categoryPayload is a category as served by the catalog endpoints
type categoryPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CatalogClient is the adapter for the storefront's book catalog endpoints
type CatalogClient struct {
	api *Client
}

// NewCatalogClient creates a catalog adapter over the shared API client
func NewCatalogClient(api *Client) *CatalogClient {
	return &CatalogClient{api: api}
}

// ListBooks returns the books in the catalog; category filters when non-empty
func (c *CatalogClient) ListBooks(ctx context.Context, category string) ([]catalog.Book, error) {
	path := "/books"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}

	var payload []bookPayload
	if err := c.api.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}

	books := make([]catalog.Book, 0, len(payload))
	for _, p := range payload {
		books = append(books, p.toBook())
	}
	return books, nil
}

// GetBook returns a single book by id
func (c *CatalogClient) GetBook(ctx context.Context, bookID string) (catalog.Book, error) {
	var payload bookPayload
	if err := c.api.do(ctx, http.MethodGet, "/books/"+url.PathEscape(bookID), nil, &payload); err != nil {
		return catalog.Book{}, err
	}
	return payload.toBook(), nil
}

// ListCategories returns the catalog categories
func (c *CatalogClient) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var payload []categoryPayload
	if err := c.api.do(ctx, http.MethodGet, "/categories", nil, &payload); err != nil {
		return nil, err
	}

	categories := make([]catalog.Category, 0, len(payload))
	for _, p := range payload {
		categories = append(categories, catalog.Category{ID: p.ID, Name: p.Name})
	}
	return categories, nil
}

func (p bookPayload) toBook() catalog.Book {
	return catalog.Book{
		ID:       p.ID,
		Title:    p.Title,
		Author:   p.Author,
		Category: p.Category,
		Price:    p.Price,
		ImageURL: p.ImageURL,
	}
}
