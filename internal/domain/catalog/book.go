package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/bookmart/storefront/internal/domain/shared"
)

// Book is the catalog view of a title as served by the storefront API.
// Cart lines snapshot its display fields at add time; they are not
// live-joined back to the catalog afterwards.
type Book struct {
	ID       string
	Title    string
	Author   string
	Category string
	Price    decimal.Decimal
	ImageURL string
}

// Validate checks that the book can be added to a cart
func (b Book) Validate() error {
	if b.ID == "" {
		return shared.NewDomainError("INVALID_BOOK", "Book ID cannot be empty")
	}
	if b.Title == "" {
		return shared.NewDomainError("INVALID_BOOK", "Book title cannot be empty")
	}
	if b.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Book price cannot be negative")
	}
	return nil
}

// Category groups books for browsing
type Category struct {
	ID   string
	Name string
}
