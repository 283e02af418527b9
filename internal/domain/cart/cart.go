package cart

import (
	"github.com/shopspring/decimal"

	"github.com/bookmart/storefront/internal/domain/catalog"
	"github.com/bookmart/storefront/internal/domain/shared"
)

// Line is a single book-and-quantity entry in a cart.
// Display fields are snapshotted from the catalog at add time.
type Line struct {
	BookID    string
	Title     string
	Author    string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
	ImageURL  string
}

// NewLine creates a cart line from a catalog book snapshot
func NewLine(book catalog.Book, quantity int) (Line, error) {
	if err := book.Validate(); err != nil {
		return Line{}, err
	}
	if quantity < 1 {
		return Line{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	return Line{
		BookID:    book.ID,
		Title:     book.Title,
		Author:    book.Author,
		Category:  book.Category,
		UnitPrice: book.Price,
		Quantity:  quantity,
		ImageURL:  book.ImageURL,
	}, nil
}

// Subtotal returns UnitPrice * Quantity
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered collection of lines keyed by BookID.
// Invariants: no two lines share a BookID, and every line has Quantity >= 1.
// All mutators are value-style and return the resulting cart.
type Cart []Line

// Empty returns an empty cart
func Empty() Cart {
	return Cart{}
}

// IsEmpty reports whether the cart has no lines
func (c Cart) IsEmpty() bool {
	return len(c) == 0
}

// IndexOf returns the position of the line for bookID, or -1
func (c Cart) IndexOf(bookID string) int {
	for i, l := range c {
		if l.BookID == bookID {
			return i
		}
	}
	return -1
}

// Get returns the line for bookID if present
func (c Cart) Get(bookID string) (Line, bool) {
	if i := c.IndexOf(bookID); i >= 0 {
		return c[i], true
	}
	return Line{}, false
}

// Add merges a line into the cart. If a line for the same book already
// exists its quantity is incremented by the new line's quantity; otherwise
// the line is appended. Order of existing lines is preserved.
func (c Cart) Add(line Line) Cart {
	out := c.Clone()
	if i := out.IndexOf(line.BookID); i >= 0 {
		out[i].Quantity += line.Quantity
		return out
	}
	return append(out, line)
}

// SetQuantity overwrites the quantity of the line for bookID.
// A quantity <= 0 removes the line entirely; a cart never stores a line
// with quantity below 1. Setting a quantity on an absent book is a no-op.
func (c Cart) SetQuantity(bookID string, quantity int) Cart {
	if quantity <= 0 {
		return c.Remove(bookID)
	}
	out := c.Clone()
	if i := out.IndexOf(bookID); i >= 0 {
		out[i].Quantity = quantity
	}
	return out
}

// Remove deletes the line for bookID, preserving the order of the rest
func (c Cart) Remove(bookID string) Cart {
	out := make(Cart, 0, len(c))
	for _, l := range c {
		if l.BookID != bookID {
			out = append(out, l)
		}
	}
	return out
}

// Clone returns an independent copy of the cart
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Total returns the sum of line subtotals rounded to 2 decimal places.
// Derived on every call, never stored.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c {
		total = total.Add(l.Subtotal())
	}
	return total.Round(2)
}

// TotalString returns the total in fixed 2-decimal display form
func (c Cart) TotalString() string {
	return c.Total().StringFixed(2)
}

// Validate checks the cart invariants
func (c Cart) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for _, l := range c {
		if l.BookID == "" {
			return shared.NewDomainError("INVALID_LINE", "Line book ID cannot be empty")
		}
		if _, dup := seen[l.BookID]; dup {
			return shared.NewDomainError("DUPLICATE_LINE", "Cart already contains a line for this book")
		}
		seen[l.BookID] = struct{}{}
		if l.Quantity < 1 {
			return shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be at least 1")
		}
		if l.UnitPrice.IsNegative() {
			return shared.NewDomainError("INVALID_PRICE", "Line unit price cannot be negative")
		}
	}
	return nil
}
