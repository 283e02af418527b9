package remote

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookmart/storefront/internal/domain/cart"
)

// Order is an order as served by the storefront order endpoints
type Order struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
	Items     []OrderItem     `json:"items"`
}

// OrderItem is one line of a placed order
type OrderItem struct {
	BookID    string          `json:"bookId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// placeOrderRequest is the checkout body built from the current cart
type placeOrderRequest struct {
	Items []placeOrderItem `json:"items"`
}

type placeOrderItem struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

// OrderClient is the adapter for the storefront's order endpoints
type OrderClient struct {
	api *Client
}

// NewOrderClient creates an order adapter over the shared API client
func NewOrderClient(api *Client) *OrderClient {
	return &OrderClient{api: api}
}

// PlaceOrder submits the given cart lines as a new order and returns the
// created order. Pricing is computed server-side from the book ids; the
// snapshot prices in the cart are display-only.
func (c *OrderClient) PlaceOrder(ctx context.Context, userID string, lines cart.Cart) (Order, error) {
	body := placeOrderRequest{Items: make([]placeOrderItem, 0, len(lines))}
	for _, l := range lines {
		body.Items = append(body.Items, placeOrderItem{BookID: l.BookID, Quantity: l.Quantity})
	}

	var order Order
	if err := c.api.do(ctx, http.MethodPost, c.ordersPath(userID), body, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// ListOrders returns the user's order history, newest first
func (c *OrderClient) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	var orders []Order
	if err := c.api.do(ctx, http.MethodGet, c.ordersPath(userID), nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *OrderClient) ordersPath(userID string) string {
	return "/users/" + url.PathEscape(userID) + "/orders"
}
