// Package testutil provides common test utilities for the storefront client.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookmart/storefront/internal/domain/catalog"
)

// fakeUser is a seeded account on the fake storefront
type fakeUser struct {
	userID   string
	password string
}

// fakeCartItem is one line of a server-side cart, in insertion order
type fakeCartItem struct {
	BookID   string
	Quantity int
}

// fakeOrder is a placed order
type fakeOrder struct {
	ID        string
	Status    string
	Total     decimal.Decimal
	CreatedAt time.Time
	Items     []fakeCartItem
}

// FakeStorefront is an in-memory storefront API served over httptest. It
// implements the catalog, auth, cart and order endpoints the client talks
// to, with the same envelope and payload shapes as the real service.
type FakeStorefront struct {
	srv *httptest.Server

	mu       sync.Mutex
	books    []catalog.Book
	users    map[string]fakeUser       // email -> account
	tokens   map[string]string         // token -> user id
	carts    map[string][]fakeCartItem // user id -> cart
	orders   map[string][]fakeOrder    // user id -> orders, newest first
	rejected map[string]bool           // book ids the cart endpoints refuse
	revoked  bool
}

// NewFakeStorefront starts a fake storefront API. Callers own the server
// and must Close it.
func NewFakeStorefront() *FakeStorefront {
	f := &FakeStorefront{
		users:    make(map[string]fakeUser),
		tokens:   make(map[string]string),
		carts:    make(map[string][]fakeCartItem),
		orders:   make(map[string][]fakeOrder),
		rejected: make(map[string]bool),
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	{
		api.POST("/auth/login", f.handleLogin)
		api.GET("/books", f.handleListBooks)
		api.GET("/books/:id", f.handleGetBook)
		api.GET("/categories", f.handleListCategories)

		users := api.Group("/users/:userID", f.requireAuth)
		{
			users.GET("/cart", f.handleGetCart)
			users.DELETE("/cart", f.handleClearCart)
			users.POST("/cart/items", f.handleAddItem)
			users.PUT("/cart/items/:bookID", f.handleSetQuantity)
			users.DELETE("/cart/items/:bookID", f.handleRemoveItem)
			users.POST("/orders", f.handlePlaceOrder)
			users.GET("/orders", f.handleListOrders)
		}
	}

	f.srv = httptest.NewServer(router)
	return f
}

// BaseURL returns the API base URL to point the client at
func (f *FakeStorefront) BaseURL() string {
	return f.srv.URL + "/api/v1"
}

// Close shuts the fake server down
func (f *FakeStorefront) Close() {
	f.srv.Close()
}

// SeedBook adds a book to the catalog
func (f *FakeStorefront) SeedBook(book catalog.Book) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books = append(f.books, book)
}

// SeedUser registers an account
func (f *FakeStorefront) SeedUser(email, password, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = fakeUser{userID: userID, password: password}
}

// SeedCartItem puts a line directly into a user's server cart
func (f *FakeStorefront) SeedCartItem(userID, bookID string, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[userID] = mergeItem(f.carts[userID], bookID, quantity)
}

// CartOf returns the current server cart as bookID -> quantity
func (f *FakeStorefront) CartOf(userID string) map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string]int, len(f.carts[userID]))
	for _, item := range f.carts[userID] {
		result[item.BookID] = item.Quantity
	}
	return result
}

// RejectBook makes the cart endpoints refuse the given book with a 422
func (f *FakeStorefront) RejectBook(bookID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected[bookID] = true
}

// RevokeTokens invalidates every issued token so the next authenticated
// request gets a 401
func (f *FakeStorefront) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = true
}

func (f *FakeStorefront) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid login request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[req.Email]
	if !ok || user.password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	token, err := issueToken(user.userID, req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token issuance failed"})
		return
	}
	f.tokens[token] = user.userID
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"token": token}})
}

func (f *FakeStorefront) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
		return
	}

	f.mu.Lock()
	userID, known := f.tokens[token]
	revoked := f.revoked
	f.mu.Unlock()
	if !known || revoked {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "session expired"})
		return
	}
	if c.Param("userID") != userID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "wrong user"})
		return
	}
	c.Next()
}

func (f *FakeStorefront) handleListBooks(c *gin.Context) {
	category := c.Query("category")

	f.mu.Lock()
	defer f.mu.Unlock()
	books := make([]gin.H, 0, len(f.books))
	for _, b := range f.books {
		if category != "" && b.Category != category {
			continue
		}
		books = append(books, bookJSON(b))
	}
	c.JSON(http.StatusOK, gin.H{"data": books})
}

func (f *FakeStorefront) handleGetBook(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.findBook(c.Param("id")); ok {
		c.JSON(http.StatusOK, gin.H{"data": bookJSON(b)})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "book not found"})
}

func (f *FakeStorefront) handleListCategories(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	categories := make([]gin.H, 0)
	for _, b := range f.books {
		if b.Category == "" || seen[b.Category] {
			continue
		}
		seen[b.Category] = true
		categories = append(categories, gin.H{"id": b.Category, "name": b.Category})
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

func (f *FakeStorefront) handleGetCart(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"data": f.cartJSON(c.Param("userID"))})
}

func (f *FakeStorefront) handleAddItem(c *gin.Context) {
	var req struct {
		BookID   string `json:"bookId" binding:"required"`
		Quantity int    `json:"quantity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid cart item"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejected[req.BookID] {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "book not available"})
		return
	}
	if _, ok := f.findBook(req.BookID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "book not found"})
		return
	}
	userID := c.Param("userID")
	f.carts[userID] = mergeItem(f.carts[userID], req.BookID, req.Quantity)
	c.JSON(http.StatusOK, gin.H{"data": f.cartJSON(userID)})
}

func (f *FakeStorefront) handleSetQuantity(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid quantity"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	userID, bookID := c.Param("userID"), c.Param("bookID")
	if f.rejected[bookID] {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "book not available"})
		return
	}
	cart := f.carts[userID]
	for i := range cart {
		if cart[i].BookID == bookID {
			cart[i].Quantity = req.Quantity
			c.JSON(http.StatusOK, gin.H{"data": f.cartJSON(userID)})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "item not in cart"})
}

func (f *FakeStorefront) handleRemoveItem(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, bookID := c.Param("userID"), c.Param("bookID")
	cart := f.carts[userID]
	for i := range cart {
		if cart[i].BookID == bookID {
			f.carts[userID] = append(cart[:i], cart[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"data": f.cartJSON(userID)})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "item not in cart"})
}

func (f *FakeStorefront) handleClearCart(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, c.Param("userID"))
	c.JSON(http.StatusOK, gin.H{"data": []gin.H{}})
}

func (f *FakeStorefront) handlePlaceOrder(c *gin.Context) {
	var req struct {
		Items []struct {
			BookID   string `json:"bookId"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "empty order"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	order := fakeOrder{
		ID:        uuid.NewString(),
		Status:    "PLACED",
		Total:     decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	for _, item := range req.Items {
		book, ok := f.findBook(item.BookID)
		if !ok || item.Quantity < 1 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "invalid order item"})
			return
		}
		order.Items = append(order.Items, fakeCartItem{BookID: item.BookID, Quantity: item.Quantity})
		order.Total = order.Total.Add(book.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	userID := c.Param("userID")
	f.orders[userID] = append([]fakeOrder{order}, f.orders[userID]...)
	delete(f.carts, userID)
	c.JSON(http.StatusCreated, gin.H{"data": f.orderJSON(order)})
}

func (f *FakeStorefront) handleListOrders(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	orders := make([]gin.H, 0, len(f.orders[c.Param("userID")]))
	for _, o := range f.orders[c.Param("userID")] {
		orders = append(orders, f.orderJSON(o))
	}
	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (f *FakeStorefront) findBook(id string) (catalog.Book, bool) {
	for _, b := range f.books {
		if b.ID == id {
			return b, true
		}
	}
	return catalog.Book{}, false
}

func bookJSON(b catalog.Book) gin.H {
	return gin.H{
		"id":       b.ID,
		"title":    b.Title,
		"author":   b.Author,
		"category": b.Category,
		"price":    b.Price,
		"imageUrl": b.ImageURL,
	}
}

func (f *FakeStorefront) cartJSON(userID string) []gin.H {
	items := make([]gin.H, 0, len(f.carts[userID]))
	for _, item := range f.carts[userID] {
		book, _ := f.findBook(item.BookID)
		items = append(items, gin.H{
			"bookId":   item.BookID,
			"title":    book.Title,
			"author":   book.Author,
			"category": book.Category,
			"price":    book.Price,
			"quantity": item.Quantity,
			"image":    book.ImageURL,
		})
	}
	return items
}

func (f *FakeStorefront) orderJSON(o fakeOrder) gin.H {
	items := make([]gin.H, 0, len(o.Items))
	for _, item := range o.Items {
		book, _ := f.findBook(item.BookID)
		items = append(items, gin.H{
			"bookId":   item.BookID,
			"title":    book.Title,
			"price":    book.Price,
			"quantity": item.Quantity,
		})
	}
	return gin.H{
		"id":        o.ID,
		"status":    o.Status,
		"total":     o.Total,
		"createdAt": o.CreatedAt,
		"items":     items,
	}
}

func issueToken(userID, email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":     userID,
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
}

func mergeItem(items []fakeCartItem, bookID string, quantity int) []fakeCartItem {
	for i := range items {
		if items[i].BookID == bookID {
			items[i].Quantity += quantity
			return items
		}
	}
	return append(items, fakeCartItem{BookID: bookID, Quantity: quantity})
}
