package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmart/storefront/internal/infrastructure/config"
)

// newTestClient wires a Client against a test server
func newTestClient(t *testing.T, handler http.Handler, opts ...ClientOption) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.APIConfig{BaseURL: server.URL, Timeout: 5 * time.Second}
	return NewClient(cfg, opts...), server
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func TestCartClient_Fetch_FlatShape(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/u-1/cart", r.URL.Path)
		writeData(w, []map[string]any{
			{"bookId": "bk-1", "title": "Dune", "author": "Herbert", "category": "scifi",
				"price": 12.50, "quantity": 2, "image": "dune.jpg"},
		})
	}))

	result, err := NewCartClient(api).Fetch(context.Background(), "u-1")
	require.NoError(t, err)

	require.Len(t, result, 1)
	assert.Equal(t, "bk-1", result[0].BookID)
	assert.Equal(t, "Dune", result[0].Title)
	assert.Equal(t, 2, result[0].Quantity)
	assert.True(t, result[0].UnitPrice.Equal(decimal.NewFromFloat(12.50)))
	assert.Equal(t, "25.00", result.TotalString())
}

func TestCartClient_Fetch_EmbeddedBookShape(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []map[string]any{
			{"quantity": 1, "book": map[string]any{
				"id": "bk-2", "title": "Emma", "author": "Austen",
				"category": "classics", "price": 7.99, "imageUrl": "emma.jpg",
			}},
		})
	}))

	result, err := NewCartClient(api).Fetch(context.Background(), "u-1")
	require.NoError(t, err)

	require.Len(t, result, 1)
	assert.Equal(t, "bk-2", result[0].BookID)
	assert.Equal(t, "Emma", result[0].Title)
	assert.Equal(t, "Austen", result[0].Author)
	assert.Equal(t, "emma.jpg", result[0].ImageURL)
	assert.True(t, result[0].UnitPrice.Equal(decimal.NewFromFloat(7.99)))
}

func TestCartClient_Fetch_ItemWithoutBookReference(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []map[string]any{{"quantity": 1}})
	}))

	_, err := NewCartClient(api).Fetch(context.Background(), "u-1")
	assert.Error(t, err)
}

func TestCartClient_AddItem(t *testing.T) {
	var gotBody addItemRequest
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/u-1/cart/items", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeData(w, map[string]string{"status": "ok"})
	}))

	err := NewCartClient(api).AddItem(context.Background(), "u-1", "bk-1", 3)
	require.NoError(t, err)
	assert.Equal(t, addItemRequest{BookID: "bk-1", Quantity: 3}, gotBody)
}

func TestCartClient_AddItem_RejectsNonPositiveQuantity(t *testing.T) {
	called := false
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	err := NewCartClient(api).AddItem(context.Background(), "u-1", "bk-1", 0)
	assert.Error(t, err)
	assert.False(t, called, "invalid quantity must not reach the server")
}

func TestCartClient_SetItemQuantity(t *testing.T) {
	var gotBody setQuantityRequest
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/users/u-1/cart/items/bk-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeData(w, map[string]string{"status": "ok"})
	}))

	err := NewCartClient(api).SetItemQuantity(context.Background(), "u-1", "bk-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, gotBody.Quantity)
}

func TestCartClient_SetItemQuantity_RejectsNonPositiveQuantity(t *testing.T) {
	called := false
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	client := NewCartClient(api)
	assert.Error(t, client.SetItemQuantity(context.Background(), "u-1", "bk-1", 0))
	assert.Error(t, client.SetItemQuantity(context.Background(), "u-1", "bk-1", -2))
	assert.False(t, called, "removal must be routed to RemoveItem, not sent as quantity 0")
}

func TestCartClient_RemoveItem(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/users/u-1/cart/items/bk-1", r.URL.Path)
		writeData(w, map[string]string{"status": "ok"})
	}))

	assert.NoError(t, NewCartClient(api).RemoveItem(context.Background(), "u-1", "bk-1"))
}

func TestCartClient_Clear(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/users/u-1/cart", r.URL.Path)
		writeData(w, map[string]string{"status": "ok"})
	}))

	assert.NoError(t, NewCartClient(api).Clear(context.Background(), "u-1"))
}

func TestClient_ServiceErrorMapping(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusServiceUnavailable, "cart service down")
	}))

	err := NewCartClient(api).Clear(context.Background(), "u-1")
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusServiceUnavailable, svcErr.Status)
	assert.Equal(t, "cart service down", svcErr.Message)
	assert.False(t, IsUnauthorized(err))
}

func TestClient_UnauthorizedTriggersTeardown(t *testing.T) {
	teardowns := 0
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "token expired")
	}), WithUnauthorizedHandler(func() { teardowns++ }))

	result, err := NewCartClient(api).Fetch(context.Background(), "u-1")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err), "401 must be the distinguished unauthorized signal")
	assert.Equal(t, 1, teardowns, "teardown fires once per 401 response")

	require.Error(t, NewCartClient(api).Clear(context.Background(), "u-1"))
	assert.Equal(t, 2, teardowns)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeData(w, []map[string]any{})
	}), WithTokenSource(func() string { return "tok-123" }))

	_, err := NewCartClient(api).Fetch(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClient_ContextCancellation(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCartClient(api).Fetch(ctx, "u-1")
	assert.Error(t, err)
}
