package remote

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/auth"
	"github.com/dmehra2102/storefront/pkg/resilience"
)

var caller = auth.Principal{Username: "alice", Roles: []string{auth.RoleUser}, Token: "tok"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPolicy(name string, minRequests uint32) *resilience.Policy {
	s := resilience.DefaultSettings(name)
	s.Timeout = time.Second
	s.Retry.InitialInterval = time.Millisecond
	s.Retry.MaxInterval = 2 * time.Millisecond
	s.Breaker.MinRequests = minRequests
	return resilience.NewPolicy(testLogger(), s)
}

func TestCartClient_FetchCart(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cart", r.URL.Path)
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"totalPrice":100.00,"items":[{"id":9,"itemId":101,"itemName":"Widget","quantity":2,"price":50.00,"subTotal":100.00}]}`))
	}))
	defer srv.Close()

	c := NewCartClient(testLogger(), srv.Client(), srv.URL+"/api/", testPolicy("cart-service", 10))
	cart, err := c.FetchCart(t.Context(), caller)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth.Load())
	assert.Equal(t, "100.00", cart.TotalPrice.StringFixed(2))
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int64(101), cart.Lines[0].ItemID)
	assert.Equal(t, "Widget", cart.Lines[0].ItemName)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, "50.00", cart.Lines[0].UnitPrice.StringFixed(2))
}

func TestCartClient_FetchCartNotFoundIsEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	c := NewCartClient(testLogger(), srv.Client(), srv.URL, testPolicy("cart-service", 10))
	cart, err := c.FetchCart(t.Context(), caller)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, int32(1), calls.Load(), "404 is not retried")
}

func TestCartClient_FetchCartRetriesThenUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewCartClient(testLogger(), srv.Client(), srv.URL, testPolicy("cart-service", 10))
	_, err := c.FetchCart(t.Context(), caller)
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(err))
	assert.Equal(t, int32(3), calls.Load())

	var uerr *domain.UnavailableError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "cart-service", uerr.Remote)
}

func TestCartClient_FetchCartRecoversOnRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"totalPrice":"5","items":[{"itemId":1,"itemName":"a","quantity":1,"price":"5"}]}`))
	}))
	defer srv.Close()

	c := NewCartClient(testLogger(), srv.Client(), srv.URL, testPolicy("cart-service", 10))
	cart, err := c.FetchCart(t.Context(), caller)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCartClient_ClearCartSwallowsFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/cart/clear", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCartClient(testLogger(), srv.Client(), srv.URL, testPolicy("cart-service", 10))
	assert.NoError(t, c.ClearCart(t.Context(), caller))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCartClient_ClearCartUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewCartClient(testLogger(), nil, url, testPolicy("cart-service", 10))
	assert.NoError(t, c.ClearCart(t.Context(), caller))
}

func TestInventoryClient_FetchAndUpdate(t *testing.T) {
	updated := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var lastPut atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inventory/item/101", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(inventoryDTO{ID: 7, ItemID: 101, Quantity: 10, WarehouseLocation: "WH-A", LastUpdated: &updated})
		case http.MethodPut:
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var put inventoryDTO
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&put))
			lastPut.Store(put)
			_ = json.NewEncoder(w).Encode(put)
		}
	}))
	defer srv.Close()

	c := NewInventoryClient(testLogger(), srv.Client(), srv.URL, testPolicy("inventory-service", 10))
	rec, err := c.FetchStock(t.Context(), caller, 101)
	require.NoError(t, err)
	assert.Equal(t, domain.InventoryRecord{ID: 7, ItemID: 101, Quantity: 10, WarehouseLocation: "WH-A", LastUpdated: updated}, rec)

	got, err := c.UpdateStock(t.Context(), caller, rec.Decremented(2))
	require.NoError(t, err)
	assert.Equal(t, 8, got.Quantity)
	put := lastPut.Load().(inventoryDTO)
	assert.Equal(t, int64(7), put.ID, "id round-trips")
	assert.Equal(t, "WH-A", put.WarehouseLocation, "location round-trips")
	assert.Equal(t, 8, put.Quantity)
}

func TestInventoryClient_FetchNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewInventoryClient(testLogger(), srv.Client(), srv.URL, testPolicy("inventory-service", 10))
	_, err := c.FetchStock(t.Context(), caller, 42)
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	var nf *domain.ItemNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(42), nf.ItemID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInventoryClient_UpdateFailureIsUnavailable(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			c := NewInventoryClient(testLogger(), srv.Client(), srv.URL, testPolicy("inventory-service", 10))
			_, err := c.UpdateStock(t.Context(), caller, domain.InventoryRecord{ItemID: 1, Quantity: 1})
			require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
		})
	}
}

func TestInventoryClient_OpenCircuitFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	policy := testPolicy("inventory-service", 3)
	c := NewInventoryClient(testLogger(), srv.Client(), srv.URL, policy)

	_, err := c.FetchStock(t.Context(), caller, 1)
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	require.Equal(t, int32(3), calls.Load())

	_, err = c.FetchStock(t.Context(), caller, 1)
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load(), "open breaker skips the network")

	_, err = c.UpdateStock(t.Context(), caller, domain.InventoryRecord{ItemID: 1})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen, "reads and writes share the remote's breaker")
}

func TestInventoryClient_MalformedBodyTripsBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"quantity":`))
	}))
	defer srv.Close()

	policy := testPolicy("inventory-service", 3)
	c := NewInventoryClient(testLogger(), srv.Client(), srv.URL, policy)

	for i := 0; i < 3; i++ {
		_, err := c.FetchStock(t.Context(), caller, 1)
		require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	}
	assert.Equal(t, int32(3), calls.Load(), "decode failures are not retried")

	_, err := c.FetchStock(t.Context(), caller, 1)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load())
}
