package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/auth"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type stubService struct {
	placeErr  error
	getErr    error
	gotUser   string
	gotToken  string
	gotAddr   string
	placeCall int
}

func (s *stubService) PlaceOrder(_ context.Context, p auth.Principal, addr string) (application.OrderResult, error) {
	s.placeCall++
	s.gotUser, s.gotToken, s.gotAddr = p.Username, p.Token, addr
	if s.placeErr != nil {
		return application.OrderResult{}, s.placeErr
	}
	return application.OrderResult{ID: "o-1", Username: p.Username, TotalPrice: "100.00", Status: "PLACED", ShippingAddress: addr}, nil
}

func (s *stubService) MyOrders(_ context.Context, p auth.Principal) ([]application.OrderResult, error) {
	s.gotUser = p.Username
	return []application.OrderResult{{ID: "o-2"}, {ID: "o-1"}}, nil
}

func (s *stubService) OrderByID(_ context.Context, id string) (application.OrderResult, error) {
	if s.getErr != nil {
		return application.OrderResult{}, s.getErr
	}
	return application.OrderResult{ID: id}, nil
}

func setup(t *testing.T, svc *stubService) (http.Handler, *auth.Verifier) {
	t.Helper()
	v, err := auth.NewVerifier(base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	require.NoError(t, err)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, v)
	return h.Routes(), v
}

func token(t *testing.T, v *auth.Verifier, user string, roles ...string) string {
	t.Helper()
	tok, err := v.Issue(user, roles, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(h http.Handler, method, path, tok, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) httpx.ErrorResponse {
	t.Helper()
	var e httpx.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	return e
}

func TestPlaceOrder_Created(t *testing.T) {
	svc := &stubService{}
	h, v := setup(t, svc)
	tok := token(t, v, "alice", auth.RoleUser)

	rec := do(h, http.MethodPost, "/orders/place", tok, `{"shippingAddress":"123 Test St"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var res application.OrderResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "o-1", res.ID)
	assert.Equal(t, "100.00", res.TotalPrice)
	assert.Equal(t, "alice", svc.gotUser)
	assert.Equal(t, tok, svc.gotToken, "raw token is handed to the service for forwarding")
	assert.Equal(t, "123 Test St", svc.gotAddr)
}

func TestPlaceOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"empty cart", domain.ErrEmptyCart, http.StatusBadRequest, "empty_cart", "cart is empty"},
		{"blank address", domain.ErrShippingAddress, http.StatusBadRequest, "invalid_request", "shipping address is required"},
		{
			"out of stock",
			&domain.OutOfStockError{ItemID: 101, ItemName: "Widget", Requested: 3, Available: 2},
			http.StatusBadRequest, "out_of_stock",
			"item 'Widget' (id 101) is out of stock: requested 3, available 2",
		},
		{"item not found", &domain.ItemNotFoundError{ItemID: 9}, http.StatusNotFound, "not_found", "inventory item 9 not found"},
		{
			"unavailable",
			&domain.UnavailableError{Remote: "inventory-service", Op: "fetch inventory", Cause: io.ErrUnexpectedEOF},
			http.StatusServiceUnavailable, "service_unavailable", "service unavailable, retry later",
		},
		{
			"invalid cart line",
			&domain.InvalidCartLineError{ItemID: 101, Reason: "quantity -5 must be positive"},
			http.StatusBadRequest, "invalid_cart",
			"cart line for item 101: quantity -5 must be positive",
		},
		{"internal", io.ErrClosedPipe, http.StatusInternalServerError, "internal", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, v := setup(t, &stubService{placeErr: tt.err})
			rec := do(h, http.MethodPost, "/orders/place", token(t, v, "alice", auth.RoleUser), `{"shippingAddress":"x"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			e := decodeErr(t, rec)
			assert.Equal(t, tt.wantCode, e.Error)
			assert.Equal(t, tt.wantMsg, e.Message)
		})
	}
}

func TestPlaceOrder_BadBody(t *testing.T) {
	svc := &stubService{}
	h, v := setup(t, svc)

	rec := do(h, http.MethodPost, "/orders/place", token(t, v, "alice", auth.RoleUser), `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.placeCall)
}

func TestAuthorization(t *testing.T) {
	h, v := setup(t, &stubService{})
	user := token(t, v, "alice", auth.RoleUser)
	admin := token(t, v, "root", auth.RoleAdmin)
	system := token(t, v, "svc", auth.RoleSystem)
	nobody := token(t, v, "eve")

	tests := []struct {
		name   string
		method string
		path   string
		tok    string
		want   int
	}{
		{"no token", http.MethodGet, "/orders", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/orders", "garbage", http.StatusUnauthorized},
		{"no role lists", http.MethodGet, "/orders", nobody, http.StatusForbidden},
		{"user lists", http.MethodGet, "/orders", user, http.StatusOK},
		{"system lists", http.MethodGet, "/orders", system, http.StatusOK},
		{"user by id", http.MethodGet, "/orders/o-1", user, http.StatusForbidden},
		{"admin by id", http.MethodGet, "/orders/o-1", admin, http.StatusOK},
		{"system by id", http.MethodGet, "/orders/o-1", system, http.StatusOK},
		{"admin places", http.MethodPost, "/orders/place", admin, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, tt.method, tt.path, tt.tok, `{"shippingAddress":"x"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMyOrders(t *testing.T) {
	svc := &stubService{}
	h, v := setup(t, svc)

	rec := do(h, http.MethodGet, "/orders", token(t, v, "alice", auth.RoleUser), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res []application.OrderResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Len(t, res, 2)
	assert.Equal(t, "alice", svc.gotUser)
}

func TestGetOrder_NotFound(t *testing.T) {
	h, v := setup(t, &stubService{getErr: domain.ErrOrderNotFound})

	rec := do(h, http.MethodGet, "/orders/nope", token(t, v, "root", auth.RoleAdmin), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order not found", decodeErr(t, rec).Message)
}
