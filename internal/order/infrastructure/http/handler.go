package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/auth"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, p auth.Principal, shippingAddress string) (application.OrderResult, error)
	MyOrders(ctx context.Context, p auth.Principal) ([]application.OrderResult, error)
	OrderByID(ctx context.Context, id string) (application.OrderResult, error)
}

type Handler struct {
	log      *slog.Logger
	service  OrderService
	verifier *auth.Verifier
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, service OrderService, verifier *auth.Verifier) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		verifier: verifier,
		tracer:   otel.Tracer("order-http"),
	}
}

type placeOrderReq struct {
	ShippingAddress string `json:"shippingAddress"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.Middleware(h.verifier))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAnyRole(auth.RoleUser, auth.RoleAdmin, auth.RoleSystem))
		r.Post("/orders/place", h.placeOrder)
		r.Get("/orders", h.myOrders)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAnyRole(auth.RoleAdmin, auth.RoleSystem))
		r.Get("/orders/{id}", h.getOrder)
	})
	return r
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrderHTTP")
	defer span.End()

	p, _ := auth.FromContext(ctx)

	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON with shippingAddress")
		return
	}

	res, err := h.service.PlaceOrder(ctx, p, req.ShippingAddress)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	orders, err := h.service.MyOrders(r.Context(), p)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.OrderByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

// writeError maps the error kind to a status. Unavailable and internal
// failures never expose the underlying cause.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindClientFault:
		httpx.WriteError(w, http.StatusBadRequest, clientCode(err), err.Error())
	case domain.KindNotFound:
		httpx.WriteError(w, http.StatusNotFound, "not_found", notFoundMessage(err))
	case domain.KindUnavailable:
		h.log.WarnContext(ctx, "upstream unavailable", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "service unavailable, retry later")
	default:
		h.log.ErrorContext(ctx, "request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func clientCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domain.ErrInvalidCartLine):
		return "invalid_cart"
	default:
		return "invalid_request"
	}
}

func notFoundMessage(err error) string {
	var nf *domain.ItemNotFoundError
	if errors.As(err, &nf) {
		return fmt.Sprintf("inventory item %d not found", nf.ItemID)
	}
	return domain.ErrOrderNotFound.Error()
}
