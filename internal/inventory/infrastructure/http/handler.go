package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmehra2102/storefront/internal/inventory/application"
	"github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/pkg/auth"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	verifier *auth.Verifier
}

func NewHandler(log *slog.Logger, service *application.Service, verifier *auth.Verifier) *Handler {
	return &Handler{log: log, service: service, verifier: verifier}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.Middleware(h.verifier))

	// Order placement forwards the end user's token, so item reads and
	// writes accept any role.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAnyRole(auth.RoleUser, auth.RoleAdmin, auth.RoleSystem))
		r.Get("/inventory/item/{itemId}", h.get)
		r.Put("/inventory/item/{itemId}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAnyRole(auth.RoleAdmin, auth.RoleSystem))
		r.Post("/inventory", h.create)
	})
	return r
}

func itemID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	return id, err == nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "itemId must be an integer")
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "itemId must be an integer")
		return
	}
	var rec domain.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "request body must be an inventory record")
		return
	}
	out, err := h.service.Update(r.Context(), id, rec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var rec domain.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "request body must be an inventory record")
		return
	}
	out, err := h.service.Create(r.Context(), rec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrNegativeQuantity), errors.Is(err, domain.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		h.log.ErrorContext(r.Context(), "inventory request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
