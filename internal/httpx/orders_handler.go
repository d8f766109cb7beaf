package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderService interface {
	OrderPlacer
	Get(ctx context.Context, id, viewerID string, admin bool) (*orders.Order, error)
	Status(ctx context.Context, id, viewerID string, admin bool) (*orders.StatusView, error)
	ListForUser(ctx context.Context, userID string) ([]orders.Order, error)
}

type OrdersHandler struct {
	Orders OrderService
	Log    *zap.Logger
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/status", h.status)
	})
}

// create accepts an optional Idempotency-Key; a replay answers 200 with the
// original order instead of 201.
func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in orders.PlaceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p := auth.FromContext(r.Context())
	o, existed, err := h.Orders.Place(r.Context(), p.UserID, r.Header.Get(HeaderIdempotencyKey), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, placedStatus(existed), o)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListForUser(r.Context(), auth.FromContext(r.Context()).UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	o, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"), p.UserID, p.IsAdmin())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) status(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	v, err := h.Orders.Status(r.Context(), chi.URLParam(r, "id"), p.UserID, p.IsAdmin())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
