package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	HeaderCartSession    = "X-Cart-Session"
	HeaderIdempotencyKey = "Idempotency-Key"
)

type CartService interface {
	Get(ctx context.Context, owner string) (*cart.View, error)
	Add(ctx context.Context, owner string, in cart.AddInput) (*cart.View, error)
	UpdateQuantity(ctx context.Context, owner, lineID string, qty int) (*cart.View, error)
	Remove(ctx context.Context, owner, lineID string) (*cart.View, error)
	Clear(ctx context.Context, owner string) error
	Lines(ctx context.Context, owner string) ([]cart.Line, error)
}

type OrderPlacer interface {
	Place(ctx context.Context, userID, idemKey string, in orders.PlaceInput) (*orders.Order, bool, error)
}

type CartHandler struct {
	Cart   CartService
	Orders OrderPlacer
	Log    *zap.Logger
}

type quantityReq struct {
	Quantity int `json:"quantity"`
}

type checkoutReq struct {
	ShippingAddress orders.Address `json:"shippingAddress"`
	Notes           string         `json:"notes"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.clear)
		r.Post("/items", h.add)
		r.Patch("/items/{id}", h.update)
		r.Delete("/items/{id}", h.remove)
		r.With(RequireAuth).Post("/checkout", h.checkout)
	})
}

// cartOwner prefers an explicit session so a guest cart survives sign-in.
func cartOwner(r *http.Request) (string, error) {
	if s := strings.TrimSpace(r.Header.Get(HeaderCartSession)); s != "" {
		if len(s) > 128 {
			return "", apperr.Validation("cart session id too long")
		}
		return "session:" + s, nil
	}
	if p := auth.FromContext(r.Context()); p != nil {
		return "user:" + p.UserID, nil
	}
	return "", apperr.Validationf("%s header is required", HeaderCartSession)
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	v, err := h.Cart.Get(r.Context(), owner)
	h.respond(w, r, v, err)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var in cart.AddInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	v, err := h.Cart.Add(r.Context(), owner, in)
	h.respond(w, r, v, err)
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var in quantityReq
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	v, err := h.Cart.UpdateQuantity(r.Context(), owner, chi.URLParam(r, "id"), in.Quantity)
	h.respond(w, r, v, err)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	v, err := h.Cart.Remove(r.Context(), owner, chi.URLParam(r, "id"))
	h.respond(w, r, v, err)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Cart.Clear(r.Context(), owner); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkout places an order from the ledger. Only product, variant and
// quantity travel; the order service prices every line itself.
func (h *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var req checkoutReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	lines, err := h.Cart.Lines(r.Context(), owner)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	in := orders.PlaceInput{
		Items:           make([]orders.ItemInput, 0, len(lines)),
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}
	for _, l := range lines {
		in.Items = append(in.Items, orders.ItemInput{ProductID: l.ProductID, VariantID: l.VariantID, Quantity: l.Quantity})
	}

	p := auth.FromContext(r.Context())
	o, existed, err := h.Orders.Place(r.Context(), p.UserID, r.Header.Get(HeaderIdempotencyKey), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Cart.Clear(r.Context(), owner); err != nil {
		// the order is placed; a leftover cart is not fatal
		h.logger().Warn("clear cart after checkout", zap.String("order_id", o.ID), zap.Error(err))
	}
	writeJSON(w, placedStatus(existed), o)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, v *cart.View, err error) {
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func placedStatus(existed bool) int {
	if existed {
		return http.StatusOK
	}
	return http.StatusCreated
}
