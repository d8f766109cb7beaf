package httpx

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/admin"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/users"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductAdmin interface {
	List(ctx context.Context) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (*catalog.Product, error)
	Create(ctx context.Context, in catalog.ProductInput) (*catalog.Product, error)
	Update(ctx context.Context, id string, in catalog.ProductInput) (*catalog.Product, error)
	Deactivate(ctx context.Context, id string) error
}

type OrderAdmin interface {
	ListAll(ctx context.Context, status orders.Status, limit int) ([]orders.Order, error)
	Transition(ctx context.Context, id string, to orders.Status) (*orders.Order, error)
}

type UserLister interface {
	List(ctx context.Context) ([]users.User, error)
}

type DashboardService interface {
	Dashboard(ctx context.Context) (*admin.Dashboard, error)
}

// AdminHandler is mounted under /admin behind RequireRole(ADMIN).
type AdminHandler struct {
	Products  ProductAdmin
	Orders    OrderAdmin
	Users     UserLister
	Dashboard DashboardService
	Log       *zap.Logger
}

type statusReq struct {
	Status orders.Status `json:"status"`
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/dashboard", h.dashboard)

	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)

	r.Get("/orders", h.listOrders)
	r.Patch("/orders/{id}/status", h.setStatus)

	r.Get("/users", h.listUsers)
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Dashboard.Dashboard(r.Context())
	h.respond(w, r, http.StatusOK, d, err)
}

func (h *AdminHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Products.List(r.Context())
	h.respond(w, r, http.StatusOK, ps, err)
}

func (h *AdminHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Products.Get(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, p, err)
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Products.Create(r.Context(), in)
	h.respond(w, r, http.StatusCreated, p, err)
}

func (h *AdminHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Products.Update(r.Context(), chi.URLParam(r, "id"), in)
	h.respond(w, r, http.StatusOK, p, err)
}

// deleteProduct is a soft delete: the product is deactivated.
func (h *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Products.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.Orders.ListAll(r.Context(), orders.Status(strings.ToUpper(r.URL.Query().Get("status"))), limit)
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Orders.Transition(r.Context(), chi.URLParam(r, "id"), req.Status)
	h.respond(w, r, http.StatusOK, o, err)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	us, err := h.Users.List(r.Context())
	h.respond(w, r, http.StatusOK, us, err)
}

func (h *AdminHandler) respond(w http.ResponseWriter, r *http.Request, code int, v any, err error) {
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, code, v)
}
