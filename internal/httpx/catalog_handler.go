package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogService interface {
	Browse(ctx context.Context, p catalog.Params) (*catalog.Page, error)
	Product(ctx context.Context, slug string) (*catalog.Detail, error)
	Price(ctx context.Context, slug string, sel catalog.Selection) (*catalog.Resolution, error)
	Categories(ctx context.Context) ([]catalog.Category, error)
	Category(ctx context.Context, slug string) (*catalog.Category, error)
	AddReview(ctx context.Context, userID, authorName, slug string, in catalog.ReviewInput) (*catalog.Review, error)
}

type CatalogHandler struct {
	Catalog CatalogService
	Log     *zap.Logger
}

type categoryResp struct {
	Category *catalog.Category `json:"category"`
	Products *catalog.Page     `json:"products"`
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/{slug}", h.detail)
	r.Get("/products/{slug}/price", h.price)
	r.With(RequireAuth).Post("/products/{slug}/reviews", h.review)
	r.Get("/categories", h.categories)
	r.Get("/categories/{slug}", h.category)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.Catalog.Browse(r.Context(), catalog.ParamsFromValues(r.URL.Query()))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) detail(w http.ResponseWriter, r *http.Request) {
	d, err := h.Catalog.Product(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *CatalogHandler) price(w http.ResponseWriter, r *http.Request) {
	res, err := h.Catalog.Price(r.Context(), chi.URLParam(r, "slug"), catalog.SelectionFromValues(r.URL.Query()))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CatalogHandler) review(w http.ResponseWriter, r *http.Request) {
	var in catalog.ReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p := auth.FromContext(r.Context())
	rv, err := h.Catalog.AddReview(r.Context(), p.UserID, p.Name, chi.URLParam(r, "slug"), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *CatalogHandler) categories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// category returns the category with the first page of its products;
// the usual listing parameters narrow it further.
func (h *CatalogHandler) category(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	c, err := h.Catalog.Category(r.Context(), slug)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	params := catalog.ParamsFromValues(r.URL.Query())
	params.Category = c.Slug
	page, err := h.Catalog.Browse(r.Context(), params)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryResp{Category: c, Products: page})
}
