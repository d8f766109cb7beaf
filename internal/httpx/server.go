package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handlers are the route groups mounted by NewRouter. A nil handler is skipped.
type Handlers struct {
	Auth    *AuthHandler
	Catalog *CatalogHandler
	Cart    *CartHandler
	Orders  *OrdersHandler
	Admin   *AdminHandler
}

func NewRouter(log *zap.Logger, tokens TokenValidator, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(Authenticate(tokens))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if h.Auth != nil {
		h.Auth.Register(r)
	}
	if h.Catalog != nil {
		h.Catalog.Register(r)
	}
	if h.Cart != nil {
		h.Cart.Register(r)
	}
	if h.Orders != nil {
		h.Orders.Register(r)
	}
	if h.Admin != nil {
		r.Route("/admin", func(ar chi.Router) {
			ar.Use(RequireRole(RoleAdmin))
			h.Admin.Register(ar)
		})
	}
	return r
}
