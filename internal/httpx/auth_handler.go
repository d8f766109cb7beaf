package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/users"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (*users.Session, error)
	Login(ctx context.Context, in users.LoginInput) (*users.Session, error)
	Me(ctx context.Context, id string) (*users.User, error)
}

type AuthHandler struct {
	Users UserService
	Log   *zap.Logger
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.With(RequireAuth).Get("/auth/me", h.me)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	s, err := h.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in users.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	s, err := h.Users.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	u, err := h.Users.Me(r.Context(), p.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			err = apperr.Unauthorized("account no longer exists")
		}
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
