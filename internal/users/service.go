package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrEmailTaken is returned by Store.Create on a duplicate email.
var ErrEmailTaken = errors.New("email already registered")

type Store interface {
	Create(ctx context.Context, u *User) error
	ByEmail(ctx context.Context, email string) (*User, error)
	ByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, limit int) ([]User, error)
	SetRole(ctx context.Context, id string, role auth.Role) error
}

type Tokens interface {
	Issue(p auth.Principal) (string, time.Time, error)
}

type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type Service struct {
	store    Store
	tokens   Tokens
	hasher   Hasher
	validate *validator.Validate
	log      *zap.Logger
}

func NewService(store Store, tokens Tokens, hasher Hasher, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		tokens:   tokens,
		hasher:   hasher,
		validate: apperr.NewValidator(),
		log:      logx.OrNop(log),
	}
}

// Register creates a CUSTOMER account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := apperr.Check(s.validate, in); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	u := &User{Email: in.Email, Name: in.Name, Role: auth.RoleCustomer, PasswordHash: hash}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return s.session(u)
}

// Login never tells the caller whether the email exists.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := apperr.Check(s.validate, in); err != nil {
		return nil, err
	}
	u, err := s.store.ByEmail(ctx, in.Email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if !s.hasher.Verify(in.Password, u.PasswordHash) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return s.session(u)
}

func (s *Service) Me(ctx context.Context, id string) (*User, error) {
	return s.store.ByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	out, err := s.store.List(ctx, 500)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}

func (s *Service) session(u *User) (*Session, error) {
	tok, exp, err := s.tokens.Issue(u.Principal())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "issue token", err)
	}
	return &Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

// EnsureAdmin makes sure an ADMIN account exists for email. An existing
// account is promoted and keeps its password.
func (s *Service) EnsureAdmin(ctx context.Context, email, name, password string) (*User, error) {
	email = normalizeEmail(email)
	u, err := s.store.ByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role != auth.RoleAdmin {
			if err := s.store.SetRole(ctx, u.ID, auth.RoleAdmin); err != nil {
				return nil, err
			}
			u.Role = auth.RoleAdmin
			s.log.Info("user promoted to admin", zap.String("user_id", u.ID))
		}
		return u, nil
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, err
	}

	in := RegisterInput{Name: strings.TrimSpace(name), Email: email, Password: password}
	if err := apperr.Check(s.validate, in); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	u = &User{Email: email, Name: in.Name, Role: auth.RoleAdmin, PasswordHash: hash}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("admin account created", zap.String("user_id", u.ID))
	return u, nil
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }
