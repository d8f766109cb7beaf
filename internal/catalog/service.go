package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/ariefcatur/go-storefront/internal/query"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	RelatedLimit    = 4
	listingImages   = 2
	cachePatternAll = "*"
)

// Reader is the read side of the catalog store.
type Reader interface {
	// Search returns one page of products matching q plus the total count
	// of matches. Products carry category, images, variants and ratings.
	Search(ctx context.Context, q query.Query) ([]Product, int, error)
	// BySlug and ByID return nil, nil when no product matches.
	BySlug(ctx context.Context, slug string) (*Product, error)
	ByID(ctx context.Context, id string) (*Product, error)
	Related(ctx context.Context, categoryID, excludeID string, limit int) ([]Product, error)
	Categories(ctx context.Context) ([]Category, error)
	CategoryBySlug(ctx context.Context, slug string) (*Category, error)
}

type ReviewStore interface {
	AddReview(ctx context.Context, r *Review) error
	HasPurchased(ctx context.Context, userID, productID string) (bool, error)
}

type Store interface {
	Reader
	ReviewStore
}

// Cache is satisfied by cache.Cache.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	DeletePattern(ctx context.Context, pattern string) error
}

type Service struct {
	store    Store
	cache    Cache
	log      *zap.Logger
	validate *validator.Validate
	group    singleflight.Group
}

// NewService wires the catalog. cache may be nil.
func NewService(store Store, cache Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, cache: cache, log: log, validate: apperr.NewValidator()}
}

// Browse lists one page of active products for the raw parameters.
// A page past the end is empty with the real totals.
func (s *Service) Browse(ctx context.Context, p Params) (*Page, error) {
	f := p.Parse()
	key := f.CacheKey()

	var page Page
	if s.cacheGet(ctx, key, &page) {
		return &page, nil
	}

	// the flight is shared, so one caller giving up must not fail the rest.
	fctx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		products, total, err := s.store.Search(fctx, f.Query())
		if err != nil {
			return nil, fmt.Errorf("search products: %w", err)
		}
		pg := &Page{
			Items:       make([]Summary, 0, len(products)),
			TotalCount:  total,
			TotalPages:  totalPages(total),
			CurrentPage: f.Page,
		}
		for _, prod := range products {
			pg.Items = append(pg.Items, summarize(prod, listingImages))
		}
		s.cacheSet(fctx, key, pg)
		return pg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}

// Product returns the detail page for an active product.
func (s *Service) Product(ctx context.Context, slug string) (*Detail, error) {
	key := "product:" + slug
	var d Detail
	if s.cacheGet(ctx, key, &d) {
		return &d, nil
	}

	p, err := s.activeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	related, err := s.store.Related(ctx, p.CategoryID, p.ID, RelatedLimit)
	if err != nil {
		return nil, fmt.Errorf("related products: %w", err)
	}

	d = Detail{
		Product:       *p,
		VariantGroups: GroupVariants(p.Variants),
		Rating:        Summarize(p.ratings()),
		Discount:      Resolve(p, nil).Discount,
		Related:       make([]Summary, 0, len(related)),
	}
	for _, r := range related {
		d.Related = append(d.Related, summarize(r, 1))
	}
	s.cacheSet(ctx, key, &d)
	return &d, nil
}

// Price resolves the price and availability for a variant selection.
func (s *Service) Price(ctx context.Context, slug string, sel Selection) (*Resolution, error) {
	p, err := s.activeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	res := Resolve(p, sel)
	return &res, nil
}

// Snapshot is what a cart line records about a product at add time.
type Snapshot struct {
	ProductID    string
	VariantID    string
	Name         string
	Slug         string
	Image        string
	VariantLabel string
	UnitPrice    pricing.Cents
	Stock        int
}

// Snapshot resolves the current unit price of an active product or one of
// its variants. An unknown variant is NotFound.
func (s *Service) Snapshot(ctx context.Context, productID, variantID string) (*Snapshot, error) {
	p, err := s.store.ByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil || !p.Active {
		return nil, apperr.NotFoundf("product %s not found", productID)
	}
	snap := &Snapshot{
		ProductID: p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		UnitPrice: p.Price,
		Stock:     p.Stock,
	}
	if len(p.Images) > 0 {
		snap.Image = p.Images[0].URL
	}
	if variantID != "" {
		v, ok := p.VariantByID(variantID)
		if !ok {
			return nil, apperr.NotFoundf("variant %s of product %s not found", variantID, productID)
		}
		snap.VariantID = v.ID
		snap.VariantLabel = v.Label()
		snap.UnitPrice = pricing.EffectivePrice(p.Price, v.Price)
		snap.Stock = v.Stock
	}
	return snap, nil
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	cs, err := s.store.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if cs == nil {
		cs = []Category{}
	}
	return cs, nil
}

func (s *Service) Category(ctx context.Context, slug string) (*Category, error) {
	c, err := s.store.CategoryBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if c == nil {
		return nil, apperr.NotFoundf("category %q not found", slug)
	}
	return c, nil
}

type ReviewInput struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Title  string `json:"title" validate:"max=120"`
	Body   string `json:"body" validate:"required,min=10,max=4000"`
}

// AddReview records a review by userID. It is marked verified when the
// user has a non-cancelled order containing the product.
func (s *Service) AddReview(ctx context.Context, userID, authorName, slug string, in ReviewInput) (*Review, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if err := apperr.Check(s.validate, in); err != nil {
		return nil, err
	}
	p, err := s.activeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	verified, err := s.store.HasPurchased(ctx, userID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}
	r := &Review{
		ID:         uuid.NewString(),
		ProductID:  p.ID,
		UserID:     userID,
		AuthorName: authorName,
		Rating:     in.Rating,
		Title:      in.Title,
		Body:       in.Body,
		Verified:   verified,
	}
	if err := s.store.AddReview(ctx, r); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return r, nil
}

// Invalidate drops every cached listing and product page.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, cachePatternAll); err != nil {
		s.log.Warn("catalog cache invalidate failed", zap.Error(err))
	}
}

func (s *Service) activeBySlug(ctx context.Context, slug string) (*Product, error) {
	p, err := s.store.BySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil || !p.Active {
		return nil, apperr.NotFoundf("product %q not found", slug)
	}
	return p, nil
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
