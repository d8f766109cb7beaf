package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminStore is the write side of the catalog store.
type AdminStore interface {
	ListAll(ctx context.Context) ([]Product, error)
	// ByID returns nil, nil when the product does not exist.
	ByID(ctx context.Context, id string) (*Product, error)
	CategoryExists(ctx context.Context, id string) (bool, error)
	// Create and Update return a KindConflict error on a duplicate slug or SKU.
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	// Deactivate returns a KindNotFound error for an unknown id.
	Deactivate(ctx context.Context, id string) error
}

type ImageInput struct {
	URL string `json:"url" validate:"required,url"`
	Alt string `json:"alt"`
}

// VariantInput keeps the stored variant's id when ID names it or, failing
// that, when SKU matches it, so carts and orders keep resolving it.
type VariantInput struct {
	ID    string         `json:"id"`
	Name  string         `json:"name" validate:"required"`
	SKU   string         `json:"sku"`
	Color *string        `json:"color"`
	Size  *string        `json:"size"`
	Price *pricing.Cents `json:"price" validate:"omitempty,gt=0"`
	Stock int            `json:"stock" validate:"gte=0"`
}

type ProductInput struct {
	Name             string         `json:"name" validate:"required,min=2,max=200"`
	Slug             string         `json:"slug"`
	Description      string         `json:"description" validate:"required,min=10"`
	ShortDescription string         `json:"shortDesc" validate:"max=300"`
	Price            pricing.Cents  `json:"price" validate:"gt=0"`
	ComparePrice     *pricing.Cents `json:"comparePrice" validate:"omitempty,gt=0"`
	SKU              string         `json:"sku"`
	Stock            int            `json:"stock" validate:"gte=0"`
	CategoryID       string         `json:"categoryId" validate:"required"`
	Featured         bool           `json:"featured"`
	Active           *bool          `json:"active"`
	Images           []ImageInput   `json:"images" validate:"dive"`
	Variants         []VariantInput `json:"variants" validate:"dive"`
	Tags             []string       `json:"tags"`
}

// Admin manages products for the back office. Every mutation drops the
// catalog cache.
type Admin struct {
	store    AdminStore
	cache    Cache
	log      *zap.Logger
	validate *validator.Validate
}

func NewAdmin(store AdminStore, cache Cache, log *zap.Logger) *Admin {
	if log == nil {
		log = zap.NewNop()
	}
	return &Admin{store: store, cache: cache, log: log, validate: apperr.NewValidator()}
}

func (a *Admin) List(ctx context.Context) ([]Product, error) {
	ps, err := a.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if ps == nil {
		ps = []Product{}
	}
	return ps, nil
}

func (a *Admin) Get(ctx context.Context, id string) (*Product, error) {
	p, err := a.store.ByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, apperr.NotFoundf("product %s not found", id)
	}
	return p, nil
}

func (a *Admin) Create(ctx context.Context, in ProductInput) (*Product, error) {
	if err := a.check(ctx, &in); err != nil {
		return nil, err
	}
	p := &Product{ID: uuid.NewString(), Active: true}
	apply(p, in)
	if err := a.store.Create(ctx, p); err != nil {
		return nil, err
	}
	a.invalidate(ctx)
	a.log.Info("product created", zap.String("product_id", p.ID), zap.String("slug", p.Slug))
	return p, nil
}

// Update replaces the product's fields. Images, variants and tags are
// replaced only when present in the input.
func (a *Admin) Update(ctx context.Context, id string, in ProductInput) (*Product, error) {
	if err := a.check(ctx, &in); err != nil {
		return nil, err
	}
	p, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(p, in)
	if err := a.store.Update(ctx, p); err != nil {
		return nil, err
	}
	a.invalidate(ctx)
	a.log.Info("product updated", zap.String("product_id", p.ID))
	return p, nil
}

// Deactivate is a soft delete: the product disappears from the storefront
// but stays referenced by past orders.
func (a *Admin) Deactivate(ctx context.Context, id string) error {
	if err := a.store.Deactivate(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx)
	a.log.Info("product deactivated", zap.String("product_id", id))
	return nil
}

func (a *Admin) check(ctx context.Context, in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := apperr.Check(a.validate, in); err != nil {
		return err
	}
	if in.ComparePrice != nil && *in.ComparePrice <= in.Price {
		in.ComparePrice = nil
	}
	if in.Slug = Slugify(in.Slug); in.Slug == "" {
		in.Slug = Slugify(in.Name)
	}
	if in.Slug == "" {
		return apperr.Validation("slug must contain letters or digits")
	}
	ok, err := a.store.CategoryExists(ctx, in.CategoryID)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return apperr.Validationf("category %s does not exist", in.CategoryID)
	}
	return nil
}

func apply(p *Product, in ProductInput) {
	p.Name = in.Name
	p.Slug = in.Slug
	p.Description = in.Description
	p.ShortDescription = in.ShortDescription
	p.Price = in.Price
	p.ComparePrice = in.ComparePrice
	p.Stock = in.Stock
	p.CategoryID = in.CategoryID
	p.Featured = in.Featured
	if in.Active != nil {
		p.Active = *in.Active
	}
	switch {
	case in.SKU != "":
		p.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	case p.SKU == "":
		p.SKU = GenerateSKU(in.Name)
	}

	if in.Images != nil {
		p.Images = make([]Image, len(in.Images))
		for i, im := range in.Images {
			p.Images[i] = Image{ID: uuid.NewString(), URL: im.URL, Alt: im.Alt, Position: i}
		}
	}
	if in.Variants != nil {
		// unclaimed holds the stored ids no input line has taken yet.
		unclaimed := make(map[string]bool, len(p.Variants))
		bySKU := make(map[string]string, len(p.Variants))
		for _, v := range p.Variants {
			unclaimed[v.ID] = true
			bySKU[v.SKU] = v.ID
		}
		p.Variants = make([]Variant, len(in.Variants))
		for i, v := range in.Variants {
			sku := strings.ToUpper(strings.TrimSpace(v.SKU))
			if sku == "" {
				sku = fmt.Sprintf("%s-%d", p.SKU, i+1)
			}
			id := strings.TrimSpace(v.ID)
			if !unclaimed[id] {
				id = bySKU[sku]
			}
			if !unclaimed[id] {
				id = uuid.NewString()
			}
			delete(unclaimed, id)
			p.Variants[i] = Variant{
				ID:        id,
				ProductID: p.ID,
				Name:      v.Name,
				SKU:       sku,
				Color:     v.Color,
				Size:      v.Size,
				Price:     v.Price,
				Stock:     v.Stock,
			}
		}
	}
	if in.Tags != nil {
		p.Tags = p.Tags[:0:0]
		seen := map[string]bool{}
		for _, name := range in.Tags {
			slug := Slugify(name)
			if slug == "" || seen[slug] {
				continue
			}
			seen[slug] = true
			p.Tags = append(p.Tags, Tag{Name: strings.TrimSpace(name), Slug: slug})
		}
	}
}

func (a *Admin) invalidate(ctx context.Context) {
	if a.cache == nil {
		return
	}
	if err := a.cache.DeletePattern(ctx, cachePatternAll); err != nil {
		a.log.Warn("catalog cache invalidate failed", zap.Error(err))
	}
}
