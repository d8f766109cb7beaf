package catalog

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/query"
)

// memStore evaluates queries with query.Matches so listing tests exercise
// the same predicate the Postgres repo compiles.
type memStore struct {
	mu         sync.Mutex
	products   []Product
	categories []Category
	reviews    []Review
	purchased  map[string]bool // userID + "/" + productID
	searches   int
}

func newMemStore(cats ...Category) *memStore {
	return &memStore{categories: cats, purchased: map[string]bool{}}
}

func (m *memStore) add(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.ID == p.CategoryID {
			p.Category = c
		}
	}
	m.products = append(m.products, p)
}

type productRecord struct{ p *Product }

func (r productRecord) Text(c query.TextColumn) string {
	switch c {
	case query.ProductID:
		return r.p.ID
	case query.ProductName:
		return r.p.Name
	case query.ProductDescription:
		return r.p.Description
	case query.ProductSKU:
		return r.p.SKU
	case query.CategorySlug:
		return r.p.Category.Slug
	}
	return ""
}

func (r productRecord) Number(c query.NumberColumn) int64 {
	switch c {
	case query.ProductPrice:
		return int64(r.p.Price)
	case query.ProductStock:
		return int64(r.p.Stock)
	}
	return 0
}

func (r productRecord) Bool(c query.BoolColumn) bool {
	switch c {
	case query.ProductActive:
		return r.p.Active
	case query.ProductFeatured:
		return r.p.Featured
	}
	return false
}

func (r productRecord) Variants() []query.VariantRecord {
	out := make([]query.VariantRecord, len(r.p.Variants))
	for i := range r.p.Variants {
		out[i] = variantRecord{&r.p.Variants[i]}
	}
	return out
}

type variantRecord struct{ v *Variant }

func (r variantRecord) VariantText(c query.VariantColumn) (string, bool) {
	var p *string
	switch c {
	case query.VariantColor:
		p = r.v.Color
	case query.VariantSize:
		p = r.v.Size
	}
	if p == nil {
		return "", false
	}
	return *p, true
}

func compareBy(a, b *Product, o query.Order) int {
	var c int
	switch o.Column {
	case query.SortByPrice:
		c = cmp.Compare(a.Price, b.Price)
	case query.SortByName:
		c = cmp.Compare(a.Name, b.Name)
	case query.SortByCreated:
		c = a.CreatedAt.Compare(b.CreatedAt)
	default:
		c = cmp.Compare(a.ID, b.ID)
	}
	if o.Desc {
		return -c
	}
	return c
}

func (m *memStore) Search(_ context.Context, q query.Query) ([]Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++

	var hits []Product
	for i := range m.products {
		if query.Matches(q.Where, productRecord{&m.products[i]}) {
			hits = append(hits, m.products[i])
		}
	}
	slices.SortStableFunc(hits, func(a, b Product) int {
		for _, o := range q.OrderBy {
			if c := compareBy(&a, &b, o); c != 0 {
				return c
			}
		}
		return 0
	})
	total := len(hits)
	if q.Offset >= len(hits) {
		return []Product{}, total, nil
	}
	hits = hits[q.Offset:]
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, total, nil
}

func (m *memStore) BySlug(_ context.Context, slug string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug {
			return m.withReviews(p), nil
		}
	}
	return nil, nil
}

func (m *memStore) ByID(_ context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			return m.withReviews(p), nil
		}
	}
	return nil, nil
}

func (m *memStore) withReviews(p Product) *Product {
	for _, r := range m.reviews {
		if r.ProductID == p.ID {
			p.Reviews = append(p.Reviews, r)
		}
	}
	return &p
}

func (m *memStore) Related(_ context.Context, categoryID, excludeID string, limit int) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Product
	for _, p := range m.products {
		if p.CategoryID == categoryID && p.ID != excludeID && p.Active && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) Categories(context.Context) ([]Category, error) {
	return m.categories, nil
}

func (m *memStore) CategoryBySlug(_ context.Context, slug string) (*Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) CategoryExists(_ context.Context, id string) (bool, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) AddReview(_ context.Context, r *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.CreatedAt = time.Now()
	m.reviews = append(m.reviews, *r)
	return nil
}

func (m *memStore) HasPurchased(_ context.Context, userID, productID string) (bool, error) {
	return m.purchased[userID+"/"+productID], nil
}

func (m *memStore) ListAll(context.Context) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.products), nil
}

func (m *memStore) Create(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.products {
		if q.Slug == p.Slug || q.SKU == p.SKU {
			return apperr.Conflict("slug or sku already in use")
		}
	}
	p.CreatedAt = time.Now()
	m.products = append(m.products, *p)
	return nil
}

func (m *memStore) Update(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = *p
			return nil
		}
	}
	return apperr.NotFoundf("product %s not found", p.ID)
}

func (m *memStore) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products[i].Active = false
			return nil
		}
	}
	return apperr.NotFoundf("product %s not found", id)
}

// mapCache is an in-process Cache.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]any
	hits    int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]any{}} }

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	switch d := dest.(type) {
	case *Page:
		*d = *v.(*Page)
	case *Detail:
		*d = *v.(*Detail)
	}
	return true, nil
}

func (c *mapCache) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) DeletePattern(context.Context, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]any{}
	return nil
}
