package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/ariefcatur/go-storefront/internal/query"
	"github.com/cespare/xxhash/v2"
)

const PageSize = 12

// offsets past this are clamped; such pages are always empty anyway.
const maxOffset = 1 << 40

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortNameAsc   SortKey = "name_asc"
)

// Params are the raw, string-typed listing parameters.
type Params struct {
	Q        string
	Category string
	MinPrice string
	MaxPrice string
	Color    string
	Size     string
	Sort     string
	Page     string
}

func ParamsFromValues(v url.Values) Params {
	return Params{
		Q:        v.Get("q"),
		Category: v.Get("category"),
		MinPrice: v.Get("minPrice"),
		MaxPrice: v.Get("maxPrice"),
		Color:    v.Get("color"),
		Size:     v.Get("size"),
		Sort:     v.Get("sort"),
		Page:     v.Get("page"),
	}
}

// Filter is the parsed form of Params.
type Filter struct {
	Text         string
	CategorySlug string
	MinPrice     *pricing.Cents
	MaxPrice     *pricing.Cents
	Color        string
	Size         string
	Sort         SortKey
	Page         int
}

// Parse never fails: anything unparsable means "no constraint", and a bad
// page number means page 1.
func (p Params) Parse() Filter {
	f := Filter{
		Text:         strings.TrimSpace(p.Q),
		CategorySlug: strings.TrimSpace(p.Category),
		Color:        strings.TrimSpace(p.Color),
		Size:         strings.TrimSpace(p.Size),
		Sort:         parseSort(p.Sort),
		Page:         1,
	}
	if c, ok := pricing.ParseAmount(p.MinPrice); ok {
		f.MinPrice = &c
	}
	if c, ok := pricing.ParseAmount(p.MaxPrice); ok {
		f.MaxPrice = &c
	}
	if n, err := strconv.Atoi(strings.TrimSpace(p.Page)); err == nil && n > 1 {
		f.Page = n
	}
	return f
}

func parseSort(s string) SortKey {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case SortPriceAsc, SortPriceDesc, SortNameAsc, SortNewest:
		return k
	default:
		return SortNewest
	}
}

// Predicate builds the listing condition. Only active products are
// listed. Color and size must be satisfied by the same variant.
func (f Filter) Predicate() query.Predicate {
	ps := []query.Predicate{query.BoolEquals{Column: query.ProductActive, Value: true}}

	if f.Text != "" {
		ps = append(ps, query.Or(
			query.TextMatch{Column: query.ProductName, Value: f.Text},
			query.TextMatch{Column: query.ProductDescription, Value: f.Text},
			query.TextMatch{Column: query.ProductSKU, Value: f.Text},
		))
	}
	if f.CategorySlug != "" {
		ps = append(ps, query.TextEquals{Column: query.CategorySlug, Value: f.CategorySlug})
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		r := query.NumberRange{Column: query.ProductPrice}
		if f.MinPrice != nil {
			v := int64(*f.MinPrice)
			r.Min = &v
		}
		if f.MaxPrice != nil {
			v := int64(*f.MaxPrice)
			r.Max = &v
		}
		ps = append(ps, r)
	}

	var vm []query.VariantMatch
	if f.Color != "" {
		vm = append(vm, query.VariantMatch{Column: query.VariantColor, Value: f.Color, Mode: query.Substring})
	}
	if f.Size != "" {
		vm = append(vm, query.VariantMatch{Column: query.VariantSize, Value: f.Size, Mode: query.Exact})
	}
	if len(vm) > 0 {
		ps = append(ps, query.AnyVariant{Where: vm})
	}

	return query.And(ps...)
}

// OrderBy always ends with id so equal sort keys keep a stable order.
func (f Filter) OrderBy() []query.Order {
	tie := query.Order{Column: query.SortByID}
	switch f.Sort {
	case SortPriceAsc:
		return []query.Order{{Column: query.SortByPrice}, tie}
	case SortPriceDesc:
		return []query.Order{{Column: query.SortByPrice, Desc: true}, tie}
	case SortNameAsc:
		return []query.Order{{Column: query.SortByName}, tie}
	default:
		return []query.Order{{Column: query.SortByCreated, Desc: true}, tie}
	}
}

func (f Filter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	if page-1 > maxOffset/PageSize {
		return maxOffset
	}
	return (page - 1) * PageSize
}

func (f Filter) Query() query.Query {
	return query.Query{
		Where:   f.Predicate(),
		OrderBy: f.OrderBy(),
		Limit:   PageSize,
		Offset:  f.Offset(),
	}
}

// CacheKey identifies the listing page in the catalog cache.
func (f Filter) CacheKey() string {
	norm := fmt.Sprintf("q=%s|cat=%s|min=%s|max=%s|color=%s|size=%s|sort=%s|page=%d",
		strings.ToLower(f.Text), f.CategorySlug, amount(f.MinPrice), amount(f.MaxPrice),
		strings.ToLower(f.Color), strings.ToLower(f.Size), f.Sort, f.Page)
	return fmt.Sprintf("list:%016x", xxhash.Sum64String(norm))
}

func amount(c *pricing.Cents) string {
	if c == nil {
		return "-"
	}
	return c.String()
}

func totalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}
