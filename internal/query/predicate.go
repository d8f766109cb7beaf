// Package query is a small typed predicate language for product listings.
// Predicates are built from a closed set of shapes (text match, equality,
// range, existential variant match) combined with And/Or, compiled to
// PostgreSQL by Compile or evaluated in memory by Matches.
package query

type TextColumn struct{ name string }
type NumberColumn struct{ name string }
type BoolColumn struct{ name string }

// VariantColumn is a nullable column of product_variants, only usable
// inside AnyVariant.
type VariantColumn struct{ name string }

func (c TextColumn) Name() string    { return c.name }
func (c NumberColumn) Name() string  { return c.name }
func (c BoolColumn) Name() string    { return c.name }
func (c VariantColumn) Name() string { return c.name }

var (
	ProductID          = TextColumn{"p.id"}
	ProductName        = TextColumn{"p.name"}
	ProductDescription = TextColumn{"p.description"}
	ProductSKU         = TextColumn{"p.sku"}
	CategorySlug       = TextColumn{"c.slug"}

	ProductPrice = NumberColumn{"p.price_cents"}
	ProductStock = NumberColumn{"p.stock"}

	ProductActive   = BoolColumn{"p.active"}
	ProductFeatured = BoolColumn{"p.featured"}

	VariantColor = VariantColumn{"v.color"}
	VariantSize  = VariantColumn{"v.size"}
)

type MatchMode int

const (
	// Substring is a case-insensitive "contains".
	Substring MatchMode = iota
	// Exact is a case-insensitive equality.
	Exact
)

type Predicate interface{ isPredicate() }

// TextMatch compares case-insensitively.
type TextMatch struct {
	Column TextColumn
	Value  string
	Mode   MatchMode
}

// TextEquals is a case-sensitive equality.
type TextEquals struct {
	Column TextColumn
	Value  string
}

type BoolEquals struct {
	Column BoolColumn
	Value  bool
}

// NumberRange is inclusive on both ends; a nil bound is unconstrained.
type NumberRange struct {
	Column   NumberColumn
	Min, Max *int64
}

type VariantMatch struct {
	Column VariantColumn
	Value  string
	Mode   MatchMode
}

// AnyVariant holds when at least one variant of the product satisfies
// every condition in Where.
type AnyVariant struct {
	Where []VariantMatch
}

type allOf []Predicate
type anyOf []Predicate

func (TextMatch) isPredicate()   {}
func (TextEquals) isPredicate()  {}
func (BoolEquals) isPredicate()  {}
func (NumberRange) isPredicate() {}
func (AnyVariant) isPredicate()  {}
func (allOf) isPredicate()       {}
func (anyOf) isPredicate()       {}

// And joins predicates; nil entries are dropped and a single survivor is
// returned as is.
func And(ps ...Predicate) Predicate {
	out := compact(ps)
	if len(out) == 1 {
		return out[0]
	}
	return allOf(out)
}

// Or is the disjunction of ps. An empty Or never matches.
func Or(ps ...Predicate) Predicate {
	out := compact(ps)
	if len(out) == 1 {
		return out[0]
	}
	return anyOf(out)
}

func compact(ps []Predicate) []Predicate {
	out := make([]Predicate, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

type SortColumn struct{ name string }

func (c SortColumn) Name() string { return c.name }

var (
	SortByID      = SortColumn{"p.id"}
	SortByPrice   = SortColumn{"p.price_cents"}
	SortByName    = SortColumn{"p.name"}
	SortByCreated = SortColumn{"p.created_at"}
)

type Order struct {
	Column SortColumn
	Desc   bool
}

// Query is a complete listing request.
type Query struct {
	Where   Predicate
	OrderBy []Order
	Limit   int
	Offset  int
}
