package catalog

import (
	"net/url"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/pricing"
)

type Axis string

const (
	AxisColor Axis = "color"
	AxisSize  Axis = "size"
)

var axes = []struct {
	axis  Axis
	label string
}{
	{AxisColor, "Color"},
	{AxisSize, "Size"},
}

func (v *Variant) value(a Axis) (string, bool) {
	var p *string
	switch a {
	case AxisColor:
		p = v.Color
	case AxisSize:
		p = v.Size
	}
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}

type Option struct {
	Value   string `json:"value"`
	InStock bool   `json:"inStock"`
}

// Group lists the distinct values of one axis in first-seen order.
type Group struct {
	Axis    Axis     `json:"axis"`
	Label   string   `json:"label"`
	Options []Option `json:"options"`
}

// GroupVariants builds the Color group then the Size group, each only when
// at least one variant sets it. An option is in stock when any variant
// carrying that value has stock.
func GroupVariants(vs []Variant) []Group {
	groups := []Group{}
	for _, ax := range axes {
		g := Group{Axis: ax.axis, Label: ax.label}
		idx := map[string]int{}
		for i := range vs {
			val, ok := vs[i].value(ax.axis)
			if !ok {
				continue
			}
			j, seen := idx[val]
			if !seen {
				j = len(g.Options)
				idx[val] = j
				g.Options = append(g.Options, Option{Value: val})
			}
			if vs[i].Stock > 0 {
				g.Options[j].InStock = true
			}
		}
		if len(g.Options) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// Selection maps an axis to the chosen value.
type Selection map[Axis]string

func SelectionFromValues(v url.Values) Selection {
	sel := Selection{}
	for _, ax := range axes {
		if s := strings.TrimSpace(v.Get(string(ax.axis))); s != "" {
			sel[ax.axis] = s
		}
	}
	return sel
}

type Resolution struct {
	Variant   *Variant      `json:"variant"`
	UnitPrice pricing.Cents `json:"price"`
	Discount  int           `json:"discount"`
	InStock   bool          `json:"inStock"`
	Stock     int           `json:"stock"`
}

// Resolve finds the variants matching every selected axis. With no match
// the product's base price and stock apply. With several matches the first
// is reported, but its override is used only when all matches agree on it.
func Resolve(p *Product, sel Selection) Resolution {
	var matched []*Variant
	if len(sel) > 0 {
		for i := range p.Variants {
			if selects(&p.Variants[i], sel) {
				matched = append(matched, &p.Variants[i])
			}
		}
	}

	res := Resolution{UnitPrice: p.Price, Stock: p.Stock}
	if len(matched) > 0 {
		v := matched[0]
		res.Variant = v
		res.Stock = v.Stock
		if samePrice(matched) {
			res.UnitPrice = pricing.EffectivePrice(p.Price, v.Price)
		}
	}
	res.InStock = res.Stock > 0
	res.Discount = pricing.DiscountPercent(res.UnitPrice, p.ComparePrice)
	return res
}

func selects(v *Variant, sel Selection) bool {
	for ax, want := range sel {
		got, ok := v.value(ax)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func samePrice(vs []*Variant) bool {
	first := vs[0].Price
	for _, v := range vs[1:] {
		if (first == nil) != (v.Price == nil) {
			return false
		}
		if first != nil && *first != *v.Price {
			return false
		}
	}
	return true
}

// Label is the variant name, or its axis values joined with " / ".
func (v *Variant) Label() string {
	if v.Name != "" {
		return v.Name
	}
	var parts []string
	for _, ax := range axes {
		if val, ok := v.value(ax.axis); ok {
			parts = append(parts, val)
		}
	}
	return strings.Join(parts, " / ")
}

// VariantByID returns the product's variant with the given id.
func (p *Product) VariantByID(id string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}
