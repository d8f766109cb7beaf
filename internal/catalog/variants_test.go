package catalog

import (
	"net/url"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func teeProduct() *Product {
	return &Product{
		ID:           "p-tee",
		Price:        2000,
		ComparePrice: cents(2500),
		Stock:        10,
		Variants: []Variant{
			{ID: "v1", Color: str("Red"), Size: str("M"), Stock: 3},
			{ID: "v2", Color: str("Red"), Size: str("L"), Stock: 0, Price: cents(2200)},
			{ID: "v3", Color: str("Blue"), Size: str("M"), Stock: 0},
			{ID: "v4", Color: str("Blue"), Size: str("XL"), Stock: 1, Price: cents(2200)},
		},
	}
}

func TestGroupVariants(t *testing.T) {
	groups := GroupVariants(teeProduct().Variants)
	require.Len(t, groups, 2)

	assert.Equal(t, AxisColor, groups[0].Axis)
	assert.Equal(t, "Color", groups[0].Label)
	assert.Equal(t, []Option{{Value: "Red", InStock: true}, {Value: "Blue", InStock: true}}, groups[0].Options)

	assert.Equal(t, AxisSize, groups[1].Axis)
	assert.Equal(t, []Option{
		{Value: "M", InStock: true},
		{Value: "L", InStock: false},
		{Value: "XL", InStock: true},
	}, groups[1].Options)
}

func TestGroupVariants_SkipsUnsetAxes(t *testing.T) {
	groups := GroupVariants([]Variant{{ID: "a", Size: str("S")}, {ID: "b", Size: str("")}})
	require.Len(t, groups, 1)
	assert.Equal(t, AxisSize, groups[0].Axis)
	assert.Len(t, groups[0].Options, 1)

	assert.Empty(t, GroupVariants(nil))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		sel       Selection
		variantID string
		price     pricing.Cents
		inStock   bool
		discount  int
	}{
		{name: "no selection uses base", sel: nil, price: 2000, inStock: true, discount: 20},
		{name: "full match inherits base price", sel: Selection{AxisColor: "Red", AxisSize: "M"}, variantID: "v1", price: 2000, inStock: true, discount: 20},
		{name: "full match with override", sel: Selection{AxisColor: "Red", AxisSize: "L"}, variantID: "v2", price: 2200, inStock: false, discount: 12},
		{name: "no match falls back to base", sel: Selection{AxisColor: "Green"}, price: 2000, inStock: true, discount: 20},
		{name: "values are case sensitive", sel: Selection{AxisColor: "red", AxisSize: "M"}, price: 2000, inStock: true, discount: 20},
		{name: "partial with mixed prices keeps base", sel: Selection{AxisColor: "Red"}, variantID: "v1", price: 2000, inStock: true, discount: 20},
		{name: "partial with shared override", sel: Selection{AxisSize: "XL"}, variantID: "v4", price: 2200, inStock: true, discount: 12},
		{name: "partial blue reports first match", sel: Selection{AxisColor: "Blue"}, variantID: "v3", price: 2000, inStock: false, discount: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(teeProduct(), tt.sel)
			if tt.variantID == "" {
				assert.Nil(t, res.Variant)
			} else {
				require.NotNil(t, res.Variant)
				assert.Equal(t, tt.variantID, res.Variant.ID)
			}
			assert.Equal(t, tt.price, res.UnitPrice)
			assert.Equal(t, tt.inStock, res.InStock)
			assert.Equal(t, tt.discount, res.Discount)
		})
	}
}

func TestSelectionFromValues(t *testing.T) {
	v := url.Values{"color": {" Red "}, "size": {""}, "material": {"cotton"}}
	assert.Equal(t, Selection{AxisColor: "Red"}, SelectionFromValues(v))
}

func TestVariantByID(t *testing.T) {
	p := teeProduct()
	v, ok := p.VariantByID("v3")
	require.True(t, ok)
	assert.Equal(t, "Blue", *v.Color)

	_, ok = p.VariantByID("nope")
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	rs := Summarize([]int{5, 4, 4, 0, 6, 1})
	assert.Equal(t, 4, rs.Count)
	assert.Equal(t, 3.5, rs.Average)
	assert.Equal(t, [5]int{1, 0, 0, 2, 1}, rs.Histogram)

	assert.Equal(t, RatingSummary{}, Summarize(nil))
	assert.InDelta(t, 14.0/3, Summarize([]int{5, 5, 4}).Average, 1e-12)
	assert.Equal(t, 14.0/3, Summarize([]int{4, 5, 5}).Average)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Classic Tee":              "classic-tee",
		"  Café Crème  Latte ":     "cafe-creme-latte",
		"Über_cool -- Jacket!":     "uber-cool-jacket",
		"100% Cotton (Organic)":    "100-cotton-organic",
		"Ñandú":                    "nandu",
		"---":                      "",
		"日本":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestGenerateSKU(t *testing.T) {
	assert.Regexp(t, `^CCT-[0-9A-F]{4}$`, GenerateSKU("Classic cotton tee shirt"))
	assert.Regexp(t, `^SKU-[0-9A-F]{4}$`, GenerateSKU("!!!"))
	assert.NotEqual(t, GenerateSKU("Tee"), GenerateSKU("Tee"))
}
