package pricing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(c Cents) *Cents { return &c }

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		name    string
		price   Cents
		compare *Cents
		want    int
	}{
		{"one third off", 10000, ptr(15000), 33},
		{"compare below price", 10000, ptr(9000), 0},
		{"compare equal", 10000, ptr(10000), 0},
		{"no compare", 10000, nil, 0},
		{"three quarters off", 5000, ptr(20000), 75},
		{"rounds to nearest", 6700, ptr(10000), 33},
		{"free item", 0, ptr(2500), 100},
		{"zero compare", 100, ptr(0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountPercent(tt.price, tt.compare)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestEffectivePrice(t *testing.T) {
	assert.Equal(t, Cents(1000), EffectivePrice(1000, nil))
	assert.Equal(t, Cents(1200), EffectivePrice(1000, ptr(1200)))
}

func TestParseAmount(t *testing.T) {
	c, ok := ParseAmount("50")
	require.True(t, ok)
	assert.Equal(t, Cents(5000), c)

	c, ok = ParseAmount(" 49.995 ")
	require.True(t, ok)
	assert.Equal(t, Cents(5000), c)

	_, ok = ParseAmount("abc")
	assert.False(t, ok)
	_, ok = ParseAmount("")
	assert.False(t, ok)
}

func TestParseAmount_OutOfRange(t *testing.T) {
	for _, in := range []string{"1e30", "92233720368547758.08", "-92233720368547758.09"} {
		_, ok := ParseAmount(in)
		assert.False(t, ok, in)
	}

	c, ok := ParseAmount("92233720368547758.07")
	require.True(t, ok)
	assert.Equal(t, Cents(math.MaxInt64), c)

	assert.Equal(t, Cents(math.MaxInt64), FromDecimal(decimal.RequireFromString("1e30")))
	assert.Equal(t, Cents(math.MinInt64), FromDecimal(decimal.RequireFromString("-1e30")))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$19.99", Format(1999))
	assert.Equal(t, "$0.00", Format(0))
	assert.Equal(t, "$1,234.50", Format(123450))
	assert.Equal(t, "-$4.99", Format(-499))
}

func TestCentsJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Price Cents `json:"price"`
	}{Price: 2599})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 25.99}`, string(b))

	var out struct {
		Price Cents `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 25.99}`), &out))
	assert.Equal(t, Cents(2599), out.Price)
	require.NoError(t, json.Unmarshal([]byte(`{"price": "4.5"}`), &out))
	assert.Equal(t, Cents(450), out.Price)

	assert.Error(t, json.Unmarshal([]byte(`{"price": 1e30}`), &out))
}

func TestPolicy_Quote(t *testing.T) {
	p := DefaultPolicy()

	below := p.Quote(4000)
	assert.Equal(t, Cents(499), below.Shipping)
	assert.Equal(t, Cents(840), below.Tax)
	assert.Equal(t, Cents(4000+499+840), below.Total)

	atThreshold := p.Quote(5000)
	assert.Equal(t, Cents(0), atThreshold.Shipping)
	assert.Equal(t, Cents(1050), atThreshold.Tax)
	assert.Equal(t, Cents(6050), atThreshold.Total)

	assert.Equal(t, Totals{}, p.Quote(0))
}

func TestPolicy_TaxRounding(t *testing.T) {
	p := Policy{TaxRate: decimal.RequireFromString("0.08"), FlatShipping: 999, FreeShippingThreshold: 5000}

	// 12.50 * 0.08 = 1.00 ; 0.31 * 0.08 = 0.0248 -> 0.02 ; 0.19 * 0.08 = 0.0152 -> 0.02
	assert.Equal(t, Cents(100), p.Tax(1250))
	assert.Equal(t, Cents(2), p.Tax(31))
	assert.Equal(t, Cents(2), p.Tax(19))
	assert.Equal(t, Cents(999), p.Shipping(4999))
}
