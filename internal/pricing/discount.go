package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// EffectivePrice is the variant override when one exists, else the base.
func EffectivePrice(base Cents, override *Cents) Cents {
	if override != nil {
		return *override
	}
	return base
}

// DiscountPercent is round((compare-price)/compare*100), or 0 when compare
// is absent or not above price. The result is always within [0,100].
func DiscountPercent(price Cents, compare *Cents) int {
	if compare == nil || *compare <= 0 || *compare <= price {
		return 0
	}
	if price < 0 {
		return 100
	}
	diff := decimal.NewFromInt(int64(*compare - price))
	pct := diff.Div(decimal.NewFromInt(int64(*compare))).Mul(hundred).Round(0)
	n := int(pct.IntPart())
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
