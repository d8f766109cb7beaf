// Package pricing holds the money type and the pure price computations
// shared by the catalog, the cart and checkout: display price, discount
// percentage, currency formatting and the checkout totals policy.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Cents is an amount in minor currency units.
type Cents int64

var printer = message.NewPrinter(language.AmericanEnglish)

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

func (c Cents) Decimal() decimal.Decimal { return decimal.New(int64(c), -2) }

// Times returns the line total for qty units.
func (c Cents) Times(qty int) Cents { return c * Cents(qty) }

func (c Cents) String() string { return c.Decimal().StringFixed(2) }

// FromDecimal converts a major-unit amount, rounding half away from zero.
// Amounts outside the Cents range saturate.
func FromDecimal(d decimal.Decimal) Cents {
	c, ok := toCents(d)
	if !ok {
		if d.IsNegative() {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return c
}

// toCents reports false when d rounds to an amount that does not fit in Cents.
func toCents(d decimal.Decimal) (Cents, bool) {
	r := d.Shift(2).Round(0)
	if r.LessThan(minCents) || r.GreaterThan(maxCents) {
		return 0, false
	}
	return Cents(r.IntPart()), true
}

// ParseAmount parses a major-unit amount such as "49.99". ok is false for
// anything that is not a finite number or does not fit in Cents.
func ParseAmount(s string) (Cents, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return toCents(d)
}

// Format renders c as US dollars, e.g. "$1,234.50".
func Format(c Cents) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + "$" + printer.Sprintf("%.2f", c.Decimal().InexactFloat64())
}

// MarshalJSON writes the amount as a plain JSON number in major units.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.Decimal().StringFixed(2)), nil
}

func (c *Cents) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*c = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("decode amount %q: %w", s, err)
	}
	v, ok := toCents(d)
	if !ok {
		return fmt.Errorf("decode amount %q: out of range", s)
	}
	*c = v
	return nil
}
