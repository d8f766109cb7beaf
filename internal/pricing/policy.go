package pricing

import "github.com/shopspring/decimal"

// Policy is the checkout totals configuration.
type Policy struct {
	TaxRate               decimal.Decimal
	FlatShipping          Cents
	FreeShippingThreshold Cents
}

// DefaultPolicy: 21% tax, 4.99 shipping, free from 50.00.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.21"),
		FlatShipping:          499,
		FreeShippingThreshold: 5000,
	}
}

type Totals struct {
	Subtotal Cents `json:"subtotal"`
	Shipping Cents `json:"shipping"`
	Tax      Cents `json:"tax"`
	Total    Cents `json:"total"`
}

// Shipping is free once the subtotal reaches the threshold. An empty
// subtotal ships nothing.
func (p Policy) Shipping(subtotal Cents) Cents {
	if subtotal <= 0 || subtotal >= p.FreeShippingThreshold {
		return 0
	}
	return p.FlatShipping
}

// Tax is rounded half away from zero to the cent.
func (p Policy) Tax(subtotal Cents) Cents {
	return FromDecimal(subtotal.Decimal().Mul(p.TaxRate))
}

func (p Policy) Quote(subtotal Cents) Totals {
	t := Totals{
		Subtotal: subtotal,
		Shipping: p.Shipping(subtotal),
		Tax:      p.Tax(subtotal),
	}
	t.Total = t.Subtotal + t.Shipping + t.Tax
	return t
}
