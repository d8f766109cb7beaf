package orders

import (
	"time"

	"github.com/ariefcatur/go-storefront/internal/pricing"
)

// Address is the shipping address snapshot stored with an order.
type Address struct {
	FirstName string `json:"firstName" validate:"required,min=2"`
	LastName  string `json:"lastName" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,min=7"`
	Address1  string `json:"address1" validate:"required,min=5"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city" validate:"required,min=2"`
	State     string `json:"state" validate:"required,min=2"`
	Zip       string `json:"zip" validate:"required,min=3"`
	Country   string `json:"country" validate:"required,min=2"`
}

// ItemInput is one requested line. It has no price field: prices always
// come from the store.
type ItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=999"`
}

type PlaceInput struct {
	Items           []ItemInput `json:"items" validate:"required,min=1,max=100,dive"`
	ShippingAddress Address     `json:"shippingAddress"`
	Notes           string      `json:"notes" validate:"max=500"`
}

type Order struct {
	ID              string        `json:"id"`
	Number          string        `json:"orderNumber"`
	UserID          string        `json:"userId"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	Subtotal        pricing.Cents `json:"subtotal"`
	Shipping        pricing.Cents `json:"shipping"`
	Tax             pricing.Cents `json:"tax"`
	Total           pricing.Cents `json:"total"`
	ShippingAddress Address       `json:"shippingAddress"`
	Notes           string        `json:"notes,omitempty"`
	IdempotencyKey  string        `json:"-"`
	Items           []Item        `json:"items"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// Item freezes the product, quantity and unit price at order time.
type Item struct {
	ID          string        `json:"id"`
	ProductID   string        `json:"productId"`
	VariantID   string        `json:"variantId,omitempty"`
	Name        string        `json:"name"`
	VariantName string        `json:"variantName,omitempty"`
	UnitPrice   pricing.Cents `json:"price"`
	Quantity    int           `json:"quantity"`
}

func (it Item) LineTotal() pricing.Cents { return it.UnitPrice.Times(it.Quantity) }

// PricedProduct is the authoritative price and availability of a product
// as read inside the placement transaction.
type PricedProduct struct {
	ID       string
	Name     string
	Price    pricing.Cents
	Active   bool
	Variants map[string]PricedVariant
}

type PricedVariant struct {
	ID    string
	Name  string
	Price *pricing.Cents
}

// StockLevel is what remains of a product or variant after a decrement.
type StockLevel struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Remaining int    `json:"remaining"`
}

type ListFilter struct {
	UserID string
	Status Status
	Limit  int
}
