// Package cart is a per-owner ledger of line items with a pluggable
// persistence adapter.
package cart

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/pricing"
)

const DefaultNamespace = "storefront-cart"

// Line is one product, or one variant of a product, with the unit price
// captured when it was first added.
type Line struct {
	ProductID    string        `json:"productId"`
	VariantID    string        `json:"variantId,omitempty"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	Image        string        `json:"image,omitempty"`
	VariantLabel string        `json:"variantLabel,omitempty"`
	UnitPrice    pricing.Cents `json:"price"`
	Quantity     int           `json:"quantity"`
}

// LineID is the productId, suffixed with "-variantId" for a variant.
func LineID(productID, variantID string) string {
	if variantID == "" {
		return productID
	}
	return productID + "-" + variantID
}

func (l Line) ID() string { return LineID(l.ProductID, l.VariantID) }

func (l Line) Total() pricing.Cents { return l.UnitPrice.Times(l.Quantity) }

// Store persists a ledger's lines under an owner key.
type Store interface {
	// Load returns no lines and no error for an unknown owner.
	Load(ctx context.Context, owner string) ([]Line, error)
	Save(ctx context.Context, owner string, lines []Line) error
	Delete(ctx context.Context, owner string) error
}

// Ledger is a single owner's cart. Every mutation is written through to
// the store. A Ledger is not safe for concurrent use.
type Ledger struct {
	owner string
	store Store
	lines []Line
}

// Open rehydrates the owner's ledger from store.
func Open(ctx context.Context, store Store, owner string) (*Ledger, error) {
	lines, err := store.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &Ledger{owner: owner, store: store, lines: lines}, nil
}

// Add merges qty into the line with the same identity, or appends a new
// line. The unit price of an existing line is kept.
func (l *Ledger) Add(ctx context.Context, item Line, qty int) error {
	if qty < 1 {
		return apperr.Validation("quantity must be at least 1")
	}
	if item.ProductID == "" {
		return apperr.Validation("productId is required")
	}
	if i := l.index(item.ID()); i >= 0 {
		l.lines[i].Quantity += qty
	} else {
		item.Quantity = qty
		l.lines = append(l.lines, item)
	}
	return l.save(ctx)
}

// Remove drops the line; an unknown id is a no-op.
func (l *Ledger) Remove(ctx context.Context, id string) error {
	i := l.index(id)
	if i < 0 {
		return nil
	}
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
	return l.save(ctx)
}

// UpdateQuantity sets the line's quantity. Zero or less removes it.
func (l *Ledger) UpdateQuantity(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return l.Remove(ctx, id)
	}
	i := l.index(id)
	if i < 0 {
		return apperr.NotFoundf("cart line %s not found", id)
	}
	l.lines[i].Quantity = qty
	return l.save(ctx)
}

func (l *Ledger) Clear(ctx context.Context) error {
	l.lines = nil
	if err := l.store.Delete(ctx, l.owner); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Lines returns a copy of the lines in insertion order.
func (l *Ledger) Lines() []Line {
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *Ledger) Len() int { return len(l.lines) }

func (l *Ledger) TotalItems() int {
	n := 0
	for _, ln := range l.lines {
		n += ln.Quantity
	}
	return n
}

func (l *Ledger) TotalPrice() pricing.Cents {
	var sum pricing.Cents
	for _, ln := range l.lines {
		sum += ln.Total()
	}
	return sum
}

func (l *Ledger) index(id string) int {
	for i := range l.lines {
		if l.lines[i].ID() == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) save(ctx context.Context) error {
	if len(l.lines) == 0 {
		if err := l.store.Delete(ctx, l.owner); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		return nil
	}
	if err := l.store.Save(ctx, l.owner, l.lines); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
