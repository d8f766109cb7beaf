package cart

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"go.uber.org/zap"
)

// Catalog resolves the current price of a product or variant.
type Catalog interface {
	Snapshot(ctx context.Context, productID, variantID string) (*catalog.Snapshot, error)
}

// View is a ledger with its derived totals and a checkout quote.
type View struct {
	Items      []Line         `json:"items"`
	TotalItems int            `json:"totalItems"`
	TotalPrice pricing.Cents  `json:"totalPrice"`
	Quote      pricing.Totals `json:"quote"`
}

type AddInput struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// Service serves ledgers keyed by owner (a session id or user id).
type Service struct {
	store   Store
	catalog Catalog
	policy  pricing.Policy
	log     *zap.Logger
}

func NewService(store Store, cat Catalog, policy pricing.Policy, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, catalog: cat, policy: policy, log: log}
}

func (s *Service) Get(ctx context.Context, owner string) (*View, error) {
	l, err := Open(ctx, s.store, owner)
	if err != nil {
		return nil, err
	}
	return s.view(l), nil
}

// Add snapshots the item's current price and merges it into the ledger.
// Out of stock items are rejected.
func (s *Service) Add(ctx context.Context, owner string, in AddInput) (*View, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	snap, err := s.catalog.Snapshot(ctx, in.ProductID, in.VariantID)
	if err != nil {
		return nil, err
	}
	if snap.Stock <= 0 {
		return nil, apperr.Conflictf("%s is out of stock", snap.Name)
	}
	l, err := Open(ctx, s.store, owner)
	if err != nil {
		return nil, err
	}
	item := Line{
		ProductID:    snap.ProductID,
		VariantID:    snap.VariantID,
		Name:         snap.Name,
		Slug:         snap.Slug,
		Image:        snap.Image,
		VariantLabel: snap.VariantLabel,
		UnitPrice:    snap.UnitPrice,
	}
	if err := l.Add(ctx, item, in.Quantity); err != nil {
		return nil, err
	}
	s.log.Debug("cart line added", zap.String("owner", owner), zap.String("line_id", item.ID()),
		zap.Int("qty", in.Quantity))
	return s.view(l), nil
}

func (s *Service) UpdateQuantity(ctx context.Context, owner, lineID string, qty int) (*View, error) {
	l, err := Open(ctx, s.store, owner)
	if err != nil {
		return nil, err
	}
	if err := l.UpdateQuantity(ctx, lineID, qty); err != nil {
		return nil, err
	}
	return s.view(l), nil
}

func (s *Service) Remove(ctx context.Context, owner, lineID string) (*View, error) {
	l, err := Open(ctx, s.store, owner)
	if err != nil {
		return nil, err
	}
	if err := l.Remove(ctx, lineID); err != nil {
		return nil, err
	}
	return s.view(l), nil
}

func (s *Service) Clear(ctx context.Context, owner string) error {
	l, err := Open(ctx, s.store, owner)
	if err != nil {
		return err
	}
	return l.Clear(ctx)
}

// Lines returns the owner's lines; used by checkout.
func (s *Service) Lines(ctx context.Context, owner string) ([]Line, error) {
	l, err := Open(ctx, s.store, owner)
	if err != nil {
		return nil, err
	}
	return l.Lines(), nil
}

func (s *Service) view(l *Ledger) *View {
	subtotal := l.TotalPrice()
	return &View{
		Items:      l.Lines(),
		TotalItems: l.TotalItems(),
		TotalPrice: subtotal,
		Quote:      s.policy.Quote(subtotal),
	}
}
