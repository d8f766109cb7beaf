package cart

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog map[string]catalog.Snapshot

func (f fakeCatalog) Snapshot(_ context.Context, productID, variantID string) (*catalog.Snapshot, error) {
	s, ok := f[LineID(productID, variantID)]
	if !ok {
		return nil, apperr.NotFoundf("product %s not found", productID)
	}
	return &s, nil
}

func newService() (*Service, fakeCatalog) {
	cat := fakeCatalog{
		"p1":    {ProductID: "p1", Name: "Tee", Slug: "tee", UnitPrice: 2000, Stock: 5},
		"p1-v1": {ProductID: "p1", VariantID: "v1", Name: "Tee", VariantLabel: "XL", UnitPrice: 2400, Stock: 1},
		"p2":    {ProductID: "p2", Name: "Cap", Slug: "cap", UnitPrice: 1500, Stock: 0},
	}
	return NewService(NewMemoryStore(), cat, pricing.DefaultPolicy(), nil), cat
}

func TestService_AddSnapshotsServerPrice(t *testing.T) {
	svc, cat := newService()
	ctx := context.Background()

	v, err := svc.Add(ctx, "s1", AddInput{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	v, err = svc.Add(ctx, "s1", AddInput{ProductID: "p1", VariantID: "v1"})
	require.NoError(t, err)

	require.Len(t, v.Items, 2)
	assert.Equal(t, pricing.Cents(2400), v.Items[1].UnitPrice)
	assert.Equal(t, 3, v.TotalItems)
	assert.Equal(t, pricing.Cents(6400), v.TotalPrice)
	assert.Equal(t, pricing.Cents(0), v.Quote.Shipping)

	s := cat["p1"]
	s.UnitPrice = 9999
	cat["p1"] = s
	v, err = svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, pricing.Cents(6400), v.TotalPrice, "snapshot does not follow later price changes")
}

func TestService_AddRejects(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", AddInput{ProductID: "p2"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = svc.Add(ctx, "s1", AddInput{ProductID: "nope"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.Add(ctx, "s1", AddInput{ProductID: "p1", Quantity: -1})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestService_UpdateRemoveClear(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	_, err := svc.Add(ctx, "s1", AddInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "s1", AddInput{ProductID: "p1", VariantID: "v1"})
	require.NoError(t, err)

	v, err := svc.UpdateQuantity(ctx, "s1", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, v.TotalItems)
	assert.Equal(t, pricing.Cents(0), v.Quote.Shipping)

	v, err = svc.UpdateQuantity(ctx, "s1", "p1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v.TotalItems)

	v, err = svc.Remove(ctx, "s1", "p1-v1")
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.Equal(t, pricing.Cents(0), v.Quote.Total)

	_, err = svc.Add(ctx, "s1", AddInput{ProductID: "p1"})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, "s1"))
	lines, err := svc.Lines(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestService_QuoteChargesShippingBelowThreshold(t *testing.T) {
	svc, _ := newService()
	v, err := svc.Add(context.Background(), "s1", AddInput{ProductID: "p1"})
	require.NoError(t, err)

	assert.Equal(t, pricing.Cents(2000), v.Quote.Subtotal)
	assert.Equal(t, pricing.Cents(499), v.Quote.Shipping)
	assert.Equal(t, pricing.Cents(420), v.Quote.Tax)
	assert.Equal(t, pricing.Cents(2919), v.Quote.Total)
}
