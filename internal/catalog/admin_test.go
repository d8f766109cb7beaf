package catalog

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() ProductInput {
	return ProductInput{
		Name:         "Linen Shirt",
		Description:  "Breathable linen shirt for summer",
		Price:        3900,
		ComparePrice: cents(4900),
		Stock:        8,
		CategoryID:   catModa.ID,
		Images:       []ImageInput{{URL: "https://img.example/1.jpg"}, {URL: "https://img.example/2.jpg"}},
		Variants: []VariantInput{
			{Name: "White / M", Color: str("White"), Size: str("M"), Stock: 4},
			{Name: "White / L", Color: str("White"), Size: str("L"), Stock: 4, Price: cents(4100)},
		},
		Tags: []string{"Summer", "summer", "Linen"},
	}
}

func TestAdmin_Create(t *testing.T) {
	m := newMemStore(catModa)
	c := newMapCache()
	c.entries["list:x"] = &Page{}
	a := NewAdmin(m, c, nil)

	p, err := a.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "linen-shirt", p.Slug)
	assert.Regexp(t, `^LS-[0-9A-F]{4}$`, p.SKU)
	assert.True(t, p.Active)
	require.Len(t, p.Variants, 2)
	assert.Equal(t, p.SKU+"-2", p.Variants[1].SKU)
	assert.Equal(t, 1, p.Images[1].Position)
	assert.Len(t, p.Tags, 2)
	assert.Empty(t, c.entries, "cache invalidated")

	_, err = a.Create(context.Background(), validInput())
	assert.True(t, apperr.Is(err, apperr.KindConflict), "duplicate slug")
}

func TestAdmin_CreateValidation(t *testing.T) {
	a := NewAdmin(newMemStore(catModa), nil, nil)
	ctx := context.Background()

	in := validInput()
	in.Price = 0
	_, err := a.Create(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	in = validInput()
	in.CategoryID = "c-missing"
	_, err = a.Create(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	in = validInput()
	in.Images = []ImageInput{{URL: "not a url"}}
	_, err = a.Create(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAdmin_CreateDropsCompareNotAbovePrice(t *testing.T) {
	a := NewAdmin(newMemStore(catModa), nil, nil)
	in := validInput()
	in.ComparePrice = cents(3900)

	p, err := a.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, p.ComparePrice)
}

func TestAdmin_UpdateAndDeactivate(t *testing.T) {
	m := newMemStore(catModa)
	a := NewAdmin(m, nil, nil)
	ctx := context.Background()

	p, err := a.Create(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Price = 3500
	in.Variants = nil
	in.Slug = "Linen Shirt Sale"
	got, err := a.Update(ctx, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, pricing.Cents(3500), got.Price)
	assert.Equal(t, "linen-shirt-sale", got.Slug)
	assert.Len(t, got.Variants, 2, "variants kept when omitted")
	assert.Equal(t, p.SKU, got.SKU)

	require.NoError(t, a.Deactivate(ctx, p.ID))
	stored, err := a.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	svc := NewService(m, nil, nil)
	_, err = svc.Product(ctx, "linen-shirt-sale")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	assert.True(t, apperr.Is(a.Deactivate(ctx, "nope"), apperr.KindNotFound))
	_, err = a.Update(ctx, "nope", validInput())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAdmin_UpdateKeepsVariantIDs(t *testing.T) {
	m := newMemStore(catModa)
	a := NewAdmin(m, nil, nil)
	ctx := context.Background()

	p, err := a.Create(ctx, validInput())
	require.NoError(t, err)
	require.Len(t, p.Variants, 2)
	m1, l1 := p.Variants[0], p.Variants[1]

	in := validInput()
	in.Variants = []VariantInput{
		{Name: "White / L", SKU: l1.SKU, Color: str("White"), Size: str("L"), Stock: 9, Price: cents(4100)},
		{ID: m1.ID, Name: "White / M", SKU: "LINEN-M", Color: str("White"), Size: str("M"), Stock: 1},
		{Name: "White / XL", Color: str("White"), Size: str("XL"), Stock: 2},
	}
	got, err := a.Update(ctx, p.ID, in)
	require.NoError(t, err)
	require.Len(t, got.Variants, 3)
	assert.Equal(t, l1.ID, got.Variants[0].ID, "matched by sku")
	assert.Equal(t, 9, got.Variants[0].Stock)
	assert.Equal(t, m1.ID, got.Variants[1].ID, "matched by id")
	assert.Equal(t, "LINEN-M", got.Variants[1].SKU)
	assert.NotContains(t, []string{m1.ID, l1.ID}, got.Variants[2].ID)

	svc := NewService(m, nil, nil)
	snap, err := svc.Snapshot(ctx, p.ID, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.Cents(4100), snap.UnitPrice, "cart lines keep resolving")
}
