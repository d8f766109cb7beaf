package apperr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=2"`
	Items []struct {
		Qty int `json:"quantity" validate:"gte=1"`
	} `json:"items" validate:"dive"`
}

func TestCheck(t *testing.T) {
	v := NewValidator()

	require.NoError(t, Check(v, signup{Email: "a@b.co", Name: "Al"}))

	in := signup{Email: "nope", Name: "A"}
	in.Items = append(in.Items, struct {
		Qty int `json:"quantity" validate:"gte=1"`
	}{Qty: 0})
	err := Check(v, in)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "name must be at least 2")
	assert.Contains(t, err.Error(), "items[0].quantity must be 1 or more")
}
