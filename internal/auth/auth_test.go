package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestJWT_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "storefront")
	p := Principal{UserID: "u1", Email: "ana@example.com", Name: "Ana", Role: RoleAdmin}

	tok, exp, err := m.Issue(p)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	got, err := m.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, p, *got)
	assert.True(t, got.IsAdmin())
}

func TestJWT_Rejects(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "storefront")
	tok, _, err := m.Issue(Principal{UserID: "u1", Role: RoleCustomer})
	require.NoError(t, err)

	_, err = NewJWTManager("other", time.Hour, "storefront").Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTManager("secret", time.Hour, "elsewhere").Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Validate(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_Expired(t *testing.T) {
	m := NewJWTManager("secret", time.Minute, "storefront")
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err := m.Issue(Principal{UserID: "u1"})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	hash, err := h.Hash("Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", hash)
	assert.True(t, h.Verify("Secret123", hash))
	assert.False(t, h.Verify("secret123", hash))

	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).cost)
}

func TestPrincipalContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	var nilP *Principal
	assert.False(t, nilP.IsAdmin())

	ctx := WithPrincipal(context.Background(), &Principal{UserID: "u1", Role: RoleCustomer})
	p := FromContext(ctx)
	require.NotNil(t, p)
	assert.Equal(t, "u1", p.UserID)
	assert.False(t, p.IsAdmin())
}
