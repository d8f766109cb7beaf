package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("place order: %w", NotFoundf("product %s not found", "p1"))

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestMessage_HidesInternal(t *testing.T) {
	assert.Equal(t, "product p1 not found", Message(NotFoundf("product %s not found", "p1")))
	assert.Equal(t, "internal error", Message(errors.New("pq: connection refused")))
	assert.Equal(t, "internal error", Message(Wrap(KindInternal, "db", errors.New("x"))))
}

func TestWrap_Unwraps(t *testing.T) {
	base := errors.New("duplicate key")
	err := Wrap(KindConflict, "email already registered", base)

	assert.ErrorIs(t, err, base)
	assert.Equal(t, "email already registered: duplicate key", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindInternal:     http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, HTTPStatus(k), k.String())
	}
}
