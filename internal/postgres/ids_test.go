package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("5f0c6f9e-3b1a-4c2e-9d7a-2b8e4f1a6c3d"))
	assert.True(t, ValidID("5F0C6F9E-3B1A-4C2E-9D7A-2B8E4F1A6C3D"))

	for _, id := range []string{"", "p1", "not-a-uuid", "5f0c6f9e-3b1a-4c2e-9d7a-2b8e4f1a6c3", "1 OR 1=1"} {
		assert.False(t, ValidID(id), id)
	}
}
