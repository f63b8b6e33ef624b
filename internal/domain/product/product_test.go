package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p, err := New("p1", "store-a", " Mug ", 1000, 5)
		require.NoError(t, err)
		assert.Equal(t, "Mug", p.Name)
		assert.True(t, p.Active)
	})

	t.Run("store required", func(t *testing.T) {
		_, err := New("p1", "", "Mug", 1000, 5)
		assert.ErrorIs(t, err, ErrStoreRequired)
	})

	t.Run("negative stock", func(t *testing.T) {
		_, err := New("p1", "store-a", "Mug", 1000, -1)
		assert.ErrorIs(t, err, ErrInvalidStock)
	})
}

func TestDeductNeverGoesNegative(t *testing.T) {
	p, err := New("p1", "store-a", "Mug", 1000, 5)
	require.NoError(t, err)

	require.NoError(t, p.Deduct(3))
	assert.Equal(t, 2, p.Stock)

	assert.ErrorIs(t, p.Deduct(3), ErrInsufficientStock)
	assert.Equal(t, 2, p.Stock, "failed deduct must not change stock")

	assert.ErrorIs(t, p.Deduct(0), ErrInvalidQuantity)
}

func TestApply(t *testing.T) {
	p, err := New("p1", "store-a", "Mug", 1000, 5)
	require.NoError(t, err)

	negative := -1
	assert.ErrorIs(t, p.Apply(Patch{Stock: &negative}), ErrInvalidStock)

	price := int64(1500)
	inactive := false
	require.NoError(t, p.Apply(Patch{Price: &price, Active: &inactive}))
	assert.Equal(t, int64(1500), p.Price)
	assert.False(t, p.Available(1))
}
