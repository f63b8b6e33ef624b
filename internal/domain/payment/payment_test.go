package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p, err := New("pay1", "o1", "tx1", 2500, "", MethodCard)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, p.Status)
	assert.Equal(t, int64(2500), p.Amount)

	_, err = New("pay2", "", "tx", 100, StatusSettled, MethodCard)
	assert.ErrorIs(t, err, ErrOrderRequired)

	_, err = New("pay3", "o1", "tx", 0, StatusSettled, MethodCard)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseMethod(t *testing.T) {
	assert.Equal(t, MethodPayPal, ParseMethod("paypal"))
	assert.Equal(t, MethodCard, ParseMethod(""))
	assert.Equal(t, MethodCard, ParseMethod("bitcoin"))
}
