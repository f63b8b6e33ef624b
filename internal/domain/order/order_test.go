package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New("o1", "ORD-20240101-ABCDEF12", "u1", []Item{
		{ProductID: "p1", Quantity: 2, Price: 1500},
		{ProductID: "p2", Quantity: 1, Price: 999},
	}, ShippingInfo{Address: "1 Main St"})
	require.NoError(t, err)
	return o
}

func TestNewComputesTotal(t *testing.T) {
	o := newTestOrder(t)
	assert.Equal(t, int64(3999), o.TotalAmount)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
}

func TestNewValidation(t *testing.T) {
	ship := ShippingInfo{Address: "x"}
	_, err := New("o", "n", "", []Item{{ProductID: "p", Quantity: 1}}, ship)
	assert.ErrorIs(t, err, ErrUserRequired)

	_, err = New("o", "n", "u", nil, ship)
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = New("o", "n", "u", []Item{{ProductID: "p", Quantity: 0}}, ship)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = New("o", "n", "u", []Item{{ProductID: "p", Quantity: 1}}, ShippingInfo{})
	assert.ErrorIs(t, err, ErrShippingRequired)
}

func TestTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusShipped, false},
		{StatusPending, StatusCanceled, true},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusPending, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCanceled, true},
		{StatusDelivered, StatusCanceled, false},
		{StatusDelivered, StatusDelivered, false},
		{StatusCanceled, StatusPending, false},
		{StatusCanceled, StatusCanceled, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to))
		})
	}
}

func TestTransitionTo(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.TransitionTo(StatusProcessing))
	require.NoError(t, o.TransitionTo(StatusShipped))
	require.NoError(t, o.TransitionTo(StatusDelivered))
	assert.ErrorIs(t, o.TransitionTo(StatusCanceled), ErrInvalidStateTransition)
	assert.Equal(t, StatusDelivered, o.Status)
}

func TestAllowedFrom(t *testing.T) {
	assert.ElementsMatch(t, []Status{StatusPending, StatusProcessing, StatusShipped}, AllowedFrom(StatusCanceled))
	assert.ElementsMatch(t, []Status{StatusProcessing, StatusShipped}, AllowedFrom(StatusShipped))
	assert.Empty(t, AllowedFrom("Lost"))
}

func TestMarkPaid(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkPaid())
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusProcessing, o.Status)
	assert.ErrorIs(t, o.MarkPaid(), ErrAlreadyPaid)

	c := newTestOrder(t)
	require.NoError(t, c.TransitionTo(StatusCanceled))
	assert.ErrorIs(t, c.MarkPaid(), ErrInvalidStateTransition)
}

func TestReservingBlocksChanges(t *testing.T) {
	o := newTestOrder(t)
	o.Reserving = true

	assert.ErrorIs(t, o.TransitionTo(StatusCanceled), ErrReserving)
	assert.ErrorIs(t, o.MarkPaid(), ErrReserving)
	assert.Equal(t, StatusPending, o.Status)

	require.NoError(t, o.Confirm())
	assert.False(t, o.Reserving)
	assert.ErrorIs(t, o.Confirm(), ErrInvalidStateTransition)
	require.NoError(t, o.TransitionTo(StatusProcessing))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseStatus("lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestQuantitiesMergesLines(t *testing.T) {
	o := newTestOrder(t)
	o.Items = append(o.Items, Item{ProductID: "p1", Quantity: 3, Price: 1500})
	assert.Equal(t, map[string]int{"p1": 5, "p2": 1}, o.Quantities())
	assert.Equal(t, []string{"p1", "p2"}, o.ProductIDs())
}
