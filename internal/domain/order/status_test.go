package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	for _, st := range Statuses {
		got, ok := ParseStatus(string(st))
		assert.True(t, ok, st)
		assert.Equal(t, st, got)
	}

	for _, s := range []string{"", "processing", "Shipped", "All"} {
		_, ok := ParseStatus(s)
		assert.False(t, ok, s)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusNewOrder, StatusProcessing, true},
		{StatusNewOrder, StatusConfirmed, true},
		{StatusProcessing, StatusOutForDelivery, true},
		{StatusReady, StatusCompleted, true},
		{StatusOutForDelivery, StatusDelivered, true},
		{StatusDelivered, StatusCompleted, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusProcessing, true},
		{StatusDelivered, StatusProcessing, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusNewOrder, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusNewOrder, StatusDelivered, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestRestoresStock(t *testing.T) {
	assert.False(t, StatusCancelled.RestoresStock())
	assert.False(t, StatusDelivered.RestoresStock())
	assert.True(t, StatusCompleted.RestoresStock())
	assert.True(t, StatusNewOrder.RestoresStock())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "INS0001", FormatNumber(1))
	assert.Equal(t, "INS0420", FormatNumber(420))
	assert.Equal(t, "INS12345", FormatNumber(12345))
}

func TestReservationsMergeDuplicates(t *testing.T) {
	o := &Order{Items: []LineItem{
		{ProductID: "b", Quantity: 2},
		{ProductID: "a", Quantity: 1},
		{ProductID: "b", Quantity: 3},
	}}
	assert.Equal(t, []Reservation{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 5}}, o.Reservations())
	assert.Equal(t, 6, o.ItemCount())
}
