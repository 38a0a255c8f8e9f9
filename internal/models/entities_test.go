package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"pending to reserved", BookingPending, BookingReserved, true},
		{"pending to expired", BookingPending, BookingExpired, true},
		{"reserved to booked", BookingReserved, BookingBooked, true},
		{"reserved to cancelled", BookingReserved, BookingCancelled, true},
		{"reserved to expired", BookingReserved, BookingExpired, true},
		{"booked to cancelled", BookingBooked, BookingCancelled, true},
		{"booked to expired", BookingBooked, BookingExpired, false},
		{"booked to reserved", BookingBooked, BookingReserved, false},
		{"cancelled is terminal", BookingCancelled, BookingReserved, false},
		{"expired is terminal", BookingExpired, BookingReserved, false},
		{"no self transition", BookingReserved, BookingReserved, false},
		{"unknown status", "bogus", BookingReserved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestOrderOwner(t *testing.T) {
	buyer := Order{UserID: "buyer-1"}
	assert.Equal(t, "buyer-1", buyer.Owner())

	recipient := "friend-1"
	gift := Order{UserID: "buyer-1", GiftRecipient: &recipient}
	assert.Equal(t, "friend-1", gift.Owner())

	empty := ""
	blankGift := Order{UserID: "buyer-1", GiftRecipient: &empty}
	assert.Equal(t, "buyer-1", blankGift.Owner())
}
