package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tixgate/internal/errors"
	"tixgate/internal/models"
)

func TestCreateOrder_RejectsLapsedBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, showtime, zone := env.createSeatEvent(t, 10, "A1")
	buyer := newBuyer()
	booking := env.reserveSeats(t, buyer, event, showtime, zone, "A1")

	// The sweeper got there first.
	reclaimed, err := env.repos.Bookings.MarkSeatBookingExpired(ctx, booking.ID)
	require.NoError(t, err)
	require.True(t, reclaimed)

	_, err = env.services.Orders.Create(ctx, buyer, &models.CreateOrderRequest{
		EventID:     event.ID,
		ShowtimeID:  showtime.ID,
		BookingType: models.TypeBaseSeat,
		BookingIDs:  []string{booking.ID},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrHoldExpired)
}

func TestCancelOrder_LeavesTerminalBookingsAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, showtime, zt := env.createZoneEvent(t, 100, 5)
	buyer := newBuyer()
	hold := env.createZoneHold(t, buyer, event, showtime, zt, 2, time.Now().Add(10*time.Minute))

	created, err := env.services.Orders.Create(ctx, buyer, &models.CreateOrderRequest{
		EventID:     event.ID,
		ShowtimeID:  showtime.ID,
		BookingType: models.TypeBaseZone,
		BookingIDs:  []string{hold.ID},
	})
	require.NoError(t, err)

	// Force the booking into a terminal state behind the order's back.
	err = env.db.WithTx(ctx, func(tx *sql.Tx) error {
		return env.repos.Bookings.SetZoneBookingStatusTx(ctx, tx, hold.ID, models.BookingExpired, nil)
	})
	require.NoError(t, err)

	require.NoError(t, env.services.Orders.Cancel(ctx, created.ID, "buyer change of mind"))

	// Expired is terminal; the cancel cascade must not resurrect it into a
	// different status.
	after, err := env.repos.Bookings.GetZoneBooking(ctx, hold.ID)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, models.BookingExpired, after.Status)

	order, err := env.repos.Orders.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, order.Status)
}
