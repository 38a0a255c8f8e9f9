package integration

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tixgate/internal/errors"
	"tixgate/internal/models"
)

func TestSelectSeat_ConflictsWithAnotherBuyersHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, showtime, zone := env.createSeatEvent(t, 10, "A1")
	env.reserveSeats(t, newBuyer(), event, showtime, zone, "A1")

	_, err := env.services.Reservations.SelectSeat(ctx, newBuyer(), &models.SelectSeatRequest{
		EventID:    event.ID,
		ShowtimeID: showtime.ID,
		Seat:       models.SeatRef{ZoneID: zone.ID, SeatID: "A1"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestSelectSeat_RejectsShowtimeOfAnotherEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, _, zone := env.createSeatEvent(t, 10, "A1")
	_, foreignShowtime := env.createEvent(t, models.TypeBaseSeat, 10)

	_, err := env.services.Reservations.SelectSeat(ctx, newBuyer(), &models.SelectSeatRequest{
		EventID:    event.ID,
		ShowtimeID: foreignShowtime.ID,
		Seat:       models.SeatRef{ZoneID: zone.ID, SeatID: "A1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReserveZone_ConcurrentClaimsStopAtCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const pool = 5
	event, showtime, zt := env.createZoneEvent(t, 100, pool)

	const buyers = 12
	var wg sync.WaitGroup
	var won atomic.Int64

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.services.Reservations.ReserveZoneQuantity(ctx, newBuyer(), &models.ReserveZoneRequest{
				EventID:      event.ID,
				ShowtimeID:   showtime.ID,
				ZoneTicketID: zt.ID,
				Quantity:     1,
			})
			if err == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(pool), won.Load())

	// The pool is exhausted for everyone after.
	_, err := env.services.Reservations.ReserveZoneQuantity(ctx, newBuyer(), &models.ReserveZoneRequest{
		EventID:      event.ID,
		ShowtimeID:   showtime.ID,
		ZoneTicketID: zt.ID,
		Quantity:     1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCapacity(err))
}

func TestReserveZone_ExpiredHoldFreesCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, showtime, zt := env.createZoneEvent(t, 100, 1)

	// A lapsed hold claims the only unit on paper. Read-time expiry must
	// hand the capacity back without waiting for the sweeper.
	env.createZoneHold(t, newBuyer(), event, showtime, zt, 1, time.Now().Add(-time.Minute))

	resp, err := env.services.Reservations.ReserveZoneQuantity(ctx, newBuyer(), &models.ReserveZoneRequest{
		EventID:      event.ID,
		ShowtimeID:   showtime.ID,
		ZoneTicketID: zt.ID,
		Quantity:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Quantity)
}

func TestDeleteZoneBooking_SparesPromotedBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, showtime, zt := env.createZoneEvent(t, 100, 5)
	buyer := newBuyer()
	hold := env.createZoneHold(t, buyer, event, showtime, zt, 2, time.Now().Add(10*time.Minute))

	// A concurrent order promotes the hold after the release path read it.
	err := env.db.WithTx(ctx, func(tx *sql.Tx) error {
		return env.repos.Bookings.SetZoneBookingStatusTx(ctx, tx, hold.ID, models.BookingBooked, nil)
	})
	require.NoError(t, err)

	deleted, err := env.repos.Bookings.DeleteZoneBooking(ctx, hold.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	after, err := env.repos.Bookings.GetZoneBooking(ctx, hold.ID)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, models.BookingBooked, after.Status)

	// The service reports the lost race as a lapsed hold.
	err = env.services.Reservations.ReleaseZoneQuantity(ctx, buyer, hold.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrHoldExpired)
}

func TestDeleteSeatBooking_SparesPromotedBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, showtime, zone := env.createSeatEvent(t, 10, "A1")
	booking := env.reserveSeats(t, newBuyer(), event, showtime, zone, "A1")

	err := env.db.WithTx(ctx, func(tx *sql.Tx) error {
		return env.repos.Bookings.SetSeatBookingStatusTx(ctx, tx, booking.ID, models.BookingBooked, nil)
	})
	require.NoError(t, err)

	deleted, err := env.repos.Bookings.DeleteSeatBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	var after *models.SeatBooking
	err = env.db.WithTx(ctx, func(tx *sql.Tx) error {
		var loadErr error
		after, loadErr = env.repos.Bookings.GetSeatBookingTx(ctx, tx, booking.ID)
		return loadErr
	})
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, models.BookingBooked, after.Status)
}
