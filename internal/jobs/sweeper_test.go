package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tixgate/internal/metrics"
	"tixgate/internal/models"
)

type fakeBookingStore struct {
	seatBookings []models.SeatBooking
	zoneBookings []models.ZoneBooking
	expiredSeat  []string
	expiredZone  []string
	denySeat     map[string]bool
}

func (f *fakeBookingStore) ExpiredSeatBookings(ctx context.Context, now time.Time, limit int) ([]models.SeatBooking, error) {
	return f.seatBookings, nil
}

func (f *fakeBookingStore) ExpiredZoneBookings(ctx context.Context, now time.Time, limit int) ([]models.ZoneBooking, error) {
	return f.zoneBookings, nil
}

func (f *fakeBookingStore) MarkSeatBookingExpired(ctx context.Context, id string) (bool, error) {
	if f.denySeat[id] {
		return false, nil
	}
	f.expiredSeat = append(f.expiredSeat, id)
	return true, nil
}

func (f *fakeBookingStore) MarkZoneBookingExpired(ctx context.Context, id string) (bool, error) {
	f.expiredZone = append(f.expiredZone, id)
	return true, nil
}

type fakeOrderStore struct {
	orders []models.Order
}

func (f *fakeOrderStore) StalePendingOrders(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var stale []models.Order
	for _, o := range f.orders {
		if o.CreatedAt.Before(cutoff) {
			stale = append(stale, o)
		}
	}
	return stale, nil
}

type fakeCanceller struct {
	cancelled []string
	reasons   []string
}

func (f *fakeCanceller) Cancel(ctx context.Context, orderID, reason string) error {
	f.cancelled = append(f.cancelled, orderID)
	f.reasons = append(f.reasons, reason)
	return nil
}

type fakeLockReleaser struct {
	seatReleases []string
	zoneReleases []string
}

func (f *fakeLockReleaser) ReleaseSeat(ctx context.Context, eventID, showtimeID int64, zoneID, seatID, holderID string) error {
	f.seatReleases = append(f.seatReleases, zoneID+"/"+seatID)
	return nil
}

func (f *fakeLockReleaser) ReleaseZone(ctx context.Context, zoneTicketID, holderID string) error {
	f.zoneReleases = append(f.zoneReleases, zoneTicketID)
	return nil
}

type fakePublisher struct {
	topics []string
}

func (f *fakePublisher) Publish(topic string, payload interface{}) error {
	f.topics = append(f.topics, topic)
	return nil
}

func TestSweepOnce_ReclaimsExpiredSeatBookings(t *testing.T) {
	now := time.Now()

	bookings := &fakeBookingStore{
		seatBookings: []models.SeatBooking{
			{
				ID:         "booking-1",
				UserID:     "user-1",
				EventID:    1,
				ShowtimeID: 10,
				Status:     models.BookingReserved,
				ExpiresAt:  now.Add(-time.Minute),
				Seats: []models.BookedSeat{
					{ZoneID: "zone-a", SeatID: "A1"},
					{ZoneID: "zone-a", SeatID: "A2"},
				},
			},
		},
	}
	orders := &fakeOrderStore{}
	canceller := &fakeCanceller{}
	releaser := &fakeLockReleaser{}
	publisher := &fakePublisher{}

	gaugeBefore := testutil.ToFloat64(metrics.ReservationsActive.WithLabelValues("seat"))

	sweeper := NewSweeper(bookings, orders, canceller, releaser, publisher, 15*time.Minute, time.Minute)
	sweeper.SweepOnce(context.Background(), now)

	require.Equal(t, []string{"booking-1"}, bookings.expiredSeat)
	assert.Equal(t, []string{"zone-a/A1", "zone-a/A2"}, releaser.seatReleases)
	assert.Equal(t, []string{models.TopicSeatReleased, models.TopicSeatReleased}, publisher.topics)
	assert.Empty(t, canceller.cancelled)

	// The reclaimed hold no longer counts as an active reservation.
	assert.Equal(t, gaugeBefore-1, testutil.ToFloat64(metrics.ReservationsActive.WithLabelValues("seat")))
}

func TestSweepOnce_SkipsBookingsPromotedMidSweep(t *testing.T) {
	now := time.Now()

	bookings := &fakeBookingStore{
		seatBookings: []models.SeatBooking{
			{
				ID:        "booking-1",
				UserID:    "user-1",
				Status:    models.BookingReserved,
				ExpiresAt: now.Add(-time.Minute),
				Seats:     []models.BookedSeat{{ZoneID: "zone-a", SeatID: "A1"}},
			},
		},
		denySeat: map[string]bool{"booking-1": true},
	}
	releaser := &fakeLockReleaser{}
	publisher := &fakePublisher{}

	gaugeBefore := testutil.ToFloat64(metrics.ReservationsActive.WithLabelValues("seat"))

	sweeper := NewSweeper(bookings, &fakeOrderStore{}, &fakeCanceller{}, releaser, publisher, 15*time.Minute, time.Minute)
	sweeper.SweepOnce(context.Background(), now)

	// Nothing released, published, or counted when the status flip lost the race.
	assert.Empty(t, releaser.seatReleases)
	assert.Empty(t, publisher.topics)
	assert.Equal(t, gaugeBefore, testutil.ToFloat64(metrics.ReservationsActive.WithLabelValues("seat")))
}

func TestSweepOnce_ReclaimsExpiredZoneBookings(t *testing.T) {
	now := time.Now()

	bookings := &fakeBookingStore{
		zoneBookings: []models.ZoneBooking{
			{
				ID:           "booking-z",
				UserID:       "user-2",
				EventID:      2,
				ShowtimeID:   20,
				ZoneTicketID: "zt-1",
				Quantity:     4,
				Status:       models.BookingReserved,
				ExpiresAt:    now.Add(-time.Second),
			},
		},
	}
	releaser := &fakeLockReleaser{}
	publisher := &fakePublisher{}

	gaugeBefore := testutil.ToFloat64(metrics.ReservationsActive.WithLabelValues("zone"))

	sweeper := NewSweeper(bookings, &fakeOrderStore{}, &fakeCanceller{}, releaser, publisher, 15*time.Minute, time.Minute)
	sweeper.SweepOnce(context.Background(), now)

	require.Equal(t, []string{"booking-z"}, bookings.expiredZone)
	assert.Equal(t, []string{"zt-1"}, releaser.zoneReleases)
	assert.Equal(t, []string{models.TopicZoneReleased}, publisher.topics)
	assert.Equal(t, gaugeBefore-1, testutil.ToFloat64(metrics.ReservationsActive.WithLabelValues("zone")))
}

func TestSweepOnce_CancelsStalePendingOrders(t *testing.T) {
	now := time.Now()
	timeout := 15 * time.Minute

	orders := &fakeOrderStore{
		orders: []models.Order{
			{ID: "order-old", Status: models.OrderPending, CreatedAt: now.Add(-time.Hour)},
			{ID: "order-fresh", Status: models.OrderPending, CreatedAt: now.Add(-time.Minute)},
		},
	}
	canceller := &fakeCanceller{}

	sweeper := NewSweeper(&fakeBookingStore{}, orders, canceller, &fakeLockReleaser{}, &fakePublisher{}, timeout, time.Minute)
	sweeper.SweepOnce(context.Background(), now)

	require.Equal(t, []string{"order-old"}, canceller.cancelled)
	assert.Equal(t, []string{"payment window exceeded"}, canceller.reasons)
}
