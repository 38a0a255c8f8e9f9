package jobs

import (
	"context"
	"log/slog"
	"time"

	"tixgate/internal/messaging"
	"tixgate/internal/metrics"
	"tixgate/internal/models"
)

const sweepBatchSize = 500

// BookingStore is the slice of the booking repository the sweeper needs.
type BookingStore interface {
	ExpiredSeatBookings(ctx context.Context, now time.Time, limit int) ([]models.SeatBooking, error)
	ExpiredZoneBookings(ctx context.Context, now time.Time, limit int) ([]models.ZoneBooking, error)
	MarkSeatBookingExpired(ctx context.Context, id string) (bool, error)
	MarkZoneBookingExpired(ctx context.Context, id string) (bool, error)
}

// OrderStore lists pending orders that outlived the payment window.
type OrderStore interface {
	StalePendingOrders(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// OrderCanceller runs the cancellation cascade for one order.
type OrderCanceller interface {
	Cancel(ctx context.Context, orderID, reason string) error
}

// LockReleaser drops distributed locks owned by a reclaimed booking.
type LockReleaser interface {
	ReleaseSeat(ctx context.Context, eventID, showtimeID int64, zoneID, seatID, holderID string) error
	ReleaseZone(ctx context.Context, zoneTicketID, holderID string) error
}

// Sweeper is the reconciliation job. Expiry is already enforced at read
// time everywhere, so the sweeper only converts lapsed state into terminal
// state and releases leftover locks; nothing depends on it for correctness.
type Sweeper struct {
	bookings     BookingStore
	orders       OrderStore
	canceller    OrderCanceller
	locks        LockReleaser
	publisher    messaging.Publisher
	orderTimeout time.Duration
	interval     time.Duration
	ticker       *time.Ticker
	done         chan bool
}

func NewSweeper(bookings BookingStore, orders OrderStore, canceller OrderCanceller, locks LockReleaser, publisher messaging.Publisher, orderTimeout, interval time.Duration) *Sweeper {
	return &Sweeper{
		bookings:     bookings,
		orders:       orders,
		canceller:    canceller,
		locks:        locks,
		publisher:    publisher,
		orderTimeout: orderTimeout,
		interval:     interval,
		done:         make(chan bool),
	}
}

// Start begins the background loop. The first sweep runs immediately.
func (s *Sweeper) Start(ctx context.Context) {
	slog.Info("Starting sweeper", "interval", s.interval.String(), "order_timeout", s.orderTimeout.String())

	s.ticker = time.NewTicker(s.interval)

	go s.SweepOnce(ctx, time.Now())

	go func() {
		for {
			select {
			case <-s.ticker.C:
				go s.SweepOnce(ctx, time.Now())
			case <-s.done:
				slog.Info("Sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background loop.
func (s *Sweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)
}

// SweepOnce runs one full pass: lapsed seat holds, lapsed zone holds, then
// stale pending orders.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) {
	s.sweepSeatBookings(ctx, now)
	s.sweepZoneBookings(ctx, now)
	s.sweepStaleOrders(ctx, now)
}

func (s *Sweeper) sweepSeatBookings(ctx context.Context, now time.Time) {
	expired, err := s.bookings.ExpiredSeatBookings(ctx, now, sweepBatchSize)
	if err != nil {
		slog.Error("Failed to list expired seat bookings", "error", err)
		return
	}

	for _, booking := range expired {
		reclaimed, err := s.bookings.MarkSeatBookingExpired(ctx, booking.ID)
		if err != nil {
			slog.Error("Failed to expire seat booking", "error", err, "booking_id", booking.ID)
			continue
		}
		if !reclaimed {
			// Promoted to an order between the read and the write.
			continue
		}

		for _, seat := range booking.Seats {
			if err := s.locks.ReleaseSeat(ctx, booking.EventID, booking.ShowtimeID, seat.ZoneID, seat.SeatID, booking.UserID); err != nil {
				slog.Error("Failed to release seat lock during sweep",
					"error", err, "booking_id", booking.ID, "seat_id", seat.SeatID)
				// Keep going; the lock TTL will expire it anyway.
			}

			if err := s.publisher.Publish(models.TopicSeatReleased, models.SeatStateEvent{
				EventID:    booking.EventID,
				ShowtimeID: booking.ShowtimeID,
				ZoneID:     seat.ZoneID,
				SeatID:     seat.SeatID,
				UserID:     booking.UserID,
				Timestamp:  now,
			}); err != nil {
				slog.Error("Failed to publish seat released event", "error", err, "booking_id", booking.ID)
			}
		}

		metrics.SweeperReclaimed.WithLabelValues("seat_booking").Inc()
		metrics.ReservationsActive.WithLabelValues("seat").Dec()
		slog.Info("Expired seat booking reclaimed",
			"booking_id", booking.ID, "seats", len(booking.Seats),
			"overdue", now.Sub(booking.ExpiresAt).String())
	}
}

func (s *Sweeper) sweepZoneBookings(ctx context.Context, now time.Time) {
	expired, err := s.bookings.ExpiredZoneBookings(ctx, now, sweepBatchSize)
	if err != nil {
		slog.Error("Failed to list expired zone bookings", "error", err)
		return
	}

	for _, booking := range expired {
		reclaimed, err := s.bookings.MarkZoneBookingExpired(ctx, booking.ID)
		if err != nil {
			slog.Error("Failed to expire zone booking", "error", err, "booking_id", booking.ID)
			continue
		}
		if !reclaimed {
			continue
		}

		if err := s.locks.ReleaseZone(ctx, booking.ZoneTicketID, booking.UserID); err != nil {
			slog.Error("Failed to release zone marker during sweep",
				"error", err, "booking_id", booking.ID, "zone_ticket_id", booking.ZoneTicketID)
		}

		if err := s.publisher.Publish(models.TopicZoneReleased, models.ZoneStateEvent{
			EventID:      booking.EventID,
			ShowtimeID:   booking.ShowtimeID,
			ZoneTicketID: booking.ZoneTicketID,
			UserID:       booking.UserID,
			Quantity:     booking.Quantity,
			Timestamp:    now,
		}); err != nil {
			slog.Error("Failed to publish zone released event", "error", err, "booking_id", booking.ID)
		}

		metrics.SweeperReclaimed.WithLabelValues("zone_booking").Inc()
		metrics.ReservationsActive.WithLabelValues("zone").Dec()
		slog.Info("Expired zone booking reclaimed",
			"booking_id", booking.ID, "quantity", booking.Quantity,
			"overdue", now.Sub(booking.ExpiresAt).String())
	}
}

func (s *Sweeper) sweepStaleOrders(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.orderTimeout)

	stale, err := s.orders.StalePendingOrders(ctx, cutoff, sweepBatchSize)
	if err != nil {
		slog.Error("Failed to list stale pending orders", "error", err)
		return
	}

	for _, order := range stale {
		if err := s.canceller.Cancel(ctx, order.ID, "payment window exceeded"); err != nil {
			slog.Error("Failed to cancel stale order", "error", err, "order_id", order.ID)
			continue
		}

		metrics.SweeperReclaimed.WithLabelValues("order").Inc()
		slog.Info("Stale pending order cancelled",
			"order_id", order.ID, "age", now.Sub(order.CreatedAt).String())
	}
}
