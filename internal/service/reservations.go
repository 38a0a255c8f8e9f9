package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tixgate/internal/database"
	apperrors "tixgate/internal/errors"
	"tixgate/internal/locks"
	"tixgate/internal/logger"
	"tixgate/internal/messaging"
	"tixgate/internal/metrics"
	"tixgate/internal/models"
	"tixgate/internal/repository"
)

// ReservationService owns the seat/zone locking protocol and the reserved
// half of the booking state machine. The lock store is the fast path; the
// booking store is authoritative for what is sold. Hold windows come from
// the lock store's TTL so record expiry and lock expiry stay aligned.
type ReservationService struct {
	db          *database.DB
	eventRepo   *repository.EventRepository
	zoneRepo    *repository.ZoneRepository
	bookingRepo *repository.BookingRepository
	locks       *locks.Store
	publisher   messaging.Publisher
}

func NewReservationService(db *database.DB, eventRepo *repository.EventRepository, zoneRepo *repository.ZoneRepository, bookingRepo *repository.BookingRepository, lockStore *locks.Store, publisher messaging.Publisher) *ReservationService {
	return &ReservationService{
		db:          db,
		eventRepo:   eventRepo,
		zoneRepo:    zoneRepo,
		bookingRepo: bookingRepo,
		locks:       lockStore,
		publisher:   publisher,
	}
}

// SelectSeat places or extends a hold on one seat for the buyer. Calling it
// again for a seat the buyer already holds refreshes the window instead of
// failing.
func (s *ReservationService) SelectSeat(ctx context.Context, userID string, req *models.SelectSeatRequest) (*models.ReservationResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", req.EventID, apperrors.ErrNotFound)
	}
	if event.TypeBase != models.TypeBaseSeat {
		return nil, fmt.Errorf("event %d does not sell assigned seats", req.EventID)
	}

	showtime, err := s.eventRepo.GetShowtime(ctx, req.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get showtime: %w", err)
	}
	if showtime == nil || showtime.EventID != req.EventID {
		return nil, fmt.Errorf("showtime %d: %w", req.ShowtimeID, apperrors.ErrNotFound)
	}

	zone, err := s.zoneRepo.GetZone(ctx, req.Seat.ZoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	if zone == nil || zone.EventID != req.EventID {
		return nil, fmt.Errorf("zone %s: %w", req.Seat.ZoneID, apperrors.ErrNotFound)
	}

	seat, err := s.zoneRepo.GetSeat(ctx, req.Seat.ZoneID, req.Seat.SeatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seat: %w", err)
	}
	if seat == nil {
		return nil, fmt.Errorf("seat %s: %w", req.Seat.SeatID, apperrors.ErrNotFound)
	}

	now := time.Now()

	// Authoritative check against the booking store first. A sold seat must
	// be rejected even if its lock already expired.
	holder, err := s.bookingRepo.ActiveSeatHolder(ctx, req.ShowtimeID, req.Seat.ZoneID, req.Seat.SeatID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check seat holder: %w", err)
	}
	if holder != nil && (holder.Status == models.BookingBooked || holder.UserID != userID) {
		metrics.ReservationConflicts.WithLabelValues("seat").Inc()
		return nil, apperrors.NewSeatConflict(req.Seat.ZoneID, req.Seat.SeatID)
	}

	if err := s.locks.AcquireSeat(ctx, req.EventID, req.ShowtimeID, req.Seat.ZoneID, req.Seat.SeatID, userID); err != nil {
		// Any acquire failure reads as "someone else holds it".
		if !errors.Is(err, locks.ErrHeld) {
			logger.WithContext(ctx).Error("Seat lock acquire failed",
				"error", err, "seat_id", req.Seat.SeatID, "zone_id", req.Seat.ZoneID)
		}
		metrics.ReservationConflicts.WithLabelValues("seat").Inc()
		return nil, apperrors.NewSeatConflict(req.Seat.ZoneID, req.Seat.SeatID)
	}

	expiresAt := now.Add(s.locks.TTL())

	booking, err := s.bookingRepo.GetActiveReservation(ctx, userID, req.EventID, req.ShowtimeID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if booking == nil {
		booking = &models.SeatBooking{
			UserID:     userID,
			EventID:    req.EventID,
			ShowtimeID: req.ShowtimeID,
			Status:     models.BookingReserved,
			ExpiresAt:  expiresAt,
		}
		if err := s.bookingRepo.CreateSeatBooking(ctx, booking); err != nil {
			return nil, fmt.Errorf("failed to create reservation: %w", err)
		}
		metrics.ReservationsActive.WithLabelValues("seat").Inc()
	}

	if err := s.bookingRepo.AddSeat(ctx, booking.ID, req.Seat.ZoneID, req.Seat.SeatID, seat.Price); err != nil {
		return nil, fmt.Errorf("failed to add seat to reservation: %w", err)
	}
	if err := s.bookingRepo.TouchSeatBooking(ctx, booking.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to refresh reservation: %w", err)
	}

	seats, err := s.bookingRepo.GetSeats(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation seats: %w", err)
	}

	s.publish(ctx, models.TopicSeatSelected, models.SeatStateEvent{
		EventID:    req.EventID,
		ShowtimeID: req.ShowtimeID,
		ZoneID:     req.Seat.ZoneID,
		SeatID:     req.Seat.SeatID,
		UserID:     userID,
		ExpiresAt:  &expiresAt,
		Timestamp:  time.Now(),
	})

	return reservationResponse(booking.ID, seats, expiresAt), nil
}

// DeselectSeat removes one seat from the buyer's hold. Dropping the last
// seat deletes the booking record entirely. The DB write happens first; the
// lock release is best-effort cleanup with the TTL and sweeper behind it.
func (s *ReservationService) DeselectSeat(ctx context.Context, userID string, req *models.DeselectSeatRequest) (*models.ReservationResponse, error) {
	now := time.Now()

	booking, err := s.bookingRepo.GetActiveReservation(ctx, userID, req.EventID, req.ShowtimeID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("no active reservation: %w", apperrors.ErrHoldExpired)
	}

	removed, err := s.bookingRepo.RemoveSeat(ctx, booking.ID, req.Seat.ZoneID, req.Seat.SeatID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove seat: %w", err)
	}
	if !removed {
		return nil, fmt.Errorf("seat %s/%s is not part of the reservation: %w",
			req.Seat.ZoneID, req.Seat.SeatID, apperrors.ErrNotFound)
	}

	seats, err := s.bookingRepo.GetSeats(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation seats: %w", err)
	}

	expiresAt := booking.ExpiresAt
	if len(seats) == 0 {
		deleted, err := s.bookingRepo.DeleteSeatBooking(ctx, booking.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete empty reservation: %w", err)
		}
		if !deleted {
			// Promoted to an order between our read and the delete.
			return nil, fmt.Errorf("reservation %s is no longer reserved: %w", booking.ID, apperrors.ErrHoldExpired)
		}
		metrics.ReservationsActive.WithLabelValues("seat").Dec()
	} else {
		expiresAt = now.Add(s.locks.TTL())
		if err := s.bookingRepo.TouchSeatBooking(ctx, booking.ID, expiresAt); err != nil {
			return nil, fmt.Errorf("failed to refresh reservation: %w", err)
		}
	}

	if err := s.locks.ReleaseSeat(ctx, req.EventID, req.ShowtimeID, req.Seat.ZoneID, req.Seat.SeatID, userID); err != nil {
		logger.WithContext(ctx).Error("Seat lock release failed",
			"error", err, "seat_id", req.Seat.SeatID, "zone_id", req.Seat.ZoneID)
	}

	s.publish(ctx, models.TopicSeatDeselected, models.SeatStateEvent{
		EventID:    req.EventID,
		ShowtimeID: req.ShowtimeID,
		ZoneID:     req.Seat.ZoneID,
		SeatID:     req.Seat.SeatID,
		UserID:     userID,
		Timestamp:  time.Now(),
	})

	return reservationResponse(booking.ID, seats, expiresAt), nil
}

// ReserveZoneQuantity claims N units from a zone ticket pool. The capacity
// check recomputes the live claimed sum from bookings inside the same
// transaction that creates the new one, with the pool row locked.
func (s *ReservationService) ReserveZoneQuantity(ctx context.Context, userID string, req *models.ReserveZoneRequest) (*models.ZoneReservationResponse, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", req.EventID, apperrors.ErrNotFound)
	}
	if event.TypeBase != models.TypeBaseZone {
		return nil, fmt.Errorf("event %d does not sell zone tickets", req.EventID)
	}

	now := time.Now()
	expiresAt := now.Add(s.locks.TTL())

	booking := &models.ZoneBooking{
		UserID:       userID,
		EventID:      req.EventID,
		ShowtimeID:   req.ShowtimeID,
		ZoneTicketID: req.ZoneTicketID,
		Quantity:     req.Quantity,
		Status:       models.BookingReserved,
		ExpiresAt:    expiresAt,
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		zt, err := s.zoneRepo.GetZoneTicketTx(ctx, tx, req.ZoneTicketID)
		if err != nil {
			return fmt.Errorf("failed to get zone ticket: %w", err)
		}
		if zt == nil || zt.ShowtimeID != req.ShowtimeID {
			return fmt.Errorf("zone ticket %s: %w", req.ZoneTicketID, apperrors.ErrNotFound)
		}

		claimed, err := s.bookingRepo.ActiveZoneQuantityTx(ctx, tx, req.ZoneTicketID, now)
		if err != nil {
			return fmt.Errorf("failed to sum zone claims: %w", err)
		}
		if claimed+req.Quantity > zt.TotalTicketCount {
			metrics.ReservationConflicts.WithLabelValues("zone").Inc()
			return &apperrors.CapacityError{
				Resource:  "zone",
				ID:        req.ZoneTicketID,
				Requested: req.Quantity,
				Available: zt.TotalTicketCount - claimed,
			}
		}

		return s.bookingRepo.CreateZoneBookingTx(ctx, tx, booking)
	})
	if err != nil {
		return nil, err
	}

	metrics.ReservationsActive.WithLabelValues("zone").Inc()

	// The marker is cleanup metadata, not the capacity mechanism; losing it
	// only means the TTL-free DB row waits for the sweeper.
	if err := s.locks.HoldZone(ctx, req.ZoneTicketID, userID, req.Quantity); err != nil {
		logger.WithContext(ctx).Error("Zone hold marker failed",
			"error", err, "zone_ticket_id", req.ZoneTicketID)
	}

	s.publish(ctx, models.TopicZoneReserved, models.ZoneStateEvent{
		EventID:      req.EventID,
		ShowtimeID:   req.ShowtimeID,
		ZoneTicketID: req.ZoneTicketID,
		UserID:       userID,
		Quantity:     req.Quantity,
		Timestamp:    time.Now(),
	})

	return &models.ZoneReservationResponse{
		BookingID: booking.ID,
		Quantity:  booking.Quantity,
		ExpiresIn: int64(time.Until(expiresAt).Seconds()),
	}, nil
}

// ReleaseZoneQuantity gives a reserved zone claim back to the pool.
func (s *ReservationService) ReleaseZoneQuantity(ctx context.Context, userID string, bookingID string) error {
	booking, err := s.bookingRepo.GetZoneBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to load zone booking: %w", err)
	}
	if booking == nil {
		return fmt.Errorf("zone booking %s: %w", bookingID, apperrors.ErrNotFound)
	}
	if booking.UserID != userID {
		return apperrors.ErrForbidden
	}
	if booking.Status != models.BookingReserved {
		return fmt.Errorf("zone booking %s is %s: %w", bookingID, booking.Status, apperrors.ErrHoldExpired)
	}

	deleted, err := s.bookingRepo.DeleteZoneBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to delete zone booking: %w", err)
	}
	if !deleted {
		// A concurrent order promoted the booking after our status read.
		return fmt.Errorf("zone booking %s is no longer reserved: %w", bookingID, apperrors.ErrHoldExpired)
	}
	metrics.ReservationsActive.WithLabelValues("zone").Dec()

	if err := s.locks.ReleaseZone(ctx, booking.ZoneTicketID, userID); err != nil {
		logger.WithContext(ctx).Error("Zone marker release failed",
			"error", err, "zone_ticket_id", booking.ZoneTicketID)
	}

	s.publish(ctx, models.TopicZoneReleased, models.ZoneStateEvent{
		EventID:      booking.EventID,
		ShowtimeID:   booking.ShowtimeID,
		ZoneTicketID: booking.ZoneTicketID,
		UserID:       userID,
		Quantity:     booking.Quantity,
		Timestamp:    time.Now(),
	})

	return nil
}

func (s *ReservationService) publish(ctx context.Context, topic string, payload interface{}) {
	if err := s.publisher.Publish(topic, payload); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err, "topic", topic)
	}
}

func reservationResponse(bookingID string, seats []models.BookedSeat, expiresAt time.Time) *models.ReservationResponse {
	refs := make([]models.SeatRef, len(seats))
	for i, seat := range seats {
		refs[i] = models.SeatRef{ZoneID: seat.ZoneID, SeatID: seat.SeatID}
	}
	return &models.ReservationResponse{
		BookingID: bookingID,
		Status:    models.BookingReserved,
		Seats:     refs,
		ExpiresIn: int64(time.Until(expiresAt).Seconds()),
	}
}
