package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tixgate/internal/cache"
	"tixgate/internal/database"
	apperrors "tixgate/internal/errors"
	"tixgate/internal/locks"
	"tixgate/internal/logger"
	"tixgate/internal/messaging"
	"tixgate/internal/metrics"
	"tixgate/internal/models"
	"tixgate/internal/repository"
)

// OrderService promotes reserved bookings into pending orders and owns the
// cancellation cascade shared with the sweeper.
type OrderService struct {
	db          *database.DB
	eventRepo   *repository.EventRepository
	zoneRepo    *repository.ZoneRepository
	bookingRepo *repository.BookingRepository
	orderRepo   *repository.OrderRepository
	ticketRepo  *repository.TicketRepository
	locks       *locks.Store
	seatMaps    *cache.SeatMapCache
	publisher   messaging.Publisher
}

func NewOrderService(db *database.DB, eventRepo *repository.EventRepository, zoneRepo *repository.ZoneRepository, bookingRepo *repository.BookingRepository, orderRepo *repository.OrderRepository, ticketRepo *repository.TicketRepository, lockStore *locks.Store, seatMaps *cache.SeatMapCache, publisher messaging.Publisher) *OrderService {
	return &OrderService{
		db:          db,
		eventRepo:   eventRepo,
		zoneRepo:    zoneRepo,
		bookingRepo: bookingRepo,
		orderRepo:   orderRepo,
		ticketRepo:  ticketRepo,
		locks:       lockStore,
		seatMaps:    seatMaps,
		publisher:   publisher,
	}
}

// validateCreateOrder checks the shape of the request: booking ids and the
// booking type must agree before anything touches the store.
func validateCreateOrder(req *models.CreateOrderRequest) error {
	switch req.BookingType {
	case models.TypeBaseNone:
		if len(req.BookingIDs) > 0 {
			return fmt.Errorf("booking_ids must be empty for booking_type none")
		}
		if req.Amount <= 0 {
			return fmt.Errorf("amount must be positive for booking_type none")
		}
		if req.TotalPrice <= 0 {
			return fmt.Errorf("total_price is required for booking_type none")
		}
	case models.TypeBaseSeat, models.TypeBaseZone:
		if len(req.BookingIDs) == 0 {
			return fmt.Errorf("booking_ids must not be empty for booking_type %s", req.BookingType)
		}
		if req.Amount != 0 {
			return fmt.Errorf("amount is not allowed for booking_type %s", req.BookingType)
		}
	default:
		return fmt.Errorf("invalid booking_type %q", req.BookingType)
	}
	return nil
}

// Create builds a pending order over the buyer's reserved bookings and
// flips them to booked, all in one transaction. Capacity is checked
// advisorily here; the durable counter moves only at issuance, so an order
// that is never paid does not consume showtime capacity for good.
func (s *OrderService) Create(ctx context.Context, userID string, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", req.EventID, apperrors.ErrNotFound)
	}
	if event.TypeBase != req.BookingType {
		return nil, fmt.Errorf("event %d sells %s inventory, not %s", req.EventID, event.TypeBase, req.BookingType)
	}

	now := time.Now()

	order := &models.Order{
		UserID:        userID,
		EventID:       req.EventID,
		ShowtimeID:    req.ShowtimeID,
		BookingType:   req.BookingType,
		Amount:        req.Amount,
		Status:        models.OrderPending,
		GiftRecipient: req.GiftRecipient,
		GiftMessage:   req.GiftMessage,
	}

	var units int64

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		showtime, err := s.eventRepo.GetShowtimeTx(ctx, tx, req.ShowtimeID)
		if err != nil {
			return fmt.Errorf("failed to get showtime: %w", err)
		}
		if showtime == nil || showtime.EventID != req.EventID {
			return fmt.Errorf("showtime %d: %w", req.ShowtimeID, apperrors.ErrNotFound)
		}

		var totalPrice int64

		switch req.BookingType {
		case models.TypeBaseNone:
			units = req.Amount
			totalPrice = req.TotalPrice

		case models.TypeBaseSeat:
			for _, id := range req.BookingIDs {
				booking, err := s.bookingRepo.GetSeatBookingTx(ctx, tx, id)
				if err != nil {
					return fmt.Errorf("failed to load booking %s: %w", id, err)
				}
				if booking == nil || !models.CanTransition(booking.Status, models.BookingBooked) || !booking.ExpiresAt.After(now) {
					return fmt.Errorf("booking %s: %w", id, apperrors.ErrHoldExpired)
				}
				if booking.UserID != userID {
					return apperrors.ErrForbidden
				}
				if booking.ShowtimeID != req.ShowtimeID {
					return fmt.Errorf("booking %s belongs to another showtime", id)
				}
				units += int64(len(booking.Seats))
				for _, seat := range booking.Seats {
					totalPrice += seat.Price
				}
			}

		case models.TypeBaseZone:
			for _, id := range req.BookingIDs {
				booking, err := s.bookingRepo.GetZoneBookingTx(ctx, tx, id)
				if err != nil {
					return fmt.Errorf("failed to load booking %s: %w", id, err)
				}
				if booking == nil || !models.CanTransition(booking.Status, models.BookingBooked) || !booking.ExpiresAt.After(now) {
					return fmt.Errorf("booking %s: %w", id, apperrors.ErrHoldExpired)
				}
				if booking.UserID != userID {
					return apperrors.ErrForbidden
				}
				if booking.ShowtimeID != req.ShowtimeID {
					return fmt.Errorf("booking %s belongs to another showtime", id)
				}
				units += booking.Quantity
				zt, err := s.zoneRepo.GetZoneTicketTx(ctx, tx, booking.ZoneTicketID)
				if err != nil {
					return fmt.Errorf("failed to price booking %s: %w", id, err)
				}
				if zt == nil {
					return fmt.Errorf("zone ticket %s: %w", booking.ZoneTicketID, apperrors.ErrNotFound)
				}
				totalPrice += zt.Price * booking.Quantity
			}
		}

		if units == 0 {
			return fmt.Errorf("order covers no units: %w", apperrors.ErrHoldExpired)
		}

		// Advisory: rejects obviously doomed orders early. Issuance repeats
		// this as a guarded increment, which is the one that counts.
		if showtime.SoldTickets+units > showtime.TicketQuantity {
			return &apperrors.CapacityError{
				Resource:  "showtime",
				ID:        fmt.Sprintf("%d", req.ShowtimeID),
				Requested: units,
				Available: showtime.TicketQuantity - showtime.SoldTickets,
			}
		}

		order.TotalPrice = totalPrice
		if err := s.orderRepo.CreateTx(ctx, tx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, id := range req.BookingIDs {
			switch req.BookingType {
			case models.TypeBaseSeat:
				if err := s.bookingRepo.SetSeatBookingStatusTx(ctx, tx, id, models.BookingBooked, &order.ID); err != nil {
					return fmt.Errorf("failed to book reservation %s: %w", id, err)
				}
			case models.TypeBaseZone:
				if err := s.bookingRepo.SetZoneBookingStatusTx(ctx, tx, id, models.BookingBooked, &order.ID); err != nil {
					return fmt.Errorf("failed to book reservation %s: %w", id, err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Promoted bookings no longer count as reservations.
	switch req.BookingType {
	case models.TypeBaseSeat:
		metrics.ReservationsActive.WithLabelValues("seat").Sub(float64(len(req.BookingIDs)))
	case models.TypeBaseZone:
		metrics.ReservationsActive.WithLabelValues("zone").Sub(float64(len(req.BookingIDs)))
	}

	s.publish(ctx, models.TopicOrderCreated, models.OrderEvent{
		OrderID:    order.ID,
		EventID:    order.EventID,
		ShowtimeID: order.ShowtimeID,
		UserID:     order.UserID,
		Status:     order.Status,
		Timestamp:  time.Now(),
	})

	return &models.CreateOrderResponse{
		ID:         order.ID,
		Status:     order.Status,
		TotalPrice: order.TotalPrice,
		Units:      units,
	}, nil
}

// Cancel reverses a pending order: the order and its bookings flip to
// cancelled, defensive ticket cleanup runs, locks are released and caches
// dropped. Safe to call twice; a paid order cannot be cancelled here.
func (s *OrderService) Cancel(ctx context.Context, orderID, reason string) error {
	var (
		order        *models.Order
		seatBookings []models.SeatBooking
		zoneBookings []models.ZoneBooking
	)

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = s.orderRepo.GetForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if order == nil {
			return fmt.Errorf("order %s: %w", orderID, apperrors.ErrNotFound)
		}
		if order.Status == models.OrderCancelled {
			return nil // already done, idempotent
		}
		if order.Status == models.OrderPaid {
			return fmt.Errorf("order %s is paid and cannot be cancelled", orderID)
		}

		if err := s.orderRepo.SetStatusTx(ctx, tx, orderID, models.OrderCancelled); err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		seatBookings, err = s.bookingRepo.SeatBookingsByOrderTx(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load seat bookings: %w", err)
		}
		for _, booking := range seatBookings {
			if !models.CanTransition(booking.Status, models.BookingCancelled) {
				continue
			}
			if err := s.bookingRepo.SetSeatBookingStatusTx(ctx, tx, booking.ID, models.BookingCancelled, nil); err != nil {
				return fmt.Errorf("failed to cancel booking %s: %w", booking.ID, err)
			}
		}

		zoneBookings, err = s.bookingRepo.ZoneBookingsByOrderTx(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load zone bookings: %w", err)
		}
		for _, booking := range zoneBookings {
			if !models.CanTransition(booking.Status, models.BookingCancelled) {
				continue
			}
			if err := s.bookingRepo.SetZoneBookingStatusTx(ctx, tx, booking.ID, models.BookingCancelled, nil); err != nil {
				return fmt.Errorf("failed to cancel booking %s: %w", booking.ID, err)
			}
		}

		// A pending order should have no tickets; clean up anyway.
		if _, err := s.ticketRepo.CancelByOrderTx(ctx, tx, orderID); err != nil {
			return fmt.Errorf("failed to cancel tickets: %w", err)
		}

		return nil
	})
	if err != nil || order == nil || order.Status == models.OrderCancelled {
		return err
	}

	// Post-commit cleanup, all best-effort: TTLs and the sweeper back this up.
	for _, booking := range seatBookings {
		for _, seat := range booking.Seats {
			if err := s.locks.ReleaseSeat(ctx, booking.EventID, booking.ShowtimeID, seat.ZoneID, seat.SeatID, booking.UserID); err != nil {
				logger.WithContext(ctx).Error("Seat lock release failed during order cancel",
					"error", err, "order_id", orderID, "seat_id", seat.SeatID)
			}
		}
	}
	for _, booking := range zoneBookings {
		if err := s.locks.ReleaseZone(ctx, booking.ZoneTicketID, booking.UserID); err != nil {
			logger.WithContext(ctx).Error("Zone marker release failed during order cancel",
				"error", err, "order_id", orderID, "zone_ticket_id", booking.ZoneTicketID)
		}
	}

	if err := s.seatMaps.Invalidate(ctx, order.EventID, order.ShowtimeID); err != nil {
		logger.WithContext(ctx).Error("Seat map invalidation failed",
			"error", err, "order_id", orderID)
	}

	s.publish(ctx, models.TopicOrderCancelled, models.OrderEvent{
		OrderID:    order.ID,
		EventID:    order.EventID,
		ShowtimeID: order.ShowtimeID,
		UserID:     order.UserID,
		Status:     models.OrderCancelled,
		Reason:     reason,
		Timestamp:  time.Now(),
	})

	return nil
}

// CancelOwned is the user-facing cancel: the caller must own the order.
func (s *OrderService) CancelOwned(ctx context.Context, userID, orderID string) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order %s: %w", orderID, apperrors.ErrNotFound)
	}
	if order.UserID != userID {
		return apperrors.ErrForbidden
	}
	return s.Cancel(ctx, orderID, "cancelled by buyer")
}

func (s *OrderService) List(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

func (s *OrderService) publish(ctx context.Context, topic string, payload interface{}) {
	if err := s.publisher.Publish(topic, payload); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err, "topic", topic)
	}
}
