package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

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

// TicketService turns a paid-for pending order into issued tickets in a
// single transaction, and redeems tickets at the door.
type TicketService struct {
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

func NewTicketService(db *database.DB, eventRepo *repository.EventRepository, zoneRepo *repository.ZoneRepository, bookingRepo *repository.BookingRepository, orderRepo *repository.OrderRepository, ticketRepo *repository.TicketRepository, lockStore *locks.Store, seatMaps *cache.SeatMapCache, publisher messaging.Publisher) *TicketService {
	return &TicketService{
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

// TicketCode renders a sequence number as the printable ticket code.
func TicketCode(number int64) string {
	return fmt.Sprintf("TKT-%08d", number)
}

// QRPayload is what gets encoded into the ticket's QR code. It carries both
// identifiers so the gate scanner can verify one against the other.
func QRPayload(ticketID string, number int64) string {
	return fmt.Sprintf("tixgate://ticket/%s?code=%s", ticketID, TicketCode(number))
}

// Issue converts a pending order into tickets after payment confirmation.
// Everything happens in one transaction: bookings are verified still booked,
// one ticket row per unit is written, the showtime's sold counter moves
// under its oversell guard, and the order flips to paid. Any failure rolls
// the whole thing back; burned sequence numbers are the only trace.
func (s *TicketService) Issue(ctx context.Context, userID string, req *models.IssueTicketsRequest) (*models.IssueTicketsResponse, error) {
	start := time.Now()

	var (
		order        *models.Order
		tickets      []models.Ticket
		seatBookings []models.SeatBooking
		zoneBookings []models.ZoneBooking
	)

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = s.orderRepo.GetForUpdateTx(ctx, tx, req.OrderID)
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if order == nil {
			return fmt.Errorf("order %s: %w", req.OrderID, apperrors.ErrNotFound)
		}
		if order.UserID != userID {
			return apperrors.ErrForbidden
		}
		if order.Status != models.OrderPending {
			return fmt.Errorf("order %s is %s, only pending orders can be issued", req.OrderID, order.Status)
		}

		event, err := s.eventRepo.GetByID(ctx, order.EventID)
		if err != nil {
			return fmt.Errorf("failed to get event: %w", err)
		}
		if event == nil {
			return fmt.Errorf("event %d: %w", order.EventID, apperrors.ErrNotFound)
		}
		if !event.EndsAt.IsZero() && event.EndsAt.Before(start) {
			return fmt.Errorf("event %d has ended", order.EventID)
		}

		showtime, err := s.eventRepo.GetShowtimeTx(ctx, tx, order.ShowtimeID)
		if err != nil {
			return fmt.Errorf("failed to get showtime: %w", err)
		}
		if showtime == nil {
			return fmt.Errorf("showtime %d: %w", order.ShowtimeID, apperrors.ErrNotFound)
		}

		units, err := s.buildTickets(ctx, tx, order, &tickets, &seatBookings, &zoneBookings)
		if err != nil {
			return err
		}
		if units == 0 {
			return fmt.Errorf("order %s covers no units", order.ID)
		}

		for i := range tickets {
			number, err := s.ticketRepo.NextTicketNumberTx(ctx, tx)
			if err != nil {
				return fmt.Errorf("failed to allocate ticket number: %w", err)
			}
			tickets[i].TicketNumber = number
			tickets[i].TicketID = uuid.NewString()
			tickets[i].QRPayload = QRPayload(tickets[i].TicketID, number)

			if err := s.ticketRepo.InsertTx(ctx, tx, &tickets[i]); err != nil {
				return fmt.Errorf("failed to insert ticket: %w", err)
			}
		}

		if err := s.eventRepo.IncrementSoldTicketsTx(ctx, tx, order.ShowtimeID, units); err != nil {
			return err
		}

		return s.orderRepo.SetPaidTx(ctx, tx, order.ID, req.PaymentID)
	})
	if err != nil {
		reason := "error"
		if apperrors.IsCapacity(err) {
			reason = "capacity"
		}
		metrics.IssuanceFailures.WithLabelValues(reason).Inc()
		return nil, err
	}

	metrics.IssuanceDuration.Observe(time.Since(start).Seconds())
	metrics.TicketsIssued.WithLabelValues(order.BookingType).Add(float64(len(tickets)))

	// Post-commit cleanup. All best-effort: the tickets exist either way.
	for _, booking := range seatBookings {
		for _, seat := range booking.Seats {
			if err := s.locks.ReleaseSeat(ctx, booking.EventID, booking.ShowtimeID, seat.ZoneID, seat.SeatID, booking.UserID); err != nil {
				logger.WithContext(ctx).Error("Seat lock release failed after issuance",
					"error", err, "order_id", order.ID, "seat_id", seat.SeatID)
			}
		}
	}
	for _, booking := range zoneBookings {
		if err := s.locks.ReleaseZone(ctx, booking.ZoneTicketID, booking.UserID); err != nil {
			logger.WithContext(ctx).Error("Zone marker release failed after issuance",
				"error", err, "order_id", order.ID, "zone_ticket_id", booking.ZoneTicketID)
		}
	}
	if err := s.seatMaps.Invalidate(ctx, order.EventID, order.ShowtimeID); err != nil {
		logger.WithContext(ctx).Error("Seat map invalidation failed after issuance",
			"error", err, "order_id", order.ID)
	}

	s.publish(ctx, models.TopicTicketsIssued, models.TicketsIssuedEvent{
		OrderID:    order.ID,
		EventID:    order.EventID,
		ShowtimeID: order.ShowtimeID,
		OwnerID:    order.Owner(),
		Count:      int64(len(tickets)),
		Timestamp:  time.Now(),
	})

	items := make([]models.TicketItem, len(tickets))
	for i, t := range tickets {
		items[i] = models.TicketItem{
			TicketID:     t.TicketID,
			TicketNumber: t.TicketNumber,
			OwnerID:      t.OwnerID,
			ZoneID:       t.ZoneID,
			SeatID:       t.SeatID,
			SeatLabel:    t.SeatLabel,
			Price:        t.Price,
			QRPayload:    t.QRPayload,
		}
	}

	return &models.IssueTicketsResponse{
		OrderID: order.ID,
		Status:  models.OrderPaid,
		Tickets: items,
	}, nil
}

// buildTickets stages one ticket per unit according to the order's booking
// type, without numbers or ids yet. It re-verifies the bookings under lock.
func (s *TicketService) buildTickets(ctx context.Context, tx *sql.Tx, order *models.Order, tickets *[]models.Ticket, seatBookings *[]models.SeatBooking, zoneBookings *[]models.ZoneBooking) (int64, error) {
	owner := order.Owner()
	base := models.Ticket{
		OrderID:    order.ID,
		EventID:    order.EventID,
		ShowtimeID: order.ShowtimeID,
		OwnerID:    owner,
		Status:     models.TicketIssued,
	}

	var units int64

	switch order.BookingType {
	case models.TypeBaseNone:
		if order.Amount <= 0 {
			return 0, fmt.Errorf("order %s has no amount", order.ID)
		}
		units = order.Amount
		unitPrice := order.TotalPrice / order.Amount
		for i := int64(0); i < units; i++ {
			t := base
			t.Price = unitPrice
			*tickets = append(*tickets, t)
		}

	case models.TypeBaseSeat:
		bookings, err := s.bookingRepo.SeatBookingsByOrderTx(ctx, tx, order.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to load seat bookings: %w", err)
		}
		for _, booking := range bookings {
			if booking.Status != models.BookingBooked {
				return 0, fmt.Errorf("booking %s is %s, expected booked", booking.ID, booking.Status)
			}
			for _, seat := range booking.Seats {
				layout, err := s.zoneRepo.GetSeat(ctx, seat.ZoneID, seat.SeatID)
				if err != nil {
					return 0, fmt.Errorf("failed to load seat %s/%s: %w", seat.ZoneID, seat.SeatID, err)
				}

				t := base
				zoneID, seatID := seat.ZoneID, seat.SeatID
				t.ZoneID = &zoneID
				t.SeatID = &seatID
				if layout != nil {
					label := layout.Label
					t.SeatLabel = &label
				}
				t.Price = seat.Price
				*tickets = append(*tickets, t)
				units++
			}
		}
		*seatBookings = bookings

	case models.TypeBaseZone:
		bookings, err := s.bookingRepo.ZoneBookingsByOrderTx(ctx, tx, order.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to load zone bookings: %w", err)
		}
		for _, booking := range bookings {
			if booking.Status != models.BookingBooked {
				return 0, fmt.Errorf("booking %s is %s, expected booked", booking.ID, booking.Status)
			}

			zt, err := s.zoneRepo.GetZoneTicketTx(ctx, tx, booking.ZoneTicketID)
			if err != nil {
				return 0, fmt.Errorf("failed to load zone ticket: %w", err)
			}
			if zt == nil {
				return 0, fmt.Errorf("zone ticket %s: %w", booking.ZoneTicketID, apperrors.ErrNotFound)
			}

			// Re-verify the pool under lock. Booked quantity already counts
			// this booking, so the sum itself must fit.
			claimed, err := s.bookingRepo.ActiveZoneQuantityTx(ctx, tx, booking.ZoneTicketID, time.Now())
			if err != nil {
				return 0, fmt.Errorf("failed to sum zone claims: %w", err)
			}
			if claimed > zt.TotalTicketCount {
				return 0, &apperrors.CapacityError{
					Resource:  "zone_ticket",
					ID:        booking.ZoneTicketID,
					Requested: booking.Quantity,
					Available: zt.TotalTicketCount - (claimed - booking.Quantity),
				}
			}

			for i := int64(0); i < booking.Quantity; i++ {
				t := base
				ztID := booking.ZoneTicketID
				t.ZoneTicketID = &ztID
				t.Price = zt.Price
				*tickets = append(*tickets, t)
				units++
			}
		}
		*zoneBookings = bookings

	default:
		return 0, fmt.Errorf("invalid booking_type %q on order %s", order.BookingType, order.ID)
	}

	return units, nil
}

// Redeem marks a ticket used at the gate. Only the ticket owner may redeem.
func (s *TicketService) Redeem(ctx context.Context, userID, ticketID string) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByTicketID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	if ticket == nil {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, apperrors.ErrNotFound)
	}
	if ticket.OwnerID != userID {
		return nil, apperrors.ErrForbidden
	}

	used, err := s.ticketRepo.MarkUsed(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem ticket: %w", err)
	}
	if !used {
		return nil, fmt.Errorf("ticket %s is %s and cannot be redeemed", ticketID, ticket.Status)
	}

	ticket.Status = models.TicketUsed
	return ticket, nil
}

func (s *TicketService) ListByOrder(ctx context.Context, userID, orderID string) ([]models.Ticket, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, apperrors.ErrNotFound)
	}
	if order.UserID != userID && order.Owner() != userID {
		return nil, apperrors.ErrForbidden
	}
	return s.ticketRepo.ListByOrder(ctx, orderID)
}

func (s *TicketService) publish(ctx context.Context, topic string, payload interface{}) {
	if err := s.publisher.Publish(topic, payload); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err, "topic", topic)
	}
}
