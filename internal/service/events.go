package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tixgate/internal/cache"
	apperrors "tixgate/internal/errors"
	"tixgate/internal/logger"
	"tixgate/internal/models"
	"tixgate/internal/repository"
)

// EventService covers the organizer-facing catalog: events, showtimes,
// zones and zone tickets, plus the public seat-map read model.
type EventService struct {
	eventRepo   *repository.EventRepository
	zoneRepo    *repository.ZoneRepository
	bookingRepo *repository.BookingRepository
	seatMaps    *cache.SeatMapCache
}

func NewEventService(eventRepo *repository.EventRepository, zoneRepo *repository.ZoneRepository, bookingRepo *repository.BookingRepository, seatMaps *cache.SeatMapCache) *EventService {
	return &EventService{
		eventRepo:   eventRepo,
		zoneRepo:    zoneRepo,
		bookingRepo: bookingRepo,
		seatMaps:    seatMaps,
	}
}

func (s *EventService) CreateEvent(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	switch req.TypeBase {
	case models.TypeBaseNone, models.TypeBaseSeat, models.TypeBaseZone:
	default:
		return nil, fmt.Errorf("invalid type_base %q", req.TypeBase)
	}

	event := &models.Event{
		Name:           req.Name,
		TypeBase:       req.TypeBase,
		ApprovalStatus: models.ApprovalPending,
	}
	if req.EndsAt != "" {
		endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			return nil, fmt.Errorf("invalid ends_at: %w", err)
		}
		event.EndsAt = endsAt
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", id, apperrors.ErrNotFound)
	}
	return event, nil
}

func (s *EventService) ListApproved(ctx context.Context, page, pageSize int) ([]models.ListEventsResponseItem, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	events, err := s.eventRepo.ListApproved(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]models.ListEventsResponseItem, len(events))
	for i, event := range events {
		items[i] = models.ListEventsResponseItem{
			ID:       event.ID,
			Name:     event.Name,
			TypeBase: event.TypeBase,
		}
	}
	return items, nil
}

func (s *EventService) SetApprovalStatus(ctx context.Context, id int64, status string) error {
	switch status {
	case models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected, models.ApprovalPostponed:
	default:
		return fmt.Errorf("invalid approval status %q", status)
	}

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("event %d: %w", id, apperrors.ErrNotFound)
	}
	return s.eventRepo.SetApprovalStatus(ctx, id, status)
}

func (s *EventService) CreateShowtime(ctx context.Context, eventID int64, startsAt time.Time, ticketQuantity int64) (*models.Showtime, error) {
	if ticketQuantity <= 0 {
		return nil, fmt.Errorf("ticket_quantity must be positive")
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", eventID, apperrors.ErrNotFound)
	}

	showtime := &models.Showtime{
		EventID:        eventID,
		StartsAt:       startsAt,
		TicketQuantity: ticketQuantity,
	}
	if err := s.eventRepo.CreateShowtime(ctx, showtime); err != nil {
		return nil, fmt.Errorf("failed to create showtime: %w", err)
	}
	return showtime, nil
}

// CreateZone adds a zone with its seat layout to a seat-based event.
func (s *EventService) CreateZone(ctx context.Context, zone *models.Zone) error {
	event, err := s.eventRepo.GetByID(ctx, zone.EventID)
	if err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("event %d: %w", zone.EventID, apperrors.ErrNotFound)
	}
	if event.TypeBase != models.TypeBaseSeat {
		return fmt.Errorf("event %d does not sell seat inventory", zone.EventID)
	}

	seen := make(map[string]bool, len(zone.Seats))
	for _, seat := range zone.Seats {
		if seat.SeatID == "" {
			return fmt.Errorf("seat_id must not be empty")
		}
		if seen[seat.SeatID] {
			return fmt.Errorf("duplicate seat_id %q", seat.SeatID)
		}
		seen[seat.SeatID] = true
	}

	return s.zoneRepo.CreateZone(ctx, zone)
}

// CreateZoneTicket adds a capacity pool to a showtime of a zone-based event.
func (s *EventService) CreateZoneTicket(ctx context.Context, eventID int64, zt *models.ZoneTicket) error {
	if zt.TotalTicketCount <= 0 {
		return fmt.Errorf("total_ticket_count must be positive")
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("event %d: %w", eventID, apperrors.ErrNotFound)
	}
	if event.TypeBase != models.TypeBaseZone {
		return fmt.Errorf("event %d does not sell zone inventory", eventID)
	}

	showtime, err := s.eventRepo.GetShowtime(ctx, zt.ShowtimeID)
	if err != nil {
		return err
	}
	if showtime == nil || showtime.EventID != eventID {
		return fmt.Errorf("showtime %d: %w", zt.ShowtimeID, apperrors.ErrNotFound)
	}

	return s.zoneRepo.CreateZoneTicket(ctx, zt)
}

// SeatMap builds the availability read model for a showtime: every seat of
// the event with its current free/held/sold status. Served from a short-TTL
// cache when possible; the cache never feeds capacity decisions.
func (s *EventService) SeatMap(ctx context.Context, eventID, showtimeID int64) ([]byte, error) {
	if cached, err := s.seatMaps.GetRaw(ctx, eventID, showtimeID); err == nil {
		return cached, nil
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", eventID, apperrors.ErrNotFound)
	}
	if event.TypeBase != models.TypeBaseSeat {
		return nil, fmt.Errorf("event %d has no seat map", eventID)
	}

	showtime, err := s.eventRepo.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	if showtime == nil || showtime.EventID != eventID {
		return nil, fmt.Errorf("showtime %d: %w", showtimeID, apperrors.ErrNotFound)
	}

	seats, err := s.zoneRepo.ListEventSeats(ctx, eventID)
	if err != nil {
		return nil, err
	}
	held, err := s.bookingRepo.HeldSeats(ctx, showtimeID, time.Now())
	if err != nil {
		return nil, err
	}

	items := make([]models.SeatMapItem, len(seats))
	for i, seat := range seats {
		status := "free"
		switch held[seat.ZoneID+"/"+seat.SeatID] {
		case models.BookingBooked:
			status = "sold"
		case models.BookingReserved:
			status = "held"
		}
		items[i] = models.SeatMapItem{
			ZoneID: seat.ZoneID,
			SeatID: seat.SeatID,
			Label:  seat.Label,
			Area:   seat.Area,
			Price:  seat.Price,
			Status: status,
		}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	if err := s.seatMaps.Set(ctx, eventID, showtimeID, json.RawMessage(data)); err != nil {
		logger.WithContext(ctx).Warn("Seat map cache write failed",
			"error", err, "event_id", eventID, "showtime_id", showtimeID)
	}

	return data, nil
}
