package service

import (
	"tixgate/internal/cache"
	"tixgate/internal/database"
	"tixgate/internal/locks"
	"tixgate/internal/messaging"
	"tixgate/internal/repository"
)

type Services struct {
	Events       *EventService
	Reservations *ReservationService
	Orders       *OrderService
	Tickets      *TicketService
}

// NewServices wires the service layer. The reservation window is the lock
// store's TTL; the order payment window belongs to the sweeper.
func NewServices(db *database.DB, repos *repository.Repositories, lockStore *locks.Store, seatMaps *cache.SeatMapCache, publisher messaging.Publisher) *Services {
	eventService := NewEventService(repos.Events, repos.Zones, repos.Bookings, seatMaps)
	reservationService := NewReservationService(db, repos.Events, repos.Zones, repos.Bookings, lockStore, publisher)
	orderService := NewOrderService(db, repos.Events, repos.Zones, repos.Bookings, repos.Orders, repos.Tickets, lockStore, seatMaps, publisher)
	ticketService := NewTicketService(db, repos.Events, repos.Zones, repos.Bookings, repos.Orders, repos.Tickets, lockStore, seatMaps, publisher)

	return &Services{
		Events:       eventService,
		Reservations: reservationService,
		Orders:       orderService,
		Tickets:      ticketService,
	}
}
