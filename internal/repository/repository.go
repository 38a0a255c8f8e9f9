package repository

import (
	"tixgate/internal/database"
)

type Repositories struct {
	Events   *EventRepository
	Zones    *ZoneRepository
	Bookings *BookingRepository
	Orders   *OrderRepository
	Tickets  *TicketRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:   NewEventRepository(db),
		Zones:    NewZoneRepository(db),
		Bookings: NewBookingRepository(db),
		Orders:   NewOrderRepository(db),
		Tickets:  NewTicketRepository(db),
	}
}
