package models

import (
	"time"
)

// Event ticketing base types. TypeBase is fixed once the first showtime or
// zone is created and decides which reservation strategy applies.
const (
	TypeBaseNone = "none"
	TypeBaseSeat = "seat"
	TypeBaseZone = "zone"
)

// Event approval lifecycle. Only approved events are visible to buyers;
// approval is orthogonal to reservation logic.
const (
	ApprovalPending   = "pending"
	ApprovalApproved  = "approved"
	ApprovalRejected  = "rejected"
	ApprovalPostponed = "postponed"
)

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingReserved  = "reserved"
	BookingBooked    = "booked"
	BookingCancelled = "cancelled"
	BookingExpired   = "expired"
)

// Order statuses.
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderFailed    = "failed"
	OrderCancelled = "cancelled"
)

// Ticket statuses.
const (
	TicketIssued    = "issued"
	TicketUsed      = "used"
	TicketCancelled = "cancelled"
)

var bookingTransitions = map[string][]string{
	BookingPending:  {BookingReserved, BookingCancelled, BookingExpired},
	BookingReserved: {BookingBooked, BookingCancelled, BookingExpired},
	BookingBooked:   {BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to
// another. Cancelled and expired are terminal: a new reservation must be
// created to get back to an active state.
func CanTransition(from, to string) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Event represents an event in the system
type Event struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	TypeBase       string    `json:"type_base" db:"type_base"`
	ApprovalStatus string    `json:"approval_status" db:"approval_status"`
	EndsAt         time.Time `json:"ends_at" db:"ends_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Showtime belongs to one event. TicketQuantity is the hard capacity;
// SoldTickets only ever grows and never exceeds it.
type Showtime struct {
	ID             int64     `json:"id" db:"id"`
	EventID        int64     `json:"event_id" db:"event_id"`
	StartsAt       time.Time `json:"starts_at" db:"starts_at"`
	TicketQuantity int64     `json:"ticket_quantity" db:"ticket_quantity"`
	SoldTickets    int64     `json:"sold_tickets" db:"sold_tickets"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Zone is a seat layout belonging to an event.
type Zone struct {
	ID      string `json:"id" db:"id"`
	EventID int64  `json:"event_id" db:"event_id"`
	Name    string `json:"name" db:"name"`
	Seats   []Seat `json:"seats,omitempty"` // Not from DB, filled separately
}

// Seat is one labeled seat inside a zone. SeatID is stable for the life of
// the zone; label and price may be edited, seats are never removed so that
// existing bookings are never orphaned.
type Seat struct {
	ZoneID string `json:"zone_id" db:"zone_id"`
	SeatID string `json:"seat_id" db:"seat_id"`
	Label  string `json:"label" db:"label"`
	Area   string `json:"area" db:"area"`
	Price  int64  `json:"price" db:"price"`
}

// ZoneTicket is a capacity-limited ticket type sold from an undifferentiated
// pool (type_base = zone).
type ZoneTicket struct {
	ID               string `json:"id" db:"id"`
	ShowtimeID       int64  `json:"showtime_id" db:"showtime_id"`
	Name             string `json:"name" db:"name"`
	TotalTicketCount int64  `json:"total_ticket_count" db:"total_ticket_count"`
	Price            int64  `json:"price" db:"price"`
}

// SeatBooking is one buyer's claim on a set of seats for one
// (event, showtime) pair.
type SeatBooking struct {
	ID         string       `json:"id" db:"id"`
	UserID     string       `json:"user_id" db:"user_id"`
	EventID    int64        `json:"event_id" db:"event_id"`
	ShowtimeID int64        `json:"showtime_id" db:"showtime_id"`
	Status     string       `json:"status" db:"status"`
	ExpiresAt  time.Time    `json:"expires_at" db:"expires_at"`
	OrderID    *string      `json:"order_id" db:"order_id"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
	Seats      []BookedSeat `json:"seats,omitempty"` // Not from DB, filled separately
}

// BookedSeat is one seat held by a seat booking.
type BookedSeat struct {
	BookingID string `json:"-" db:"booking_id"`
	ZoneID    string `json:"zone_id" db:"zone_id"`
	SeatID    string `json:"seat_id" db:"seat_id"`
	Price     int64  `json:"price" db:"price"`
}

// ZoneBooking holds a quantity against a zone ticket's pool rather than
// specific seat identities.
type ZoneBooking struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	EventID      int64     `json:"event_id" db:"event_id"`
	ShowtimeID   int64     `json:"showtime_id" db:"showtime_id"`
	ZoneTicketID string    `json:"zone_ticket_id" db:"zone_ticket_id"`
	Quantity     int64     `json:"quantity" db:"quantity"`
	Status       string    `json:"status" db:"status"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	OrderID      *string   `json:"order_id" db:"order_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Order is one buyer's checkout covering one or more bookings, or a raw
// amount when the event has no assigned inventory (type_base = none).
type Order struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	EventID       int64     `json:"event_id" db:"event_id"`
	ShowtimeID    int64     `json:"showtime_id" db:"showtime_id"`
	BookingType   string    `json:"booking_type" db:"booking_type"`
	Amount        int64     `json:"amount" db:"amount"`
	TotalPrice    int64     `json:"total_price" db:"total_price"`
	Status        string    `json:"status" db:"status"`
	GiftRecipient *string   `json:"gift_recipient" db:"gift_recipient"`
	GiftMessage   *string   `json:"gift_message" db:"gift_message"`
	PaymentID     *string   `json:"payment_id" db:"payment_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Owner returns the identity tickets for this order belong to: the gift
// recipient when set, otherwise the buyer.
func (o *Order) Owner() string {
	if o.GiftRecipient != nil && *o.GiftRecipient != "" {
		return *o.GiftRecipient
	}
	return o.UserID
}

// Ticket is immutable once issued; one row per purchased unit. TicketNumber
// comes from a database sequence and is never reused.
type Ticket struct {
	ID           string    `json:"id" db:"id"`
	TicketNumber int64     `json:"ticket_number" db:"ticket_number"`
	TicketID     string    `json:"ticket_id" db:"ticket_id"`
	OrderID      string    `json:"order_id" db:"order_id"`
	EventID      int64     `json:"event_id" db:"event_id"`
	ShowtimeID   int64     `json:"showtime_id" db:"showtime_id"`
	OwnerID      string    `json:"owner_id" db:"owner_id"`
	ZoneID       *string   `json:"zone_id" db:"zone_id"`
	SeatID       *string   `json:"seat_id" db:"seat_id"`
	SeatLabel    *string   `json:"seat_label" db:"seat_label"`
	ZoneTicketID *string   `json:"zone_ticket_id" db:"zone_ticket_id"`
	Price        int64     `json:"price" db:"price"`
	QRPayload    string    `json:"qr_payload" db:"qr_payload"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
