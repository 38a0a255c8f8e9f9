package models

import "time"

// Fan-out topics. Publishing is fire-and-forget: a failed publish is logged
// and never fails the operation that produced it.
const (
	TopicSeatSelected   = "seat.selected"
	TopicSeatDeselected = "seat.deselected"
	TopicSeatReleased   = "seat.released"
	TopicZoneReserved   = "zone.reserved"
	TopicZoneReleased   = "zone.released"
	TopicOrderCreated   = "order.created"
	TopicOrderCancelled = "order.cancelled"
	TopicTicketsIssued  = "tickets.issued"
)

// SeatStateEvent reports a seat changing hands (selected, deselected or
// reclaimed by the sweeper). ExpiresAt is set for selections only.
type SeatStateEvent struct {
	EventID    int64      `json:"event_id"`
	ShowtimeID int64      `json:"showtime_id"`
	ZoneID     string     `json:"zone_id"`
	SeatID     string     `json:"seat_id"`
	UserID     string     `json:"user_id"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ZoneStateEvent reports quantity reserved against or released back to a
// zone ticket pool.
type ZoneStateEvent struct {
	EventID      int64     `json:"event_id"`
	ShowtimeID   int64     `json:"showtime_id"`
	ZoneTicketID string    `json:"zone_ticket_id"`
	UserID       string    `json:"user_id"`
	Quantity     int64     `json:"quantity"`
	Timestamp    time.Time `json:"timestamp"`
}

// OrderEvent reports order lifecycle changes.
type OrderEvent struct {
	OrderID    string    `json:"order_id"`
	EventID    int64     `json:"event_id"`
	ShowtimeID int64     `json:"showtime_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TicketsIssuedEvent reports successful issuance after commit.
type TicketsIssuedEvent struct {
	OrderID    string    `json:"order_id"`
	EventID    int64     `json:"event_id"`
	ShowtimeID int64     `json:"showtime_id"`
	OwnerID    string    `json:"owner_id"`
	Count      int64     `json:"count"`
	Timestamp  time.Time `json:"timestamp"`
}
