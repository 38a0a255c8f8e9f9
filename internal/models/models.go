package models

// SeatRef identifies one seat within a zone.
type SeatRef struct {
	ZoneID string `json:"zone_id" binding:"required"`
	SeatID string `json:"seat_id" binding:"required"`
}

// SelectSeatRequest - PATCH /api/reservations/seats/select
type SelectSeatRequest struct {
	EventID    int64   `json:"event_id" binding:"required"`
	ShowtimeID int64   `json:"showtime_id" binding:"required"`
	Seat       SeatRef `json:"seat" binding:"required"`
}

// DeselectSeatRequest - PATCH /api/reservations/seats/deselect
type DeselectSeatRequest struct {
	EventID    int64   `json:"event_id" binding:"required"`
	ShowtimeID int64   `json:"showtime_id" binding:"required"`
	Seat       SeatRef `json:"seat" binding:"required"`
}

// ReservationResponse describes the buyer's current hold after a
// select/deselect call.
type ReservationResponse struct {
	BookingID string    `json:"booking_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Seats     []SeatRef `json:"seats"`
	ExpiresIn int64     `json:"expires_in"` // seconds
}

// ReserveZoneRequest - PATCH /api/reservations/zones/reserve
type ReserveZoneRequest struct {
	EventID      int64  `json:"event_id" binding:"required"`
	ShowtimeID   int64  `json:"showtime_id" binding:"required"`
	ZoneTicketID string `json:"zone_ticket_id" binding:"required"`
	Quantity     int64  `json:"quantity" binding:"required"`
}

// ReleaseZoneRequest - PATCH /api/reservations/zones/release
type ReleaseZoneRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

// ZoneReservationResponse describes a zone-quantity hold.
type ZoneReservationResponse struct {
	BookingID string `json:"booking_id"`
	Quantity  int64  `json:"quantity"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}

// CreateOrderRequest - POST /api/orders
type CreateOrderRequest struct {
	EventID       int64    `json:"event_id" binding:"required"`
	ShowtimeID    int64    `json:"showtime_id" binding:"required"`
	BookingType   string   `json:"booking_type" binding:"required"`
	BookingIDs    []string `json:"booking_ids"`
	Amount        int64    `json:"amount"`
	TotalPrice    int64    `json:"total_price"`
	GiftRecipient *string  `json:"gift_recipient"`
	GiftMessage   *string  `json:"gift_message"`
}

// CreateOrderResponse - response for order creation
type CreateOrderResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	TotalPrice int64  `json:"total_price"`
	Units      int64  `json:"units"`
}

// CancelOrderRequest - PATCH /api/orders/cancel
type CancelOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// IssueTicketsRequest - POST /api/tickets/issue
// PaymentID is an opaque reference to an already-confirmed external payment.
type IssueTicketsRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
}

// IssueTicketsResponse - response for ticket issuance
type IssueTicketsResponse struct {
	OrderID string       `json:"order_id"`
	Status  string       `json:"status"`
	Tickets []TicketItem `json:"tickets"`
}

// TicketItem is the client-facing shape of an issued ticket.
type TicketItem struct {
	TicketID     string  `json:"ticket_id"`
	TicketNumber int64   `json:"ticket_number"`
	OwnerID      string  `json:"owner_id"`
	ZoneID       *string `json:"zone_id,omitempty"`
	SeatID       *string `json:"seat_id,omitempty"`
	SeatLabel    *string `json:"seat_label,omitempty"`
	Price        int64   `json:"price"`
	QRPayload    string  `json:"qr_payload"`
}

// RedeemTicketRequest - PATCH /api/tickets/redeem
type RedeemTicketRequest struct {
	TicketID string `json:"ticket_id" binding:"required"`
}

// CreateEventRequest - POST /api/events
type CreateEventRequest struct {
	Name     string `json:"name" binding:"required"`
	TypeBase string `json:"type_base" binding:"required"`
	EndsAt   string `json:"ends_at"`
}

// CreateShowtimeRequest - POST /api/events/:id/showtimes
type CreateShowtimeRequest struct {
	StartsAt       string `json:"starts_at" binding:"required"` // RFC3339
	TicketQuantity int64  `json:"ticket_quantity" binding:"required"`
}

// SeatSpec describes one seat in a zone being created.
type SeatSpec struct {
	SeatID string `json:"seat_id" binding:"required"`
	Label  string `json:"label"`
	Area   string `json:"area"`
	Price  int64  `json:"price"`
}

// CreateZoneRequest - POST /api/events/:id/zones
type CreateZoneRequest struct {
	Name  string     `json:"name" binding:"required"`
	Seats []SeatSpec `json:"seats" binding:"required"`
}

// CreateZoneTicketRequest - POST /api/events/:id/zone-tickets
type CreateZoneTicketRequest struct {
	ShowtimeID       int64  `json:"showtime_id" binding:"required"`
	Name             string `json:"name" binding:"required"`
	TotalTicketCount int64  `json:"total_ticket_count" binding:"required"`
	Price            int64  `json:"price"`
}

// SetApprovalRequest - PATCH /api/events/:id/approval
type SetApprovalRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateEventResponse - response for event creation
type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// ListEventsResponseItem - one row of the public event listing
type ListEventsResponseItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	TypeBase string `json:"type_base"`
}

// SeatMapItem - one seat in the availability read model
type SeatMapItem struct {
	ZoneID string `json:"zone_id"`
	SeatID string `json:"seat_id"`
	Label  string `json:"label"`
	Area   string `json:"area"`
	Price  int64  `json:"price"`
	Status string `json:"status"` // free, held, sold
}
