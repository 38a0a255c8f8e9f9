package repository

import (
	"context"
	"database/sql"

	"tixgate/internal/database"
	"tixgate/internal/models"
)

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// NextTicketNumberTx pulls the next value from the global ticket sequence.
// Sequence values survive rollbacks, so numbers stay unique and monotonic
// across concurrent transactions; gaps are acceptable, reuse is not.
func (r *TicketRepository) NextTicketNumberTx(ctx context.Context, tx *sql.Tx) (int64, error) {
	var n int64
	err := tx.QueryRowContext(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&n)
	return n, err
}

func (r *TicketRepository) InsertTx(ctx context.Context, tx *sql.Tx, t *models.Ticket) error {
	query := `
		INSERT INTO tickets (ticket_number, ticket_id, order_id, event_id, showtime_id, owner_id,
			zone_id, seat_id, seat_label, zone_ticket_id, price, qr_payload, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	return tx.QueryRowContext(ctx, query,
		t.TicketNumber, t.TicketID, t.OrderID, t.EventID, t.ShowtimeID, t.OwnerID,
		t.ZoneID, t.SeatID, t.SeatLabel, t.ZoneTicketID, t.Price, t.QRPayload, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
}

const ticketColumns = `id, ticket_number, ticket_id, order_id, event_id, showtime_id, owner_id, zone_id, seat_id, seat_label, zone_ticket_id, price, qr_payload, status, created_at`

func scanTicket(row interface{ Scan(...any) error }) (*models.Ticket, error) {
	t := &models.Ticket{}
	err := row.Scan(
		&t.ID,
		&t.TicketNumber,
		&t.TicketID,
		&t.OrderID,
		&t.EventID,
		&t.ShowtimeID,
		&t.OwnerID,
		&t.ZoneID,
		&t.SeatID,
		&t.SeatLabel,
		&t.ZoneTicketID,
		&t.Price,
		&t.QRPayload,
		&t.Status,
		&t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TicketRepository) GetByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id = $1`
	return scanTicket(r.db.QueryRowContext(ctx, query, ticketID))
}

func (r *TicketRepository) ListByOrder(ctx context.Context, orderID string) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE order_id = $1 ORDER BY ticket_number`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}

	return tickets, rows.Err()
}

// CancelByOrderTx voids any tickets issued against an order. A pending
// order normally has none; this covers the defensive cascade path.
func (r *TicketRepository) CancelByOrderTx(ctx context.Context, tx *sql.Tx, orderID string) (int64, error) {
	query := `UPDATE tickets SET status = 'cancelled' WHERE order_id = $1 AND status <> 'cancelled'`
	res, err := tx.ExecContext(ctx, query, orderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkUsed redeems a ticket at the door. Only issued tickets can be used;
// zero affected rows means it was already used, cancelled, or unknown.
func (r *TicketRepository) MarkUsed(ctx context.Context, ticketID string) (bool, error) {
	query := `UPDATE tickets SET status = 'used' WHERE ticket_id = $1 AND status = 'issued'`
	res, err := r.db.ExecContext(ctx, query, ticketID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}
