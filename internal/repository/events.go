package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"tixgate/internal/database"
	apperrors "tixgate/internal/errors"
	"tixgate/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (name, type_base, approval_status, ends_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		event.Name,
		event.TypeBase,
		event.ApprovalStatus,
		event.EndsAt,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, name, type_base, approval_status, ends_at, created_at, updated_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.TypeBase,
		&event.ApprovalStatus,
		&event.EndsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

// ListApproved returns approved events only; pending/rejected/postponed
// events are hidden from buyers.
func (r *EventRepository) ListApproved(ctx context.Context, page, pageSize int) ([]models.Event, error) {
	var events []models.Event
	query := `
		SELECT id, name, type_base, approval_status, ends_at, created_at, updated_at
		FROM events
		WHERE approval_status = 'approved'
		ORDER BY id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.TypeBase,
			&event.ApprovalStatus,
			&event.EndsAt,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *EventRepository) SetApprovalStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE events SET approval_status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

func (r *EventRepository) CreateShowtime(ctx context.Context, showtime *models.Showtime) error {
	query := `
		INSERT INTO showtimes (event_id, starts_at, ticket_quantity)
		VALUES ($1, $2, $3)
		RETURNING id, sold_tickets, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		showtime.EventID,
		showtime.StartsAt,
		showtime.TicketQuantity,
	).Scan(&showtime.ID, &showtime.SoldTickets, &showtime.CreatedAt, &showtime.UpdatedAt)
}

func (r *EventRepository) GetShowtime(ctx context.Context, id int64) (*models.Showtime, error) {
	return r.scanShowtime(r.db.QueryRowContext(ctx, showtimeQuery, id))
}

// GetShowtimeTx loads a showtime inside tx with its row locked, so the
// capacity check and the later increment see the same counters.
func (r *EventRepository) GetShowtimeTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Showtime, error) {
	return r.scanShowtime(tx.QueryRowContext(ctx, showtimeQuery+" FOR UPDATE", id))
}

const showtimeQuery = `
	SELECT id, event_id, starts_at, ticket_quantity, sold_tickets, created_at, updated_at
	FROM showtimes
	WHERE id = $1`

func (r *EventRepository) scanShowtime(row *sql.Row) (*models.Showtime, error) {
	showtime := &models.Showtime{}
	err := row.Scan(
		&showtime.ID,
		&showtime.EventID,
		&showtime.StartsAt,
		&showtime.TicketQuantity,
		&showtime.SoldTickets,
		&showtime.CreatedAt,
		&showtime.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return showtime, err
}

// IncrementSoldTicketsTx adds n to the showtime's sold counter, guarded so
// it can never exceed ticket_quantity. Zero affected rows means the guard
// failed: the caller must abort its whole transaction. This is the
// authoritative oversell check; every earlier check is advisory.
func (r *EventRepository) IncrementSoldTicketsTx(ctx context.Context, tx *sql.Tx, showtimeID, n int64) error {
	query := `
		UPDATE showtimes
		SET sold_tickets = sold_tickets + $1, updated_at = NOW()
		WHERE id = $2 AND sold_tickets + $1 <= ticket_quantity`

	res, err := tx.ExecContext(ctx, query, n, showtimeID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var sold, quantity int64
		checkQuery := `SELECT sold_tickets, ticket_quantity FROM showtimes WHERE id = $1`
		if err := tx.QueryRowContext(ctx, checkQuery, showtimeID).Scan(&sold, &quantity); err != nil {
			return err
		}
		return &apperrors.CapacityError{
			Resource:  "showtime",
			ID:        strconv.FormatInt(showtimeID, 10),
			Requested: n,
			Available: quantity - sold,
		}
	}
	return nil
}

// ShowtimeAvailability reports capacity remaining after sold tickets and
// live (unexpired) holds, used for the advisory reservation-time check.
func (r *EventRepository) ShowtimeAvailability(ctx context.Context, showtimeID int64, now time.Time) (int64, error) {
	query := `
		SELECT st.ticket_quantity - st.sold_tickets
			- COALESCE((
				SELECT COUNT(*)
				FROM seat_bookings sb
				JOIN seat_booking_seats sbs ON sbs.booking_id = sb.id
				WHERE sb.showtime_id = st.id
				  AND (sb.status = 'booked' OR (sb.status = 'reserved' AND sb.expires_at > $2))
			), 0)
			- COALESCE((
				SELECT SUM(zb.quantity)
				FROM zone_bookings zb
				WHERE zb.showtime_id = st.id
				  AND (zb.status = 'booked' OR (zb.status = 'reserved' AND zb.expires_at > $2))
			), 0)
		FROM showtimes st
		WHERE st.id = $1`

	var available int64
	err := r.db.QueryRowContext(ctx, query, showtimeID, now).Scan(&available)
	if err == sql.ErrNoRows {
		return 0, apperrors.ErrNotFound
	}
	return available, err
}
