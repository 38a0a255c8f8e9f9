package repository

import (
	"context"
	"database/sql"
	"time"

	"tixgate/internal/database"
	"tixgate/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Active bookings are booked ones plus reserved ones whose hold has not
// lapsed. Expiry is applied at read time everywhere; the sweeper only
// cleans up afterwards.

// Seat bookings

const seatBookingColumns = `id, user_id, event_id, showtime_id, status, expires_at, order_id, created_at, updated_at`

func scanSeatBooking(row interface{ Scan(...any) error }) (*models.SeatBooking, error) {
	b := &models.SeatBooking{}
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.EventID,
		&b.ShowtimeID,
		&b.Status,
		&b.ExpiresAt,
		&b.OrderID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ActiveSeatHolder returns the booking currently holding a seat for a
// showtime, if any. This is the authoritative conflict check; the
// distributed lock is only a fast path in front of it.
func (r *BookingRepository) ActiveSeatHolder(ctx context.Context, showtimeID int64, zoneID, seatID string, now time.Time) (*models.SeatBooking, error) {
	query := `
		SELECT sb.id, sb.user_id, sb.event_id, sb.showtime_id, sb.status, sb.expires_at, sb.order_id, sb.created_at, sb.updated_at
		FROM seat_bookings sb
		JOIN seat_booking_seats sbs ON sbs.booking_id = sb.id
		WHERE sb.showtime_id = $1
		  AND sbs.zone_id = $2
		  AND sbs.seat_id = $3
		  AND (sb.status = 'booked' OR (sb.status = 'reserved' AND sb.expires_at > $4))
		LIMIT 1`

	return scanSeatBooking(r.db.QueryRowContext(ctx, query, showtimeID, zoneID, seatID, now))
}

// GetActiveReservation returns the buyer's live reserved booking for one
// (event, showtime) pair, with its seats loaded.
func (r *BookingRepository) GetActiveReservation(ctx context.Context, userID string, eventID, showtimeID int64, now time.Time) (*models.SeatBooking, error) {
	query := `
		SELECT ` + seatBookingColumns + `
		FROM seat_bookings
		WHERE user_id = $1 AND event_id = $2 AND showtime_id = $3
		  AND status = 'reserved' AND expires_at > $4
		ORDER BY created_at DESC
		LIMIT 1`

	booking, err := scanSeatBooking(r.db.QueryRowContext(ctx, query, userID, eventID, showtimeID, now))
	if err != nil || booking == nil {
		return booking, err
	}

	booking.Seats, err = r.GetSeats(ctx, booking.ID)
	return booking, err
}

func (r *BookingRepository) CreateSeatBooking(ctx context.Context, b *models.SeatBooking) error {
	query := `
		INSERT INTO seat_bookings (user_id, event_id, showtime_id, status, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		b.UserID, b.EventID, b.ShowtimeID, b.Status, b.ExpiresAt,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// AddSeat attaches a seat to a booking. Re-adding the same seat is a no-op,
// so repeated select calls from the same buyer stay idempotent.
func (r *BookingRepository) AddSeat(ctx context.Context, bookingID, zoneID, seatID string, price int64) error {
	query := `
		INSERT INTO seat_booking_seats (booking_id, zone_id, seat_id, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (booking_id, zone_id, seat_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, bookingID, zoneID, seatID, price)
	return err
}

// RemoveSeat detaches a seat and reports whether it was present.
func (r *BookingRepository) RemoveSeat(ctx context.Context, bookingID, zoneID, seatID string) (bool, error) {
	query := `DELETE FROM seat_booking_seats WHERE booking_id = $1 AND zone_id = $2 AND seat_id = $3`
	res, err := r.db.ExecContext(ctx, query, bookingID, zoneID, seatID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (r *BookingRepository) GetSeats(ctx context.Context, bookingID string) ([]models.BookedSeat, error) {
	var seats []models.BookedSeat
	query := `
		SELECT booking_id, zone_id, seat_id, price
		FROM seat_booking_seats
		WHERE booking_id = $1
		ORDER BY zone_id, seat_id`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seat models.BookedSeat
		if err := rows.Scan(&seat.BookingID, &seat.ZoneID, &seat.SeatID, &seat.Price); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}

	return seats, rows.Err()
}

// TouchSeatBooking refreshes the hold window after a select/deselect.
func (r *BookingRepository) TouchSeatBooking(ctx context.Context, bookingID string, expiresAt time.Time) error {
	query := `UPDATE seat_bookings SET expires_at = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, expiresAt, bookingID)
	return err
}

// DeleteSeatBooking removes a hold, but only while it is still reserved. A
// booking promoted to booked by a concurrent order must survive; zero
// affected rows tells the caller it lost that race.
func (r *BookingRepository) DeleteSeatBooking(ctx context.Context, bookingID string) (bool, error) {
	query := `DELETE FROM seat_bookings WHERE id = $1 AND status = 'reserved'`
	res, err := r.db.ExecContext(ctx, query, bookingID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// GetSeatBookingTx loads a seat booking with its row locked, seats included.
func (r *BookingRepository) GetSeatBookingTx(ctx context.Context, tx *sql.Tx, id string) (*models.SeatBooking, error) {
	query := `
		SELECT ` + seatBookingColumns + `
		FROM seat_bookings
		WHERE id = $1
		FOR UPDATE`

	booking, err := scanSeatBooking(tx.QueryRowContext(ctx, query, id))
	if err != nil || booking == nil {
		return booking, err
	}

	seatQuery := `
		SELECT booking_id, zone_id, seat_id, price
		FROM seat_booking_seats
		WHERE booking_id = $1
		ORDER BY zone_id, seat_id`

	rows, err := tx.QueryContext(ctx, seatQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seat models.BookedSeat
		if err := rows.Scan(&seat.BookingID, &seat.ZoneID, &seat.SeatID, &seat.Price); err != nil {
			return nil, err
		}
		booking.Seats = append(booking.Seats, seat)
	}

	return booking, rows.Err()
}

// SetSeatBookingStatusTx flips a booking's status inside tx, stamping the
// order when one is given.
func (r *BookingRepository) SetSeatBookingStatusTx(ctx context.Context, tx *sql.Tx, id, status string, orderID *string) error {
	query := `UPDATE seat_bookings SET status = $1, order_id = COALESCE($2, order_id), updated_at = NOW() WHERE id = $3`
	_, err := tx.ExecContext(ctx, query, status, orderID, id)
	return err
}

// SeatBookingsByOrderTx loads all seat bookings promoted into an order.
func (r *BookingRepository) SeatBookingsByOrderTx(ctx context.Context, tx *sql.Tx, orderID string) ([]models.SeatBooking, error) {
	query := `
		SELECT ` + seatBookingColumns + `
		FROM seat_bookings
		WHERE order_id = $1
		FOR UPDATE`

	rows, err := tx.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.SeatBooking
	for rows.Next() {
		booking, err := scanSeatBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		seatQuery := `
			SELECT booking_id, zone_id, seat_id, price
			FROM seat_booking_seats
			WHERE booking_id = $1
			ORDER BY zone_id, seat_id`

		seatRows, err := tx.QueryContext(ctx, seatQuery, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		for seatRows.Next() {
			var seat models.BookedSeat
			if err := seatRows.Scan(&seat.BookingID, &seat.ZoneID, &seat.SeatID, &seat.Price); err != nil {
				seatRows.Close()
				return nil, err
			}
			bookings[i].Seats = append(bookings[i].Seats, seat)
		}
		if err := seatRows.Err(); err != nil {
			seatRows.Close()
			return nil, err
		}
		seatRows.Close()
	}

	return bookings, nil
}

// ExpiredSeatBookings returns lapsed holds for the sweeper, seats included.
func (r *BookingRepository) ExpiredSeatBookings(ctx context.Context, now time.Time, limit int) ([]models.SeatBooking, error) {
	query := `
		SELECT ` + seatBookingColumns + `
		FROM seat_bookings
		WHERE status IN ('pending', 'reserved') AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.SeatBooking
	for rows.Next() {
		booking, err := scanSeatBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		bookings[i].Seats, err = r.GetSeats(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return bookings, nil
}

// MarkSeatBookingExpired flips a lapsed hold to expired, but only while it
// is still in a reclaimable state. A booking promoted to booked between the
// sweeper's read and this write is left alone.
func (r *BookingRepository) MarkSeatBookingExpired(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE seat_bookings SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'reserved')`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// Zone bookings

const zoneBookingColumns = `id, user_id, event_id, showtime_id, zone_ticket_id, quantity, status, expires_at, order_id, created_at, updated_at`

func scanZoneBooking(row interface{ Scan(...any) error }) (*models.ZoneBooking, error) {
	b := &models.ZoneBooking{}
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.EventID,
		&b.ShowtimeID,
		&b.ZoneTicketID,
		&b.Quantity,
		&b.Status,
		&b.ExpiresAt,
		&b.OrderID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ActiveZoneQuantityTx recomputes the live claimed quantity for a zone
// ticket from bookings inside tx. Never served from cache: this sum is what
// the capacity check trusts.
func (r *BookingRepository) ActiveZoneQuantityTx(ctx context.Context, tx *sql.Tx, zoneTicketID string, now time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM zone_bookings
		WHERE zone_ticket_id = $1
		  AND (status = 'booked' OR (status = 'reserved' AND expires_at > $2))`

	var total int64
	err := tx.QueryRowContext(ctx, query, zoneTicketID, now).Scan(&total)
	return total, err
}

func (r *BookingRepository) CreateZoneBookingTx(ctx context.Context, tx *sql.Tx, b *models.ZoneBooking) error {
	query := `
		INSERT INTO zone_bookings (user_id, event_id, showtime_id, zone_ticket_id, quantity, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return tx.QueryRowContext(ctx, query,
		b.UserID, b.EventID, b.ShowtimeID, b.ZoneTicketID, b.Quantity, b.Status, b.ExpiresAt,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *BookingRepository) GetZoneBooking(ctx context.Context, id string) (*models.ZoneBooking, error) {
	query := `SELECT ` + zoneBookingColumns + ` FROM zone_bookings WHERE id = $1`
	return scanZoneBooking(r.db.QueryRowContext(ctx, query, id))
}

func (r *BookingRepository) GetZoneBookingTx(ctx context.Context, tx *sql.Tx, id string) (*models.ZoneBooking, error) {
	query := `SELECT ` + zoneBookingColumns + ` FROM zone_bookings WHERE id = $1 FOR UPDATE`
	return scanZoneBooking(tx.QueryRowContext(ctx, query, id))
}

// DeleteZoneBooking removes a reserved zone hold. Conditional for the same
// reason as DeleteSeatBooking.
func (r *BookingRepository) DeleteZoneBooking(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM zone_bookings WHERE id = $1 AND status = 'reserved'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (r *BookingRepository) SetZoneBookingStatusTx(ctx context.Context, tx *sql.Tx, id, status string, orderID *string) error {
	query := `UPDATE zone_bookings SET status = $1, order_id = COALESCE($2, order_id), updated_at = NOW() WHERE id = $3`
	_, err := tx.ExecContext(ctx, query, status, orderID, id)
	return err
}

func (r *BookingRepository) ZoneBookingsByOrderTx(ctx context.Context, tx *sql.Tx, orderID string) ([]models.ZoneBooking, error) {
	query := `SELECT ` + zoneBookingColumns + ` FROM zone_bookings WHERE order_id = $1 FOR UPDATE`

	rows, err := tx.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.ZoneBooking
	for rows.Next() {
		booking, err := scanZoneBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}

	return bookings, rows.Err()
}

// ExpiredZoneBookings returns lapsed zone holds for the sweeper.
func (r *BookingRepository) ExpiredZoneBookings(ctx context.Context, now time.Time, limit int) ([]models.ZoneBooking, error) {
	query := `
		SELECT ` + zoneBookingColumns + `
		FROM zone_bookings
		WHERE status IN ('pending', 'reserved') AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.ZoneBooking
	for rows.Next() {
		booking, err := scanZoneBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}

	return bookings, rows.Err()
}

// MarkZoneBookingExpired is the zone-side counterpart of
// MarkSeatBookingExpired.
func (r *BookingRepository) MarkZoneBookingExpired(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE zone_bookings SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'reserved')`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// HeldSeats lists seats currently sold or held for a showtime, for the
// seat-map read model.
func (r *BookingRepository) HeldSeats(ctx context.Context, showtimeID int64, now time.Time) (map[string]string, error) {
	query := `
		SELECT sbs.zone_id, sbs.seat_id, sb.status
		FROM seat_bookings sb
		JOIN seat_booking_seats sbs ON sbs.booking_id = sb.id
		WHERE sb.showtime_id = $1
		  AND (sb.status = 'booked' OR (sb.status = 'reserved' AND sb.expires_at > $2))`

	rows, err := r.db.QueryContext(ctx, query, showtimeID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	held := make(map[string]string)
	for rows.Next() {
		var zoneID, seatID, status string
		if err := rows.Scan(&zoneID, &seatID, &status); err != nil {
			return nil, err
		}
		held[zoneID+"/"+seatID] = status
	}

	return held, rows.Err()
}
