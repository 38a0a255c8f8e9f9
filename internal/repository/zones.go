package repository

import (
	"context"
	"database/sql"

	"tixgate/internal/database"
	"tixgate/internal/models"
)

type ZoneRepository struct {
	db *database.DB
}

func NewZoneRepository(db *database.DB) *ZoneRepository {
	return &ZoneRepository{db: db}
}

// CreateZone inserts a zone with its seat layout in one transaction.
func (r *ZoneRepository) CreateZone(ctx context.Context, zone *models.Zone) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO zones (event_id, name)
			VALUES ($1, $2)
			RETURNING id`

		if err := tx.QueryRowContext(ctx, query, zone.EventID, zone.Name).Scan(&zone.ID); err != nil {
			return err
		}

		seatQuery := `
			INSERT INTO seats (zone_id, seat_id, label, area, price)
			VALUES ($1, $2, $3, $4, $5)`

		for i := range zone.Seats {
			zone.Seats[i].ZoneID = zone.ID
			seat := zone.Seats[i]
			if _, err := tx.ExecContext(ctx, seatQuery,
				seat.ZoneID, seat.SeatID, seat.Label, seat.Area, seat.Price); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ZoneRepository) GetZone(ctx context.Context, id string) (*models.Zone, error) {
	zone := &models.Zone{}
	query := `SELECT id, event_id, name FROM zones WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(&zone.ID, &zone.EventID, &zone.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	zone.Seats, err = r.ListSeats(ctx, zone.ID)
	return zone, err
}

func (r *ZoneRepository) ListSeats(ctx context.Context, zoneID string) ([]models.Seat, error) {
	var seats []models.Seat
	query := `
		SELECT zone_id, seat_id, label, area, price
		FROM seats
		WHERE zone_id = $1
		ORDER BY seat_id`

	rows, err := r.db.QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seat models.Seat
		if err := rows.Scan(&seat.ZoneID, &seat.SeatID, &seat.Label, &seat.Area, &seat.Price); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}

	return seats, rows.Err()
}

// ListEventSeats returns every seat across all zones of an event, for the
// seat-map read model.
func (r *ZoneRepository) ListEventSeats(ctx context.Context, eventID int64) ([]models.Seat, error) {
	var seats []models.Seat
	query := `
		SELECT s.zone_id, s.seat_id, s.label, s.area, s.price
		FROM seats s
		JOIN zones z ON z.id = s.zone_id
		WHERE z.event_id = $1
		ORDER BY s.zone_id, s.seat_id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seat models.Seat
		if err := rows.Scan(&seat.ZoneID, &seat.SeatID, &seat.Label, &seat.Area, &seat.Price); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}

	return seats, rows.Err()
}

func (r *ZoneRepository) GetSeat(ctx context.Context, zoneID, seatID string) (*models.Seat, error) {
	seat := &models.Seat{}
	query := `
		SELECT zone_id, seat_id, label, area, price
		FROM seats
		WHERE zone_id = $1 AND seat_id = $2`

	err := r.db.QueryRowContext(ctx, query, zoneID, seatID).Scan(
		&seat.ZoneID, &seat.SeatID, &seat.Label, &seat.Area, &seat.Price)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return seat, err
}

func (r *ZoneRepository) CreateZoneTicket(ctx context.Context, zt *models.ZoneTicket) error {
	query := `
		INSERT INTO zone_tickets (showtime_id, name, total_ticket_count, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		zt.ShowtimeID, zt.Name, zt.TotalTicketCount, zt.Price).Scan(&zt.ID)
}

func (r *ZoneRepository) GetZoneTicket(ctx context.Context, id string) (*models.ZoneTicket, error) {
	return scanZoneTicket(r.db.QueryRowContext(ctx, zoneTicketQuery, id))
}

// GetZoneTicketTx locks the zone ticket row so concurrent reservations for
// the same pool serialize on the capacity check.
func (r *ZoneRepository) GetZoneTicketTx(ctx context.Context, tx *sql.Tx, id string) (*models.ZoneTicket, error) {
	return scanZoneTicket(tx.QueryRowContext(ctx, zoneTicketQuery+" FOR UPDATE", id))
}

const zoneTicketQuery = `
	SELECT id, showtime_id, name, total_ticket_count, price
	FROM zone_tickets
	WHERE id = $1`

func scanZoneTicket(row *sql.Row) (*models.ZoneTicket, error) {
	zt := &models.ZoneTicket{}
	err := row.Scan(&zt.ID, &zt.ShowtimeID, &zt.Name, &zt.TotalTicketCount, &zt.Price)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return zt, err
}
