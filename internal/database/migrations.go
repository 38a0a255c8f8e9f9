package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createEventsTable,
		createShowtimesTable,
		createZonesTable,
		createSeatsTable,
		createZoneTicketsTable,
		createSeatBookingsTable,
		createSeatBookingSeatsTable,
		createZoneBookingsTable,
		createOrdersTable,
		createTicketNumberSequence,
		createTicketsTable,
		createBookingExpiryIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    name VARCHAR(500) NOT NULL,
    type_base VARCHAR(10) NOT NULL,
    approval_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    ends_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (type_base IN ('none', 'seat', 'zone')),
    CHECK (approval_status IN ('pending', 'approved', 'rejected', 'postponed'))
);`

const createShowtimesTable = `
CREATE TABLE IF NOT EXISTS showtimes (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    starts_at TIMESTAMP NOT NULL,
    ticket_quantity BIGINT NOT NULL DEFAULT 0,
    sold_tickets BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (sold_tickets >= 0),
    CHECK (sold_tickets <= ticket_quantity)
);`

const createZonesTable = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE TABLE IF NOT EXISTS zones (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    name VARCHAR(200) NOT NULL
);`

const createSeatsTable = `
CREATE TABLE IF NOT EXISTS seats (
    zone_id UUID NOT NULL REFERENCES zones(id) ON DELETE CASCADE,
    seat_id VARCHAR(64) NOT NULL,
    label VARCHAR(100) NOT NULL,
    area VARCHAR(100) NOT NULL DEFAULT '',
    price BIGINT NOT NULL DEFAULT 0,

    PRIMARY KEY (zone_id, seat_id)
);`

const createZoneTicketsTable = `
CREATE TABLE IF NOT EXISTS zone_tickets (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    showtime_id INTEGER NOT NULL REFERENCES showtimes(id) ON DELETE CASCADE,
    name VARCHAR(200) NOT NULL,
    total_ticket_count BIGINT NOT NULL,
    price BIGINT NOT NULL DEFAULT 0,

    CHECK (total_ticket_count >= 0)
);`

const createSeatBookingsTable = `
CREATE TABLE IF NOT EXISTS seat_bookings (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    user_id VARCHAR(64) NOT NULL,
    event_id INTEGER NOT NULL REFERENCES events(id),
    showtime_id INTEGER NOT NULL REFERENCES showtimes(id),
    status VARCHAR(20) NOT NULL DEFAULT 'reserved',
    expires_at TIMESTAMP NOT NULL,
    order_id UUID,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'reserved', 'booked', 'cancelled', 'expired'))
);`

const createSeatBookingSeatsTable = `
CREATE TABLE IF NOT EXISTS seat_booking_seats (
    booking_id UUID NOT NULL REFERENCES seat_bookings(id) ON DELETE CASCADE,
    zone_id UUID NOT NULL,
    seat_id VARCHAR(64) NOT NULL,
    price BIGINT NOT NULL DEFAULT 0,

    PRIMARY KEY (booking_id, zone_id, seat_id)
);`

const createZoneBookingsTable = `
CREATE TABLE IF NOT EXISTS zone_bookings (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    user_id VARCHAR(64) NOT NULL,
    event_id INTEGER NOT NULL REFERENCES events(id),
    showtime_id INTEGER NOT NULL REFERENCES showtimes(id),
    zone_ticket_id UUID NOT NULL REFERENCES zone_tickets(id),
    quantity BIGINT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'reserved',
    expires_at TIMESTAMP NOT NULL,
    order_id UUID,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (quantity > 0),
    CHECK (status IN ('pending', 'reserved', 'booked', 'cancelled', 'expired'))
);`

const createOrdersTable = `
CREATE TABLE IF NOT EXISTS orders (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    user_id VARCHAR(64) NOT NULL,
    event_id INTEGER NOT NULL REFERENCES events(id),
    showtime_id INTEGER NOT NULL REFERENCES showtimes(id),
    booking_type VARCHAR(10) NOT NULL,
    amount BIGINT NOT NULL DEFAULT 0,
    total_price BIGINT NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    gift_recipient VARCHAR(64),
    gift_message TEXT,
    payment_id VARCHAR(255),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (booking_type IN ('none', 'seat', 'zone')),
    CHECK (status IN ('pending', 'paid', 'failed', 'cancelled'))
);`

const createTicketNumberSequence = `
CREATE SEQUENCE IF NOT EXISTS ticket_number_seq START 1;`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    ticket_number BIGINT NOT NULL UNIQUE,
    ticket_id VARCHAR(64) NOT NULL UNIQUE,
    order_id UUID NOT NULL REFERENCES orders(id),
    event_id INTEGER NOT NULL REFERENCES events(id),
    showtime_id INTEGER NOT NULL REFERENCES showtimes(id),
    owner_id VARCHAR(64) NOT NULL,
    zone_id UUID,
    seat_id VARCHAR(64),
    seat_label VARCHAR(100),
    zone_ticket_id UUID,
    price BIGINT NOT NULL DEFAULT 0,
    qr_payload TEXT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'issued',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('issued', 'used', 'cancelled'))
);`

const createBookingExpiryIndexes = `
CREATE INDEX IF NOT EXISTS seat_bookings_expiry_idx
    ON seat_bookings (status, expires_at);
CREATE INDEX IF NOT EXISTS seat_booking_seats_seat_idx
    ON seat_booking_seats (zone_id, seat_id);
CREATE INDEX IF NOT EXISTS zone_bookings_expiry_idx
    ON zone_bookings (status, expires_at);
CREATE INDEX IF NOT EXISTS zone_bookings_ticket_idx
    ON zone_bookings (zone_ticket_id, status);
CREATE INDEX IF NOT EXISTS orders_pending_idx
    ON orders (status, created_at);
CREATE INDEX IF NOT EXISTS tickets_order_idx
    ON tickets (order_id);`
