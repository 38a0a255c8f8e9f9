// Package integration exercises the booking pipeline against a real
// Postgres, using the same env-driven config the binaries load. Tests skip
// when the database is unreachable. Redis is a mock client here: lock and
// cache calls degrade into logged errors, which is exactly the best-effort
// behavior the services promise, so the transactional semantics stay the
// thing under test.
package integration

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"

	"tixgate/internal/cache"
	"tixgate/internal/config"
	"tixgate/internal/database"
	"tixgate/internal/locks"
	"tixgate/internal/models"
	"tixgate/internal/repository"
	"tixgate/internal/service"
)

type testEnv struct {
	db       *database.DB
	repos    *repository.Repositories
	services *service.Services
}

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *capturePublisher) Publish(topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Load()
	db, err := database.Connect(cfg.Database)
	if err != nil {
		t.Skipf("Postgres not available, skipping: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, _ := redismock.NewClientMock()
	lockStore := locks.NewStore(redisClient, cfg.ReservationWindow)
	seatMaps := cache.NewSeatMapCache(redisClient)

	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, lockStore, seatMaps, &capturePublisher{})

	return &testEnv{db: db, repos: repos, services: services}
}

func newBuyer() string {
	return "buyer-" + uuid.NewString()
}

const seatPrice = 2500

// createEvent inserts an approved event with one showtime of the given
// capacity. Every test builds its own event, so runs never interfere.
func (e *testEnv) createEvent(t *testing.T, typeBase string, capacity int64) (*models.Event, *models.Showtime) {
	t.Helper()
	ctx := context.Background()

	event := &models.Event{
		Name:           "Integration " + uuid.NewString(),
		TypeBase:       typeBase,
		ApprovalStatus: models.ApprovalApproved,
		EndsAt:         time.Now().Add(48 * time.Hour),
	}
	if err := e.repos.Events.Create(ctx, event); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	showtime := &models.Showtime{
		EventID:        event.ID,
		StartsAt:       time.Now().Add(24 * time.Hour),
		TicketQuantity: capacity,
	}
	if err := e.repos.Events.CreateShowtime(ctx, showtime); err != nil {
		t.Fatalf("Failed to create showtime: %v", err)
	}

	return event, showtime
}

func (e *testEnv) createSeatEvent(t *testing.T, capacity int64, seatIDs ...string) (*models.Event, *models.Showtime, *models.Zone) {
	t.Helper()
	ctx := context.Background()

	event, showtime := e.createEvent(t, models.TypeBaseSeat, capacity)

	zone := &models.Zone{EventID: event.ID, Name: "Stalls"}
	for _, id := range seatIDs {
		zone.Seats = append(zone.Seats, models.Seat{SeatID: id, Label: "Row A " + id, Price: seatPrice})
	}
	if err := e.repos.Zones.CreateZone(ctx, zone); err != nil {
		t.Fatalf("Failed to create zone: %v", err)
	}

	return event, showtime, zone
}

func (e *testEnv) createZoneEvent(t *testing.T, capacity, pool int64) (*models.Event, *models.Showtime, *models.ZoneTicket) {
	t.Helper()
	ctx := context.Background()

	event, showtime := e.createEvent(t, models.TypeBaseZone, capacity)

	zt := &models.ZoneTicket{
		ShowtimeID:       showtime.ID,
		Name:             "Standing",
		TotalTicketCount: pool,
		Price:            1800,
	}
	if err := e.repos.Zones.CreateZoneTicket(ctx, zt); err != nil {
		t.Fatalf("Failed to create zone ticket: %v", err)
	}

	return event, showtime, zt
}

// reserveSeats stages a live reserved seat booking directly in the store,
// the state SelectSeat leaves behind once its lock round-trip succeeds.
func (e *testEnv) reserveSeats(t *testing.T, userID string, event *models.Event, showtime *models.Showtime, zone *models.Zone, seatIDs ...string) *models.SeatBooking {
	t.Helper()
	ctx := context.Background()

	booking := &models.SeatBooking{
		UserID:     userID,
		EventID:    event.ID,
		ShowtimeID: showtime.ID,
		Status:     models.BookingReserved,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	}
	if err := e.repos.Bookings.CreateSeatBooking(ctx, booking); err != nil {
		t.Fatalf("Failed to create seat booking: %v", err)
	}
	for _, id := range seatIDs {
		if err := e.repos.Bookings.AddSeat(ctx, booking.ID, zone.ID, id, seatPrice); err != nil {
			t.Fatalf("Failed to add seat %s: %v", id, err)
		}
	}

	seats, err := e.repos.Bookings.GetSeats(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Failed to load booking seats: %v", err)
	}
	booking.Seats = seats
	return booking
}

func (e *testEnv) createZoneHold(t *testing.T, userID string, event *models.Event, showtime *models.Showtime, zt *models.ZoneTicket, quantity int64, expiresAt time.Time) *models.ZoneBooking {
	t.Helper()
	ctx := context.Background()

	booking := &models.ZoneBooking{
		UserID:       userID,
		EventID:      event.ID,
		ShowtimeID:   showtime.ID,
		ZoneTicketID: zt.ID,
		Quantity:     quantity,
		Status:       models.BookingReserved,
		ExpiresAt:    expiresAt,
	}
	err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
		return e.repos.Bookings.CreateZoneBookingTx(ctx, tx, booking)
	})
	if err != nil {
		t.Fatalf("Failed to create zone booking: %v", err)
	}
	return booking
}

// sellTickets moves the showtime's sold counter as a competing sale would.
func (e *testEnv) sellTickets(t *testing.T, showtimeID, n int64) {
	t.Helper()
	ctx := context.Background()

	err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
		return e.repos.Events.IncrementSoldTicketsTx(ctx, tx, showtimeID, n)
	})
	if err != nil {
		t.Fatalf("Failed to increment sold tickets: %v", err)
	}
}
