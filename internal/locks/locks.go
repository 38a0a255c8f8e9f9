package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrHeld signals the key is owned by a different holder.
var ErrHeld = errors.New("lock held by another holder")

type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// acquireScript sets the key to the holder with a TTL when free, refreshes
// the TTL when the same holder already owns it, and fails otherwise. The
// whole decision runs server-side so two concurrent callers cannot both win.
const acquireScript = `
local current = redis.call("GET", KEYS[1])
if current == false then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
  return 1
end
if current == ARGV[1] then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
  return 1
end
return 0`

// releaseScript deletes the key only when the caller still owns it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`

// Store is the short-horizon mutual-exclusion mechanism for seats and zone
// quantity claims. The booking store stays the source of truth for sold
// inventory; a lock here is a TTL-bounded fast path only.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// TTL returns the reservation window locks are created with.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// SeatKey builds the canonical seat lock key. Seat ids are zone-scoped, so
// the zone id is part of the key; there is exactly one key shape per seat.
func SeatKey(eventID, showtimeID int64, zoneID, seatID string) string {
	return fmt.Sprintf("seatlock:%d:%d:%s:%s", eventID, showtimeID, zoneID, seatID)
}

// ZoneKey builds the lock key for one holder's claim against a zone ticket
// pool. The holder is part of the key, so claims from different buyers
// never collide.
func ZoneKey(zoneTicketID, holderID string) string {
	return fmt.Sprintf("zonelock:%s:%s", zoneTicketID, holderID)
}

// AcquireSeat takes or refreshes the seat lock for holderID. It returns
// ErrHeld when another holder owns the seat. Redis failures are also
// reported as errors: failing to acquire must read as "someone else holds
// it", never as success.
func (s *Store) AcquireSeat(ctx context.Context, eventID, showtimeID int64, zoneID, seatID, holderID string) error {
	key := SeatKey(eventID, showtimeID, zoneID, seatID)
	res, err := s.client.Eval(ctx, acquireScript, []string{key}, holderID, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to acquire seat lock %s: %w", key, err)
	}
	if res != 1 {
		return ErrHeld
	}
	return nil
}

// ReleaseSeat drops the seat lock if holderID still owns it. Missing keys
// and keys owned by someone else are a no-op.
func (s *Store) ReleaseSeat(ctx context.Context, eventID, showtimeID int64, zoneID, seatID, holderID string) error {
	key := SeatKey(eventID, showtimeID, zoneID, seatID)
	if err := s.client.Eval(ctx, releaseScript, []string{key}, holderID).Err(); err != nil {
		return fmt.Errorf("failed to release seat lock %s: %w", key, err)
	}
	return nil
}

// HoldZone records holderID's quantity claim against a zone ticket pool
// with the reservation TTL. The claim is a marker the sweeper and issuance
// can clean up; capacity itself is enforced transactionally in the booking
// store.
func (s *Store) HoldZone(ctx context.Context, zoneTicketID, holderID string, quantity int64) error {
	key := ZoneKey(zoneTicketID, holderID)
	if err := s.client.Set(ctx, key, quantity, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to hold zone %s: %w", key, err)
	}
	return nil
}

// ReleaseZone drops holderID's claim marker. Missing keys are a no-op.
func (s *Store) ReleaseZone(ctx context.Context, zoneTicketID, holderID string) error {
	key := ZoneKey(zoneTicketID, holderID)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release zone hold %s: %w", key, err)
	}
	return nil
}
