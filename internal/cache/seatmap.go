package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// seatMapTTL keeps cached seat maps short-lived. The cache is a read-side
// optimization only; every capacity decision goes to the booking store.
const seatMapTTL = 30 * time.Second

type SeatMapCache struct {
	client *redis.Client
}

func NewSeatMapCache(client *redis.Client) *SeatMapCache {
	return &SeatMapCache{client: client}
}

func seatMapKey(eventID, showtimeID int64) string {
	return fmt.Sprintf("seatmap:%d:%d", eventID, showtimeID)
}

// GetRaw returns the cached seat map JSON, or an error on miss.
func (c *SeatMapCache) GetRaw(ctx context.Context, eventID, showtimeID int64) ([]byte, error) {
	data, err := c.client.Get(ctx, seatMapKey(eventID, showtimeID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("seat map not cached")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

// Set stores the seat map response. Failures are ignored by callers.
func (c *SeatMapCache) Set(ctx context.Context, eventID, showtimeID int64, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal seat map: %w", err)
	}
	return c.client.Set(ctx, seatMapKey(eventID, showtimeID), data, seatMapTTL).Err()
}

// Invalidate drops the cached seat map after inventory changed hands.
func (c *SeatMapCache) Invalidate(ctx context.Context, eventID, showtimeID int64) error {
	return c.client.Del(ctx, seatMapKey(eventID, showtimeID)).Err()
}
