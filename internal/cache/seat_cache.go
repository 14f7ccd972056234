// Package cache holds the Redis-backed cache of available seats per
// show. The cache is read on the hot browse path and explicitly
// invalidated after every committed booking or cancellation; entries
// also carry a short TTL as a backstop.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

const availableSeatsTTL = 60 * time.Second

// SeatCache caches the list of AVAILABLE seats for a show under
// seats:available:<showID>.
type SeatCache struct {
	rdb *redis.Client
}

func NewSeatCache(rdb *redis.Client) *SeatCache {
	return &SeatCache{rdb: rdb}
}

func availableSeatsKey(showID uint64) string {
	return fmt.Sprintf("seats:available:%d", showID)
}

// GetAvailableSeats returns the cached seat list for the show, or
// (nil, false) on a miss. Redis errors are treated as misses so the
// caller falls back to the database.
func (c *SeatCache) GetAvailableSeats(ctx context.Context, showID uint64) ([]model.Seat, bool) {
	raw, err := c.rdb.Get(ctx, availableSeatsKey(showID)).Bytes()
	if err != nil {
		return nil, false
	}
	var seats []model.Seat
	if err := json.Unmarshal(raw, &seats); err != nil {
		return nil, false
	}
	return seats, true
}

// SetAvailableSeats stores the seat list with a TTL.
func (c *SeatCache) SetAvailableSeats(ctx context.Context, showID uint64, seats []model.Seat) error {
	raw, err := json.Marshal(seats)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, availableSeatsKey(showID), raw, availableSeatsTTL).Err()
}

// InvalidateAvailableSeats drops the cached entry for the show. A
// missing key is not an error.
func (c *SeatCache) InvalidateAvailableSeats(ctx context.Context, showID uint64) error {
	err := c.rdb.Del(ctx, availableSeatsKey(showID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
