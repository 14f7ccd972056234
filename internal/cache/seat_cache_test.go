package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

func TestSeatCacheRoundTrip(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewSeatCache(rdb)

	seats := []model.Seat{
		{ID: 1, ShowID: 9, SeatNumber: "A1", Status: model.SeatAvailable, Version: 1},
		{ID: 2, ShowID: 9, SeatNumber: "A2", Status: model.SeatAvailable, Version: 3},
	}
	raw, err := json.Marshal(seats)
	require.NoError(t, err)

	mock.ExpectSet("seats:available:9", raw, 60*time.Second).SetVal("OK")
	require.NoError(t, c.SetAvailableSeats(context.Background(), 9, seats))

	mock.ExpectGet("seats:available:9").SetVal(string(raw))
	got, ok := c.GetAvailableSeats(context.Background(), 9)
	require.True(t, ok)
	assert.Equal(t, seats, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatCacheMissFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewSeatCache(rdb)

	mock.ExpectGet("seats:available:9").RedisNil()
	_, ok := c.GetAvailableSeats(context.Background(), 9)
	assert.False(t, ok)
}

func TestSeatCacheInvalidate(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewSeatCache(rdb)

	mock.ExpectDel("seats:available:9").SetVal(1)
	require.NoError(t, c.InvalidateAvailableSeats(context.Background(), 9))
	require.NoError(t, mock.ExpectationsWereMet())
}
