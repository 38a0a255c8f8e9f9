package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatMapKeyShape(t *testing.T) {
	assert.Equal(t, "seatmap:7:42", seatMapKey(7, 42))
}

func TestGetRaw_Hit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewSeatMapCache(client)

	mock.ExpectGet("seatmap:1:2").SetVal(`[{"seat_id":"A1"}]`)

	data, err := c.GetRaw(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"seat_id":"A1"}]`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRaw_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewSeatMapCache(client)

	mock.ExpectGet("seatmap:1:2").RedisNil()

	_, err := c.GetRaw(context.Background(), 1, 2)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAndInvalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewSeatMapCache(client)

	mock.ExpectSet("seatmap:1:2", []byte(`{"a":1}`), 30*time.Second).SetVal("OK")
	mock.ExpectDel("seatmap:1:2").SetVal(1)

	err := c.Set(context.Background(), 1, 2, map[string]int{"a": 1})
	require.NoError(t, err)

	err = c.Invalidate(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
