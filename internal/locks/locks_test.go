package locks

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	return NewStore(client, 10*time.Minute), mock
}

func TestSeatKeyShape(t *testing.T) {
	key := SeatKey(7, 42, "zone-a", "A1")
	assert.Equal(t, "seatlock:7:42:zone-a:A1", key)
}

func TestZoneKeyShape(t *testing.T) {
	key := ZoneKey("zt-1", "buyer-1")
	assert.Equal(t, "zonelock:zt-1:buyer-1", key)
}

func TestAcquireSeat_Free(t *testing.T) {
	store, mock := newTestStore(t)

	key := SeatKey(1, 2, "z1", "A1")
	mock.ExpectEval(acquireScript, []string{key}, "buyer-1", int64(600000)).SetVal(int64(1))

	err := store.AcquireSeat(context.Background(), 1, 2, "z1", "A1", "buyer-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireSeat_HeldByOther(t *testing.T) {
	store, mock := newTestStore(t)

	key := SeatKey(1, 2, "z1", "A1")
	mock.ExpectEval(acquireScript, []string{key}, "buyer-2", int64(600000)).SetVal(int64(0))

	err := store.AcquireSeat(context.Background(), 1, 2, "z1", "A1", "buyer-2")
	assert.ErrorIs(t, err, ErrHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireSeat_RedisErrorIsConflict(t *testing.T) {
	store, mock := newTestStore(t)

	key := SeatKey(1, 2, "z1", "A1")
	mock.ExpectEval(acquireScript, []string{key}, "buyer-1", int64(600000)).SetErr(assert.AnError)

	err := store.AcquireSeat(context.Background(), 1, 2, "z1", "A1", "buyer-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrHeld)
}

func TestReleaseSeat_OwnerOnly(t *testing.T) {
	store, mock := newTestStore(t)

	key := SeatKey(1, 2, "z1", "A1")
	// Script returns 0 when the value belongs to someone else; that is not
	// an error for the caller.
	mock.ExpectEval(releaseScript, []string{key}, "buyer-1").SetVal(int64(0))

	err := store.ReleaseSeat(context.Background(), 1, 2, "z1", "A1", "buyer-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldAndReleaseZone(t *testing.T) {
	store, mock := newTestStore(t)

	key := ZoneKey("zt-1", "buyer-1")
	mock.ExpectSet(key, int64(3), 10*time.Minute).SetVal("OK")
	mock.ExpectDel(key).SetVal(1)

	ctx := context.Background()
	require.NoError(t, store.HoldZone(ctx, "zt-1", "buyer-1", 3))
	require.NoError(t, store.ReleaseZone(ctx, "zt-1", "buyer-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
