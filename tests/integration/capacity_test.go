package integration

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tixgate/internal/errors"
	"tixgate/internal/models"
)

func TestSoldCounterGuard_RejectsOverCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, showtime := env.createEvent(t, models.TypeBaseNone, 5)

	env.sellTickets(t, showtime.ID, 3)

	err := env.db.WithTx(ctx, func(tx *sql.Tx) error {
		return env.repos.Events.IncrementSoldTicketsTx(ctx, tx, showtime.ID, 3)
	})
	require.Error(t, err)

	var capErr *apperrors.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, int64(3), capErr.Requested)
	assert.Equal(t, int64(2), capErr.Available)

	// The rejected claim left the counter untouched.
	after, err := env.repos.Events.GetShowtime(ctx, showtime.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), after.SoldTickets)
}

func TestSoldCounterGuard_ConcurrentIncrements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const capacity = 5
	_, showtime := env.createEvent(t, models.TypeBaseNone, capacity)

	const claims = 12
	var wg sync.WaitGroup
	var won atomic.Int64

	for i := 0; i < claims; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := env.db.WithTx(ctx, func(tx *sql.Tx) error {
				return env.repos.Events.IncrementSoldTicketsTx(ctx, tx, showtime.ID, 1)
			})
			if err == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(capacity), won.Load())

	after, err := env.repos.Events.GetShowtime(ctx, showtime.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(capacity), after.SoldTickets)
}
