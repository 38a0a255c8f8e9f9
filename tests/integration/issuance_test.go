package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tixgate/internal/errors"
	"tixgate/internal/models"
)

func TestIssueTickets_SeatOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, showtime, zone := env.createSeatEvent(t, 10, "A1", "A2")
	buyer := newBuyer()
	booking := env.reserveSeats(t, buyer, event, showtime, zone, "A1", "A2")

	created, err := env.services.Orders.Create(ctx, buyer, &models.CreateOrderRequest{
		EventID:     event.ID,
		ShowtimeID:  showtime.ID,
		BookingType: models.TypeBaseSeat,
		BookingIDs:  []string{booking.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, created.Status)
	assert.Equal(t, int64(2), created.Units)
	assert.Equal(t, int64(2*seatPrice), created.TotalPrice)

	issued, err := env.services.Tickets.Issue(ctx, buyer, &models.IssueTicketsRequest{
		OrderID:   created.ID,
		PaymentID: "pay-" + uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, issued.Status)
	require.Len(t, issued.Tickets, 2)
	for _, item := range issued.Tickets {
		assert.NotEmpty(t, item.TicketID)
		assert.Equal(t, buyer, item.OwnerID)
		assert.Contains(t, item.QRPayload, item.TicketID)
	}

	order, err := env.repos.Orders.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, order.Status)

	after, err := env.repos.Events.GetShowtime(ctx, showtime.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), after.SoldTickets)
}

func TestIssueTickets_RollsBackWhenCapacityTaken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, showtime, zone := env.createSeatEvent(t, 2, "A1", "A2")
	buyer := newBuyer()
	booking := env.reserveSeats(t, buyer, event, showtime, zone, "A1", "A2")

	created, err := env.services.Orders.Create(ctx, buyer, &models.CreateOrderRequest{
		EventID:     event.ID,
		ShowtimeID:  showtime.ID,
		BookingType: models.TypeBaseSeat,
		BookingIDs:  []string{booking.ID},
	})
	require.NoError(t, err)

	// A competing sale eats one unit between order creation and payment.
	env.sellTickets(t, showtime.ID, 1)

	_, err = env.services.Tickets.Issue(ctx, buyer, &models.IssueTicketsRequest{
		OrderID:   created.ID,
		PaymentID: "pay-" + uuid.NewString(),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCapacity(err))

	// The failed issuance left nothing behind: no tickets, the order still
	// pending, the sold counter only moved for the competing sale.
	tickets, err := env.repos.Tickets.ListByOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	order, err := env.repos.Orders.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)

	after, err := env.repos.Events.GetShowtime(ctx, showtime.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.SoldTickets)
}
