package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, service.CanTransition(model.TicketValid, model.TicketUsed))
	assert.True(t, service.CanTransition(model.TicketValid, model.TicketRefunded))
	assert.True(t, service.CanTransition(model.TicketUsed, model.TicketRefunded))
	assert.False(t, service.CanTransition(model.TicketUsed, model.TicketValid))
	assert.False(t, service.CanTransition(model.TicketRefunded, model.TicketValid))
	assert.False(t, service.CanTransition(model.TicketCancelled, model.TicketRefunded))
}

func TestRefundFreesFlatSlot(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)
	a := h.join(t, ev.ID, "a")
	b := h.join(t, ev.ID, "b")
	ticket, err := h.eng.Offers.Purchase(h.ctx, a.Entry.ID, ev.ID, "a", pay(4500))
	require.NoError(t, err)
	assert.Equal(t, model.EntryWaiting, h.entry(t, b.Entry.ID).Status)

	has, err := h.eng.Ledger.HasTicket(h.ctx, "a", ev.ID)
	require.NoError(t, err)
	assert.True(t, has)

	refunded, err := h.eng.Ledger.UpdateStatus(h.ctx, ticket.ID, model.TicketRefunded)
	require.NoError(t, err)
	assert.Equal(t, model.TicketRefunded, refunded.Status)
	require.NotNil(t, refunded.UpdatedAt)
	assert.Equal(t, model.EntryOffered, h.entry(t, b.Entry.ID).Status)

	has, err = h.eng.Ledger.HasTicket(h.ctx, "a", ev.ID)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = h.eng.Ledger.UpdateStatus(h.ctx, ticket.ID, model.TicketValid)
	assert.ErrorIs(t, err, service.ErrInvalidTicketTransition)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = h.eng.Ledger.UpdateStatus(h.ctx, "missing", model.TicketUsed)
	assert.ErrorIs(t, err, service.ErrTicketNotFound)
}

func TestSeatStaysSoldAfterRefund(t *testing.T) {
	h := newHarness(t)
	ev := h.seatedEvent(t, smallHall())
	seat := ref("stalls", "B", "2")
	hold, err := h.eng.Holds.Hold(h.ctx, ev.ID, "u1", []model.SeatRef{seat})
	require.NoError(t, err)
	tickets, err := h.eng.Holds.ConfirmSeats(h.ctx, hold.ID, "u1", pay(5000))
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	_, err = h.eng.Ledger.UpdateStatus(h.ctx, tickets[0].ID, model.TicketUsed)
	require.NoError(t, err)
	_, err = h.eng.Ledger.UpdateStatus(h.ctx, tickets[0].ID, model.TicketRefunded)
	require.NoError(t, err)
	assert.Equal(t, model.SeatSold, h.seat(t, ev.ID, seat).Status)

	got, err := h.eng.Ledger.Get(h.ctx, tickets[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.Seat)
	assert.Equal(t, seat, *got.Seat)
}

func TestSalesSummary(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 3)
	var ids []string
	for _, u := range []string{"a", "b", "c"} {
		res := h.join(t, ev.ID, u)
		tk, err := h.eng.Offers.Purchase(h.ctx, res.Entry.ID, ev.ID, u, pay(4500))
		require.NoError(t, err)
		ids = append(ids, tk.ID)
	}
	_, err := h.eng.Ledger.UpdateStatus(h.ctx, ids[0], model.TicketRefunded)
	require.NoError(t, err)
	_, err = h.eng.Ledger.UpdateStatus(h.ctx, ids[1], model.TicketUsed)
	require.NoError(t, err)

	s, err := h.eng.Ledger.SalesSummary(h.ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Sold)
	assert.Equal(t, 1, s.Refunded)
	assert.EqualValues(t, 9000, s.RevenueCents)
	assert.Equal(t, 3, s.TotalCapacity)

	mine, err := h.eng.Ledger.ListByUser(h.ctx, "b")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.TicketUsed, mine[0].Status)

	_, err = h.eng.Ledger.SalesSummary(h.ctx, "missing")
	assert.ErrorIs(t, err, service.ErrEventNotFound)
}
