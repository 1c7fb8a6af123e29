package service_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

func TestSingleTicketOfferCascade(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)

	u1 := h.join(t, ev.ID, "u1")
	assert.Equal(t, model.EntryOffered, u1.Status)
	require.NotNil(t, u1.Entry.OfferExpiresAt)
	assert.True(t, t0.Add(service.DefaultOfferWindow).Equal(*u1.Entry.OfferExpiresAt))
	require.Len(t, h.sched.offers, 1)
	assert.Equal(t, u1.Entry.ID, h.sched.offers[0].EntryID)

	u2 := h.join(t, ev.ID, "u2")
	assert.Equal(t, model.EntryWaiting, u2.Status)
	pos, err := h.eng.Queue.Position(h.ctx, ev.ID, "u2")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 2, pos.Position, "u1's open offer is still ahead")

	h.clock.Advance(service.DefaultOfferWindow)
	require.NoError(t, h.eng.Offers.Expire(h.ctx, u1.Entry.ID, ev.ID))
	assert.Equal(t, model.EntryExpired, h.entry(t, u1.Entry.ID).Status)
	assert.Equal(t, model.EntryOffered, h.entry(t, u2.Entry.ID).Status)

	pos, err = h.eng.Queue.Position(h.ctx, ev.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, pos.Position)

	ticket, err := h.eng.Offers.Purchase(h.ctx, u2.Entry.ID, ev.ID, "u2", pay(4500))
	require.NoError(t, err)
	assert.Equal(t, model.TicketValid, ticket.Status)
	assert.EqualValues(t, 4500, ticket.AmountCents)
	assert.Nil(t, ticket.Seat)
	assert.Equal(t, model.EntryPurchased, h.entry(t, u2.Entry.ID).Status)

	av := h.availability(t, ev.ID)
	assert.Equal(t, 0, av.Remaining)
	assert.True(t, av.IsSoldOut)
	assert.Equal(t, 1, av.CommittedCount)
	assert.Equal(t, 0, av.PendingCount)

	require.Len(t, h.pub.offers, 2)
	require.Len(t, h.pub.tickets, 1)
}

func TestJoinRejectsDuplicateUntilExpired(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)

	first := h.join(t, ev.ID, "u1")
	_, err := h.eng.Queue.Join(h.ctx, ev.ID, "u1")
	assert.ErrorIs(t, err, service.ErrDuplicateEntry)
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = h.eng.Offers.Release(h.ctx, first.Entry.ID, ev.ID, "u1")
	require.NoError(t, err)

	again := h.join(t, ev.ID, "u1")
	assert.NotEqual(t, first.Entry.ID, again.Entry.ID)
	assert.Equal(t, model.EntryOffered, again.Status)
}

func TestPurchasedEntryStillBlocksRejoin(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 2)

	res := h.join(t, ev.ID, "u1")
	_, err := h.eng.Offers.Purchase(h.ctx, res.Entry.ID, ev.ID, "u1", pay(4500))
	require.NoError(t, err)

	_, err = h.eng.Queue.Join(h.ctx, ev.ID, "u1")
	assert.ErrorIs(t, err, service.ErrDuplicateEntry)
}

func TestPromotionIsFIFO(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)

	holder := h.join(t, ev.ID, "holder")
	a := h.join(t, ev.ID, "a")
	b := h.join(t, ev.ID, "b")
	assert.Equal(t, model.EntryWaiting, a.Status)
	assert.Equal(t, model.EntryWaiting, b.Status)
	assert.True(t, a.Entry.CreatedAt.Before(b.Entry.CreatedAt), "creation times are strictly increasing")

	_, err := h.eng.Offers.Release(h.ctx, holder.Entry.ID, ev.ID, "holder")
	require.NoError(t, err)

	assert.Equal(t, model.EntryOffered, h.entry(t, a.Entry.ID).Status)
	assert.Equal(t, model.EntryWaiting, h.entry(t, b.Entry.ID).Status)

	pos, err := h.eng.Queue.Position(h.ctx, ev.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Position)
}

func TestExpireIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)
	u1 := h.join(t, ev.ID, "u1")
	u2 := h.join(t, ev.ID, "u2")
	u3 := h.join(t, ev.ID, "u3")

	h.clock.Advance(service.DefaultOfferWindow)
	require.NoError(t, h.eng.Offers.Expire(h.ctx, u1.Entry.ID, ev.ID))
	require.NoError(t, h.eng.Offers.Expire(h.ctx, u1.Entry.ID, ev.ID))

	assert.Equal(t, model.EntryExpired, h.entry(t, u1.Entry.ID).Status)
	assert.Equal(t, model.EntryOffered, h.entry(t, u2.Entry.ID).Status)
	assert.Equal(t, model.EntryWaiting, h.entry(t, u3.Entry.ID).Status, "a duplicate timer must not promote twice")

	_, err := h.eng.Offers.Purchase(h.ctx, u2.Entry.ID, ev.ID, "u2", pay(4500))
	require.NoError(t, err)
	require.NoError(t, h.eng.Offers.Expire(h.ctx, u2.Entry.ID, ev.ID))
	assert.Equal(t, model.EntryPurchased, h.entry(t, u2.Entry.ID).Status)
	assert.Equal(t, model.EntryWaiting, h.entry(t, u3.Entry.ID).Status)

	assert.NoError(t, h.eng.Offers.Expire(h.ctx, "no-such-entry", ev.ID))
	assert.NoError(t, h.eng.Offers.Expire(h.ctx, u3.Entry.ID, "no-such-event"))
}

func TestEarlyTimerLeavesOfferOpen(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)
	u1 := h.join(t, ev.ID, "u1")

	h.clock.Advance(time.Minute)
	require.NoError(t, h.eng.Offers.Expire(h.ctx, u1.Entry.ID, ev.ID))
	assert.Equal(t, model.EntryOffered, h.entry(t, u1.Entry.ID).Status)
}

func TestStaleTimerFromRolledBackPromotion(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)
	h.join(t, ev.ID, "u1")
	u2 := h.join(t, ev.ID, "u2")
	h.join(t, ev.ID, "u3")

	// u2's timer is scheduled, then u3's fails and the grow rolls back.
	h.sched.failOfferCall = 3
	_, err := h.eng.Catalog.UpdateCapacity(h.ctx, ev.ID, 3)
	require.Error(t, err)
	assert.Equal(t, model.EntryWaiting, h.entry(t, u2.Entry.ID).Status)
	require.Len(t, h.sched.offers, 2)
	stale := h.sched.offers[1]
	assert.Equal(t, u2.Entry.ID, stale.EntryID)

	h.clock.Advance(5 * time.Minute)
	h.sched.failOfferCall = 0
	_, err = h.eng.Catalog.UpdateCapacity(h.ctx, ev.ID, 3)
	require.NoError(t, err)
	offered := h.entry(t, u2.Entry.ID)
	require.Equal(t, model.EntryOffered, offered.Status)
	require.NotNil(t, offered.OfferExpiresAt)
	assert.True(t, offered.OfferExpiresAt.After(stale.At))

	h.clock.Set(stale.At)
	require.NoError(t, h.eng.Offers.Expire(h.ctx, stale.EntryID, stale.EventID))
	assert.Equal(t, model.EntryOffered, h.entry(t, u2.Entry.ID).Status, "the offer runs until its own deadline")

	h.clock.Set(*offered.OfferExpiresAt)
	require.NoError(t, h.eng.Offers.Expire(h.ctx, u2.Entry.ID, ev.ID))
	assert.Equal(t, model.EntryExpired, h.entry(t, u2.Entry.ID).Status)
}

func TestReleaseOfNonOfferedEntryIsNoop(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)
	h.join(t, ev.ID, "u1")
	u2 := h.join(t, ev.ID, "u2")

	got, err := h.eng.Offers.Release(h.ctx, u2.Entry.ID, ev.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, model.EntryWaiting, got.Status)

	_, err = h.eng.Offers.Release(h.ctx, u2.Entry.ID, ev.ID, "someone-else")
	assert.ErrorIs(t, err, service.ErrInvalidOfferState)
}

func TestPurchaseFailures(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)
	u1 := h.join(t, ev.ID, "u1")
	u2 := h.join(t, ev.ID, "u2")

	_, err := h.eng.Offers.Purchase(h.ctx, "missing", ev.ID, "u1", pay(1))
	assert.ErrorIs(t, err, service.ErrEntryNotFound)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = h.eng.Offers.Purchase(h.ctx, u1.Entry.ID, ev.ID, "u2", pay(1))
	assert.ErrorIs(t, err, service.ErrInvalidOfferState, "wrong owner")

	_, err = h.eng.Offers.Purchase(h.ctx, u2.Entry.ID, ev.ID, "u2", pay(1))
	assert.ErrorIs(t, err, service.ErrInvalidOfferState, "waiting entries cannot purchase")
	assert.ErrorIs(t, err, service.ErrInvalidState)

	other := h.flatEvent(t, 5)
	_, err = h.eng.Offers.Purchase(h.ctx, u1.Entry.ID, other.ID, "u1", pay(1))
	assert.ErrorIs(t, err, service.ErrEntryNotFound, "entry belongs to another event")

	h.clock.Advance(service.DefaultOfferWindow + time.Second)
	_, err = h.eng.Offers.Purchase(h.ctx, u1.Entry.ID, ev.ID, "u1", pay(1))
	assert.ErrorIs(t, err, service.ErrOfferExpired)
	assert.ErrorIs(t, err, service.ErrConflict)
	assert.Equal(t, model.EntryOffered, h.entry(t, u1.Entry.ID).Status, "failed purchase leaves the entry for its timer")
}

func TestJoinRejectsCancelledAndSeatedEvents(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 3)
	require.NoError(t, h.eng.Catalog.CancelEvent(h.ctx, ev.ID))
	_, err := h.eng.Queue.Join(h.ctx, ev.ID, "u1")
	assert.ErrorIs(t, err, service.ErrEventCancelled)

	seated := h.seatedEvent(t, []model.Section{{ID: "main", Rows: []string{"A"}, SeatLabels: []string{"1"}, PriceCents: 100}})
	_, err = h.eng.Queue.Join(h.ctx, seated.ID, "u1")
	assert.ErrorIs(t, err, service.ErrSeated)

	_, err = h.eng.Queue.Join(h.ctx, "missing", "u1")
	assert.ErrorIs(t, err, service.ErrEventNotFound)
}

func TestSchedulerFailureRollsBackJoin(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)
	h.sched.err = errors.New("redis down")

	_, err := h.eng.Queue.Join(h.ctx, ev.ID, "u1")
	require.Error(t, err)

	pos, err := h.eng.Queue.Position(h.ctx, ev.ID, "u1")
	require.NoError(t, err)
	assert.Nil(t, pos, "no entry survives a failed join")
	assert.Equal(t, 1, h.availability(t, ev.ID).Remaining)
}

func TestNoOversellFlat(t *testing.T) {
	h := newHarness(t)
	const capacity = 3
	ev := h.flatEvent(t, capacity)

	check := func(step string) {
		av := h.availability(t, ev.ID)
		assert.LessOrEqual(t, av.CommittedCount+av.PendingCount, av.TotalCapacity, step)
	}

	entries := map[string]string{}
	for i := 0; i < 8; i++ {
		u := fmt.Sprintf("u%d", i)
		entries[u] = h.join(t, ev.ID, u).Entry.ID
		check("join " + u)
	}
	for i := 0; i < 8; i++ {
		u := fmt.Sprintf("u%d", i)
		e := h.entry(t, entries[u])
		if e.Status != model.EntryOffered {
			continue
		}
		if i%2 == 0 {
			_, err := h.eng.Offers.Purchase(h.ctx, e.ID, ev.ID, u, pay(4500))
			require.NoError(t, err)
		} else {
			_, err := h.eng.Offers.Release(h.ctx, e.ID, ev.ID, u)
			require.NoError(t, err)
		}
		check("settle " + u)
	}
	h.clock.Advance(service.DefaultOfferWindow)
	for _, timer := range h.sched.offers {
		require.NoError(t, h.eng.Offers.Expire(h.ctx, timer.EntryID, timer.EventID))
		check("expire " + timer.EntryID)
	}

	tickets, err := h.eng.Ledger.ListByEvent(h.ctx, ev.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(tickets), capacity)
}

func TestSweepRecoversLostOfferTimers(t *testing.T) {
	h := newHarness(t)
	ev := h.flatEvent(t, 1)
	u1 := h.join(t, ev.ID, "u1")
	u2 := h.join(t, ev.ID, "u2")

	n, err := h.eng.Offers.SweepExpired(h.ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "nothing is due yet")

	h.clock.Advance(service.DefaultOfferWindow + time.Minute)
	n, err = h.eng.Offers.SweepExpired(h.ctx, 30*time.Second, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.EntryExpired, h.entry(t, u1.Entry.ID).Status)
	assert.Equal(t, model.EntryOffered, h.entry(t, u2.Entry.ID).Status)
}

func TestListByUser(t *testing.T) {
	h := newHarness(t)
	a := h.flatEvent(t, 1)
	b := h.flatEvent(t, 1)
	h.join(t, a.ID, "u1")
	h.join(t, b.ID, "u1")
	h.join(t, b.ID, "u2")

	got, err := h.eng.Queue.ListByUser(h.ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
