package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/storetest"
)

var t0 = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

func newEvent(t *testing.T, s *repository.Store, id string, total int) {
	t.Helper()
	require.NoError(t, s.Events.CreateTx(context.Background(), s.DB, &model.Event{
		ID: id, Name: "Show " + id, TotalTickets: total, PriceCents: 2500, CreatedAt: t0,
	}))
}

func TestEventLockTx(t *testing.T) {
	s := repository.NewStore(storetest.Open(t))
	ctx := context.Background()
	newEvent(t, s, "ev-1", 10)

	err := repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		return s.Events.LockTx(ctx, tx, "ev-1")
	})
	require.NoError(t, err)

	err = repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		return s.Events.LockTx(ctx, tx, "missing")
	})
	assert.ErrorIs(t, err, repository.ErrEventNotFound)

	e, err := s.Events.Get(ctx, s.DB, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 10, e.TotalTickets)
	assert.False(t, e.Seated())
	assert.Equal(t, t0, e.CreatedAt)
}

func TestSeatClaimIsCompareAndSwap(t *testing.T) {
	s := repository.NewStore(storetest.Open(t))
	ctx := context.Background()
	newEvent(t, s, "ev-1", 2)
	require.NoError(t, s.Seats.InsertManyTx(ctx, s.DB, []model.Seat{
		{ID: "s1", EventID: "ev-1", SectionID: "main", Row: "A", SeatNumber: "1", PriceCents: 100, Status: model.SeatAvailable},
		{ID: "s2", EventID: "ev-1", SectionID: "main", Row: "A", SeatNumber: "2", PriceCents: 100, Status: model.SeatAvailable},
	}))

	exp := repository.Millis(t0.Add(10 * time.Minute))
	n, err := s.Seats.ClaimTx(ctx, s.DB, []string{"s1"}, "h1", exp)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.Seats.ClaimTx(ctx, s.DB, []string{"s1", "s2"}, "h2", exp)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "only the available seat moves")

	released, err := s.Seats.ReleaseByHoldTx(ctx, s.DB, "h1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, released)

	sold, err := s.Seats.SellByHoldTx(ctx, s.DB, "h2", []string{"s2"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, sold)

	counts, err := s.Seats.Counts(ctx, s.DB, "ev-1", repository.Millis(t0))
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 1, counts.Sold)
	assert.Equal(t, 0, counts.HeldLive)
	assert.EqualValues(t, 100, counts.MinPrice.Int64)

	found, err := s.Seats.FindByRefs(ctx, s.DB, "ev-1", []model.SeatRef{{SectionID: "main", Row: "A", SeatNumber: "2"}, {SectionID: "main", Row: "Z", SeatNumber: "9"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, model.SeatSold, found[0].Status)
}

func TestWaitingListOrderingAndTransitions(t *testing.T) {
	s := repository.NewStore(storetest.Open(t))
	ctx := context.Background()
	newEvent(t, s, "ev-1", 1)

	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, s.Entries.CreateTx(ctx, s.DB, &model.WaitingListEntry{
			ID: id, EventID: "ev-1", UserID: "u" + id, Status: model.EntryWaiting, CreatedAt: t0.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	oldest, err := s.Entries.OldestWaiting(ctx, s.DB, "ev-1", 2)
	require.NoError(t, err)
	require.Len(t, oldest, 2)
	assert.Equal(t, "e1", oldest[0].ID)
	assert.Equal(t, "e2", oldest[1].ID)

	ok, err := s.Entries.OfferTx(ctx, s.DB, "e1", t0.Add(15*time.Minute), t0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Entries.OfferTx(ctx, s.DB, "e1", t0.Add(15*time.Minute), t0)
	require.NoError(t, err)
	assert.False(t, ok, "second offer is a no-op")

	live, err := s.Entries.CountLiveOffers(ctx, s.DB, "ev-1", repository.Millis(t0))
	require.NoError(t, err)
	assert.Equal(t, 1, live)

	ahead, err := s.Entries.CountAhead(ctx, s.DB, "ev-1", t0.Add(2*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 2, ahead, "offered entries still count as ahead")

	ok, err = s.Entries.TransitionTx(ctx, s.DB, "e1", model.EntryOffered, model.EntryExpired, t0)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Entries.FindActive(ctx, s.DB, "ev-1", "ue1")
	assert.ErrorIs(t, err, repository.ErrEntryNotFound)

	latest, err := s.Entries.LatestCreatedAt(ctx, s.DB, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, repository.Millis(t0.Add(2*time.Millisecond)), latest)
}

func TestTicketSummary(t *testing.T) {
	s := repository.NewStore(storetest.Open(t))
	ctx := context.Background()
	newEvent(t, s, "ev-1", 5)

	statuses := []string{model.TicketValid, model.TicketUsed, model.TicketRefunded, model.TicketCancelled}
	for i, st := range statuses {
		require.NoError(t, s.Tickets.InsertTx(ctx, s.DB, &model.Ticket{
			ID: "t" + st, EventID: "ev-1", UserID: "u1", Status: st, AmountCents: int64(1000 * (i + 1)), PurchasedAt: t0,
		}))
	}

	sum, err := s.Tickets.Summary(ctx, s.DB, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Sold)
	assert.Equal(t, 1, sum.Refunded)
	assert.Equal(t, 1, sum.Cancelled)
	assert.EqualValues(t, 3000, sum.RevenueCents)

	n, err := s.Tickets.CountCommitted(ctx, s.DB, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := s.Tickets.UpdateStatusTx(ctx, s.DB, "t"+model.TicketUsed, model.TicketValid, model.TicketRefunded, t0)
	require.NoError(t, err)
	assert.False(t, ok)
}
